// Package command provides the slash-command registry, line parser, and the
// interpreter that dispatches commands and macro invocations.
package command

// Categories for organizing commands.
const (
	CategoryMacro  = "macro"
	CategorySystem = "system"
)

// Handler identifiers mapping commands to interpreter handlers.
const (
	HandlerHelp  = "help"
	HandlerMacro = "macro"
)

// Macro subcommands accepted after /macro.
const (
	SubcommandList   = "list"
	SubcommandAdd    = "add"
	SubcommandRemove = "remove"
)

// Line prefixes recognised by the interpreter.
const (
	CommandPrefix = "/"
	MacroPrefix   = "#"
)

// Command defines a user-invocable slash command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Help is the short help text displayed to users.
	Help string
	// Usage lists the accepted argument forms, one per line.
	Usage []string
	// Category groups the command (macro, system).
	Category string
	// Handler maps to the interpreter handler.
	Handler string
}

// BuiltinCommands returns all built-in slash commands.
func BuiltinCommands() []Command {
	return []Command{
		{
			Name:     "help",
			Aliases:  []string{"?"},
			Help:     "Show dice syntax and available commands",
			Usage:    []string{"/help"},
			Category: CategorySystem,
			Handler:  HandlerHelp,
		},
		{
			Name:     "macro",
			Aliases:  []string{"m"},
			Help:     "Manage named roll macros",
			Usage:    []string{"/macro list", "/macro add <name> <expression>", "/macro remove <name>"},
			Category: CategoryMacro,
			Handler:  HandlerMacro,
		},
	}
}
