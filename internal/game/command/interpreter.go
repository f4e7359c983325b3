package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dicebag/internal/game/dice"
	"github.com/cory-johannsen/dicebag/internal/game/macro"
)

// Kind discriminates interpreter outcomes.
type Kind int

const (
	KindInvalid Kind = iota
	KindHelp
	KindMacroList
	KindMacroAdded
	KindMacroRemoved
	KindRoll
	KindSuccess
	KindUsage
	KindNotFound
	KindInvalidName
	KindSyntax
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindHelp:
		return "help"
	case KindMacroList:
		return "macro-list"
	case KindMacroAdded:
		return "macro-added"
	case KindMacroRemoved:
		return "macro-removed"
	case KindRoll:
		return "roll"
	case KindSuccess:
		return "success"
	case KindUsage:
		return "usage"
	case KindNotFound:
		return "not-found"
	case KindInvalidName:
		return "invalid-name"
	case KindSyntax:
		return "syntax"
	default:
		return "unknown"
	}
}

// IsError reports whether k describes rejected input.
func (k Kind) IsError() bool {
	switch k {
	case KindInvalid, KindUsage, KindNotFound, KindInvalidName, KindSyntax:
		return true
	}
	return false
}

// Outcome is the discriminated result of one interpreted line. It is always
// returned, never thrown: bad input is reported through Kind.
type Outcome struct {
	Kind Kind
	// Text is the display message for the outcome.
	Text string
	// Macro is the macro name the outcome concerns, if any.
	Macro string
	// Macros is the listing for KindMacroList.
	Macros map[string]string
	// Expression is the expression text that was rolled or rejected.
	Expression string
	// Roll is set for KindRoll.
	Roll *dice.RollResult
	// Success is set for KindSuccess.
	Success *dice.SuccessResult
	// Err carries the underlying error. It may be set on a successful kind
	// when the macro store could not persist the change.
	Err error
}

const invalidText = "Invalid input. Type /help for usage."

// Interpreter dispatches slash commands and #macro invocations and evaluates
// plain roll expressions. It holds no state of its own between calls.
type Interpreter struct {
	registry *Registry
	macros   *macro.Store
	roller   *dice.Roller
	logger   *zap.Logger
}

// NewInterpreter creates an Interpreter over the given registry, macro store and roller.
//
// Precondition: all arguments must be non-nil.
func NewInterpreter(registry *Registry, macros *macro.Store, roller *dice.Roller, logger *zap.Logger) *Interpreter {
	return &Interpreter{
		registry: registry,
		macros:   macros,
		roller:   roller,
		logger:   logger,
	}
}

// IsCommand reports whether line is a slash command or a macro invocation.
func IsCommand(line string) bool {
	line = strings.TrimSpace(line)
	return strings.HasPrefix(line, CommandPrefix) || strings.HasPrefix(line, MacroPrefix)
}

// Handle interprets a slash command or #macro line.
//
// Precondition: IsCommand(line); any other line yields KindInvalid.
// Postcondition: Returns an Outcome; never panics on user input.
func (i *Interpreter) Handle(ctx context.Context, line string) Outcome {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, MacroPrefix):
		return i.invoke(strings.TrimPrefix(line, MacroPrefix))
	case strings.HasPrefix(line, CommandPrefix):
		return i.command(ctx, Parse(strings.TrimPrefix(line, CommandPrefix)))
	default:
		return Outcome{Kind: KindInvalid, Text: invalidText}
	}
}

// Roll compiles text (dice notation or the success-threshold shorthand) and
// evaluates it.
//
// Postcondition: Returns KindRoll, KindSuccess, or KindSyntax.
func (i *Interpreter) Roll(text string) Outcome {
	expr, err := dice.Compile(text)
	if err != nil {
		return Outcome{
			Kind:       KindSyntax,
			Text:       "Invalid input: " + strings.TrimSpace(text),
			Expression: text,
			Err:        err,
		}
	}
	if expr.IsSuccessCheck() {
		res := i.roller.RollSuccess(*expr.SuccessThreshold)
		return Outcome{Kind: KindSuccess, Text: res.String(), Expression: expr.Raw, Success: &res}
	}
	res := i.roller.Roll(expr)
	return Outcome{Kind: KindRoll, Text: res.String(), Expression: expr.Raw, Roll: &res}
}

func (i *Interpreter) command(ctx context.Context, p ParseResult) Outcome {
	cmd, ok := i.registry.Resolve(p.Command)
	if !ok {
		return Outcome{Kind: KindInvalid, Text: invalidText}
	}
	switch cmd.Handler {
	case HandlerHelp:
		if len(p.Args) > 0 {
			return Outcome{Kind: KindInvalid, Text: invalidText}
		}
		return Outcome{Kind: KindHelp, Text: HelpText(i.registry)}
	case HandlerMacro:
		return i.macro(ctx, p.Args)
	}
	return Outcome{Kind: KindInvalid, Text: invalidText}
}

func (i *Interpreter) macro(ctx context.Context, args []string) Outcome {
	if len(args) == 0 {
		return Outcome{Kind: KindInvalid, Text: invalidText}
	}
	switch sub, rest := strings.ToLower(args[0]), args[1:]; sub {
	case SubcommandList:
		if len(rest) != 0 {
			return usage(sub)
		}
		return i.list()
	case SubcommandAdd:
		if len(rest) != 2 {
			return usage(sub)
		}
		return i.add(ctx, rest[0], rest[1])
	case SubcommandRemove:
		if len(rest) != 1 {
			return usage(sub)
		}
		return i.remove(ctx, rest[0])
	}
	return Outcome{Kind: KindInvalid, Text: invalidText}
}

func (i *Interpreter) list() Outcome {
	names := i.macros.Names()
	if len(names) == 0 {
		return Outcome{Kind: KindMacroList, Text: "No macros defined.", Macros: map[string]string{}}
	}
	lines := make([]string, 0, len(names))
	for _, name := range names {
		expr, _ := i.macros.Get(name)
		lines = append(lines, fmt.Sprintf("#%s: %s", name, expr))
	}
	return Outcome{Kind: KindMacroList, Text: strings.Join(lines, "\n"), Macros: i.macros.List()}
}

func (i *Interpreter) add(ctx context.Context, name, expr string) Outcome {
	err := i.macros.Add(ctx, name, expr)
	switch {
	case errors.Is(err, macro.ErrInvalidName):
		return Outcome{
			Kind:  KindInvalidName,
			Text:  "Macro names may not contain spaces or '#'.",
			Macro: name,
			Err:   err,
		}
	case err != nil && !errors.Is(err, macro.ErrPersist):
		return Outcome{Kind: KindInvalid, Text: invalidText, Macro: name, Err: err}
	}
	return Outcome{
		Kind:       KindMacroAdded,
		Text:       fmt.Sprintf("Macro #%s saved: %s", name, expr),
		Macro:      name,
		Expression: expr,
		Err:        err,
	}
}

func (i *Interpreter) remove(ctx context.Context, name string) Outcome {
	err := i.macros.Remove(ctx, name)
	switch {
	case errors.Is(err, macro.ErrNotFound):
		return Outcome{Kind: KindNotFound, Text: fmt.Sprintf("Macro #%s not found.", name), Macro: name, Err: err}
	case err != nil && !errors.Is(err, macro.ErrPersist):
		return Outcome{Kind: KindInvalid, Text: invalidText, Macro: name, Err: err}
	}
	return Outcome{Kind: KindMacroRemoved, Text: fmt.Sprintf("Macro #%s removed.", name), Macro: name, Err: err}
}

// invoke rolls the expression stored under name exactly as if it had been typed.
func (i *Interpreter) invoke(name string) Outcome {
	name = strings.TrimSpace(name)
	expr, ok := i.macros.Get(name)
	if !ok {
		return Outcome{
			Kind:  KindNotFound,
			Text:  fmt.Sprintf("Macro #%s not found.", name),
			Macro: name,
			Err:   fmt.Errorf("%w: %q", macro.ErrNotFound, name),
		}
	}
	i.logger.Debug("invoking macro", zap.String("name", name), zap.String("expression", expr))
	out := i.Roll(expr)
	out.Macro = name
	return out
}

func usage(sub string) Outcome {
	return Outcome{Kind: KindUsage, Text: "Usage: " + macroUsage[sub]}
}

var macroUsage = map[string]string{
	SubcommandList:   "/macro list",
	SubcommandAdd:    "/macro add <name> <expression>",
	SubcommandRemove: "/macro remove <name>",
}

const diceHelp = `Dice expressions:
  NdF        roll N dice with F faces, N defaults to 1 (2d6, d20)
  NdF+M      add or subtract a flat modifier (1d20+5, 3d6-2)
  A+B, A-B   add or subtract dice terms (1d8+1d6, 2d6-1d4)
  NdFdlK     drop the lowest K dice (4d6dl1)
  NdFdhK     drop the highest K dice (2d20dh1)
  P or P%    percentile check, fails above 100-P (25%)
History:
  Up/Down    recall a previous line, Enter to roll it again
Commands:`

// HelpText renders the static usage text followed by every registered command.
func HelpText(r *Registry) string {
	var b strings.Builder
	b.WriteString(diceHelp)
	for _, cmd := range r.Commands() {
		for _, u := range cmd.Usage {
			fmt.Fprintf(&b, "\n  %-32s %s", u, cmd.Help)
		}
		if len(cmd.Aliases) > 0 {
			fmt.Fprintf(&b, "\n  %-32s alias of /%s", CommandPrefix+strings.Join(cmd.Aliases, ", "+CommandPrefix), cmd.Name)
		}
	}
	fmt.Fprintf(&b, "\n  %-32s %s", "#<name>", "Roll a saved macro")
	return b.String()
}
