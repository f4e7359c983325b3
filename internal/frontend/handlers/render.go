package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cory-johannsen/dicebag/internal/frontend/telnet"
	"github.com/cory-johannsen/dicebag/internal/game/command"
	"github.com/cory-johannsen/dicebag/internal/game/dice"
	"github.com/cory-johannsen/dicebag/internal/game/macro"
	"github.com/cory-johannsen/dicebag/internal/game/session"
)

const persistWarning = "Warning: macro changes could not be saved and will be lost on disconnect."

// Render formats a desk response as display lines. When color is true, roll
// totals are green if every kept die rolled its maximum and red if every kept
// die rolled its minimum; success checks are green or red by result.
//
// Postcondition: Returns no lines for an empty response.
func Render(resp session.Response, color bool) []string {
	switch resp.Kind {
	case session.ResponseRecall:
		if resp.Recalled == "" {
			return []string{paint(color, telnet.Cyan, "(end of history)")}
		}
		return []string{paint(color, telnet.Cyan, fmt.Sprintf("Recalled: %s (press Enter to submit)", resp.Recalled))}
	case session.ResponseOutcome:
		return renderOutcome(resp.Outcome, color)
	}
	return nil
}

func renderOutcome(out command.Outcome, color bool) []string {
	var lines []string
	switch {
	case out.Kind == command.KindRoll && out.Roll != nil:
		lines = []string{macroLabel(out.Macro) + renderRoll(*out.Roll, color)}
	case out.Kind == command.KindSuccess && out.Success != nil:
		lines = []string{macroLabel(out.Macro) + renderSuccess(*out.Success, color)}
	case out.Kind.IsError():
		for _, l := range strings.Split(out.Text, "\n") {
			lines = append(lines, paint(color, telnet.Red, l))
		}
	default:
		lines = strings.Split(out.Text, "\n")
	}
	if errors.Is(out.Err, macro.ErrPersist) {
		lines = append(lines, paint(color, telnet.Yellow, persistWarning))
	}
	return lines
}

func renderRoll(r dice.RollResult, color bool) string {
	total := strconv.Itoa(r.Total)
	switch {
	case r.AllMax:
		total = paint(color, telnet.Green, total)
	case r.AllMin:
		total = paint(color, telnet.Red, total)
	}
	return fmt.Sprintf("%s → %s = %s", r.Expression, r.Summary(), total)
}

func renderSuccess(s dice.SuccessResult, color bool) string {
	verdict, hue := "failure", telnet.Red
	if s.Success {
		verdict, hue = "success", telnet.Green
	}
	return fmt.Sprintf("1d100 → %d vs %d: %s", s.Roll, s.Limit(), paint(color, hue, verdict))
}

func macroLabel(name string) string {
	if name == "" {
		return ""
	}
	return command.MacroPrefix + name + ": "
}

func paint(color bool, code, text string) string {
	if !color {
		return text
	}
	return telnet.Colorize(code, text)
}
