// Package session provides the per-user roll desk and tracking of live desks.
package session

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dicebag/internal/game/command"
	"github.com/cory-johannsen/dicebag/internal/game/history"
	"github.com/cory-johannsen/dicebag/internal/game/macro"
)

// Terminal escape sequences sent by the arrow keys. A submitted line made up
// only of these sequences navigates history instead of rolling.
const (
	KeyUp   = "\x1b[A"
	KeyDown = "\x1b[B"
)

// ResponseKind discriminates Submit results.
type ResponseKind int

const (
	// ResponseEmpty means nothing was submitted.
	ResponseEmpty ResponseKind = iota
	// ResponseRecall means the history cursor moved; Recalled holds the entry,
	// empty when the cursor reached the end of history.
	ResponseRecall
	// ResponseOutcome means a line was interpreted; Outcome holds the result.
	ResponseOutcome
)

// Response is the result of submitting one input line to a Desk.
type Response struct {
	Kind     ResponseKind
	Line     string // the line that was interpreted, after recall substitution
	Recalled string
	Outcome  command.Outcome
}

// Desk is one user's roll session: an input history, a macro store and an
// interpreter. A Desk is driven by a single input loop and is not safe for
// concurrent use.
type Desk struct {
	id      uuid.UUID
	owner   string
	started time.Time

	history *history.Buffer
	macros  *macro.Store
	interp  *command.Interpreter
	logger  *zap.Logger

	pending string // entry recalled by the last arrow key, submitted by an empty line
}

// NewDesk creates a Desk for owner.
//
// Precondition: interp, macros, hist and logger must be non-nil.
// Postcondition: Returns a Desk with a fresh random ID.
func NewDesk(owner string, interp *command.Interpreter, macros *macro.Store, hist *history.Buffer, logger *zap.Logger) *Desk {
	id := uuid.New()
	return &Desk{
		id:      id,
		owner:   owner,
		started: time.Now(),
		history: hist,
		macros:  macros,
		interp:  interp,
		logger:  logger.With(zap.String("session_id", id.String()), zap.String("owner", owner)),
	}
}

// ID returns the desk's unique identifier.
func (d *Desk) ID() uuid.UUID { return d.id }

// Owner returns the name the desk was opened for.
func (d *Desk) Owner() string { return d.owner }

// Started returns when the desk was created.
func (d *Desk) Started() time.Time { return d.started }

// History returns the desk's input history.
func (d *Desk) History() *history.Buffer { return d.history }

// Macros returns the desk's macro store.
func (d *Desk) Macros() *macro.Store { return d.macros }

// Submit processes one raw input line.
//
// Arrow-key lines move the history cursor and stage the recalled entry; an
// empty line submits the staged entry. Any other line is appended to history
// and dispatched: slash commands and #macros to the interpreter, everything
// else to the roll path.
//
// Postcondition: Returns a Response; bad input is reported, never fatal.
func (d *Desk) Submit(ctx context.Context, line string) Response {
	if keys, ok := recallKeys(line); ok {
		return d.recall(keys)
	}

	line = strings.TrimSpace(line)
	if line == "" {
		if d.pending == "" {
			return Response{Kind: ResponseEmpty}
		}
		line = d.pending
	}
	d.pending = ""

	d.history.Push(line)

	var out command.Outcome
	if command.IsCommand(line) {
		out = d.interp.Handle(ctx, line)
	} else {
		out = d.interp.Roll(line)
	}
	d.logger.Debug("line interpreted",
		zap.String("line", line),
		zap.Stringer("kind", out.Kind),
	)
	return Response{Kind: ResponseOutcome, Line: line, Outcome: out}
}

func (d *Desk) recall(keys []string) Response {
	var (
		entry string
		ok    bool
	)
	for _, k := range keys {
		if k == KeyUp {
			entry, ok = d.history.Prev()
		} else {
			entry, ok = d.history.Next()
		}
	}
	if !ok {
		entry = ""
	}
	d.pending = entry
	return Response{Kind: ResponseRecall, Recalled: entry}
}

// recallKeys splits line into arrow-key sequences. It reports false unless
// line is non-empty and consists only of KeyUp and KeyDown.
func recallKeys(line string) ([]string, bool) {
	var keys []string
	for line != "" {
		switch {
		case strings.HasPrefix(line, KeyUp):
			keys = append(keys, KeyUp)
			line = line[len(KeyUp):]
		case strings.HasPrefix(line, KeyDown):
			keys = append(keys, KeyDown)
			line = line[len(KeyDown):]
		default:
			return nil, false
		}
	}
	return keys, len(keys) > 0
}
