// Package handlers provides the interactive roll session served over Telnet
// and the local console.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dicebag/internal/frontend/telnet"
	"github.com/cory-johannsen/dicebag/internal/game/command"
	"github.com/cory-johannsen/dicebag/internal/game/dice"
	"github.com/cory-johannsen/dicebag/internal/game/history"
	"github.com/cory-johannsen/dicebag/internal/game/macro"
	"github.com/cory-johannsen/dicebag/internal/game/session"
)

var welcomeBanner = []string{
	"",
	telnet.Bold + telnet.Cyan + "  dicebag" + telnet.Reset,
	"",
	"  Roll dice with standard notation: " + telnet.Green + "1d20+5" + telnet.Reset + ", " + telnet.Green + "4d6dl1" + telnet.Reset + ", " + telnet.Green + "25%" + telnet.Reset,
	"  Type " + telnet.Green + "/help" + telnet.Reset + " for usage, " + telnet.Green + "quit" + telnet.Reset + " to disconnect.",
	"",
}

const (
	namePrompt = "Name: "
	rollPrompt = "> "
)

// DeskHandler implements telnet.SessionHandler. It asks the client for an
// owner name, opens a roll desk with that owner's macros, and then runs the
// read, submit, render loop until the client quits.
type DeskHandler struct {
	macros   macro.PersisterFactory
	sessions *session.Manager
	registry *command.Registry
	source   dice.Source
	color    bool
	logger   *zap.Logger
}

// NewDeskHandler creates a DeskHandler.
//
// Precondition: macros, sessions, source and logger must be non-nil. source
// must be safe for concurrent use, since it is shared by every session.
// Postcondition: Returns a DeskHandler ready to handle sessions.
func NewDeskHandler(macros macro.PersisterFactory, sessions *session.Manager, source dice.Source, color bool, logger *zap.Logger) *DeskHandler {
	return &DeskHandler{
		macros:   macros,
		sessions: sessions,
		registry: command.DefaultRegistry(),
		source:   source,
		color:    color,
		logger:   logger,
	}
}

// HandleSession implements telnet.SessionHandler.
//
// Postcondition: Returns nil on clean quit, or an error if the session ended abnormally.
func (h *DeskHandler) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	return h.Serve(ctx, conn, conn.RemoteAddr().String())
}

// Serve runs one session on term. remote identifies the client in logs.
//
// Postcondition: Returns nil when the client quits or closes its input, the
// context error on cancellation, or a wrapped I/O error.
func (h *DeskHandler) Serve(ctx context.Context, term Terminal, remote string) error {
	start := time.Now()
	logger := h.logger.With(zap.String("remote_addr", remote))

	for _, l := range welcomeBanner {
		if err := term.WriteLine(h.plain(l)); err != nil {
			return fmt.Errorf("sending welcome: %w", err)
		}
	}

	desk, err := h.open(ctx, term, logger)
	if err != nil || desk == nil {
		return ignoreEOF(err)
	}
	defer func() {
		_ = h.sessions.Remove(desk.ID())
		logger.Info("desk closed",
			zap.String("session_id", desk.ID().String()),
			zap.String("owner", desk.Owner()),
			zap.Int("lines", desk.History().Len()),
			zap.Duration("session_duration", time.Since(start)),
		)
	}()

	for {
		select {
		case <-ctx.Done():
			_ = term.WriteLine(h.paint(telnet.Yellow, "Server shutting down. Goodbye!"))
			return ctx.Err()
		default:
		}

		if err := term.WritePrompt(rollPrompt); err != nil {
			return fmt.Errorf("writing prompt: %w", err)
		}
		line, err := term.ReadLine()
		if err != nil {
			return ignoreEOF(fmt.Errorf("reading input: %w", err))
		}
		if isQuit(line) {
			_ = term.WriteLine(h.paint(telnet.Cyan, "Goodbye!"))
			return nil
		}

		for _, out := range Render(desk.Submit(ctx, line), h.color) {
			if err := term.WriteLine(out); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
		}
	}
}

// open prompts for an owner name until a desk is registered. It returns a
// nil desk and nil error when the client quits first.
func (h *DeskHandler) open(ctx context.Context, term Terminal, logger *zap.Logger) (*session.Desk, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := term.WritePrompt(namePrompt); err != nil {
			return nil, fmt.Errorf("writing prompt: %w", err)
		}
		line, err := term.ReadLine()
		if err != nil {
			return nil, fmt.Errorf("reading name: %w", err)
		}
		owner := strings.TrimSpace(line)
		switch {
		case owner == "":
			continue
		case isQuit(owner):
			_ = term.WriteLine(h.paint(telnet.Cyan, "Goodbye!"))
			return nil, nil
		case !macro.ValidOwner(owner):
			_ = term.WriteLine(h.paint(telnet.Red, "Names are 1-32 letters, digits, '_' or '-'."))
			continue
		}

		desk := h.newDesk(ctx, term, owner, logger)
		if err := h.sessions.Add(desk); err != nil {
			_ = term.WriteLine(h.paint(telnet.Red, fmt.Sprintf("%s is already at the table.", owner)))
			continue
		}
		logger.Info("desk opened",
			zap.String("session_id", desk.ID().String()),
			zap.String("owner", owner),
			zap.Int("macros", desk.Macros().Len()),
		)
		_ = term.WriteLine(fmt.Sprintf("Welcome, %s. %d macro(s) loaded.", owner, desk.Macros().Len()))
		return desk, nil
	}
}

func (h *DeskHandler) newDesk(ctx context.Context, term Terminal, owner string, logger *zap.Logger) *session.Desk {
	store := macro.NewStore(h.macros(owner), logger.With(zap.String("owner", owner)))
	if err := store.Load(ctx); err != nil {
		logger.Warn("loading macros", zap.String("owner", owner), zap.Error(err))
		_ = term.WriteLine(h.paint(telnet.Yellow, "Warning: saved macros could not be loaded."))
	}
	roller := dice.NewLoggedRoller(h.source, logger)
	interp := command.NewInterpreter(h.registry, store, roller, logger)
	return session.NewDesk(owner, interp, store, history.New(), logger)
}

func (h *DeskHandler) paint(code, text string) string {
	return paint(h.color, code, text)
}

// plain strips styling from banner text when color is off.
func (h *DeskHandler) plain(text string) string {
	if h.color {
		return text
	}
	return telnet.StripANSI(text)
}

func isQuit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "quit", "exit":
		return true
	}
	return false
}

func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
