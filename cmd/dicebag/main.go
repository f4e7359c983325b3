// Package main provides the local dice console: one roll desk on stdin and stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dicebag/internal/config"
	"github.com/cory-johannsen/dicebag/internal/frontend/handlers"
	"github.com/cory-johannsen/dicebag/internal/game/dice"
	"github.com/cory-johannsen/dicebag/internal/game/session"
	"github.com/cory-johannsen/dicebag/internal/observability"
	"github.com/cory-johannsen/dicebag/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (defaults and DICEBAG_ env when empty)")
	logFile := flag.String("log", "", "write logs to this file instead of stderr")
	color := flag.Bool("color", true, "color roll totals")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	var opts []observability.Option
	if *logFile != "" {
		opts = append(opts, observability.WithOutputPaths(*logFile))
	}
	logger, err := observability.NewLogger(cfg.Logging, opts...)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = observability.Sync(logger) }()

	if err := run(cfg, *color, logger); err != nil {
		logger.Error("console exited", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		_ = observability.Sync(logger)
		os.Exit(1)
	}
}

func run(cfg config.Config, color bool, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := dice.NewSource(cfg.Dice.Source, cfg.Dice.Seed)
	if err != nil {
		return err
	}
	macros, err := server.OpenMacroBackend(ctx, cfg.Macros, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer macros.Close()

	h := handlers.NewDeskHandler(macros.Factory, session.NewManager(), src, color, logger)
	err = h.Serve(ctx, handlers.NewConsole(os.Stdin, os.Stdout), "console")
	if ctx.Err() != nil {
		return nil
	}
	return err
}
