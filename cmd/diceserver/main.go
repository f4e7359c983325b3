// Package main provides the networked dice table. It wires together
// configuration, macro storage, the Telnet acceptor, and the gRPC health service.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dicebag/internal/config"
	"github.com/cory-johannsen/dicebag/internal/frontend/handlers"
	"github.com/cory-johannsen/dicebag/internal/frontend/telnet"
	"github.com/cory-johannsen/dicebag/internal/game/dice"
	"github.com/cory-johannsen/dicebag/internal/game/session"
	"github.com/cory-johannsen/dicebag/internal/observability"
	"github.com/cory-johannsen/dicebag/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	healthInterval := flag.Duration("health-interval", 15*time.Second, "interval between health checks")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, observability.WithName("diceserver"))
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = observability.Sync(logger) }()

	logger.Info("starting dice server",
		zap.String("dice_source", cfg.Dice.Source),
		zap.String("macro_backend", cfg.Macros.Backend),
	)

	src, err := dice.NewSource(cfg.Dice.Source, cfg.Dice.Seed)
	if err != nil {
		logger.Fatal("creating dice source", zap.Error(err))
	}

	ctx := context.Background()
	macros, err := server.OpenMacroBackend(ctx, cfg.Macros, cfg.Database, logger)
	if err != nil {
		logger.Fatal("opening macro backend", zap.Error(err))
	}
	defer macros.Close()

	sessions := session.NewManager()
	deskHandler := handlers.NewDeskHandler(macros.Factory, sessions, src, cfg.Telnet.Color, logger)
	telnetAcceptor := telnet.NewAcceptor(cfg.Telnet, deskHandler, logger)
	health := server.NewHealthService(cfg.GRPC.Addr(), macros.Checks, *healthInterval, logger)

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("health", health)
	lifecycle.Add("telnet", &server.FuncService{
		StartFn: telnetAcceptor.ListenAndServe,
		StopFn:  telnetAcceptor.Stop,
	})

	logger.Info("server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("telnet_addr", cfg.Telnet.Addr()),
		zap.String("grpc_addr", cfg.GRPC.Addr()),
		zap.Strings("services", lifecycle.Names()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
		macros.Close()
		_ = observability.Sync(logger)
		log.Fatalf("server error: %v", err)
	}
	logger.Info("server stopped", zap.Int("open_sessions", sessions.Count()))
}
