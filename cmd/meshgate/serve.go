package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rskv-p/meshgate/internal/bridge"
	"github.com/rskv-p/meshgate/internal/config"
	"github.com/rskv-p/meshgate/internal/gwlog"
	"github.com/rskv-p/meshgate/internal/supervisor"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway, bridging WebSocket clients to the configured NATS bus",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configOverlayPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gwlog.SetGlobal(gwlog.New(gwlog.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	}))
	log := gwlog.L()

	bus, err := bridge.Connect(cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("connect to bus: %w", err)
	}

	sup, err := supervisor.New(cfg, bus)
	if err != nil {
		bus.Close()
		return fmt.Errorf("start supervisor: %w", err)
	}
	defer sup.Close()

	log.Info().Str("addr", sup.Addr().String()).Str("bus", cfg.NATSURL).Msg("gateway listening")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := sup.Serve(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	log.Info().Msg("gateway shut down cleanly")
	return nil
}
