package main

import (
	"context"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vigil-go/internal/banner"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the record processor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

// serve runs the API and the processor until SIGINT or SIGTERM.
func (a *app) serve(parent context.Context, out io.Writer) error {
	cfg, logger := a.cfg, a.logger

	banner.Print(out, string(cfg.Storage.Mode))

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	deps, cleanup, err := initDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", "error", err)
		return err
	}
	defer cleanup()

	// Start processor in background
	go func() {
		if err := deps.processor.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("processor error", "error", err)
			cancel()
		}
	}()

	// Start HTTP server
	go func() {
		if err := deps.server.Start(); err != nil {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	logger.Info("Vigil started",
		"address", cfg.Server.Address(),
		"storageMode", cfg.Storage.Mode,
		"triggers", deps.triggers.Kinds(),
		"notifiers", deps.notifiers.Kinds(),
	)

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout+cfg.Dispatch.NotifierTimeout)
	defer shutdownCancel()

	if err := deps.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := deps.processor.Stop(); err != nil {
		logger.Error("processor shutdown error", "error", err)
	}

	// In-flight notifications finish before the stores close.
	if err := deps.pool.Shutdown(shutdownCtx); err != nil {
		logger.Error("dispatch pool shutdown error", "error", err)
	}

	logger.Info("Vigil stopped")
	return nil
}
