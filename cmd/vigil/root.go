package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"vigil-go/internal/banner"
	"vigil-go/internal/config"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "vigil",
		Short: "Vigil - alerts on activity records",
		Long: `Vigil evaluates activity records against user-defined alert rules
and notifies through email, webhooks, IFTTT, Slack or record highlights.`,
		Version:       banner.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "config/config.yaml", "path to configuration file")

	cmd.AddCommand(
		newServeCommand(a),
		newMigrateCommand(a),
		newKindsCommand(a),
	)

	return cmd
}

// load reads the configuration and builds the logger.
func (a *app) load(stderr io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load configuration from %s: %v\n", a.configPath, err)
		return err
	}

	a.cfg = cfg
	a.logger = initLogger(&cfg.Logger)
	a.logger.Info("configuration loaded",
		"path", a.configPath,
		"storageMode", cfg.Storage.Mode,
	)
	return nil
}

// initLogger creates the application logger from config.
func initLogger(cfg *config.LoggerConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.ParseLevel(),
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
