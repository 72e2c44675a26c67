package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pks0715/seggy/internal/config"
	"github.com/pks0715/seggy/internal/llm"
	"github.com/pks0715/seggy/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP analysis server",
		Long: `Serve starts an HTTP server exposing the analysis pipeline.

Routes:
  GET  /health       liveness probe
  POST /analyze      multipart upload ("files", dd_type, report_focus,
                     checklist_type), returns a JSON report
  POST /analyze/pdf  same upload, returns the report as PDF

Without an API key the server still starts; analysis routes then answer
503 so that the misconfiguration is visible to clients.

Examples:
  # Listen on the default port (10000, or $PORT)
  seggy serve

  # Listen on another port with JSON logs
  SEGGY_LOG_FORMAT=json seggy serve --port 8080`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().IntP("port", "p", config.DefaultPort,
		"Port to listen on")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .seggy.yaml in current or home directory)")
	cmd.Flags().Bool("save-history", false,
		"Save run metadata to the history database")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithOptions(server.Options{
			Port:           cfg.Port,
			RequestTimeout: cfg.RequestTimeout,
			MaxUploadBytes: cfg.MaxUploadBytes,
		}),
	}

	var analyzer server.Analyzer
	runner, err := newRunner(ctx, cfg, logger)
	switch {
	case errors.Is(err, llm.ErrNoAPIKey):
		logger.Warn("no API key configured, analysis routes will answer 503")
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: no API key configured; /analyze will answer 503.")
	case err != nil:
		return err
	default:
		analyzer = runner
	}

	db, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		opts = append(opts, server.WithHistory(db))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "seggy listening on :%d\n", cfg.Port)
	return server.New(analyzer, opts...).Run(ctx)
}

// buildServeConfig loads the configuration and applies explicitly set flags.
func buildServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("port") {
		if cfg.Port, err = cmd.Flags().GetInt("port"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("save-history") {
		if cfg.SaveHistory, err = cmd.Flags().GetBool("save-history"); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
