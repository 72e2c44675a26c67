package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pks0715/seggy/internal/config"
	"github.com/pks0715/seggy/internal/database"
	"github.com/pks0715/seggy/internal/extract"
	"github.com/pks0715/seggy/internal/llm"
	seclog "github.com/pks0715/seggy/internal/log"
	"github.com/pks0715/seggy/internal/pipeline"
	"github.com/pks0715/seggy/internal/report"
	"github.com/pks0715/seggy/internal/transport"
)

// errNoAPIKeyHint is shown when a command needs backends but no key is set.
var errNoAPIKeyHint = fmt.Errorf("%w: set SEGGY_API_KEY or OPENROUTER_API_KEY (a .env file works too)", llm.ErrNoAPIKey)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// loadConfig builds a Config from the config file and environment named
// by the command's --config flag. Command-specific flags are applied by
// the caller.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(path)
	if errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmt.Errorf("configuration file not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg.Verbose = getVerboseFlag(cmd)
	return cfg, nil
}

// setupLogger creates the secure logger selected by the configuration.
func setupLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	if cfg.LogFormat == config.LogFormatJSON {
		return seclog.NewSecureJSONLogger(w, cfg.Verbose)
	}
	return seclog.NewSecureLogger(w, cfg.Verbose)
}

// newRunner wires extractor, generation client and post-processor into a
// pipeline runner. It returns an error wrapping llm.ErrNoAPIKey when no
// key is configured.
func newRunner(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline.Runner, error) {
	if !cfg.HasAPIKey() {
		return nil, errNoAPIKeyHint
	}

	tiers, err := cfg.Tiers()
	if err != nil {
		return nil, err
	}

	proxyAddr := cfg.ProxyAddress
	if proxyAddr == "" {
		proxyAddr = transport.ProxyFromEnv()
	}
	if proxyAddr != "" {
		status := transport.CheckProxy(ctx, proxyAddr)
		if status != transport.ProxyStatusOK {
			return nil, fmt.Errorf("egress proxy check failed: %s (make sure the proxy is running at %s): %w",
				status, proxyAddr, status.Error())
		}
		logger.Info("egress proxy verified", "address", proxyAddr)
	}

	httpClient, err := transport.NewHTTPClient(transport.Options{
		ProxyAddress: proxyAddr,
		UserAgent:    cfg.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	completer, err := llm.NewOpenAICompleter(cfg.APIKey,
		llm.WithHTTPClient(httpClient),
		llm.WithHeaders(cfg.Headers()),
	)
	if err != nil {
		return nil, err
	}

	client := llm.NewClient(completer,
		llm.WithLogger(logger),
		llm.WithGate(cfg.QualityGate()),
	)
	extractor := extract.New(
		extract.WithLogger(logger),
		extract.WithOptions(cfg.ExtractOptions()),
	)

	return pipeline.NewRunner(extractor, client, tiers,
		pipeline.WithRunnerLogger(logger),
		pipeline.WithLimits(cfg.PipelineLimits()),
		pipeline.WithPostProcessor(report.NewChartPostProcessor(logger)),
	), nil
}

// openHistory opens the history database when history is enabled.
// It returns nil without error when history is disabled.
func openHistory(cfg *config.Config, logger *slog.Logger) (*database.HistoryDB, error) {
	if !cfg.SaveHistory {
		return nil, nil
	}
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	logger.Info("history database opened", "path", db.Path())
	return db, nil
}
