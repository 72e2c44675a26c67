package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/pks0715/seggy/internal/config"
	"github.com/pks0715/seggy/internal/database"
	"github.com/pks0715/seggy/internal/model"
	"github.com/pks0715/seggy/internal/pipeline"
	"github.com/pks0715/seggy/internal/report"
)

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [files...]",
		Short: "Analyze financial documents and print a due-diligence report",
		Long: `Analyze extracts text from the given PDF files and ZIP archives of PDFs,
analyzes them in batches and synthesizes a due-diligence report.

Each batch is sent to the backends of the batch tier in order until one
returns an answer that passes the quality gate. Batches that no backend
can answer are skipped; the run fails only when no text could be
extracted or every batch failed.

Examples:
  # Analyze two statements
  seggy analyze income.pdf balance.pdf

  # Analyze an archive with a detailed checklist, 3 documents per batch
  seggy analyze --checklist Detailed --batch-size 3 dataroom.zip

  # Write a Markdown report with charts
  seggy analyze --markdown -o report.md dataroom.zip

  # Write a PDF report and keep run metadata for later comparison
  seggy analyze --pdf -o report.pdf --save-history dataroom.zip`,
		Args: cobra.ArbitraryArgs,
		RunE: runAnalyzeCmd,
	}

	// Classification flags
	cmd.Flags().String("dd-type", "",
		"Engagement type (default \""+model.DefaultDDType+"\")")
	cmd.Flags().String("focus", "",
		"Report focus (default \""+model.DefaultReportFocus+"\")")
	cmd.Flags().String("checklist", "",
		"Checklist depth: Simple, Detailed or Comprehensive (default \""+model.DefaultChecklistType+"\")")

	// Batching flags
	cmd.Flags().IntP("batch-size", "b", pipeline.DefaultBatchSize,
		"Number of documents per batch")
	cmd.Flags().Int("concurrency", pipeline.DefaultConcurrency,
		"Number of batches analyzed at once")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .seggy.yaml in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown and --pdf)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report with charts (mutually exclusive with --json and --pdf)")
	cmd.Flags().Bool("pdf", false,
		"Output PDF report (requires --output)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// History
	cmd.Flags().Bool("save-history", false,
		"Save run metadata to the history database")

	return cmd
}

// runAnalyzeCmd executes the analyze command.
func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildAnalyzeConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	classification, err := buildClassification(cmd)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runAnalysis(ctx, cfg, classification, args, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// buildAnalyzeConfig loads the configuration and applies explicitly set flags.
func buildAnalyzeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("batch-size") {
		if cfg.BatchSize, err = flags.GetInt("batch-size"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("concurrency") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("save-history") {
		if cfg.SaveHistory, err = flags.GetBool("save-history"); err != nil {
			return nil, err
		}
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.PDFReport, err = flags.GetBool("pdf"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	if cfg.PDFReport && cfg.ReportFile == "" {
		return nil, errors.New("--pdf requires --output")
	}
	return cfg, nil
}

// classificationValidator checks classification flags with the same rules
// as the HTTP form.
var classificationValidator = validator.New(validator.WithRequiredStructEnabled())

// buildClassification reads and validates the classification flags.
func buildClassification(cmd *cobra.Command) (model.Classification, error) {
	var c model.Classification
	var err error

	if c.DDType, err = cmd.Flags().GetString("dd-type"); err != nil {
		return c, err
	}
	if c.ReportFocus, err = cmd.Flags().GetString("focus"); err != nil {
		return c, err
	}
	if c.ChecklistType, err = cmd.Flags().GetString("checklist"); err != nil {
		return c, err
	}

	if err := classificationValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "ChecklistType" {
			return c, fmt.Errorf("invalid --checklist %q: must be one of Simple, Detailed, Comprehensive", c.ChecklistType)
		}
		return c, fmt.Errorf("invalid classification: %w", err)
	}
	return c, nil
}

// readUploads reads the files named on the command line.
func readUploads(paths []string) ([]model.Upload, error) {
	uploads := make([]model.Upload, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path) //nolint:gosec // user-provided input path is intentional
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		uploads = append(uploads, model.Upload{Name: filepath.Base(path), Data: data})
	}
	return uploads, nil
}

// runAnalysis executes the pipeline over paths and writes the report.
func runAnalysis(ctx context.Context, cfg *config.Config, c model.Classification, paths []string, stdout, stderr io.Writer, logger *slog.Logger) error {
	if len(paths) == 0 {
		return errors.New("no input files provided (specify one or more PDF or ZIP files as arguments)")
	}

	uploads, err := readUploads(paths)
	if err != nil {
		return err
	}

	runner, err := newRunner(ctx, cfg, logger)
	if err != nil {
		return err
	}

	db, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	return analyzeWith(ctx, runner, cfg, pipeline.AnalyzeRequest{
		Uploads:        uploads,
		Classification: c,
	}, db, stdout, stderr, logger)
}

// analyzer is the part of *pipeline.Runner used by the CLI.
type analyzer interface {
	Analyze(ctx context.Context, req pipeline.AnalyzeRequest) (*model.Analysis, error)
}

// analyzeWith runs one analysis, streaming batch progress to stderr, and
// writes the report. db may be nil.
func analyzeWith(ctx context.Context, a analyzer, cfg *config.Config, req pipeline.AnalyzeRequest, db *database.HistoryDB, stdout, stderr io.Writer, logger *slog.Logger) error {
	fmt.Fprintf(stderr, "Analyzing %d file(s)...\n", len(req.Uploads))

	var mu sync.Mutex
	req.OnBatch = func(result model.BatchResult, _ int) {
		mu.Lock()
		defer mu.Unlock()
		if result.Succeeded {
			fmt.Fprintf(stderr, "[+] batch %d: %d file(s) analyzed by %s\n", result.BatchIndex, result.FileCount(), result.Backend)
		} else {
			fmt.Fprintf(stderr, "[!] batch %d: %d file(s) failed: %s\n", result.BatchIndex, result.FileCount(), result.Err)
		}
	}

	analysis, err := a.Analyze(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrNoContent):
			return fmt.Errorf("could not extract text from any file: %w", err)
		case errors.Is(err, pipeline.ErrAllBatchesFailed):
			return fmt.Errorf("analysis failed, no backend produced an accepted answer: %w", err)
		default:
			return fmt.Errorf("analysis failed: %w", err)
		}
	}

	fmt.Fprintf(stderr, "Analysis completed in %s (%d/%d batches, synthesis: %s)\n\n",
		model.FormatProcessingTime(analysis.Elapsed),
		analysis.SucceededBatches(), len(analysis.Batches),
		analysis.Report.Header.SynthesisMode(),
	)

	if err := outputReport(cfg, analysis, stdout); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if db != nil {
		if err := db.SaveRun(ctx, analysis); err != nil {
			logger.Error("failed to save run history", "run_id", analysis.RunID, "error", err)
		} else {
			fmt.Fprintf(stderr, "Run saved to history: %s\n", analysis.RunID)
		}
	}
	return nil
}

// outputReport writes the analysis in the requested format to the report
// file, or to stdout when no file is set.
func outputReport(cfg *config.Config, a *model.Analysis, stdout io.Writer) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports may contain confidential figures; owner-only permissions.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	case cfg.PDFReport:
		w = report.NewPDFWriter(output)
	default:
		w = report.NewTextWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := w.Write(a)
	return err
}
