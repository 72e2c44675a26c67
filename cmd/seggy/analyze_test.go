package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/pks0715/seggy/internal/config"
	"github.com/pks0715/seggy/internal/database"
	"github.com/pks0715/seggy/internal/model"
	"github.com/pks0715/seggy/internal/pipeline"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeConfig writes a config file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), config.DefaultConfigFile)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// parsedAnalyzeCmd returns an analyze command with args parsed.
func parsedAnalyzeCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()

	cmd := NewAnalyzeCmd()
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	return cmd
}

// scriptedAnalyzer returns a fixed analysis or error and replays batch
// results through the request callback.
type scriptedAnalyzer struct {
	analysis *model.Analysis
	err      error
}

func (s *scriptedAnalyzer) Analyze(_ context.Context, req pipeline.AnalyzeRequest) (*model.Analysis, error) {
	if s.err != nil {
		return model.NewAnalysis(req.Uploads, req.Classification), s.err
	}
	if req.OnBatch != nil {
		for i, r := range s.analysis.Results {
			req.OnBatch(r, i)
		}
	}
	return s.analysis, nil
}

// finishedAnalysis creates a two-batch analysis with one failed batch.
func finishedAnalysis() *model.Analysis {
	a := model.NewAnalysis(nil, model.Classification{})
	a.UploadedNames = []string{"income.pdf", "balance.pdf", "cash.pdf"}
	a.Batches = []model.Batch{{Index: 1, Total: 2}, {Index: 2, Total: 2}}
	a.Results = []model.BatchResult{
		{BatchIndex: 1, DocumentNames: []string{"income.pdf", "balance.pdf"}, Succeeded: true, Backend: "llama"},
		{BatchIndex: 2, DocumentNames: []string{"cash.pdf"}, Err: "all backends exhausted"},
	}
	a.Report = &model.FinalReport{
		Header: model.ReportHeader{TotalFiles: 3, BatchCount: 2, SucceededBatches: 1, BatchSize: 2, Synthesized: true},
		Body:   "## Executive Summary\n- Revenue in 2023 was $10M.",
	}
	a.Summary = model.FinancialSummary{Years: []int{2023}, Revenue: []float64{10}}
	a.Elapsed = 3 * time.Second
	return a
}

// TestNewAnalyzeCmd tests the analyze command flags.
func TestNewAnalyzeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewAnalyzeCmd()
	for _, name := range []string{
		"dd-type", "focus", "checklist", "batch-size", "concurrency",
		"config", "json", "markdown", "pdf", "output", "save-history",
	} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
	if got := cmd.Flags().Lookup("batch-size").DefValue; got != "5" {
		t.Errorf("expected batch-size default 5, got %s", got)
	}
}

// TestBuildAnalyzeConfig tests flag handling on top of the config file.
func TestBuildAnalyzeConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "limits:\n  batch_size: 3\n  concurrency: 2\n")

	t.Run("file values are kept when flags are not set", func(t *testing.T) {
		t.Parallel()

		cfg, err := buildAnalyzeConfig(parsedAnalyzeCmd(t, "--config", path))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.BatchSize != 3 || cfg.Concurrency != 2 {
			t.Errorf("expected file limits 3/2, got %d/%d", cfg.BatchSize, cfg.Concurrency)
		}
	})

	t.Run("explicit flags override the file", func(t *testing.T) {
		t.Parallel()

		cfg, err := buildAnalyzeConfig(parsedAnalyzeCmd(t, "--config", path, "--batch-size", "7", "--json", "-o", "out.json"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.BatchSize != 7 || !cfg.JSONReport || cfg.ReportFile != "out.json" {
			t.Errorf("flags not applied: %+v", cfg)
		}
	})

	t.Run("pdf requires output", func(t *testing.T) {
		t.Parallel()

		_, err := buildAnalyzeConfig(parsedAnalyzeCmd(t, "--config", path, "--pdf"))
		if err == nil || !strings.Contains(err.Error(), "--pdf requires --output") {
			t.Errorf("expected pdf/output error, got %v", err)
		}
	})

	t.Run("conflicting formats fail validation", func(t *testing.T) {
		t.Parallel()

		cfg, err := buildAnalyzeConfig(parsedAnalyzeCmd(t, "--config", path, "--json", "--markdown"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := cfg.Validate(); !errors.Is(err, config.ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", err)
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()

		_, err := buildAnalyzeConfig(parsedAnalyzeCmd(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
		if err == nil || !strings.Contains(err.Error(), "configuration file not found") {
			t.Errorf("expected not found error, got %v", err)
		}
	})
}

// TestBuildClassification tests classification flags.
func TestBuildClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		want    model.Classification
		wantErr bool
	}{
		{
			name: "empty flags are left for defaults",
			args: nil,
			want: model.Classification{},
		},
		{
			name: "all flags",
			args: []string{"--dd-type", "Vendor DD", "--focus", "Cash Flow", "--checklist", "Comprehensive"},
			want: model.Classification{DDType: "Vendor DD", ReportFocus: "Cash Flow", ChecklistType: "Comprehensive"},
		},
		{
			name:    "unknown checklist",
			args:    []string{"--checklist", "Exhaustive"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := buildClassification(parsedAnalyzeCmd(t, tt.args...))
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "--checklist") {
					t.Errorf("expected checklist error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

// TestReadUploads tests reading input files.
func TestReadUploads(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "income.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0600); err != nil {
		t.Fatal(err)
	}

	uploads, err := readUploads([]string{path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(uploads) != 1 || uploads[0].Name != "income.pdf" || string(uploads[0].Data) != "%PDF-1.4" {
		t.Errorf("unexpected uploads %+v", uploads)
	}

	if _, err := readUploads([]string{filepath.Join(dir, "missing.pdf")}); err == nil {
		t.Error("expected error for missing file")
	}
}

// TestRunAnalysisPreconditions tests failures before any analysis starts.
func TestRunAnalysisPreconditions(t *testing.T) {
	t.Parallel()

	t.Run("no files", func(t *testing.T) {
		t.Parallel()

		err := runAnalysis(context.Background(), config.NewConfig(), model.Classification{}, nil, io.Discard, io.Discard, discardLogger())
		if err == nil || !strings.Contains(err.Error(), "no input files") {
			t.Errorf("expected no input files error, got %v", err)
		}
	})

	t.Run("no api key", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "a.pdf")
		if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}

		cfg := config.NewConfig()
		cfg.APIKey = ""
		err := runAnalysis(context.Background(), cfg, model.Classification{}, []string{path}, io.Discard, io.Discard, discardLogger())
		if err == nil || !strings.Contains(err.Error(), "SEGGY_API_KEY") {
			t.Errorf("expected API key hint, got %v", err)
		}
	})
}

// TestAnalyzeWith tests progress, report output and history saving.
func TestAnalyzeWith(t *testing.T) {
	t.Parallel()

	t.Run("writes text report and progress", func(t *testing.T) {
		t.Parallel()

		var stdout, stderr bytes.Buffer
		err := analyzeWith(context.Background(), &scriptedAnalyzer{analysis: finishedAnalysis()}, config.NewConfig(),
			pipeline.AnalyzeRequest{Uploads: []model.Upload{{Name: "a.pdf"}}}, nil, &stdout, &stderr, discardLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		progress := stderr.String()
		if !strings.Contains(progress, "[+] batch 1: 2 file(s) analyzed by llama") {
			t.Errorf("missing success progress line: %q", progress)
		}
		if !strings.Contains(progress, "[!] batch 2: 1 file(s) failed") {
			t.Errorf("missing failure progress line: %q", progress)
		}
		if !strings.Contains(stdout.String(), "BATCH PROCESSING SUMMARY") {
			t.Errorf("report not written: %q", stdout.String())
		}
	})

	t.Run("maps fatal errors", func(t *testing.T) {
		t.Parallel()

		for _, tc := range []struct {
			err  error
			want string
		}{
			{pipeline.ErrNoContent, "could not extract text"},
			{pipeline.ErrAllBatchesFailed, "no backend produced an accepted answer"},
		} {
			err := analyzeWith(context.Background(), &scriptedAnalyzer{err: tc.err}, config.NewConfig(),
				pipeline.AnalyzeRequest{}, nil, io.Discard, io.Discard, discardLogger())
			if !errors.Is(err, tc.err) || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected %q wrapping %v, got %v", tc.want, tc.err, err)
			}
		}
	})

	t.Run("saves history", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		a := finishedAnalysis()
		err = analyzeWith(context.Background(), &scriptedAnalyzer{analysis: a}, config.NewConfig(),
			pipeline.AnalyzeRequest{}, db, io.Discard, io.Discard, discardLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		rec, err := db.GetRun(context.Background(), a.RunID)
		if err != nil {
			t.Fatalf("run was not saved: %v", err)
		}
		if rec.TotalFiles != 3 || rec.BatchesSucceeded != 1 {
			t.Errorf("unexpected record %+v", rec)
		}
	})
}

// TestOutputReport tests format selection and file output.
func TestOutputReport(t *testing.T) {
	t.Parallel()

	t.Run("json to file", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.JSONReport = true
		cfg.ReportFile = filepath.Join(t.TempDir(), "reports", "run.json")

		if err := outputReport(cfg, finishedAnalysis(), io.Discard); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		info, err := os.Stat(cfg.ReportFile)
		if err != nil {
			t.Fatalf("report file not created: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("expected permissions 0600, got %o", perm)
		}

		data, err := os.ReadFile(cfg.ReportFile)
		if err != nil {
			t.Fatal(err)
		}
		var resp map[string]any
		if err := json.Unmarshal(data, &resp); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if resp["total_files"] != float64(3) {
			t.Errorf("unexpected total_files %v", resp["total_files"])
		}
	})

	t.Run("markdown to stdout", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.MarkdownReport = true

		var buf bytes.Buffer
		if err := outputReport(cfg, finishedAnalysis(), &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "# Financial Due Diligence Report") {
			t.Errorf("unexpected markdown %q", buf.String())
		}
	})

	t.Run("pdf to file", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.PDFReport = true
		cfg.ReportFile = filepath.Join(t.TempDir(), "run.pdf")

		if err := outputReport(cfg, finishedAnalysis(), io.Discard); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data, err := os.ReadFile(cfg.ReportFile)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.HasPrefix(data, []byte("%PDF")) {
			t.Error("expected PDF output")
		}
	})
}
