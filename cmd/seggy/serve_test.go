package main

import (
	"errors"
	"testing"

	"github.com/pks0715/seggy/internal/config"
)

// TestNewServeCmd tests the serve command flags.
func TestNewServeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewServeCmd()
	port := cmd.Flags().Lookup("port")
	if port == nil {
		t.Fatal("expected port flag")
	}
	if port.Shorthand != "p" {
		t.Errorf("expected shorthand p, got %s", port.Shorthand)
	}
	for _, name := range []string{"config", "save-history"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
}

// TestBuildServeConfig tests port precedence between file and flag.
func TestBuildServeConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "server:\n  port: 9100\nhistory:\n  enabled: true\n")

	tests := []struct {
		name        string
		args        []string
		wantPort    int
		wantHistory bool
	}{
		{name: "file values", args: []string{"--config", path}, wantPort: 9100, wantHistory: true},
		{name: "flag overrides file", args: []string{"--config", path, "--port", "8081"}, wantPort: 8081, wantHistory: true},
		{name: "explicit false history", args: []string{"--config", path, "--save-history=false"}, wantPort: 9100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewServeCmd()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("failed to parse flags: %v", err)
			}
			cfg, err := buildServeConfig(cmd)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Port != tt.wantPort {
				t.Errorf("expected port %d, got %d", tt.wantPort, cfg.Port)
			}
			if cfg.SaveHistory != tt.wantHistory {
				t.Errorf("expected save history %v, got %v", tt.wantHistory, cfg.SaveHistory)
			}
		})
	}
}

// TestServeInvalidConfig tests that validation runs before the server starts.
func TestServeInvalidConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "log:\n  format: xml\n")

	root := NewRootCmd()
	root.SetArgs([]string{"serve", "--config", path})
	err := root.Execute()
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if !errors.Is(err, config.ErrInvalidLogFormat) {
		t.Errorf("expected ErrInvalidLogFormat, got %v", err)
	}
}
