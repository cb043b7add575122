package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "coursecrawl" {
			t.Errorf("expected use 'coursecrawl', got %q", cmd.Use)
		}
	})

	t.Run("has descriptions", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" || cmd.Long == "" {
			t.Error("expected non-empty short and long descriptions")
		}
	})

	t.Run("has version", func(t *testing.T) {
		t.Parallel()
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("has verbose flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.PersistentFlags().Lookup("verbose")
		if flag == nil {
			t.Fatal("expected verbose flag")
		}
		if flag.Shorthand != "v" {
			t.Errorf("expected shorthand 'v', got %q", flag.Shorthand)
		}
		if flag.DefValue != "false" {
			t.Errorf("expected default 'false', got %q", flag.DefValue)
		}
	})

	t.Run("has log-json flag", func(t *testing.T) {
		t.Parallel()
		if cmd.PersistentFlags().Lookup("log-json") == nil {
			t.Fatal("expected log-json flag")
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		want := map[string]bool{"crawl": false, "history": false, "init": false, "version": false}
		for _, sub := range cmd.Commands() {
			if _, ok := want[sub.Name()]; ok {
				want[sub.Name()] = true
			}
		}
		for name, found := range want {
			if !found {
				t.Errorf("expected subcommand %q", name)
			}
		}
	})

	t.Run("silences usage and errors", func(t *testing.T) {
		t.Parallel()
		if !cmd.SilenceUsage || !cmd.SilenceErrors {
			t.Error("expected SilenceUsage and SilenceErrors")
		}
	})
}

func TestGetBoolFlag(t *testing.T) {
	t.Parallel()

	t.Run("reads persistent flag through subcommand", func(t *testing.T) {
		t.Parallel()

		root := NewRootCmd()
		root.SetArgs([]string{"version", "--verbose"})
		root.SetOut(io.Discard)
		if err := root.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		sub, _, err := root.Find([]string{"version"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !getBoolFlag(sub, "verbose") {
			t.Error("expected verbose to be true")
		}
	})

	t.Run("missing flag is false", func(t *testing.T) {
		t.Parallel()

		cmd := &cobra.Command{Use: "bare"}
		if getBoolFlag(cmd, "verbose") {
			t.Error("expected false for an undefined flag")
		}
	})
}

func TestSetupLogger(t *testing.T) {
	t.Parallel()

	t.Run("text logger redacts cookies", func(t *testing.T) {
		t.Parallel()

		root := NewRootCmd()
		var buf bytes.Buffer
		logger := setupLogger(root, &buf)
		logger.Warn("request", "cookie", "CAUTH=secret")

		out := buf.String()
		if strings.Contains(out, "secret") {
			t.Errorf("expected cookie to be redacted, got %q", out)
		}
	})

	t.Run("json logger", func(t *testing.T) {
		t.Parallel()

		root := NewRootCmd()
		if err := root.PersistentFlags().Set("log-json", "true"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var buf bytes.Buffer
		setupLogger(root, &buf).Warn("hello")

		if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
			t.Errorf("expected JSON log line, got %q", buf.String())
		}
	})

	t.Run("debug suppressed without verbose", func(t *testing.T) {
		t.Parallel()

		root := NewRootCmd()
		var buf bytes.Buffer
		setupLogger(root, &buf).Debug("hidden")

		if buf.Len() != 0 {
			t.Errorf("expected no output, got %q", buf.String())
		}
	})
}
