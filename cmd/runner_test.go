package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/desertthunder/kplor/internal/shared"
	tu "github.com/desertthunder/kplor/internal/testing"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			db := setupTestDB(t)
			backend := &fakeBackend{}
			identity := &fakeIdentity{}
			storage := newFakeStorage()

			runner := NewRunner(RunnerOpts{
				Config:    config,
				SessionID: "tab-2",
				Logger:    logger,
				Output:    output,
				DB:        db,
				Backend:   backend,
				Identity:  identity,
				Storage:   storage,
			})

			if runner.config != config || !runner.configFixed {
				t.Error("expected config to be set and fixed")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.sessionID != "tab-2" {
				t.Errorf("expected session tab-2, got %s", runner.sessionID)
			}
			if runner.db != db || runner.backend != backend || runner.identity != identity || runner.storage != storage {
				t.Error("expected injected collaborators to be kept")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.configFixed {
				t.Error("expected default config to be replaceable by --config")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with empty session uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.sessionID != defaultSession {
				t.Errorf("expected %q, got %q", defaultSession, runner.sessionID)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			expected := `{"key":"value"}` + "\n"
			if result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			// channels cannot be marshaled to JSON
			data := make(chan int)
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			data := map[string]string{"key": "value"}
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("hello %s", "world")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("writes plain text without formatting", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("simple text")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "simple text" {
				t.Errorf("expected 'simple text', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "catalog", "auth", "request", "submit", "upload", "tui"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})

	t.Run("configure", func(t *testing.T) {
		t.Run("loads the --config file", func(t *testing.T) {
			path := writeConfig(t, "[catalog]\nrequest_goal = 40\n\n[database]\npath = \":memory:\"\n")
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: quietLogger()})

			err := runner.app().Run(context.Background(), []string{"kplor", "--config", path, "--session", "tab-9", "auth", "status"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if runner.config.Catalog.RequestGoal != 40 {
				t.Errorf("expected goal from file, got %d", runner.config.Catalog.RequestGoal)
			}
			if runner.sessionID != "tab-9" {
				t.Errorf("expected session tab-9, got %s", runner.sessionID)
			}
		})

		t.Run("keeps an injected config", func(t *testing.T) {
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{
				Config:    config,
				SessionID: "tab-1",
				Output:    &bytes.Buffer{},
				Logger:    quietLogger(),
				DB:        setupTestDB(t),
				Backend:   &fakeBackend{},
				Identity:  &fakeIdentity{},
			})

			if err := runner.app().Run(context.Background(), []string{"kplor", "auth", "status"}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if runner.config != config {
				t.Error("expected injected config to be kept")
			}
			if runner.sessionID != "tab-1" {
				t.Errorf("expected injected session to be kept, got %s", runner.sessionID)
			}
		})
	})

	t.Run("Close", func(t *testing.T) {
		db := setupTestDB(t)
		runner := NewRunner(RunnerOpts{DB: db})

		if err := runner.Close(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := db.Ping(); err != nil {
			t.Errorf("expected injected database to stay open, got %v", err)
		}
	})
}
