package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alnah/go-office2pdf/internal/config"
)

// ---------------------------------------------------------------------------
// TestRunConfig - Effective configuration output
// ---------------------------------------------------------------------------

func TestRunConfig(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.vars["OFFICE2PDF_ADDR"] = ":9090"

	if err := runConfig([]string{"--engine-timeout", "90s", "-w", "3"}, env.Environment); err != nil {
		t.Fatalf("runConfig: %v", err)
	}

	out := env.stdout.String()
	for _, want := range []string{
		"maxConcurrentEngines: 3",
		"engineTimeoutSeconds: 90",
		":9090",
		"verifyContent: true",
	} {
		assertContains(t, "config", out, want)
	}
}

func TestRunConfig_FromFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	content := "engineTimeoutSeconds: 30\nqueueTimeoutSeconds: 5\nscratchRoot: " + dir + "\n" +
		"server:\n  addr: \":8080\"\n  maxUploadBytes: 1024\n  requestTimeoutSeconds: 60\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	env := newTestEnv(t)
	if err := runConfig([]string{"-c", path}, env.Environment); err != nil {
		t.Fatalf("runConfig: %v", err)
	}
	assertContains(t, "config", env.stdout.String(), "queueTimeoutSeconds: 5")
}

func TestRunConfig_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		args   []string
		target error
	}{
		{"positional argument", []string{"extra"}, ErrUsage},
		{"unknown flag", []string{"--nope"}, ErrUsage},
		{"invalid merged value", []string{"--max-engines", "999"}, config.ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			err := runConfig(tt.args, env.Environment)
			if !errors.Is(err, tt.target) {
				t.Errorf("error = %v, want %v", err, tt.target)
			}
		})
	}
}
