package main

// Notes:
// - run: we test dispatch and exit codes for every command. Conversion
//   itself is covered by convert_test.go with a fake converter.
// - main: not tested (calls os.Exit).
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"context"
	"testing"
)

// ---------------------------------------------------------------------------
// TestRun - Command dispatch
// ---------------------------------------------------------------------------

func TestRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{
			name:       "no args prints usage",
			args:       nil,
			wantCode:   ExitUsage,
			wantStderr: "Usage: office2pdf <command>",
		},
		{
			name:       "unknown command",
			args:       []string{"render"},
			wantCode:   ExitUsage,
			wantStderr: "Unknown command: render",
		},
		{
			name:       "version",
			args:       []string{"version"},
			wantCode:   ExitSuccess,
			wantStdout: "office2pdf dev",
		},
		{
			name:       "--version",
			args:       []string{"--version"},
			wantCode:   ExitSuccess,
			wantStdout: "office2pdf dev",
		},
		{
			name:       "help",
			args:       []string{"help"},
			wantCode:   ExitSuccess,
			wantStdout: "Commands:",
		},
		{
			name:       "help convert",
			args:       []string{"help", "convert"},
			wantCode:   ExitSuccess,
			wantStdout: "Usage: office2pdf convert",
		},
		{
			name:       "convert --help prints command help",
			args:       []string{"convert", "--help"},
			wantCode:   ExitSuccess,
			wantStdout: "Usage: office2pdf convert",
		},
		{
			name:       "serve -h prints command help",
			args:       []string{"serve", "-h"},
			wantCode:   ExitSuccess,
			wantStdout: "Usage: office2pdf serve",
		},
		{
			name:       "unknown flag",
			args:       []string{"convert", "--bogus", "a.docx"},
			wantCode:   ExitUsage,
			wantStderr: "error: invalid usage",
		},
		{
			name:       "convert without input",
			args:       []string{"convert"},
			wantCode:   ExitIO,
			wantStderr: "no input specified",
		},
		{
			name:       "convert with unknown format flag",
			args:       []string{"convert", "-f", "odg", "a.bin"},
			wantCode:   ExitUsage,
			wantStderr: "hint: supported",
		},
		{
			name:       "serve rejects positional args",
			args:       []string{"serve", "extra"},
			wantCode:   ExitUsage,
			wantStderr: "serve takes no arguments",
		},
		{
			name:       "missing config file",
			args:       []string{"config", "-c", "does-not-exist"},
			wantCode:   ExitUsage,
			wantStderr: "config file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			code := run(context.Background(), tt.args, env.Environment)

			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d\nstderr: %s", code, tt.wantCode, env.stderr.String())
			}
			if tt.wantStdout != "" {
				assertContains(t, "stdout", env.stdout.String(), tt.wantStdout)
			}
			if tt.wantStderr != "" {
				assertContains(t, "stderr", env.stderr.String(), tt.wantStderr)
			}
		})
	}
}
