package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/alnah/go-office2pdf"
	"github.com/alnah/go-office2pdf/internal/config"
	"github.com/alnah/go-office2pdf/internal/engine"
)

// ---------------------------------------------------------------------------
// TestLoadSettings - Precedence: flags > env > file > defaults
// ---------------------------------------------------------------------------

func TestLoadSettings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "office2pdf.yaml")
	yaml := "maxConcurrentEngines: 2\nengineTimeoutSeconds: 60\nqueueTimeoutSeconds: 10\n" +
		"scratchRoot: " + dir + "\nverifyContent: true\nserver:\n  addr: \":8181\"\n" +
		"  maxUploadBytes: 1024\n  requestTimeoutSeconds: 90\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	env := newTestEnv(t)
	env.vars["OFFICE2PDF_CONFIG"] = path
	env.vars["OFFICE2PDF_ENGINE_TIMEOUT_SECONDS"] = "75"
	env.vars["OFFICE2PDF_QUEUE_TIMEOUT_SECONDS"] = "20"

	cfg, err := loadSettings("", env.Environment, func(c *config.Config) {
		c.QueueTimeoutSeconds = 5
	})
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}

	if cfg.MaxConcurrentEngines != 2 {
		t.Errorf("MaxConcurrentEngines = %d, want 2 (file)", cfg.MaxConcurrentEngines)
	}
	if cfg.EngineTimeoutSeconds != 75 {
		t.Errorf("EngineTimeoutSeconds = %d, want 75 (env over file)", cfg.EngineTimeoutSeconds)
	}
	if cfg.QueueTimeoutSeconds != 5 {
		t.Errorf("QueueTimeoutSeconds = %d, want 5 (flag over env)", cfg.QueueTimeoutSeconds)
	}
	if cfg.Server.Addr != ":8181" {
		t.Errorf("Server.Addr = %q, want :8181", cfg.Server.Addr)
	}
}

func TestLoadSettings_Invalid(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, err := loadSettings("", env.Environment, func(c *config.Config) {
		c.MaxConcurrentEngines = config.MaxEngines + 1
	})
	if !errors.Is(err, config.ErrInvalidValue) {
		t.Errorf("error = %v, want ErrInvalidValue", err)
	}
}

func TestLoadSettings_WarnsUnknownEnv(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.vars["OFFICE2PDF_ENGINE_TIMEOUT"] = "30"

	if _, err := loadSettings("", env.Environment, nil); err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	assertContains(t, "stderr", env.stderr.String(), "OFFICE2PDF_ENGINE_TIMEOUT (typo?)")
}

// ---------------------------------------------------------------------------
// TestNewLogger - Level and format selection
// ---------------------------------------------------------------------------

func TestNewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		level     string
		format    string
		wantErr   bool
		wantLevel log.Level
		contains  string
	}{
		{name: "defaults", wantLevel: log.InfoLevel, contains: "hello"},
		{name: "json", level: "debug", format: "json", wantLevel: log.DebugLevel, contains: `"msg":"hello"`},
		{name: "logfmt", level: "WARN", format: "logfmt", wantLevel: log.WarnLevel},
		{name: "bad level", level: "loud", wantErr: true},
		{name: "bad format", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger, err := newLogger(&buf, tt.level, tt.format)
			if tt.wantErr {
				if !errors.Is(err, ErrUsage) {
					t.Errorf("error = %v, want ErrUsage", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("newLogger: %v", err)
			}
			if logger.GetLevel() != tt.wantLevel {
				t.Errorf("level = %v, want %v", logger.GetLevel(), tt.wantLevel)
			}
			logger.Error("hello")
			if tt.contains != "" && !strings.Contains(buf.String(), tt.contains) {
				t.Errorf("output %q missing %q", buf.String(), tt.contains)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestHintFor - Actionable hints
// ---------------------------------------------------------------------------

func TestHintFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), ""},
		{"engine missing", engine.ErrNotFound, "hint:"},
		{"unsupported", office2pdf.ErrUnsupportedFormat, ".docx"},
		{"overloaded", office2pdf.ErrOverloaded, "hint:"},
		{"timeout", office2pdf.ErrConversionTimeout, "hint:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := hintFor(tt.err)
			if tt.want == "" {
				if got != "" {
					t.Errorf("hintFor(%v) = %q, want empty", tt.err, got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("hintFor(%v) = %q, want it to contain %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestConverterOptions(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.ScratchRoot = t.TempDir()
	cfg.MaxConcurrentEngines = 3
	cfg.EngineBinary = "/opt/lo/soffice"

	conv, err := office2pdf.NewConverter(converterOptions(cfg, log.New(&bytes.Buffer{}))...)
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}
	defer conv.Close()

	if conv.MaxEngines() != 3 {
		t.Errorf("MaxEngines() = %d, want 3", conv.MaxEngines())
	}
	if conv.EngineBinary() != "/opt/lo/soffice" {
		t.Errorf("EngineBinary() = %q", conv.EngineBinary())
	}
	if conv.ScratchRoot() != cfg.ScratchRoot {
		t.Errorf("ScratchRoot() = %q, want %q", conv.ScratchRoot(), cfg.ScratchRoot)
	}
}
