package config

// Notes:
// - resolveConfigPath's user-config-dir branch is covered by pointing
//   XDG_CONFIG_HOME at a temp dir; that only works where os.UserConfigDir
//   honours XDG (Linux and the BSDs), so the test skips elsewhere.
// - Tests that chdir are not parallel.

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

// ---------------------------------------------------------------------------
// TestDefaultConfig
// ---------------------------------------------------------------------------

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if cfg.MaxConcurrentEngines != 0 {
		t.Errorf("MaxConcurrentEngines = %d, want 0 (auto)", cfg.MaxConcurrentEngines)
	}
	if cfg.EngineTimeout() != 120*time.Second {
		t.Errorf("EngineTimeout() = %v, want 2m", cfg.EngineTimeout())
	}
	if cfg.QueueTimeout() != 30*time.Second {
		t.Errorf("QueueTimeout() = %v, want 30s", cfg.QueueTimeout())
	}
	if cfg.ScratchRoot != filepath.Join(os.TempDir(), "office2pdf") {
		t.Errorf("ScratchRoot = %q", cfg.ScratchRoot)
	}
	if !cfg.VerifyContent {
		t.Error("VerifyContent = false, want true")
	}
	if cfg.Server.MaxUploadBytes != 50<<20 {
		t.Errorf("Server.MaxUploadBytes = %d, want 50 MiB", cfg.Server.MaxUploadBytes)
	}
	if cfg.Cache.RedisURL != "" {
		t.Errorf("Cache.RedisURL = %q, want empty", cfg.Cache.RedisURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

// ---------------------------------------------------------------------------
// TestValidate
// ---------------------------------------------------------------------------

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{"defaults", func(c *Config) {}, nil},
		{"explicit engines", func(c *Config) { c.MaxConcurrentEngines = 8 }, nil},
		{"negative engines", func(c *Config) { c.MaxConcurrentEngines = -1 }, ErrInvalidValue},
		{"too many engines", func(c *Config) { c.MaxConcurrentEngines = MaxEngines + 1 }, ErrInvalidValue},
		{"zero engine timeout", func(c *Config) { c.EngineTimeoutSeconds = 0 }, ErrInvalidValue},
		{"huge engine timeout", func(c *Config) { c.EngineTimeoutSeconds = MaxTimeoutSeconds + 1 }, ErrInvalidValue},
		{"zero queue timeout", func(c *Config) { c.QueueTimeoutSeconds = 0 }, ErrInvalidValue},
		{"empty scratch root", func(c *Config) { c.ScratchRoot = "" }, ErrInvalidValue},
		{"long scratch root", func(c *Config) { c.ScratchRoot = strings.Repeat("a", MaxPathLength+1) }, ErrFieldTooLong},
		{"long engine binary", func(c *Config) { c.EngineBinary = strings.Repeat("a", MaxPathLength+1) }, ErrFieldTooLong},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, ErrInvalidValue},
		{"zero upload cap", func(c *Config) { c.Server.MaxUploadBytes = 0 }, ErrInvalidValue},
		{"huge upload cap", func(c *Config) { c.Server.MaxUploadBytes = MaxUploadBytesLimit + 1 }, ErrInvalidValue},
		{"zero request timeout", func(c *Config) { c.Server.RequestTimeoutSeconds = 0 }, ErrInvalidValue},
		{"negative rate", func(c *Config) { c.Server.RequestsPerSecond = -1 }, ErrInvalidValue},
		{"negative burst", func(c *Config) { c.Server.Burst = -1 }, ErrInvalidValue},
		{"redis url", func(c *Config) { c.Cache.RedisURL = "redis://localhost:6379/0" }, nil},
		{"rediss url", func(c *Config) { c.Cache.RedisURL = "rediss://cache:6380" }, nil},
		{"http cache url", func(c *Config) { c.Cache.RedisURL = "http://localhost" }, ErrInvalidValue},
		{"negative ttl", func(c *Config) {
			c.Cache.RedisURL = "redis://localhost"
			c.Cache.TTLSeconds = -1
		}, ErrInvalidValue},
		{"log level upper case", func(c *Config) { c.Log.Level = "DEBUG" }, nil},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, ErrInvalidValue},
		{"json log format", func(c *Config) { c.Log.Format = "json" }, nil},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateFieldLength(t *testing.T) {
	t.Parallel()

	if err := validateFieldLength("f", "1234567890", 10); err != nil {
		t.Errorf("value at limit: %v", err)
	}
	err := validateFieldLength("some.field", "12345678901", 10)
	if !errors.Is(err, ErrFieldTooLong) {
		t.Fatalf("error = %v, want ErrFieldTooLong", err)
	}
	if !strings.Contains(err.Error(), "some.field") {
		t.Errorf("error %q should name the field", err)
	}
}

// ---------------------------------------------------------------------------
// TestLoadConfig
// ---------------------------------------------------------------------------

func TestLoadConfig_FromPath(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, t.TempDir(), "office2pdf.yaml", `
maxConcurrentEngines: 3
engineTimeoutSeconds: 60
scratchRoot: /var/tmp/o2p
server:
  addr: "127.0.0.1:9000"
cache:
  redisURL: redis://localhost:6379/1
log:
  level: debug
  format: json
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.MaxConcurrentEngines != 3 {
		t.Errorf("MaxConcurrentEngines = %d, want 3", cfg.MaxConcurrentEngines)
	}
	if cfg.EngineTimeoutSeconds != 60 {
		t.Errorf("EngineTimeoutSeconds = %d, want 60", cfg.EngineTimeoutSeconds)
	}
	if cfg.ScratchRoot != "/var/tmp/o2p" {
		t.Errorf("ScratchRoot = %q", cfg.ScratchRoot)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q", cfg.Log.Format)
	}
}

func TestLoadConfig_AbsentKeysKeepDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, t.TempDir(), "partial.yaml", "server:\n  addr: \":9999\"\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.QueueTimeoutSeconds != DefaultQueueTimeout {
		t.Errorf("QueueTimeoutSeconds = %d, want default %d", cfg.QueueTimeoutSeconds, DefaultQueueTimeout)
	}
	if cfg.Server.MaxUploadBytes != DefaultMaxUploadBytes {
		t.Errorf("Server.MaxUploadBytes = %d, want default", cfg.Server.MaxUploadBytes)
	}
	if !cfg.VerifyContent {
		t.Error("VerifyContent lost its default")
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tests := []struct {
		name    string
		arg     string
		wantErr error
	}{
		{"empty name", "", ErrEmptyConfigName},
		{"missing path", filepath.Join(dir, "nope.yaml"), ErrConfigNotFound},
		{"unknown key", writeConfig(t, dir, "unknown.yaml", "engines: 3\n"), ErrConfigParse},
		{"bad type", writeConfig(t, dir, "type.yaml", "engineTimeoutSeconds: soon\n"), ErrConfigParse},
		{"empty file", writeConfig(t, dir, "empty.yaml", ""), ErrConfigParse},
		{"invalid value", writeConfig(t, dir, "invalid.yaml", "queueTimeoutSeconds: -5\n"), ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := LoadConfig(tt.arg); !errors.Is(err, tt.wantErr) {
				t.Errorf("LoadConfig(%q) error = %v, want %v", tt.arg, err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_TooLarge(t *testing.T) {
	t.Parallel()

	body := "# " + strings.Repeat("x", MaxFileSize) + "\n"
	path := writeConfig(t, t.TempDir(), "big.yaml", body)

	_, err := LoadConfig(path)
	if !errors.Is(err, ErrConfigParse) {
		t.Errorf("LoadConfig() error = %v, want ErrConfigParse", err)
	}
	if !strings.Contains(err.Error(), "exceeds maximum size") {
		t.Errorf("error %q should mention the size limit", err)
	}
}

// ---------------------------------------------------------------------------
// TestResolveConfigPath
// ---------------------------------------------------------------------------

func TestResolveConfigPath_CurrentDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeConfig(t, dir, "prod.yml", "log:\n  level: warn\n")

	cfg, err := LoadConfig("prod")
	if err != nil {
		t.Fatalf("LoadConfig(name) error = %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
}

func TestResolveConfigPath_UserConfigDir(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("os.UserConfigDir ignores XDG_CONFIG_HOME here")
	}

	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Chdir(t.TempDir())

	dir := filepath.Join(home, AppName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	want := writeConfig(t, dir, "staging.yaml", "maxConcurrentEngines: 2\n")

	got, err := resolveConfigPath("staging")
	if err != nil {
		t.Fatalf("resolveConfigPath() error = %v", err)
	}
	if got != want {
		t.Errorf("resolveConfigPath() = %q, want %q", got, want)
	}
}

func TestResolveConfigPath_NotFoundListsTriedPaths(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := resolveConfigPath("ghost")
	if !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("error = %v, want ErrConfigNotFound", err)
	}
	for _, want := range []string{"ghost.yaml", "ghost.yml"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should list %s", err, want)
		}
	}
}

// ---------------------------------------------------------------------------
// TestMarshal
// ---------------------------------------------------------------------------

func TestMarshal_LoadsBack(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.MaxConcurrentEngines = 5
	cfg.Cache.RedisURL = "redis://cache:6379"

	out, err := Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for _, key := range []string{"maxConcurrentEngines: 5", "redisURL:", "cache:6379", "scratchRoot:"} {
		if !strings.Contains(string(out), key) {
			t.Errorf("Marshal() output missing %q:\n%s", key, out)
		}
	}

	path := writeConfig(t, t.TempDir(), "dump.yaml", string(out))
	if _, err := LoadConfig(path); err != nil {
		t.Errorf("LoadConfig(Marshal()) error = %v", err)
	}
}
