// Package config loads and validates the service configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-office2pdf/internal/fileutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Limits checked by Validate.
const (
	MaxPathLength          = 4096
	MaxURLLength           = 2048
	MaxAddrLength          = 256
	MaxEngines             = 64
	MaxTimeoutSeconds      = 3600
	MaxUploadBytesLimit    = 1 << 30
	DefaultMaxUploadBytes  = 50 << 20
	DefaultEngineTimeout   = 120
	DefaultQueueTimeout    = 30
	DefaultRequestTimeout  = 180
	DefaultCacheTTLSeconds = 24 * 60 * 60
	DefaultAddr            = ":8080"
)

// AppName names the per-user config directory and the default scratch root.
const AppName = "office2pdf"

// Config holds all service settings.
type Config struct {
	MaxConcurrentEngines int          `yaml:"maxConcurrentEngines"` // 0 = auto
	EngineTimeoutSeconds int          `yaml:"engineTimeoutSeconds"`
	QueueTimeoutSeconds  int          `yaml:"queueTimeoutSeconds"`
	ScratchRoot          string       `yaml:"scratchRoot"`
	EngineBinary         string       `yaml:"engineBinary"` // Empty = discover
	VerifyContent        bool         `yaml:"verifyContent"`
	Server               ServerConfig `yaml:"server"`
	Cache                CacheConfig  `yaml:"cache"`
	Log                  LogConfig    `yaml:"log"`
}

// ServerConfig defines HTTP listener options.
type ServerConfig struct {
	Addr                  string  `yaml:"addr"`
	MaxUploadBytes        int64   `yaml:"maxUploadBytes"`
	RequestTimeoutSeconds int     `yaml:"requestTimeoutSeconds"`
	RequestsPerSecond     float64 `yaml:"requestsPerSecond"` // 0 = unlimited
	Burst                 int     `yaml:"burst"`             // 0 = derived from rate
}

// CacheConfig defines the optional result cache.
type CacheConfig struct {
	RedisURL   string `yaml:"redisURL"` // Empty = no cache
	TTLSeconds int    `yaml:"ttlSeconds"`
}

// LogConfig defines logger output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json, logfmt
}

// DefaultScratchRoot returns <tmp>/office2pdf.
func DefaultScratchRoot() string {
	return filepath.Join(os.TempDir(), AppName)
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrentEngines: 0,
		EngineTimeoutSeconds: DefaultEngineTimeout,
		QueueTimeoutSeconds:  DefaultQueueTimeout,
		ScratchRoot:          DefaultScratchRoot(),
		VerifyContent:        true,
		Server: ServerConfig{
			Addr:                  DefaultAddr,
			MaxUploadBytes:        DefaultMaxUploadBytes,
			RequestTimeoutSeconds: DefaultRequestTimeout,
		},
		Cache: CacheConfig{TTLSeconds: DefaultCacheTTLSeconds},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

// EngineTimeout returns the per-attempt engine budget.
func (c *Config) EngineTimeout() time.Duration {
	return time.Duration(c.EngineTimeoutSeconds) * time.Second
}

// QueueTimeout returns how long a job may wait for an engine slot.
func (c *Config) QueueTimeout() time.Duration {
	return time.Duration(c.QueueTimeoutSeconds) * time.Second
}

// RequestTimeout returns the overall budget of one HTTP conversion.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// CacheTTL returns how long cached PDFs live.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// Validate checks ranges and lengths. Called by LoadConfig, and again by the
// CLI after flags and environment overrides are merged.
func (c *Config) Validate() error {
	if c.MaxConcurrentEngines < 0 || c.MaxConcurrentEngines > MaxEngines {
		return fmt.Errorf("%w: maxConcurrentEngines must be between 0 and %d, got %d",
			ErrInvalidValue, MaxEngines, c.MaxConcurrentEngines)
	}
	if err := validateSeconds("engineTimeoutSeconds", c.EngineTimeoutSeconds); err != nil {
		return err
	}
	if err := validateSeconds("queueTimeoutSeconds", c.QueueTimeoutSeconds); err != nil {
		return err
	}
	if c.ScratchRoot == "" {
		return fmt.Errorf("%w: scratchRoot cannot be empty", ErrInvalidValue)
	}
	if err := validateFieldLength("scratchRoot", c.ScratchRoot, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("engineBinary", c.EngineBinary, MaxPathLength); err != nil {
		return err
	}

	// Server
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr cannot be empty", ErrInvalidValue)
	}
	if err := validateFieldLength("server.addr", c.Server.Addr, MaxAddrLength); err != nil {
		return err
	}
	if c.Server.MaxUploadBytes <= 0 || c.Server.MaxUploadBytes > MaxUploadBytesLimit {
		return fmt.Errorf("%w: server.maxUploadBytes must be between 1 and %d, got %d",
			ErrInvalidValue, MaxUploadBytesLimit, c.Server.MaxUploadBytes)
	}
	if err := validateSeconds("server.requestTimeoutSeconds", c.Server.RequestTimeoutSeconds); err != nil {
		return err
	}
	if c.Server.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: server.requestsPerSecond cannot be negative", ErrInvalidValue)
	}
	if c.Server.Burst < 0 {
		return fmt.Errorf("%w: server.burst cannot be negative", ErrInvalidValue)
	}

	// Cache
	if c.Cache.RedisURL != "" {
		if err := validateFieldLength("cache.redisURL", c.Cache.RedisURL, MaxURLLength); err != nil {
			return err
		}
		u, err := url.Parse(c.Cache.RedisURL)
		if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			return fmt.Errorf("%w: cache.redisURL must be a redis:// or rediss:// URL", ErrInvalidValue)
		}
		if c.Cache.TTLSeconds < 0 {
			return fmt.Errorf("%w: cache.ttlSeconds cannot be negative", ErrInvalidValue)
		}
	}

	// Log
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level %q (must be debug, info, warn, or error)", ErrInvalidValue, c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json", "logfmt":
	default:
		return fmt.Errorf("%w: log.format %q (must be text, json, or logfmt)", ErrInvalidValue, c.Log.Format)
	}

	return nil
}

func validateSeconds(fieldName string, v int) error {
	if v < 1 || v > MaxTimeoutSeconds {
		return fmt.Errorf("%w: %s must be between 1 and %d, got %d", ErrInvalidValue, fieldName, MaxTimeoutSeconds, v)
	}
	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Keys absent from the file keep their DefaultConfig values.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !fileutil.IsFilePath(nameOrPath) {
		var err error
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is operator-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := decodeStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, <user config dir>/office2pdf/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, AppName, name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}
