package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/alnah/go-office2pdf/internal/config"
)

// envPrefix starts every recognized environment variable.
const envPrefix = "OFFICE2PDF_"

// envConfig holds configuration from environment variables.
// Provides container-friendly overrides without requiring YAML files.
// Zero values mean "not set".
type envConfig struct {
	// Tier 1 - Essential
	ConfigPath    string        // OFFICE2PDF_CONFIG: config file name or path
	MaxEngines    int           // OFFICE2PDF_MAX_ENGINES: concurrent engines
	EngineTimeout time.Duration // OFFICE2PDF_ENGINE_TIMEOUT_SECONDS: engine budget
	QueueTimeout  time.Duration // OFFICE2PDF_QUEUE_TIMEOUT_SECONDS: admission wait
	ScratchRoot   string        // OFFICE2PDF_SCRATCH_ROOT: workspace directory
	EngineBinary  string        // OFFICE2PDF_ENGINE_BINARY: soffice path
	VerifyContent *bool         // OFFICE2PDF_VERIFY_CONTENT: sniff inputs

	// Tier 2 - Server
	Addr           string        // OFFICE2PDF_ADDR: listen address
	MaxUploadBytes int64         // OFFICE2PDF_MAX_UPLOAD_BYTES: upload cap
	RequestTimeout time.Duration // OFFICE2PDF_REQUEST_TIMEOUT_SECONDS: HTTP budget
	RateLimit      float64       // OFFICE2PDF_RATE_LIMIT: requests per second
	RateBurst      int           // OFFICE2PDF_RATE_BURST: limiter burst

	// Tier 3 - Cache and logging
	RedisURL  string        // OFFICE2PDF_REDIS_URL: result cache
	CacheTTL  time.Duration // OFFICE2PDF_CACHE_TTL_SECONDS: cache lifetime
	LogLevel  string        // OFFICE2PDF_LOG_LEVEL: debug, info, warn, error
	LogFormat string        // OFFICE2PDF_LOG_FORMAT: text, json, logfmt
}

// knownEnvVars lists valid OFFICE2PDF_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	// Tier 1 - Essential
	"OFFICE2PDF_CONFIG":                 true,
	"OFFICE2PDF_MAX_ENGINES":            true,
	"OFFICE2PDF_ENGINE_TIMEOUT_SECONDS": true,
	"OFFICE2PDF_QUEUE_TIMEOUT_SECONDS":  true,
	"OFFICE2PDF_SCRATCH_ROOT":           true,
	"OFFICE2PDF_ENGINE_BINARY":          true,
	"OFFICE2PDF_VERIFY_CONTENT":         true,
	// Tier 2 - Server
	"OFFICE2PDF_ADDR":                    true,
	"OFFICE2PDF_MAX_UPLOAD_BYTES":        true,
	"OFFICE2PDF_REQUEST_TIMEOUT_SECONDS": true,
	"OFFICE2PDF_RATE_LIMIT":              true,
	"OFFICE2PDF_RATE_BURST":              true,
	// Tier 3 - Cache, logging, diagnostics
	"OFFICE2PDF_REDIS_URL":         true,
	"OFFICE2PDF_CACHE_TTL_SECONDS": true,
	"OFFICE2PDF_LOG_LEVEL":         true,
	"OFFICE2PDF_LOG_FORMAT":        true,
	"OFFICE2PDF_CONTAINER":         true,
}

// loadEnvConfig reads configuration from environment variables.
// Malformed numbers are reported on warn and otherwise ignored.
func loadEnvConfig(getenv func(string) string, warn io.Writer) *envConfig {
	cfg := &envConfig{
		// Tier 1
		ConfigPath:   getenv("OFFICE2PDF_CONFIG"),
		ScratchRoot:  getenv("OFFICE2PDF_SCRATCH_ROOT"),
		EngineBinary: getenv("OFFICE2PDF_ENGINE_BINARY"),
		// Tier 2
		Addr: getenv("OFFICE2PDF_ADDR"),
		// Tier 3
		RedisURL:  getenv("OFFICE2PDF_REDIS_URL"),
		LogLevel:  getenv("OFFICE2PDF_LOG_LEVEL"),
		LogFormat: getenv("OFFICE2PDF_LOG_FORMAT"),
	}

	p := envParser{getenv: getenv, warn: warn}
	cfg.MaxEngines = p.int("OFFICE2PDF_MAX_ENGINES")
	cfg.EngineTimeout = p.seconds("OFFICE2PDF_ENGINE_TIMEOUT_SECONDS")
	cfg.QueueTimeout = p.seconds("OFFICE2PDF_QUEUE_TIMEOUT_SECONDS")
	cfg.VerifyContent = p.bool("OFFICE2PDF_VERIFY_CONTENT")
	cfg.MaxUploadBytes = int64(p.int("OFFICE2PDF_MAX_UPLOAD_BYTES"))
	cfg.RequestTimeout = p.seconds("OFFICE2PDF_REQUEST_TIMEOUT_SECONDS")
	cfg.RateLimit = p.float("OFFICE2PDF_RATE_LIMIT")
	cfg.RateBurst = p.int("OFFICE2PDF_RATE_BURST")
	cfg.CacheTTL = p.seconds("OFFICE2PDF_CACHE_TTL_SECONDS")

	return cfg
}

type envParser struct {
	getenv func(string) string
	warn   io.Writer
}

func (p envParser) int(name string) int {
	raw := p.getenv(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		fmt.Fprintf(p.warn, "warning: ignoring %s=%q (want a positive integer)\n", name, raw)
		return 0
	}
	return n
}

func (p envParser) float(name string) float64 {
	raw := p.getenv(name)
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 {
		fmt.Fprintf(p.warn, "warning: ignoring %s=%q (want a positive number)\n", name, raw)
		return 0
	}
	return f
}

// seconds accepts whole seconds or a Go duration such as "2m".
func (p envParser) seconds(name string) time.Duration {
	raw := p.getenv(name)
	if raw == "" {
		return 0
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	fmt.Fprintf(p.warn, "warning: ignoring %s=%q (want seconds or a duration)\n", name, raw)
	return 0
}

func (p envParser) bool(name string) *bool {
	raw := p.getenv(name)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		fmt.Fprintf(p.warn, "warning: ignoring %s=%q (want true or false)\n", name, raw)
		return nil
	}
	return &b
}

// warnUnknownEnvVars logs warnings for unrecognized OFFICE2PDF_* variables.
// Helps catch typos like OFFICE2PDF_MAX_ENGINE instead of OFFICE2PDF_MAX_ENGINES.
func warnUnknownEnvVars(environ []string, w io.Writer) {
	for _, env := range environ {
		if strings.HasPrefix(env, envPrefix) {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig applies environment variable values to config.
// Set variables override the config file; CLI flags are merged afterwards.
// This ensures: CLI flags > env vars > config file > defaults
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	// Tier 1
	if env.MaxEngines > 0 {
		cfg.MaxConcurrentEngines = env.MaxEngines
	}
	if env.EngineTimeout > 0 {
		cfg.EngineTimeoutSeconds = seconds(env.EngineTimeout)
	}
	if env.QueueTimeout > 0 {
		cfg.QueueTimeoutSeconds = seconds(env.QueueTimeout)
	}
	if env.ScratchRoot != "" {
		cfg.ScratchRoot = env.ScratchRoot
	}
	if env.EngineBinary != "" {
		cfg.EngineBinary = env.EngineBinary
	}
	if env.VerifyContent != nil {
		cfg.VerifyContent = *env.VerifyContent
	}

	// Tier 2
	if env.Addr != "" {
		cfg.Server.Addr = env.Addr
	}
	if env.MaxUploadBytes > 0 {
		cfg.Server.MaxUploadBytes = env.MaxUploadBytes
	}
	if env.RequestTimeout > 0 {
		cfg.Server.RequestTimeoutSeconds = seconds(env.RequestTimeout)
	}
	if env.RateLimit > 0 {
		cfg.Server.RequestsPerSecond = env.RateLimit
	}
	if env.RateBurst > 0 {
		cfg.Server.Burst = env.RateBurst
	}

	// Tier 3
	if env.RedisURL != "" {
		cfg.Cache.RedisURL = env.RedisURL
	}
	if env.CacheTTL > 0 {
		cfg.Cache.TTLSeconds = seconds(env.CacheTTL)
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		cfg.Log.Format = env.LogFormat
	}
}

// loadDotEnv loads variables from .env files into the process environment.
// Variables already set win. Missing files are not an error.
func loadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}
