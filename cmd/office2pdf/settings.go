package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/alnah/go-office2pdf"
	"github.com/alnah/go-office2pdf/internal/config"
	"github.com/alnah/go-office2pdf/internal/engine"
	"github.com/alnah/go-office2pdf/internal/hints"
)

// loadSettings builds the effective configuration.
// Precedence: CLI flags (merge) > environment > config file > defaults.
func loadSettings(configName string, env *Environment, merge func(*config.Config)) (*config.Config, error) {
	warnUnknownEnvVars(env.Environ(), env.Stderr)
	envCfg := loadEnvConfig(env.Getenv, env.Stderr)

	if configName == "" {
		configName = envCfg.ConfigPath
	}

	cfg := config.DefaultConfig()
	if configName != "" {
		var err error
		cfg, err = config.LoadConfig(configName)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	applyEnvConfig(envCfg, cfg)
	if merge != nil {
		merge(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger creates a logger writing to w at the configured level and format.
func newLogger(w io.Writer, level, format string) (*log.Logger, error) {
	if level == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		Prefix:          "office2pdf",
	})

	switch strings.ToLower(format) {
	case "", "text":
		logger.SetFormatter(log.TextFormatter)
	case "json":
		logger.SetFormatter(log.JSONFormatter)
	case "logfmt":
		logger.SetFormatter(log.LogfmtFormatter)
	default:
		return nil, fmt.Errorf("%w: unknown log format %q", ErrUsage, format)
	}
	return logger, nil
}

// converterOptions maps the configuration to converter options.
func converterOptions(cfg *config.Config, logger *log.Logger) []office2pdf.Option {
	return []office2pdf.Option{
		office2pdf.WithMaxEngines(cfg.MaxConcurrentEngines),
		office2pdf.WithEngineTimeout(cfg.EngineTimeout()),
		office2pdf.WithQueueTimeout(cfg.QueueTimeout()),
		office2pdf.WithScratchRoot(cfg.ScratchRoot),
		office2pdf.WithEngineBinary(cfg.EngineBinary),
		office2pdf.WithContentVerification(cfg.VerifyContent),
		office2pdf.WithLogger(logger),
	}
}

// hintFor returns an actionable hint for err, or "".
func hintFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, engine.ErrNotFound), errors.Is(err, engine.ErrStart):
		return hints.ForEngineNotFound()
	case errors.Is(err, office2pdf.ErrUnsupportedFormat):
		formats := office2pdf.SupportedFormats()
		names := make([]string, len(formats))
		for i, f := range formats {
			names[i] = "." + string(f)
		}
		return hints.ForUnsupportedFormat(names)
	case errors.Is(err, office2pdf.ErrOverloaded):
		return hints.ForOverloaded()
	case errors.Is(err, office2pdf.ErrConversionTimeout):
		return hints.ForTimeout()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(nil)
	default:
		return ""
	}
}
