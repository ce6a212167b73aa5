package main

import (
	"errors"
	"math"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-office2pdf/internal/config"
)

// ErrUsage marks invalid command lines.
var ErrUsage = errors.New("invalid usage")

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config    string
	quiet     bool
	verbose   bool
	logLevel  string
	logFormat string
}

// engineFlags holds converter flags shared by serve, convert and doctor.
type engineFlags struct {
	maxEngines    int
	engineTimeout time.Duration
	queueTimeout  time.Duration
	scratchRoot   string
	engineBinary  string
	noVerify      bool
}

// serveFlags holds flags for the serve command.
type serveFlags struct {
	common         commonFlags
	engine         engineFlags
	addr           string
	maxUpload      int64
	requestTimeout time.Duration
	rateLimit      float64
	burst          int
	redisURL       string
	cacheTTL       time.Duration
	noMetrics      bool
	changed        func(name string) bool
}

// convertFlags holds flags for the convert command.
type convertFlags struct {
	common  commonFlags
	engine  engineFlags
	output    string
	format    string
	timeout   time.Duration
	watermark string
	changed   func(name string) bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show detailed timing and debug logs")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: text, json, logfmt")
}

// addEngineFlags adds converter flags to a FlagSet.
func addEngineFlags(fs *flag.FlagSet, f *engineFlags) {
	fs.IntVarP(&f.maxEngines, "max-engines", "w", 0, "concurrent LibreOffice processes (0 = auto)")
	fs.DurationVar(&f.engineTimeout, "engine-timeout", 0, "budget of one engine run (e.g. 90s, 2m)")
	fs.DurationVar(&f.queueTimeout, "queue-timeout", 0, "how long a job may wait for an engine slot")
	fs.StringVar(&f.scratchRoot, "scratch-root", "", "directory holding per-job workspaces")
	fs.StringVar(&f.engineBinary, "engine-binary", "", "path to soffice (default: discover)")
	fs.BoolVar(&f.noVerify, "no-verify", false, "skip content sniffing of input documents")
}

// parseServeFlags parses serve command flags and returns positional args.
func parseServeFlags(args []string) (*serveFlags, []string, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	f := &serveFlags{changed: fs.Changed}

	fs.StringVarP(&f.addr, "addr", "a", "", "listen address (default :8080)")
	fs.Int64Var(&f.maxUpload, "max-upload", 0, "maximum upload size in bytes")
	fs.DurationVar(&f.requestTimeout, "request-timeout", 0, "budget of one HTTP conversion")
	fs.Float64Var(&f.rateLimit, "rate-limit", 0, "requests per second on /v1 (0 = unlimited)")
	fs.IntVar(&f.burst, "burst", 0, "rate limiter burst (0 = derived from rate)")
	fs.StringVar(&f.redisURL, "redis-url", "", "redis:// URL of the result cache")
	fs.DurationVar(&f.cacheTTL, "cache-ttl", 0, "lifetime of cached PDFs")
	fs.BoolVar(&f.noMetrics, "no-metrics", false, "do not serve /metrics")

	addCommonFlags(fs, &f.common)
	addEngineFlags(fs, &f.engine)

	fs.Usage = func() {}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseConvertFlags parses convert command flags and returns positional args.
func parseConvertFlags(args []string) (*convertFlags, []string, error) {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	f := &convertFlags{changed: fs.Changed}

	fs.StringVarP(&f.output, "output", "o", "", "output file or directory")
	fs.StringVarP(&f.format, "format", "f", "", "input format when the extension is missing or wrong")
	fs.DurationVarP(&f.timeout, "timeout", "t", 0, "overall budget per document (e.g. 5m)")
	fs.StringVar(&f.watermark, "watermark", "", "name stamped on every slide (.pptx only)")

	addCommonFlags(fs, &f.common)
	addEngineFlags(fs, &f.engine)

	fs.Usage = func() {}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// mergeCommonFlags applies explicitly set common flags to cfg.
func mergeCommonFlags(f *commonFlags, cfg *config.Config) {
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Log.Format = f.logFormat
	}
	if f.verbose {
		cfg.Log.Level = "debug"
	}
	if f.quiet {
		cfg.Log.Level = "error"
	}
}

// mergeEngineFlags applies explicitly set engine flags to cfg.
// CLI values override config and environment values.
func mergeEngineFlags(f *engineFlags, changed func(string) bool, cfg *config.Config) {
	if changed("max-engines") {
		cfg.MaxConcurrentEngines = f.maxEngines
	}
	if changed("engine-timeout") {
		cfg.EngineTimeoutSeconds = seconds(f.engineTimeout)
	}
	if changed("queue-timeout") {
		cfg.QueueTimeoutSeconds = seconds(f.queueTimeout)
	}
	if f.scratchRoot != "" {
		cfg.ScratchRoot = f.scratchRoot
	}
	if f.engineBinary != "" {
		cfg.EngineBinary = f.engineBinary
	}
	if f.noVerify {
		cfg.VerifyContent = false
	}
}

// mergeServeFlags applies explicitly set serve flags to cfg.
func mergeServeFlags(f *serveFlags, cfg *config.Config) {
	mergeCommonFlags(&f.common, cfg)
	mergeEngineFlags(&f.engine, f.changed, cfg)

	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	if f.changed("max-upload") {
		cfg.Server.MaxUploadBytes = f.maxUpload
	}
	if f.changed("request-timeout") {
		cfg.Server.RequestTimeoutSeconds = seconds(f.requestTimeout)
	}
	if f.changed("rate-limit") {
		cfg.Server.RequestsPerSecond = f.rateLimit
	}
	if f.changed("burst") {
		cfg.Server.Burst = f.burst
	}
	if f.redisURL != "" {
		cfg.Cache.RedisURL = f.redisURL
	}
	if f.changed("cache-ttl") {
		cfg.Cache.TTLSeconds = seconds(f.cacheTTL)
	}
}

// seconds rounds d up to whole seconds. Negative durations stay negative so
// Validate rejects them.
func seconds(d time.Duration) int {
	if d < 0 {
		return -1
	}
	return int(math.Ceil(d.Seconds()))
}
