package office2pdf

import (
	"time"

	"github.com/charmbracelet/log"
)

// Default converter settings.
const (
	DefaultEngineTimeout = 120 * time.Second
	DefaultQueueTimeout  = 30 * time.Second
	DefaultCacheTTL      = 24 * time.Hour
)

// maxAttempts bounds engine runs per job: one retry after a timeout.
const maxAttempts = 2

// converterConfig holds settings applied by options.
type converterConfig struct {
	maxEngines    int
	engineTimeout time.Duration
	queueTimeout  time.Duration
	scratchRoot   string
	engineBinary  string
	verifyContent bool
	cacheTTL      time.Duration
}

// Option configures a Converter.
type Option func(*Converter)

// WithMaxEngines sets how many engines may run at once (0 = auto).
func WithMaxEngines(n int) Option {
	return func(c *Converter) {
		c.cfg.maxEngines = n
	}
}

// WithEngineTimeout sets the wall-clock budget of one engine run.
func WithEngineTimeout(d time.Duration) Option {
	return func(c *Converter) {
		if d > 0 {
			c.cfg.engineTimeout = d
		}
	}
}

// WithQueueTimeout sets how long a job may wait for an engine slot.
func WithQueueTimeout(d time.Duration) Option {
	return func(c *Converter) {
		if d > 0 {
			c.cfg.queueTimeout = d
		}
	}
}

// WithScratchRoot sets the directory holding per-job workspaces.
func WithScratchRoot(path string) Option {
	return func(c *Converter) {
		c.cfg.scratchRoot = path
	}
}

// WithEngineBinary sets the LibreOffice binary. Empty means discover it.
func WithEngineBinary(path string) Option {
	return func(c *Converter) {
		c.cfg.engineBinary = path
	}
}

// WithContentVerification toggles sniffing document bytes against the
// declared format before any workspace is created. On by default.
func WithContentVerification(on bool) Option {
	return func(c *Converter) {
		c.cfg.verifyContent = on
	}
}

// WithCache enables the result cache. Entries expire after ttl
// (0 = DefaultCacheTTL).
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Converter) {
		c.cache = cache
		if ttl > 0 {
			c.cfg.cacheTTL = ttl
		}
	}
}

// WithHooks registers event hooks.
func WithHooks(h Hooks) Option {
	return func(c *Converter) {
		if h != nil {
			c.hooks = h
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *log.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.logger = l
		}
	}
}

// withEngine injects an engine runner (tests).
func withEngine(e engineRunner) Option {
	return func(c *Converter) {
		c.engine = e
	}
}

// withIDGenerator replaces uuid job IDs (tests).
func withIDGenerator(fn func() string) Option {
	return func(c *Converter) {
		c.newID = fn
	}
}

// withWorkspaces wraps the workspace manager once it is created (tests).
func withWorkspaces(wrap func(workspaceManager) workspaceManager) Option {
	return func(c *Converter) {
		c.wrapWorkspaces = wrap
	}
}
