package office2pdf

import (
	"context"
	"time"
)

// Input is one document to convert.
type Input struct {
	Data      []byte        // Document bytes (required)
	Format    Format        // Declared format; empty = derive from Filename
	Filename  string        // Original file name (optional)
	Timeout   time.Duration // Overall budget (optional); the context deadline also applies
	Watermark string        // Name stamped on every slide (optional, PPTX only)
}

// MaxWatermarkLength bounds Input.Watermark, in characters.
const MaxWatermarkLength = 200

// Result is a successful conversion.
type Result struct {
	PDF        []byte
	JobID      string
	Format     Format
	Attempts   int           // Engine runs, 2 when the first one timed out
	QueueWait  time.Duration // Time spent waiting for an engine slot
	RenderTime time.Duration // Time spent inside the engine, all attempts
	Cached     bool          // Served from the result cache, no engine run
}

// Stats is a snapshot of the converter's load.
type Stats struct {
	Capacity       int
	InFlight       int
	Waiting        int
	Admitted       uint64
	Rejected       uint64
	LiveWorkspaces int
}

// Cache stores rendered PDFs. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Close() error
}

// Hooks receives conversion events, typically to export metrics.
// Outcome strings are "ok" or a Kind.
type Hooks interface {
	OnAdmitted(ctx context.Context, wait time.Duration)
	OnEngineRun(ctx context.Context, attempt int, d time.Duration, outcome string)
	OnCacheLookup(ctx context.Context, result string)
	OnComplete(ctx context.Context, format, outcome string, d time.Duration)
}

// NoopHooks ignores every event.
type NoopHooks struct{}

func (NoopHooks) OnAdmitted(context.Context, time.Duration)                 {}
func (NoopHooks) OnEngineRun(context.Context, int, time.Duration, string)   {}
func (NoopHooks) OnCacheLookup(context.Context, string)                     {}
func (NoopHooks) OnComplete(context.Context, string, string, time.Duration) {}

// outcomeOK labels successful conversions and engine runs in Hooks.
const outcomeOK = "ok"

// job is the converter's private view of one request.
type job struct {
	id        string
	data      []byte
	format    Format
	watermark string
	createdAt time.Time
}
