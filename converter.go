package office2pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/alnah/go-office2pdf/internal/cache"
	"github.com/alnah/go-office2pdf/internal/engine"
	"github.com/alnah/go-office2pdf/internal/governor"
	"github.com/alnah/go-office2pdf/internal/sniff"
	"github.com/alnah/go-office2pdf/internal/watermark"
	"github.com/alnah/go-office2pdf/internal/workspace"
)

// pdfMagic starts every PDF file.
var pdfMagic = []byte("%PDF-")

// engineRunner runs one engine subprocess inside a workspace.
type engineRunner interface {
	Run(ctx context.Context, ws *workspace.Workspace, timeout time.Duration) (string, error)
}

var _ engineRunner = (*engine.Invoker)(nil)

// workspaceManager hands out and reclaims per-job workspaces.
type workspaceManager interface {
	Acquire(jobID, ext string) (*workspace.Workspace, error)
	Release(ws *workspace.Workspace) error
	Live() int
	Root() string
	Sweep(olderThan time.Duration) (int, error)
}

var _ workspaceManager = (*workspace.Manager)(nil)

// Converter turns office documents into PDFs with a bounded number of
// concurrent LibreOffice processes. Create with NewConverter, call Convert
// from any number of goroutines, and Close when done.
type Converter struct {
	cfg        converterConfig
	workspaces workspaceManager
	governor   *governor.Governor
	engine     engineRunner
	cache      Cache
	hooks      Hooks
	logger     *log.Logger
	newID      func() string
	now        func() time.Time

	wrapWorkspaces func(workspaceManager) workspaceManager

	closeOnce sync.Once
	closeErr  error
}

// NewConverter creates a Converter. The scratch root is created if needed.
// When no engine binary is configured it is looked up on PATH and in the
// usual install locations.
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{
		cfg: converterConfig{
			engineTimeout: DefaultEngineTimeout,
			queueTimeout:  DefaultQueueTimeout,
			scratchRoot:   defaultScratchRoot(),
			verifyContent: true,
			cacheTTL:      DefaultCacheTTL,
		},
		hooks:  NoopHooks{},
		logger: log.New(io.Discard),
		newID:  uuid.NewString,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.cache == nil {
		c.cache = cache.NewNullCache()
	}

	ws, err := workspace.NewManager(c.cfg.scratchRoot)
	if err != nil {
		return nil, newError(KindResourceError, "preparing scratch root", err)
	}
	c.workspaces = ws
	if c.wrapWorkspaces != nil {
		c.workspaces = c.wrapWorkspaces(ws)
	}

	c.governor = governor.New(ResolveMaxEngines(c.cfg.maxEngines))

	if c.engine == nil {
		binary := c.cfg.engineBinary
		if binary == "" {
			if found, err := engine.LookPath(); err == nil {
				binary = found
			} else {
				c.logger.Warn("engine not found, conversions will fail until it is installed", "err", err)
			}
		}
		inv := engine.New(binary, engine.WithLogger(c.logger))
		c.cfg.engineBinary = inv.Binary()
		c.engine = inv
	}

	return c, nil
}

// Convert renders in.Data to PDF.
//
// On failure the error is a *ConversionError carrying exactly one Kind. The
// job's workspace is gone by the time Convert returns, whatever happened.
func (c *Converter) Convert(ctx context.Context, in Input) (res *Result, err error) {
	j := &job{createdAt: c.now()}
	// Completion is reported against the caller's context, which outlives
	// the per-input timeout below.
	callerCtx := ctx

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("conversion panicked", "job", j.id, "panic", r, "stack", string(debug.Stack()))
			res, err = nil, newError(KindResourceError, fmt.Sprintf("internal error: %v", r), nil)
		}
		var ce *ConversionError
		if errors.As(err, &ce) && ce.JobID == "" {
			ce.JobID = j.id
		}
		c.finish(callerCtx, j, err)
	}()

	if err := c.validate(j, in); err != nil {
		return nil, err
	}

	if in.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, in.Timeout)
		defer cancel()
	}
	j.id = c.newID()

	return c.run(ctx, j)
}

// validate resolves and checks the format. It consumes no workspace or slot.
func (c *Converter) validate(j *job, in Input) error {
	var err error
	switch {
	case in.Format != "":
		j.format, err = ParseFormat(string(in.Format))
	case in.Filename != "":
		j.format, err = FormatFromFilename(in.Filename)
	default:
		err = newError(KindUnsupportedFormat, "no format or filename given", nil)
	}
	if err != nil {
		return err
	}

	if len(in.Data) == 0 {
		return newError(KindUnsupportedFormat, "document is empty", nil)
	}
	if c.cfg.verifyContent {
		if err := sniff.Check(j.format.Ext(), in.Data); err != nil && !errors.Is(err, sniff.ErrUnknown) {
			detail := err.Error()
			if kind := sniff.Detect(in.Data); kind != "" {
				detail += " (content looks like " + kind + ")"
			}
			return newError(KindUnsupportedFormat, detail, err)
		}
	}
	if wm := strings.TrimSpace(in.Watermark); wm != "" {
		if err := checkWatermark(j.format, wm); err != nil {
			return err
		}
		j.watermark = wm
	}
	j.data = in.Data
	return nil
}

// checkWatermark accepts short printable text on PPTX documents.
func checkWatermark(f Format, wm string) error {
	switch {
	case f != FormatPPTX:
		return newError(KindUnsupportedFormat, fmt.Sprintf("watermarks apply to .pptx documents, not .%s", f.Ext()), nil)
	case utf8.RuneCountInString(wm) > MaxWatermarkLength:
		return newError(KindUnsupportedFormat, fmt.Sprintf("watermark longer than %d characters", MaxWatermarkLength), nil)
	case strings.IndexFunc(wm, unicode.IsControl) >= 0:
		return newError(KindUnsupportedFormat, "watermark contains control characters", nil)
	}
	return nil
}

func (c *Converter) run(ctx context.Context, j *job) (*Result, error) {
	logger := c.logger.With("job", j.id, "format", j.format)

	key := cache.Key(j.format.Ext(), j.data, j.watermark)
	if pdf, ok := c.lookup(ctx, logger, key); ok {
		return &Result{PDF: pdf, JobID: j.id, Format: j.format, Cached: true}, nil
	}

	ws, err := c.workspaces.Acquire(j.id, j.format.Ext())
	if err != nil {
		return nil, newError(KindResourceError, "creating workspace", err)
	}
	defer func() {
		if err := c.workspaces.Release(ws); err != nil {
			logger.Error("workspace cleanup failed", "root", ws.Root, "err", err)
		}
	}()

	input := j.data
	if j.watermark != "" {
		stamped, err := watermark.Apply(j.data, j.watermark)
		if err != nil {
			return nil, newError(KindRenderFailed, "stamping watermark", err)
		}
		input = stamped
	}
	if err := ws.WriteInput(input); err != nil {
		return nil, newError(KindResourceError, "writing input", err)
	}

	admitCtx, cancel := context.WithTimeout(ctx, c.cfg.queueTimeout)
	ticket, err := c.governor.Admit(admitCtx)
	cancel()
	if err != nil {
		if errors.Is(err, governor.ErrClosed) {
			return nil, newError(KindOverloaded, "converter is shutting down", err)
		}
		return nil, newError(KindOverloaded, "no engine slot became free in time", err)
	}
	// Registered after the workspace release: the slot is freed first.
	defer c.governor.Release(ticket)

	res := &Result{JobID: j.id, Format: j.format, QueueWait: ticket.Waited()}
	c.hooks.OnAdmitted(ctx, res.QueueWait)
	logger.Debug("admitted", "wait", res.QueueWait, "ticket", ticket.ID())

	out, err := c.render(ctx, logger, ws, res)
	if err != nil {
		return nil, err
	}

	pdf, err := os.ReadFile(out)
	if err != nil {
		return nil, newError(KindResourceError, "reading engine output", err)
	}
	if !bytes.HasPrefix(pdf, pdfMagic) {
		return nil, newError(KindRenderFailed, "engine output is not a PDF", nil)
	}
	res.PDF = pdf

	if err := c.cache.Set(ctx, key, pdf, c.cfg.cacheTTL); err != nil {
		logger.Warn("cache store failed", "err", err)
	}
	return res, nil
}

// render runs the engine, retrying once after a timeout while ctx is live.
func (c *Converter) render(ctx context.Context, logger *log.Logger, ws *workspace.Workspace, res *Result) (string, error) {
	for attempt := 1; ; attempt++ {
		res.Attempts = attempt
		start := c.now()
		out, err := c.engine.Run(ctx, ws, c.cfg.engineTimeout)
		elapsed := c.now().Sub(start)
		res.RenderTime += elapsed

		cerr := classifyEngineError(err, attempt)
		outcome := outcomeOK
		if cerr != nil {
			outcome = string(cerr.Kind)
		}
		c.hooks.OnEngineRun(ctx, attempt, elapsed, outcome)

		if cerr == nil {
			return out, nil
		}
		if cerr.Kind != KindConversionTimeout || attempt >= maxAttempts || ctx.Err() != nil {
			return "", cerr
		}

		logger.Warn("engine timed out, retrying", "attempt", attempt, "elapsed", elapsed)
		if err := ws.Reset(); err != nil {
			return "", newError(KindResourceError, "resetting workspace for retry", err)
		}
	}
}

// classifyEngineError maps an engine error to a ConversionError.
func classifyEngineError(err error, attempt int) *ConversionError {
	if err == nil {
		return nil
	}

	var exitErr *engine.ExitError
	switch {
	case errors.Is(err, engine.ErrTimeout):
		return newError(KindConversionTimeout, fmt.Sprintf("engine did not finish (attempt %d)", attempt), err)
	case errors.Is(err, engine.ErrStart):
		return newError(KindResourceError, "engine could not be started", err)
	case errors.As(err, &exitErr):
		detail := fmt.Sprintf("engine exited with code %d", exitErr.ExitCode)
		if exitErr.Stderr != "" {
			detail += ": " + exitErr.Stderr
		}
		return newError(KindRenderFailed, detail, err)
	case errors.Is(err, engine.ErrRenderFailed):
		return newError(KindRenderFailed, err.Error(), err)
	default:
		return newError(KindResourceError, err.Error(), err)
	}
}

// lookup consults the cache. Backend errors count as misses.
func (c *Converter) lookup(ctx context.Context, logger *log.Logger, key string) ([]byte, bool) {
	if _, ok := c.cache.(*cache.NullCache); ok {
		return nil, false
	}
	pdf, hit, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		logger.Warn("cache lookup failed", "err", err)
		c.hooks.OnCacheLookup(ctx, "error")
		return nil, false
	case hit && bytes.HasPrefix(pdf, pdfMagic):
		c.hooks.OnCacheLookup(ctx, "hit")
		return pdf, true
	default:
		c.hooks.OnCacheLookup(ctx, "miss")
		return nil, false
	}
}

// finish reports the end of a conversion to hooks and the log.
func (c *Converter) finish(ctx context.Context, j *job, err error) {
	elapsed := c.now().Sub(j.createdAt)
	outcome := outcomeOK
	if err != nil {
		outcome = string(KindOf(err))
	}
	c.hooks.OnComplete(ctx, string(j.format), outcome, elapsed)

	if err != nil {
		c.logger.Warn("conversion failed", "job", j.id, "format", j.format, "kind", outcome, "elapsed", elapsed, "err", err)
		return
	}
	c.logger.Info("conversion finished", "job", j.id, "format", j.format, "elapsed", elapsed)
}

// Stats returns a snapshot of engine slots and live workspaces.
func (c *Converter) Stats() Stats {
	s := c.governor.Stats()
	return Stats{
		Capacity:       s.Capacity,
		InFlight:       s.InFlight,
		Waiting:        s.Waiting,
		Admitted:       s.Admitted,
		Rejected:       s.Rejected,
		LiveWorkspaces: c.workspaces.Live(),
	}
}

// MaxEngines returns the number of engines allowed to run at once.
func (c *Converter) MaxEngines() int {
	return c.governor.Capacity()
}

// EngineBinary returns the engine binary in use, or "" when an engine was
// injected.
func (c *Converter) EngineBinary() string {
	return c.cfg.engineBinary
}

// ScratchRoot returns the absolute directory holding job workspaces.
func (c *Converter) ScratchRoot() string {
	return c.workspaces.Root()
}

// SweepOrphans removes job workspaces left behind by a crashed process.
// Only directories older than the longest a live job can take are removed,
// so another process sharing the scratch root keeps its jobs.
func (c *Converter) SweepOrphans() (int, error) {
	maxJobAge := c.cfg.queueTimeout + maxAttempts*c.cfg.engineTimeout + time.Minute
	n, err := c.workspaces.Sweep(maxJobAge)
	if n > 0 {
		c.logger.Info("removed orphaned workspaces", "count", n, "root", c.workspaces.Root())
	}
	return n, err
}

// Close rejects queued and future conversions and releases the cache.
// Conversions already running finish normally.
func (c *Converter) Close() error {
	c.closeOnce.Do(func() {
		c.governor.Close()
		c.closeErr = c.cache.Close()
	})
	return c.closeErr
}
