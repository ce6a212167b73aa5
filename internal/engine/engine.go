// Package engine runs one headless LibreOffice conversion inside a job
// workspace and reports how it ended.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/alnah/go-office2pdf/internal/process"
	"github.com/alnah/go-office2pdf/internal/workspace"
)

// Sentinel errors for engine runs.
var (
	ErrTimeout      = errors.New("engine timed out")
	ErrRenderFailed = errors.New("engine failed to render document")
	ErrNoOutput     = fmt.Errorf("%w: no PDF produced", ErrRenderFailed)
	ErrStart        = errors.New("starting engine")
	ErrNotFound     = errors.New("engine binary not found")
)

const (
	// DefaultBinary is resolved through PATH when no binary is configured.
	DefaultBinary = "soffice"

	// StderrTailSize caps how much engine stderr is kept for diagnostics.
	StderrTailSize = 800

	// DefaultWaitDelay bounds how long Wait keeps reading pipes after the
	// engine is killed or exits while helpers still hold them open.
	DefaultWaitDelay = 5 * time.Second
)

// ExitError reports a non-zero engine exit.
// It matches ErrRenderFailed with errors.Is.
type ExitError struct {
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("engine exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("engine exited with code %d: %s", e.ExitCode, e.Stderr)
}

// Is reports whether target is ErrRenderFailed.
func (e *ExitError) Is(target error) bool {
	return target == ErrRenderFailed
}

// Invoker runs the engine binary. It holds no per-run state and is safe for
// concurrent use: every run gets its own profile, output directory and
// process group.
type Invoker struct {
	binary    string
	logger    *log.Logger
	waitDelay time.Duration
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithLogger sets the logger used for per-run debug output.
func WithLogger(l *log.Logger) Option {
	return func(i *Invoker) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithWaitDelay overrides DefaultWaitDelay.
func WithWaitDelay(d time.Duration) Option {
	return func(i *Invoker) {
		if d > 0 {
			i.waitDelay = d
		}
	}
}

// New creates an Invoker for binary. An empty binary means DefaultBinary.
func New(binary string, opts ...Option) *Invoker {
	if binary == "" {
		binary = DefaultBinary
	}
	i := &Invoker{
		binary:    binary,
		logger:    log.New(io.Discard),
		waitDelay: DefaultWaitDelay,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Binary returns the configured engine binary.
func (i *Invoker) Binary() string {
	return i.binary
}

// Args returns the command line used to convert ws.InputPath.
func (i *Invoker) Args(ws *workspace.Workspace) []string {
	return []string{
		"-env:UserInstallation=" + ProfileURL(ws.ProfileDir),
		"--headless",
		"--invisible",
		"--nologo",
		"--nodefault",
		"--norestore",
		"--nofirststartwizard",
		"--nolockcheck",
		"--convert-to", "pdf",
		"--outdir", ws.OutputDir,
		ws.InputPath,
	}
}

// ProfileURL turns a profile directory into the file URL LibreOffice expects
// for -env:UserInstallation.
func ProfileURL(dir string) string {
	p := filepath.ToSlash(dir)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}

// Run converts ws.InputPath to PDF and returns the path of the produced file.
//
// The run is bounded by timeout (when positive) and by ctx. When either ends
// first, the engine's whole process group is killed and the error wraps
// ErrTimeout. Whatever happens, no engine process outlives Run.
func (i *Invoker) Run(ctx context.Context, ws *workspace.Workspace, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	stderr := newTailBuffer(StderrTailSize)
	stdout := newTailBuffer(StderrTailSize)

	cmd := exec.CommandContext(ctx, i.binary, i.Args(ws)...)
	cmd.Dir = ws.Root
	cmd.Env = i.environ(ws.ProfileDir)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = i.waitDelay
	process.Isolate(cmd)
	cmd.Cancel = func() error {
		return process.KillProcessGroup(cmd.Process.Pid)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrStart, i.binary, err)
	}
	pid := cmd.Process.Pid
	i.logger.Debug("engine started", "job", ws.JobID, "pid", pid)

	err := cmd.Wait()
	// The leader may exit while forked helpers linger in its group.
	_ = process.KillProcessGroup(pid)

	elapsed := time.Since(start)
	i.logger.Debug("engine exited", "job", ws.JobID, "pid", pid, "elapsed", elapsed, "err", err)

	if err != nil && ctx.Err() != nil {
		return "", fmt.Errorf("%w after %s: %v", ErrTimeout, elapsed.Round(time.Millisecond), ctx.Err())
	}
	if err != nil && !waitDelayOnly(err, cmd) {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ExitError{ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return "", fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	out, err := findOutput(ws)
	if err != nil {
		if tail := stderr.String(); tail != "" {
			return "", fmt.Errorf("%w: %s", err, tail)
		}
		if tail := stdout.String(); tail != "" {
			return "", fmt.Errorf("%w: %s", err, tail)
		}
		return "", err
	}
	return out, nil
}

// Version runs the engine with --version and returns the first output line.
func (i *Invoker) Version(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	out := newTailBuffer(4 << 10)
	cmd := exec.CommandContext(ctx, i.binary, "--version")
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = i.waitDelay
	process.Isolate(cmd)
	cmd.Cancel = func() error {
		return process.KillProcessGroup(cmd.Process.Pid)
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrStart, i.binary, err)
	}
	err := cmd.Wait()
	_ = process.KillProcessGroup(cmd.Process.Pid)
	if err != nil && !waitDelayOnly(err, cmd) {
		return "", fmt.Errorf("%s --version: %w", i.binary, err)
	}

	line, _, _ := strings.Cut(strings.TrimSpace(out.String()), "\n")
	return strings.TrimSpace(line), nil
}

// environ returns the parent environment with HOME pointed at the job
// profile, so nothing the engine writes lands in the service user's home.
func (i *Invoker) environ(profileDir string) []string {
	env := slices.DeleteFunc(os.Environ(), func(kv string) bool {
		return strings.HasPrefix(kv, "HOME=")
	})
	return append(env, "HOME="+profileDir)
}

// waitDelayOnly reports whether Wait failed only because helpers kept the
// output pipes open after a clean exit.
func waitDelayOnly(err error, cmd *exec.Cmd) bool {
	return errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success()
}

// findOutput returns the expected output path, or any other non-empty PDF the
// engine left in the output directory.
func findOutput(ws *workspace.Workspace) (string, error) {
	if info, err := os.Stat(ws.OutputPath); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
		return ws.OutputPath, nil
	}

	matches, err := filepath.Glob(filepath.Join(ws.OutputDir, "*.pdf"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoOutput, err)
	}
	slices.Sort(matches)
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
			return m, nil
		}
	}
	return "", ErrNoOutput
}
