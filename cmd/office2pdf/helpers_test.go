package main

import (
	"bytes"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-office2pdf"
)

// ---------------------------------------------------------------------------
// Test Infrastructure - Fake converter and environment
// ---------------------------------------------------------------------------

// fakeConverter returns canned results without running LibreOffice.
type fakeConverter struct {
	mu      sync.Mutex
	inputs  []office2pdf.Input
	err     error // returned for every call when set
	errFor  map[string]error
	engines int
	closed  bool
	swept   int
}

func (f *fakeConverter) Convert(_ context.Context, in office2pdf.Input) (*office2pdf.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	if err, ok := f.errFor[in.Filename]; ok {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return &office2pdf.Result{
		PDF:      []byte("%PDF-1.7 " + in.Filename),
		JobID:    "job-test",
		Format:   in.Format,
		Attempts: 1,
	}, nil
}

func (f *fakeConverter) Stats() office2pdf.Stats {
	return office2pdf.Stats{Capacity: f.MaxEngines()}
}

func (f *fakeConverter) MaxEngines() int {
	if f.engines == 0 {
		return 2
	}
	return f.engines
}

func (f *fakeConverter) SweepOrphans() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.swept++
	return 0, nil
}

func (f *fakeConverter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConverter) calls() []office2pdf.Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]office2pdf.Input(nil), f.inputs...)
}

// syncBuffer is a bytes.Buffer safe for the logger and the test to share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// testEnv bundles an Environment with its captured output.
type testEnv struct {
	*Environment
	stdout *syncBuffer
	stderr *syncBuffer
	conv   *fakeConverter
	vars   map[string]string
}

// newTestEnv returns an environment with no OFFICE2PDF_* variables except a
// scratch root under t.TempDir().
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	te := &testEnv{
		stdout: &syncBuffer{},
		stderr: &syncBuffer{},
		conv:   &fakeConverter{},
		vars:   map[string]string{"OFFICE2PDF_SCRATCH_ROOT": t.TempDir()},
	}
	te.Environment = &Environment{
		Now:    time.Now,
		Stdout: te.stdout,
		Stderr: te.stderr,
		Getenv: func(k string) string { return te.vars[k] },
		Environ: func() []string {
			out := make([]string, 0, len(te.vars))
			for k, v := range te.vars {
				out = append(out, k+"="+v)
			}
			return out
		},
		NewConverter: func(...office2pdf.Option) (Converter, error) {
			return te.conv, nil
		},
		Listen: net.Listen,
		LookPath: func() (string, error) {
			return "/usr/bin/soffice", nil
		},
		EngineVersion: func(context.Context, string) (string, error) {
			return "LibreOffice 24.2.7.2", nil
		},
	}
	return te
}

// assertContains fails when s lacks substr.
func assertContains(t *testing.T, name, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("%s missing %q, got:\n%s", name, substr, s)
	}
}
