// Package workspace allocates and reclaims the per-job scratch directories
// the rendering engine works in.
//
// Every job gets its own subtree under the scratch root:
//
//	<root>/job-<id>/
//	├── in/document.<ext>
//	├── out/document.pdf
//	└── profile/            engine user installation (lock files live here)
//
// Nothing is shared between jobs, so the engine's own profile locking never
// serializes unrelated conversions.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/alnah/go-office2pdf/internal/fileutil"
)

// Sentinel errors for workspace operations.
var (
	ErrCreate       = errors.New("failed to create workspace")
	ErrWriteInput   = errors.New("failed to write workspace input")
	ErrInvalidJobID = errors.New("invalid job id")
	ErrReleased     = errors.New("workspace already released")
)

// DirPrefix names every job directory under the scratch root.
// Sweep only ever removes entries carrying it.
const DirPrefix = "job-"

const (
	dirPermissions  = 0o700
	filePermissions = 0o600

	inputBaseName  = "document"
	outputFileName = "document.pdf"
)

// Workspace is an isolated scratch area owned by exactly one job.
type Workspace struct {
	JobID      string
	Root       string
	InputPath  string
	OutputDir  string
	OutputPath string
	ProfileDir string

	mu       sync.Mutex
	released bool
}

// Manager creates and deletes workspaces under a single scratch root.
type Manager struct {
	root      string
	now       func() time.Time
	removeAll func(string) error

	mu   sync.Mutex
	live map[string]*Workspace
}

// NewManager creates the scratch root if needed.
func NewManager(root string) (*Manager, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: empty scratch root", ErrCreate)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving %s: %v", ErrCreate, root, err)
	}
	if err := os.MkdirAll(abs, dirPermissions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreate, err)
	}
	return &Manager{
		root:      abs,
		now:       time.Now,
		removeAll: os.RemoveAll,
		live:      make(map[string]*Workspace),
	}, nil
}

// Root returns the absolute scratch root.
func (m *Manager) Root() string {
	return m.root
}

// Acquire creates a fresh workspace for jobID. The input file keeps ext so the
// engine can pick its import filter from the name.
func (m *Manager) Acquire(jobID, ext string) (*Workspace, error) {
	if err := validateJobID(jobID); err != nil {
		return nil, err
	}
	if err := fileutil.ValidateExtension(ext); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreate, err)
	}

	root := filepath.Join(m.root, DirPrefix+jobID)
	// Mkdir, not MkdirAll: an existing directory means a job id collision.
	if err := os.Mkdir(root, dirPermissions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreate, err)
	}

	ws := &Workspace{
		JobID:      jobID,
		Root:       root,
		InputPath:  filepath.Join(root, "in", inputBaseName+"."+ext),
		OutputDir:  filepath.Join(root, "out"),
		OutputPath: filepath.Join(root, "out", outputFileName),
		ProfileDir: filepath.Join(root, "profile"),
	}
	for _, dir := range []string{filepath.Dir(ws.InputPath), ws.OutputDir, ws.ProfileDir} {
		if err := os.Mkdir(dir, dirPermissions); err != nil {
			_ = os.RemoveAll(root)
			return nil, fmt.Errorf("%w: %v", ErrCreate, err)
		}
	}

	m.mu.Lock()
	m.live[jobID] = ws
	m.mu.Unlock()

	return ws, nil
}

// Release deletes everything under ws.Root. The workspace is unusable as
// soon as Release is called, but it stays tracked until its directory is
// actually gone: a failed removal is retried by the next Release or Sweep.
func (m *Manager) Release(ws *Workspace) error {
	if ws == nil {
		return nil
	}

	ws.mu.Lock()
	ws.released = true
	ws.mu.Unlock()

	if !m.tracks(ws) {
		return nil
	}
	return m.remove(ws)
}

// remove deletes ws.Root and stops tracking ws once the directory is gone.
func (m *Manager) remove(ws *Workspace) error {
	if !m.owns(ws.Root) {
		return fmt.Errorf("refusing to remove %s: outside scratch root %s", ws.Root, m.root)
	}
	if err := m.removeAll(ws.Root); err != nil {
		return fmt.Errorf("removing workspace %s: %w", ws.JobID, err)
	}

	m.mu.Lock()
	if m.live[ws.JobID] == ws {
		delete(m.live, ws.JobID)
	}
	m.mu.Unlock()
	return nil
}

func (m *Manager) tracks(ws *Workspace) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live[ws.JobID] == ws
}

// Live returns the number of workspaces whose directory still exists,
// including released ones whose removal failed.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Sweep removes job directories left behind by a crashed process, and
// retries released workspaces whose removal failed. Entries younger than
// olderThan and workspaces still in use are kept; olderThan of zero removes
// every other job directory.
func (m *Manager) Sweep(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return 0, fmt.Errorf("reading scratch root: %w", err)
	}

	cutoff := m.now().Add(-olderThan)
	removed := 0
	var errs []error

	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || !strings.HasPrefix(name, DirPrefix) {
			continue
		}

		m.mu.Lock()
		ws, tracked := m.live[strings.TrimPrefix(name, DirPrefix)]
		m.mu.Unlock()
		if tracked {
			if !ws.isReleased() {
				continue
			}
			if err := m.remove(ws); err != nil {
				errs = append(errs, err)
				continue
			}
			removed++
			continue
		}

		if olderThan > 0 {
			info, err := entry.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
		}

		if err := m.removeAll(filepath.Join(m.root, name)); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	return removed, errors.Join(errs...)
}

// WriteInput stores the document bytes at InputPath.
func (ws *Workspace) WriteInput(data []byte) error {
	if ws.isReleased() {
		return ErrReleased
	}
	if err := os.WriteFile(ws.InputPath, data, filePermissions); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteInput, err)
	}
	return nil
}

// Reset empties the output and profile directories so a retried engine run
// starts without the previous attempt's partial output or stale lock files.
func (ws *Workspace) Reset() error {
	if ws.isReleased() {
		return ErrReleased
	}
	for _, dir := range []string{ws.OutputDir, ws.ProfileDir} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("resetting %s: %w", dir, err)
		}
		if err := os.Mkdir(dir, dirPermissions); err != nil {
			return fmt.Errorf("resetting %s: %w", dir, err)
		}
	}
	return nil
}

func (ws *Workspace) isReleased() bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.released
}

// owns reports whether path lies strictly inside the scratch root.
func (m *Manager) owns(path string) bool {
	rel, err := filepath.Rel(m.root, path)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel)
}

// validateJobID rejects ids that could escape the scratch root.
func validateJobID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidJobID)
	}
	if strings.ContainsAny(id, "/\\\x00") || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidJobID, id)
	}
	return nil
}
