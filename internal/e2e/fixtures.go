package e2e

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauern/canonsync/internal/util"
)

// Fixture provides helpers for creating test fixtures in E2E tests.
type Fixture struct {
	t       *testing.T
	baseDir string
}

// NewFixture creates a new fixture helper rooted at the given directory.
func NewFixture(t *testing.T, baseDir string) *Fixture {
	t.Helper()
	return &Fixture{
		t:       t,
		baseDir: baseDir,
	}
}

// WriteFile writes content at relPath, creating parent directories, and
// returns the absolute path.
func (f *Fixture) WriteFile(relPath, content string) string {
	f.t.Helper()
	p := f.Path(relPath)
	util.WriteFile(f.t, p, content)
	return p
}

// Remove deletes a file or directory tree relative to the base.
func (f *Fixture) Remove(relPath string) {
	f.t.Helper()
	if err := os.RemoveAll(filepath.Join(f.baseDir, relPath)); err != nil {
		f.t.Fatalf("failed to remove %s: %v", relPath, err)
	}
}

// Path returns the full path for a relative path.
func (f *Fixture) Path(relPath string) string {
	return filepath.Join(f.baseDir, relPath)
}

// ReadFile returns the content at relPath.
func (f *Fixture) ReadFile(relPath string) string {
	f.t.Helper()
	return readFile(f.t, f.Path(relPath))
}

// SourceFixture returns a fixture for the default canonical source,
// <home>/canonical, creating it if needed.
func (h *Harness) SourceFixture() *Fixture {
	h.t.Helper()

	dir := filepath.Join(h.homeDir, "canonical")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		h.t.Fatalf("failed to create canonical source: %v", err)
	}
	return NewFixture(h.t, dir)
}

// ProjectFixture returns a fixture for the project directory.
func (h *Harness) ProjectFixture() *Fixture {
	h.t.Helper()
	return NewFixture(h.t, h.projectDir)
}

// TempFixture creates a fixture helper for a new temporary directory.
func (h *Harness) TempFixture() *Fixture {
	h.t.Helper()
	return NewFixture(h.t, h.t.TempDir())
}
