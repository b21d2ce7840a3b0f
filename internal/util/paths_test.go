package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHomeDir(t *testing.T) {
	home := HomeDir()
	if home == "" {
		t.Error("HomeDir() returned empty string")
	}

	// Verify it's an absolute path
	if !filepath.IsAbs(home) {
		t.Errorf("HomeDir() returned relative path: %s", home)
	}
}

func TestCanonsyncHome(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv(HomeEnv, "")
		AssertEqual(t, CanonsyncHome(), filepath.Join(HomeDir(), ".canonsync"))
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv(HomeEnv, "/opt/canon")
		AssertEqual(t, CanonsyncHome(), "/opt/canon")
		AssertEqual(t, CanonicalSourcePath(), "/opt/canon/canonical")
	})
}

func TestExpandPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		baseDir string
		want    string
	}{
		{"empty", "", "/base", ""},
		{"tilde only", "~", "/base", HomeDir()},
		{"tilde prefix", "~/x/y", "/base", filepath.Join(HomeDir(), "x", "y")},
		{"absolute", "/etc/../etc/hosts", "/base", "/etc/hosts"},
		{"relative", ".canonsync/backups", "/base", "/base/.canonsync/backups"},
		{"relative without base", "a/./b", "", "a/b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			AssertEqual(t, ExpandPath(tt.path, tt.baseDir), tt.want)
		})
	}
}

func TestSamePath(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(t.TempDir(), "link")
	if err := os.Symlink(dir, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	if !SamePath(dir, dir+string(filepath.Separator)) {
		t.Error("expected trailing separator to be ignored")
	}
	if !SamePath(dir, link) {
		t.Error("expected symlink to resolve to its target")
	}
	if SamePath(dir, t.TempDir()) {
		t.Error("expected distinct directories to differ")
	}
}
