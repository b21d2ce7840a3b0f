// Package util provides path helpers and shared test utilities for canonsync.
//
//nolint:revive // var-naming - package name is meaningful
package util

import (
	"os"
	"path/filepath"
	"strings"
)

// HomeEnv overrides the canonsync home directory.
const HomeEnv = "CANONSYNC_HOME"

// HomeDir returns the user's home directory
func HomeDir() string {
	home, _ := os.UserHomeDir()
	return home
}

// CanonsyncHome returns the canonsync home directory ($CANONSYNC_HOME or ~/.canonsync).
func CanonsyncHome() string {
	if v := os.Getenv(HomeEnv); v != "" {
		return v
	}
	return filepath.Join(HomeDir(), ".canonsync")
}

// CanonicalSourcePath returns the default canonical source root.
func CanonicalSourcePath() string {
	return filepath.Join(CanonsyncHome(), "canonical")
}

// ExpandPath expands a leading ~ to the home directory and resolves relative
// paths against baseDir. Empty input yields an empty string.
func ExpandPath(path, baseDir string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		return HomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(HomeDir(), path[2:])
	}
	if filepath.IsAbs(path) || baseDir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(baseDir, path)
}

// SamePath reports whether a and b refer to the same location after cleaning,
// making absolute, and resolving symlinks where possible.
func SamePath(a, b string) bool {
	return canonical(a) == canonical(b)
}

func canonical(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		p = resolved
	}
	return filepath.Clean(p)
}
