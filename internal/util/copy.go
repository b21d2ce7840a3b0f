//nolint:revive // var-naming - package name is meaningful
package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// DirPerm is the permission used for directories created while copying.
const DirPerm = 0o750

// CopyFile copies a single regular file from src to dst on fsys, creating
// dst's parent directories and preserving src's permission bits.
func CopyFile(fsys afero.Fs, src, dst string) error {
	srcInfo, err := fsys.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat source %q: %w", src, err)
	}
	if !srcInfo.Mode().IsRegular() {
		return fmt.Errorf("source %q is not a regular file", src)
	}

	srcFile, err := fsys.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source %q: %w", src, err)
	}
	defer func() { _ = srcFile.Close() }()

	return WriteFileAtomic(fsys, dst, srcFile, srcInfo.Mode().Perm())
}

// tempPattern names the scratch files WriteFileAtomic creates next to its
// target.
const tempPattern = ".canonsync-*.tmp"

// WriteFileAtomic writes the content of r to a temporary file in path's
// directory and renames it over path. A failed write leaves any existing file
// at path untouched and removes the temporary file.
func WriteFileAtomic(fsys afero.Fs, path string, r io.Reader, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, DirPerm); err != nil {
		return fmt.Errorf("failed to create parent of %q: %w", path, err)
	}

	tmp, err := afero.TempFile(fsys, dir, tempPattern)
	if err != nil {
		return fmt.Errorf("failed to create temporary file for %q: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = fsys.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write content for %q: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to flush content for %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file for %q: %w", path, err)
	}
	if err := fsys.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("failed to set mode on %q: %w", path, err)
	}
	if err := fsys.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %q: %w", path, err)
	}
	return nil
}

// CopyStats counts the files handled by CopyTree.
type CopyStats struct {
	Copied int
	Failed int
}

// CopyTree copies every regular file under src into dst, one file at a time.
// Files whose slash-separated relative path makes skip return true are left
// alone. Files already in dst but absent from src are never removed. A failed
// file does not stop the walk; all failures are joined into the returned error.
func CopyTree(fsys afero.Fs, src, dst string, skip func(rel string) bool) (CopyStats, error) {
	var stats CopyStats
	var errs []error

	info, err := fsys.Stat(src)
	if err != nil {
		return stats, fmt.Errorf("failed to stat source %q: %w", src, err)
	}
	if !info.IsDir() {
		return stats, fmt.Errorf("source %q is not a directory", src)
	}
	if err := fsys.MkdirAll(dst, DirPerm); err != nil {
		return stats, fmt.Errorf("failed to create destination directory %q: %w", dst, err)
	}

	walkErr := afero.Walk(fsys, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			stats.Failed++
			errs = append(errs, fmt.Errorf("failed to walk %q: %w", path, err))
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			stats.Failed++
			errs = append(errs, err)
			return nil
		}
		if skip != nil && skip(filepath.ToSlash(rel)) {
			return nil
		}

		if err := CopyFile(fsys, path, filepath.Join(dst, rel)); err != nil {
			stats.Failed++
			errs = append(errs, err)
			return nil
		}
		stats.Copied++
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}

	return stats, errors.Join(errs...)
}
