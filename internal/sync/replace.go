package sync

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/klauern/canonsync/internal/logging"
	"github.com/klauern/canonsync/internal/util"
)

// Replace copies the source file over the destination. It is used for
// canonical artifacts that have no legitimate local variant.
type Replace struct {
	Fs afero.Fs
}

// Kind implements Strategy.
func (Replace) Kind() Kind { return KindReplace }

// Apply implements Strategy.
func (s Replace) Apply(src, dst string) error {
	if err := util.CopyFile(s.Fs, src, dst); err != nil {
		return err
	}
	logging.Debug("replaced file", logging.Path(dst), logging.Strategy(string(KindReplace)))
	return nil
}

// DirectoryReplace copies every regular file of the source tree into the
// destination tree, one file at a time. Destination files missing from the
// source are kept.
type DirectoryReplace struct {
	Fs afero.Fs

	// Skip excludes files by slash-separated path relative to the source root.
	Skip func(rel string) bool
}

// Kind implements Strategy.
func (DirectoryReplace) Kind() Kind { return KindDirectoryReplace }

// Apply implements Strategy. It fails if any single file could not be copied.
func (s DirectoryReplace) Apply(src, dst string) error {
	stats, err := util.CopyTree(s.Fs, src, dst, s.Skip)

	logging.Debug("replaced directory",
		logging.Path(dst),
		logging.Strategy(string(KindDirectoryReplace)),
		logging.Count(stats.Copied),
		logging.Err(err),
	)

	if err != nil {
		if stats.Failed == 0 {
			return err
		}
		return fmt.Errorf("%d of %d files failed: %w", stats.Failed, stats.Copied+stats.Failed, err)
	}
	return nil
}

// writeFile atomically writes data to path, creating parent directories and
// keeping the mode of an existing file.
func writeFile(fsys afero.Fs, path string, data []byte) error {
	perm := os.FileMode(0o644)
	if info, err := fsys.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	return util.WriteFileAtomic(fsys, path, bytes.NewReader(data), perm)
}
