// Package backup snapshots destination artifacts before canonsync overwrites them.
//
// Snapshots are strictly additive: a snapshot is written with an exclusive
// create under a timestamp-qualified name and is never modified or removed by
// the sync engine.
package backup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/klauern/canonsync/internal/fingerprint"
	"github.com/klauern/canonsync/internal/util"
)

const (
	// DirPerm is the permission for backup directories (rwxr-x---)
	DirPerm = 0o750
	// FilePerm is the permission for backup files (rw-r-----)
	FilePerm = 0o640
	// Suffix ends every stored snapshot name.
	Suffix = ".backup"
	// TimestampLayout is the filesystem-safe timestamp embedded in snapshot names.
	TimestampLayout = "20060102T150405.000000000Z"
)

var (
	// ErrNotFound is returned when a backup ID is not in the index.
	ErrNotFound = errors.New("backup not found")
	// ErrCorrupted is returned when a stored snapshot no longer matches its fingerprint.
	ErrCorrupted = errors.New("backup corrupted")
)

// maxAttempts bounds the collision suffixes tried for one timestamp.
const maxAttempts = 1000

// Manager creates and restores snapshots inside Dir.
type Manager struct {
	// Fs is the filesystem holding both destinations and snapshots.
	Fs afero.Fs
	// Dir is the directory snapshots are stored in.
	Dir string
	// Now supplies snapshot timestamps. Defaults to time.Now.
	Now func() time.Time
	// RunID is recorded on every snapshot taken by this manager.
	RunID string
}

// NewManager returns a Manager storing snapshots in dir.
func NewManager(fsys afero.Fs, dir string) *Manager {
	return &Manager{Fs: fsys, Dir: dir, Now: time.Now}
}

// Backup snapshots destPath. It returns nil and no error when destPath does
// not exist. Directories are snapshotted as a copied tree.
func (m *Manager) Backup(destPath string) (*Record, error) {
	info, err := m.Fs.Stat(destPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %q: %w", destPath, err)
	}

	if err := m.Fs.MkdirAll(m.Dir, DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	ts := m.now().UTC()
	base := filepath.Base(destPath) + "." + ts.Format(TimestampLayout)

	rec := &Record{
		OriginalPath: destPath,
		Timestamp:    ts,
		Directory:    info.IsDir(),
		RunID:        m.RunID,
	}

	hasher := fingerprint.New(m.Fs)
	var fp fingerprint.Fingerprint
	if info.IsDir() {
		rec.StoredPath, err = m.snapshotDir(destPath, base)
		if err == nil {
			fp, err = hasher.Tree(rec.StoredPath)
		}
	} else {
		rec.Mode = info.Mode().Perm()
		rec.StoredPath, rec.Size, err = m.snapshotFile(destPath, base)
		if err == nil {
			fp, err = hasher.File(rec.StoredPath)
		}
	}
	if err != nil {
		return nil, err
	}

	rec.ID = strings.TrimSuffix(filepath.Base(rec.StoredPath), Suffix)
	rec.Fingerprint = fp.String()

	if err := m.addToIndex(*rec); err != nil {
		// The snapshot itself exists; only the index entry is missing.
		return rec, fmt.Errorf("snapshot %s stored but not indexed: %w", rec.StoredPath, err)
	}
	return rec, nil
}

func (m *Manager) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// candidate returns the n-th stored name for base: base.backup, base-1.backup, ...
func (m *Manager) candidate(base string, n int) string {
	name := base
	if n > 0 {
		name += "-" + strconv.Itoa(n)
	}
	return filepath.Join(m.Dir, name+Suffix)
}

func (m *Manager) snapshotFile(src, base string) (string, int64, error) {
	in, err := m.Fs.Open(src)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open %q: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	for n := 0; n < maxAttempts; n++ {
		stored := m.candidate(base, n)
		out, err := m.Fs.OpenFile(stored, os.O_WRONLY|os.O_CREATE|os.O_EXCL, FilePerm)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", 0, fmt.Errorf("failed to create backup file: %w", err)
		}

		size, err := io.Copy(out, in)
		closeErr := out.Close()
		if err != nil {
			return "", 0, fmt.Errorf("failed to write backup file: %w", err)
		}
		if closeErr != nil {
			return "", 0, fmt.Errorf("failed to close backup file: %w", closeErr)
		}
		return stored, size, nil
	}
	return "", 0, fmt.Errorf("no free backup name for %q", base)
}

func (m *Manager) snapshotDir(src, base string) (string, error) {
	for n := 0; n < maxAttempts; n++ {
		stored := m.candidate(base, n)
		if exists, err := afero.Exists(m.Fs, stored); err != nil {
			return "", fmt.Errorf("failed to check %q: %w", stored, err)
		} else if exists {
			continue
		}
		if err := m.Fs.Mkdir(stored, DirPerm); err != nil {
			if os.IsExist(err) {
				continue
			}
			return "", fmt.Errorf("failed to create backup directory %q: %w", stored, err)
		}

		if _, err := util.CopyTree(m.Fs, src, stored, nil); err != nil {
			return "", fmt.Errorf("failed to copy %q into backup: %w", src, err)
		}
		return stored, nil
	}
	return "", fmt.Errorf("no free backup name for %q", base)
}

// List returns every indexed backup, newest first.
func (m *Manager) List() ([]Record, error) {
	index, err := m.LoadIndex()
	if err != nil {
		return nil, err
	}
	return index.Sorted(), nil
}

// Find returns the indexed backup with the given ID.
func (m *Manager) Find(id string) (Record, error) {
	index, err := m.LoadIndex()
	if err != nil {
		return Record{}, err
	}
	rec, ok := index.Backups[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

// Verify checks that the stored snapshot still matches its recorded fingerprint.
func (m *Manager) Verify(rec Record) error {
	hasher := fingerprint.New(m.Fs)

	var fp fingerprint.Fingerprint
	var err error
	if rec.Directory {
		fp, err = hasher.Tree(rec.StoredPath)
	} else {
		fp, err = hasher.File(rec.StoredPath)
	}
	if err != nil {
		return fmt.Errorf("failed to fingerprint %q: %w", rec.StoredPath, err)
	}
	if !fp.Present() {
		return fmt.Errorf("%w: %s is missing", ErrCorrupted, rec.StoredPath)
	}
	if fp.String() != rec.Fingerprint {
		return fmt.Errorf("%w: expected %s, got %s", ErrCorrupted, rec.Fingerprint, fp)
	}
	return nil
}

// Restore copies the backup with the given ID to target (its original path
// when target is empty). Whatever currently sits at target is snapshotted
// first, so a restore never loses data either.
func (m *Manager) Restore(id, target string) (*Record, error) {
	rec, err := m.Find(id)
	if err != nil {
		return nil, err
	}
	if err := m.Verify(rec); err != nil {
		return nil, err
	}
	if target == "" {
		target = rec.OriginalPath
	}

	prior, err := m.Backup(target)
	if err != nil {
		return nil, fmt.Errorf("failed to back up %q before restore: %w", target, err)
	}

	if rec.Directory {
		if _, err := util.CopyTree(m.Fs, rec.StoredPath, target, nil); err != nil {
			return prior, fmt.Errorf("failed to restore %q: %w", target, err)
		}
		return prior, nil
	}
	if err := m.restoreFile(rec, target); err != nil {
		return prior, fmt.Errorf("failed to restore %q: %w", target, err)
	}
	return prior, nil
}

// restoreFile writes a file snapshot to target with the original file's mode.
// Records written before modes were kept fall back to the snapshot's mode.
func (m *Manager) restoreFile(rec Record, target string) error {
	perm := rec.Mode
	if perm == 0 {
		info, err := m.Fs.Stat(rec.StoredPath)
		if err != nil {
			return err
		}
		perm = info.Mode().Perm()
	}

	f, err := m.Fs.Open(rec.StoredPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return util.WriteFileAtomic(m.Fs, target, f, perm)
}
