package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"
)

// Record describes one stored snapshot.
type Record struct {
	ID           string      `json:"id"`             // Stored name without the .backup suffix
	OriginalPath string      `json:"original_path"`  // Destination path that was snapshotted
	StoredPath   string      `json:"stored_path"`    // Path of the snapshot
	Timestamp    time.Time   `json:"timestamp"`      // Snapshot time (UTC)
	Fingerprint  string      `json:"fingerprint"`    // Content fingerprint of the snapshot
	Size         int64       `json:"size"`           // Bytes copied (files only)
	Mode         os.FileMode `json:"mode,omitempty"` // Permission bits of the original file
	Directory    bool        `json:"directory,omitempty"`
	RunID        string      `json:"run_id,omitempty"`
}

// Index lists every snapshot in a backup directory.
type Index struct {
	Version string            `json:"version"`
	Updated time.Time         `json:"updated"`
	Backups map[string]Record `json:"backups"` // Key: backup ID
}

const (
	// IndexVersion is the current version of the backup index format
	IndexVersion = "1.0"
	// IndexFilename is the name of the index file
	IndexFilename = "index.json"
)

// IndexPath returns the location of the index file.
func (m *Manager) IndexPath() string {
	return filepath.Join(m.Dir, IndexFilename)
}

// LoadIndex loads the backup index, returning an empty index if none exists.
func (m *Manager) LoadIndex() (*Index, error) {
	data, err := afero.ReadFile(m.Fs, m.IndexPath())
	if os.IsNotExist(err) {
		return &Index{
			Version: IndexVersion,
			Updated: m.now(),
			Backups: make(map[string]Record),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}

	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to parse index file: %w", err)
	}
	if index.Backups == nil {
		index.Backups = make(map[string]Record)
	}
	return &index, nil
}

// SaveIndex writes the backup index.
func (m *Manager) SaveIndex(index *Index) error {
	if err := m.Fs.MkdirAll(m.Dir, DirPerm); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	index.Updated = m.now()

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	if err := afero.WriteFile(m.Fs, m.IndexPath(), data, FilePerm); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}
	return nil
}

func (m *Manager) addToIndex(rec Record) error {
	index, err := m.LoadIndex()
	if err != nil {
		return err
	}
	index.Backups[rec.ID] = rec
	return m.SaveIndex(index)
}

// Sorted returns all records, newest first. Ties are broken by ID.
func (idx *Index) Sorted() []Record {
	records := make([]Record, 0, len(idx.Backups))
	for _, rec := range idx.Backups {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.After(records[j].Timestamp)
		}
		return records[i].ID > records[j].ID
	})
	return records
}

// History returns the records for one original path, newest first.
func (idx *Index) History(originalPath string) []Record {
	var history []Record
	for _, rec := range idx.Sorted() {
		if rec.OriginalPath == originalPath {
			history = append(history, rec)
		}
	}
	return history
}
