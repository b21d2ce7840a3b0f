package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/klauern/canonsync/internal/util"
)

func newTestManager(fsys afero.Fs, now time.Time) *Manager {
	m := NewManager(fsys, "/work/.canonsync/backups")
	m.Now = func() time.Time { return now }
	m.RunID = "run-1"
	return m
}

var testTime = time.Date(2026, 10, 19, 9, 15, 30, 123456789, time.UTC)

func TestBackup_MissingDestination(t *testing.T) {
	fsys := afero.NewMemMapFs()
	m := newTestManager(fsys, testTime)

	rec, err := m.Backup("/work/AGENTS.md")
	util.AssertNoError(t, err)
	if rec != nil {
		t.Errorf("expected no record for a missing destination, got %+v", rec)
	}
	if exists, _ := afero.DirExists(fsys, m.Dir); exists {
		t.Error("backup directory must not be created when there is nothing to back up")
	}
}

func TestBackup_File(t *testing.T) {
	fsys := afero.NewMemMapFs()
	util.WriteFS(t, fsys, "/work/AGENTS.md", "v1")
	m := newTestManager(fsys, testTime)

	rec, err := m.Backup("/work/AGENTS.md")
	util.AssertNoError(t, err)
	if rec == nil {
		t.Fatal("expected a record")
	}

	wantName := "AGENTS.md.20261019T091530.123456789Z.backup"
	util.AssertEqual(t, filepath.Base(rec.StoredPath), wantName)
	util.AssertEqual(t, rec.ID, strings.TrimSuffix(wantName, Suffix))
	util.AssertEqual(t, rec.OriginalPath, "/work/AGENTS.md")
	util.AssertEqual(t, rec.Size, int64(2))
	util.AssertEqual(t, rec.RunID, "run-1")
	util.AssertEqual(t, util.ReadFS(t, fsys, rec.StoredPath), "v1")

	if strings.ContainsAny(filepath.Base(rec.StoredPath), ":") {
		t.Error("stored name must not contain colons")
	}

	index, err := m.LoadIndex()
	util.AssertNoError(t, err)
	indexed, ok := index.Backups[rec.ID]
	if !ok {
		t.Fatal("expected record in index")
	}
	util.AssertEqual(t, indexed.StoredPath, rec.StoredPath)
	util.AssertEqual(t, indexed.Fingerprint, rec.Fingerprint)
}

func TestBackup_NeverOverwrites(t *testing.T) {
	fsys := afero.NewMemMapFs()
	// Same timestamp for every call forces the collision path.
	m := newTestManager(fsys, testTime)

	var records []*Record
	for i := 1; i <= 4; i++ {
		util.WriteFS(t, fsys, "/work/settings.json", fmt.Sprintf("v%d", i))
		rec, err := m.Backup("/work/settings.json")
		util.AssertNoError(t, err)
		records = append(records, rec)
	}

	seen := make(map[string]bool)
	for i, rec := range records {
		if seen[rec.StoredPath] {
			t.Fatalf("stored path %s reused", rec.StoredPath)
		}
		seen[rec.StoredPath] = true
		util.AssertEqual(t, util.ReadFS(t, fsys, rec.StoredPath), fmt.Sprintf("v%d", i+1))
	}
	util.AssertEqual(t, filepath.Base(records[1].StoredPath), "settings.json.20261019T091530.123456789Z-1.backup")

	list, err := m.List()
	util.AssertNoError(t, err)
	util.AssertEqual(t, len(list), 4)
}

func TestBackup_Directory(t *testing.T) {
	fsys := afero.NewMemMapFs()
	util.WriteFS(t, fsys, "/work/.agents/commands/a.md", "alpha")
	util.WriteFS(t, fsys, "/work/.agents/commands/sub/b.md", "bravo")
	m := newTestManager(fsys, testTime)

	rec, err := m.Backup("/work/.agents/commands")
	util.AssertNoError(t, err)

	if !rec.Directory {
		t.Error("expected directory record")
	}
	util.AssertEqual(t, util.ReadFS(t, fsys, filepath.Join(rec.StoredPath, "a.md")), "alpha")
	util.AssertEqual(t, util.ReadFS(t, fsys, filepath.Join(rec.StoredPath, "sub", "b.md")), "bravo")
	util.AssertNoError(t, m.Verify(*rec))
}

func TestList_NewestFirst(t *testing.T) {
	fsys := afero.NewMemMapFs()
	util.WriteFS(t, fsys, "/work/a.txt", "a")

	for i := 0; i < 3; i++ {
		m := newTestManager(fsys, testTime.Add(time.Duration(i)*time.Hour))
		_, err := m.Backup("/work/a.txt")
		util.AssertNoError(t, err)
	}

	m := newTestManager(fsys, testTime)
	list, err := m.List()
	util.AssertNoError(t, err)
	util.AssertEqual(t, len(list), 3)
	for i := 1; i < len(list); i++ {
		if list[i].Timestamp.After(list[i-1].Timestamp) {
			t.Errorf("records not sorted newest first: %v then %v", list[i-1].Timestamp, list[i].Timestamp)
		}
	}

	index, err := m.LoadIndex()
	util.AssertNoError(t, err)
	util.AssertEqual(t, len(index.History("/work/a.txt")), 3)
	util.AssertEqual(t, len(index.History("/work/other.txt")), 0)
}

func TestFind_NotFound(t *testing.T) {
	m := newTestManager(afero.NewMemMapFs(), testTime)

	_, err := m.Find("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestVerify_Corrupted(t *testing.T) {
	fsys := afero.NewMemMapFs()
	util.WriteFS(t, fsys, "/work/a.txt", "original")
	m := newTestManager(fsys, testTime)

	rec, err := m.Backup("/work/a.txt")
	util.AssertNoError(t, err)

	util.WriteFS(t, fsys, rec.StoredPath, "tampered")
	if err := m.Verify(*rec); !errors.Is(err, ErrCorrupted) {
		t.Errorf("expected ErrCorrupted, got %v", err)
	}

	util.AssertNoError(t, fsys.Remove(rec.StoredPath))
	if err := m.Verify(*rec); !errors.Is(err, ErrCorrupted) {
		t.Errorf("expected ErrCorrupted for missing snapshot, got %v", err)
	}
}

func TestRestore(t *testing.T) {
	fsys := afero.NewMemMapFs()
	util.WriteFS(t, fsys, "/work/a.txt", "v1")
	m := newTestManager(fsys, testTime)

	rec, err := m.Backup("/work/a.txt")
	util.AssertNoError(t, err)

	util.WriteFS(t, fsys, "/work/a.txt", "v2")
	m.Now = func() time.Time { return testTime.Add(time.Minute) }

	prior, err := m.Restore(rec.ID, "")
	util.AssertNoError(t, err)

	util.AssertEqual(t, util.ReadFS(t, fsys, "/work/a.txt"), "v1")
	if prior == nil {
		t.Fatal("expected the overwritten content to be backed up first")
	}
	util.AssertEqual(t, util.ReadFS(t, fsys, prior.StoredPath), "v2")
	util.AssertEqual(t, util.ReadFS(t, fsys, rec.StoredPath), "v1")
}

func TestRestore_ToOtherTarget(t *testing.T) {
	fsys := afero.NewMemMapFs()
	util.WriteFS(t, fsys, "/work/a.txt", "v1")
	m := newTestManager(fsys, testTime)

	rec, err := m.Backup("/work/a.txt")
	util.AssertNoError(t, err)

	prior, err := m.Restore(rec.ID, "/tmp/restored.txt")
	util.AssertNoError(t, err)
	if prior != nil {
		t.Error("nothing existed at the target, so nothing should be backed up")
	}
	util.AssertEqual(t, util.ReadFS(t, fsys, "/tmp/restored.txt"), "v1")
}

func TestRestore_KeepsOriginalMode(t *testing.T) {
	fsys := afero.NewMemMapFs()
	util.WriteFS(t, fsys, "/work/hooks/stop.sh", "#!/bin/sh\n")
	util.AssertNoError(t, fsys.Chmod("/work/hooks/stop.sh", 0o755))
	m := newTestManager(fsys, testTime)

	rec, err := m.Backup("/work/hooks/stop.sh")
	util.AssertNoError(t, err)
	util.AssertEqual(t, rec.Mode, os.FileMode(0o755))

	stored, err := fsys.Stat(rec.StoredPath)
	util.AssertNoError(t, err)
	util.AssertEqual(t, stored.Mode().Perm(), os.FileMode(FilePerm))

	util.AssertNoError(t, fsys.Remove("/work/hooks/stop.sh"))
	m.Now = func() time.Time { return testTime.Add(time.Minute) }

	_, err = m.Restore(rec.ID, "")
	util.AssertNoError(t, err)

	info, err := fsys.Stat("/work/hooks/stop.sh")
	util.AssertNoError(t, err)
	util.AssertEqual(t, info.Mode().Perm(), os.FileMode(0o755))
	util.AssertEqual(t, util.ReadFS(t, fsys, "/work/hooks/stop.sh"), "#!/bin/sh\n")
}

func TestRestore_RecordWithoutMode(t *testing.T) {
	fsys := afero.NewMemMapFs()
	util.WriteFS(t, fsys, "/work/a.txt", "v1")
	m := newTestManager(fsys, testTime)

	rec, err := m.Backup("/work/a.txt")
	util.AssertNoError(t, err)

	index, err := m.LoadIndex()
	util.AssertNoError(t, err)
	legacy := index.Backups[rec.ID]
	legacy.Mode = 0
	index.Backups[rec.ID] = legacy
	util.AssertNoError(t, m.SaveIndex(index))

	_, err = m.Restore(rec.ID, "/tmp/restored.txt")
	util.AssertNoError(t, err)

	info, err := fsys.Stat("/tmp/restored.txt")
	util.AssertNoError(t, err)
	util.AssertEqual(t, info.Mode().Perm(), os.FileMode(FilePerm))
}

func TestLoadIndex_Malformed(t *testing.T) {
	fsys := afero.NewMemMapFs()
	m := newTestManager(fsys, testTime)
	util.WriteFS(t, fsys, m.IndexPath(), "{not json")

	if _, err := m.LoadIndex(); err == nil {
		t.Error("expected parse error")
	}

	util.WriteFS(t, fsys, "/work/a.txt", "v1")
	rec, err := m.Backup("/work/a.txt")
	if err == nil {
		t.Fatal("expected index error to be reported")
	}
	if rec == nil || util.ReadFS(t, fsys, rec.StoredPath) != "v1" {
		t.Error("snapshot must still be stored when the index cannot be updated")
	}
}
