package sync

import (
	"os"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/klauern/canonsync/internal/util"
)

func TestReplace_Apply(t *testing.T) {
	fsys := afero.NewMemMapFs()
	util.WriteFS(t, fsys, "/src/AGENTS.md", "canonical")
	util.WriteFS(t, fsys, "/dst/AGENTS.md", "local edits that are longer")

	util.AssertNoError(t, Replace{Fs: fsys}.Apply("/src/AGENTS.md", "/dst/AGENTS.md"))
	util.AssertEqual(t, util.ReadFS(t, fsys, "/dst/AGENTS.md"), "canonical")
}

func TestReplace_CreatesParents(t *testing.T) {
	fsys := afero.NewMemMapFs()
	util.WriteFS(t, fsys, "/src/a/b/c.txt", "x")

	util.AssertNoError(t, Replace{Fs: fsys}.Apply("/src/a/b/c.txt", "/dst/a/b/c.txt"))
	util.AssertEqual(t, util.ReadFS(t, fsys, "/dst/a/b/c.txt"), "x")
}

func TestReplace_MissingSource(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := (Replace{Fs: fsys}).Apply("/src/nope", "/dst/nope"); err == nil {
		t.Error("expected error for a missing source")
	}
}

func TestDirectoryReplace_KeepsLocalFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	util.WriteFS(t, fsys, "/src/commands/a.md", "A2")
	util.WriteFS(t, fsys, "/src/commands/sub/b.md", "B")
	util.WriteFS(t, fsys, "/dst/commands/a.md", "A1")
	util.WriteFS(t, fsys, "/dst/commands/local.md", "mine")

	util.AssertNoError(t, DirectoryReplace{Fs: fsys}.Apply("/src/commands", "/dst/commands"))

	util.AssertEqual(t, util.ReadFS(t, fsys, "/dst/commands/a.md"), "A2")
	util.AssertEqual(t, util.ReadFS(t, fsys, "/dst/commands/sub/b.md"), "B")
	util.AssertEqual(t, util.ReadFS(t, fsys, "/dst/commands/local.md"), "mine")
}

func TestDirectoryReplace_Skip(t *testing.T) {
	fsys := afero.NewMemMapFs()
	util.WriteFS(t, fsys, "/src/hooks/run.sh", "run")
	util.WriteFS(t, fsys, "/src/hooks/.DS_Store", "junk")

	s := DirectoryReplace{Fs: fsys, Skip: func(rel string) bool { return strings.HasSuffix(rel, ".DS_Store") }}
	util.AssertNoError(t, s.Apply("/src/hooks", "/dst/hooks"))

	if exists, _ := afero.Exists(fsys, "/dst/hooks/.DS_Store"); exists {
		t.Error("skipped file was copied")
	}
	util.AssertEqual(t, util.ReadFS(t, fsys, "/dst/hooks/run.sh"), "run")
}

func TestWriteFile_KeepsMode(t *testing.T) {
	fsys := afero.NewMemMapFs()
	util.WriteFS(t, fsys, "/dst/run.sh", "old")
	util.AssertNoError(t, fsys.Chmod("/dst/run.sh", 0o755))

	util.AssertNoError(t, writeFile(fsys, "/dst/run.sh", []byte("new")))

	info, err := fsys.Stat("/dst/run.sh")
	util.AssertNoError(t, err)
	util.AssertEqual(t, info.Mode().Perm(), os.FileMode(0o755))
	util.AssertEqual(t, util.ReadFS(t, fsys, "/dst/run.sh"), "new")
}

func TestWriteFile_FailedRenameKeepsDestination(t *testing.T) {
	mem := afero.NewMemMapFs()
	util.WriteFS(t, mem, "/dst/settings.json", `{"hooks":{}}`)
	fsys := &denyWrites{Fs: mem, path: "/dst/settings.json"}

	if err := writeFile(fsys, "/dst/settings.json", []byte(`{"hooks":{"stop":[]}}`)); err == nil {
		t.Fatal("expected error when the rename is refused")
	}

	util.AssertEqual(t, util.ReadFS(t, mem, "/dst/settings.json"), `{"hooks":{}}`)
	entries, err := afero.ReadDir(mem, "/dst")
	util.AssertNoError(t, err)
	util.AssertEqual(t, len(entries), 1)
}
