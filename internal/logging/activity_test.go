package logging_test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/klauern/canonsync/internal/logging"
)

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	}
}

func TestActivityLog_AppendFormatsLine(t *testing.T) {
	fsys := afero.NewMemMapFs()
	log := logging.NewActivityLog(fsys, "/work/.canonsync/activity.log", 10)
	log.Now = fixedClock()

	log.Append(logging.LevelWarn, "source missing: AGENTS.md")

	lines, err := log.Lines()
	if err != nil {
		t.Fatalf("Lines() error: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	want := "2026-10-19T08:30:00Z [WARN] source missing: AGENTS.md"
	if lines[0] != want {
		t.Errorf("line = %q, want %q", lines[0], want)
	}
}

func TestActivityLog_FatalAndNewlines(t *testing.T) {
	fsys := afero.NewMemMapFs()
	log := logging.NewActivityLog(fsys, "/activity.log", 10)
	log.Now = fixedClock()

	log.Appendf(logging.LevelFatal, "panic: %s", "first\nsecond")

	lines, _ := log.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected newlines to be flattened into one line, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[FATAL] panic: first second") {
		t.Errorf("unexpected line: %q", lines[0])
	}
}

func TestActivityLog_TrimsOldestLines(t *testing.T) {
	fsys := afero.NewMemMapFs()
	log := logging.NewActivityLog(fsys, "/activity.log", 3)

	for i := 1; i <= 5; i++ {
		log.Append(logging.LevelInfo, fmt.Sprintf("message %d", i))
	}

	lines, err := log.Lines()
	if err != nil {
		t.Fatalf("Lines() error: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 retained lines, got %d: %v", len(lines), lines)
	}
	for i, want := range []string{"message 3", "message 4", "message 5"} {
		if !strings.HasSuffix(lines[i], want) {
			t.Errorf("line %d = %q, want suffix %q", i, lines[i], want)
		}
	}
}

func TestActivityLog_DefaultMaxLines(t *testing.T) {
	fsys := afero.NewMemMapFs()
	log := logging.NewActivityLog(fsys, "/activity.log", 0)

	for i := 0; i < logging.DefaultMaxLines+5; i++ {
		log.Append(logging.LevelDebug, "tick")
	}

	lines, _ := log.Lines()
	if len(lines) != logging.DefaultMaxLines {
		t.Errorf("expected %d lines, got %d", logging.DefaultMaxLines, len(lines))
	}
}

func TestActivityLog_MissingFile(t *testing.T) {
	log := logging.NewActivityLog(afero.NewMemMapFs(), "/nope/activity.log", 5)

	lines, err := log.Lines()
	if err != nil {
		t.Fatalf("expected no error for missing log, got %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("expected no lines, got %v", lines)
	}
}

func TestActivityLog_NilIsNoop(t *testing.T) {
	var log *logging.ActivityLog

	log.Append(logging.LevelInfo, "ignored")
	log.Appendf(logging.LevelInfo, "ignored %d", 1)

	if log.Path() != "" {
		t.Error("expected empty path for nil log")
	}
	lines, err := log.Lines()
	if err != nil || lines != nil {
		t.Errorf("expected nil lines and error, got %v, %v", lines, err)
	}
}

// failingFs rejects every open so that writes fail.
type failingFs struct {
	afero.Fs
}

func (failingFs) OpenFile(string, int, os.FileMode) (afero.File, error) {
	return nil, errors.New("disk on fire")
}

func TestActivityLog_WriteFailureIsSwallowed(t *testing.T) {
	var stderr bytes.Buffer
	log := logging.NewActivityLog(failingFs{afero.NewMemMapFs()}, "/activity.log", 5)
	log.Stderr = &stderr

	log.Append(logging.LevelError, "will not be written")

	if !strings.Contains(stderr.String(), "disk on fire") {
		t.Errorf("expected failure to be reported on stderr, got %q", stderr.String())
	}
}

func TestActivityLog_ReadOnlyFsIsSwallowed(t *testing.T) {
	var stderr bytes.Buffer
	log := logging.NewActivityLog(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/activity.log", 5)
	log.Stderr = &stderr

	log.Append(logging.LevelInfo, "nope")

	if stderr.Len() == 0 {
		t.Error("expected failure to be reported on stderr")
	}
}
