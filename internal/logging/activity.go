package logging

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// DefaultMaxLines is the number of activity log lines kept after trimming.
const DefaultMaxLines = 1000

// ActivityLog is an append-only, line-bounded log file. Writes are best-effort:
// failures are reported to Stderr and never returned to the caller.
// A nil *ActivityLog discards everything.
type ActivityLog struct {
	fs       afero.Fs
	path     string
	maxLines int

	// Now supplies line timestamps. Defaults to time.Now.
	Now func() time.Time
	// Stderr receives write failures. Defaults to os.Stderr.
	Stderr io.Writer

	mu sync.Mutex
}

// NewActivityLog returns an activity log at path on fsys keeping at most
// maxLines lines (DefaultMaxLines when maxLines <= 0).
func NewActivityLog(fsys afero.Fs, path string, maxLines int) *ActivityLog {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	return &ActivityLog{
		fs:       fsys,
		path:     path,
		maxLines: maxLines,
		Now:      time.Now,
		Stderr:   os.Stderr,
	}
}

// Path returns the log file location.
func (a *ActivityLog) Path() string {
	if a == nil {
		return ""
	}
	return a.path
}

// Append writes one timestamped, leveled line and trims the file to the
// newest maxLines lines.
func (a *ActivityLog) Append(level slog.Level, message string) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	line := fmt.Sprintf("%s [%s] %s\n",
		a.Now().UTC().Format(time.RFC3339),
		LevelName(level),
		strings.ReplaceAll(message, "\n", " "),
	)

	if err := a.write(line); err != nil {
		a.report(err)
		return
	}
	if err := a.trim(); err != nil {
		a.report(err)
	}
}

// Appendf is Append with fmt.Sprintf formatting.
func (a *ActivityLog) Appendf(level slog.Level, format string, args ...any) {
	if a == nil {
		return
	}
	a.Append(level, fmt.Sprintf(format, args...))
}

// Lines returns the retained log lines, oldest first. A missing file yields no lines.
func (a *ActivityLog) Lines() ([]string, error) {
	if a == nil {
		return nil, nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.readLines()
}

func (a *ActivityLog) write(line string) error {
	if err := a.fs.MkdirAll(filepath.Dir(a.path), 0o750); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := a.fs.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("failed to open activity log: %w", err)
	}
	if _, err := f.WriteString(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append to activity log: %w", err)
	}
	return f.Close()
}

func (a *ActivityLog) trim() error {
	lines, err := a.readLines()
	if err != nil {
		return err
	}
	if len(lines) <= a.maxLines {
		return nil
	}

	kept := lines[len(lines)-a.maxLines:]
	data := []byte(strings.Join(kept, "\n") + "\n")
	if err := afero.WriteFile(a.fs, a.path, data, 0o640); err != nil {
		return fmt.Errorf("failed to trim activity log: %w", err)
	}
	return nil
}

func (a *ActivityLog) readLines() ([]string, error) {
	data, err := afero.ReadFile(a.fs, a.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read activity log: %w", err)
	}

	data = bytes.TrimRight(data, "\n")
	if len(data) == 0 {
		return nil, nil
	}
	return strings.Split(string(data), "\n"), nil
}

func (a *ActivityLog) report(err error) {
	if a.Stderr == nil {
		return
	}
	_, _ = fmt.Fprintf(a.Stderr, "canonsync: activity log: %v\n", err)
}
