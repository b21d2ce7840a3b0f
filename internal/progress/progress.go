// Package progress shows per-entry progress while a sync run walks its manifest.
package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/klauern/canonsync/internal/logging"
	"github.com/klauern/canonsync/internal/ui"
)

// Tracker counts manifest entries as they finish and renders a bar when the
// output is an interactive terminal.
type Tracker struct {
	bar    *progressbar.ProgressBar
	total  int
	done   int
	failed int
}

// Options configures a Tracker.
type Options struct {
	// Total is the number of manifest entries in the run.
	Total int
	// Label prefixes the bar. Defaults to "Syncing".
	Label string
	// Writer is the output destination. Defaults to os.Stderr.
	Writer io.Writer
}

// New returns a tracker for opts.Total entries. The bar is only drawn when
// colors are enabled, the writer is a terminal (if it is a file), and debug
// logging is off; otherwise progress goes to the debug log.
func New(opts Options) *Tracker {
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}
	if opts.Label == "" {
		opts.Label = "Syncing"
	}

	t := &Tracker{total: opts.Total}
	if !interactive(opts.Writer) {
		return t
	}

	t.bar = progressbar.NewOptions(
		opts.Total,
		progressbar.OptionSetDescription(opts.Label),
		progressbar.OptionSetWriter(opts.Writer),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionEnableColorCodes(ui.IsColorEnabled()),
	)
	return t
}

// Enabled reports whether a bar is drawn.
func (t *Tracker) Enabled() bool {
	return t.bar != nil
}

// Observe records one finished entry.
func (t *Tracker) Observe(path string, failed bool) {
	t.done++
	if failed {
		t.failed++
	}

	if t.bar == nil {
		logging.Debug("entry processed", logging.Entry(path), logging.Count(t.done))
		return
	}
	t.bar.Describe(t.describe(path))
	_ = t.bar.Add(1)
}

// Done returns the number of entries observed so far.
func (t *Tracker) Done() int {
	return t.done
}

// Failed returns the number of observed entries that failed.
func (t *Tracker) Failed() int {
	return t.failed
}

// Finish removes the bar so the run summary starts on a clean line.
func (t *Tracker) Finish() error {
	if t.bar == nil {
		return nil
	}
	return t.bar.Finish()
}

func (t *Tracker) describe(path string) string {
	label := fmt.Sprintf("[%d/%d] %s", t.done, t.total, path)
	if t.failed > 0 {
		label += " " + ui.Error(fmt.Sprintf("(%d failed)", t.failed))
	}
	return label
}

func interactive(w io.Writer) bool {
	if !ui.IsColorEnabled() {
		return false
	}
	if f, ok := w.(*os.File); ok && !term.IsTerminal(int(f.Fd())) { // #nosec G115
		return false
	}
	return !logging.Default().Enabled(context.Background(), logging.LevelDebug)
}
