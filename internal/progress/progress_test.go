package progress

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/klauern/canonsync/internal/logging"
	"github.com/klauern/canonsync/internal/ui"
)

func TestTracker_DisabledWithoutColor(t *testing.T) {
	ui.DisableColors()
	defer ui.EnableColors()

	var buf bytes.Buffer
	tr := New(Options{Total: 3, Writer: &buf})
	if tr.Enabled() {
		t.Fatal("progress must be disabled when colors are off")
	}

	tr.Observe("AGENTS.md", false)
	tr.Observe("package.json", true)
	tr.Observe(".agents/hooks", false)
	if err := tr.Finish(); err != nil {
		t.Fatalf("Finish() error: %v", err)
	}

	if tr.Done() != 3 || tr.Failed() != 1 {
		t.Errorf("Done() = %d, Failed() = %d, want 3 and 1", tr.Done(), tr.Failed())
	}
	if buf.Len() != 0 {
		t.Errorf("disabled tracker wrote output: %q", buf.String())
	}
}

func TestTracker_DisabledForNonTerminalFile(t *testing.T) {
	ui.EnableColors()

	f, err := os.CreateTemp(t.TempDir(), "progress")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer func() { _ = f.Close() }()

	if New(Options{Total: 1, Writer: f}).Enabled() {
		t.Error("progress must be disabled for a regular file")
	}
}

func TestTracker_DisabledAtDebugLevel(t *testing.T) {
	ui.EnableColors()
	var logs bytes.Buffer
	logging.SetDefault(logging.New(logging.Options{Level: logging.LevelDebug, Output: &logs}))
	defer logging.SetDefault(logging.New(logging.DefaultOptions()))

	tr := New(Options{Total: 1, Writer: &bytes.Buffer{}})
	if tr.Enabled() {
		t.Fatal("progress must be disabled at debug level")
	}

	tr.Observe("AGENTS.md", false)
	if !strings.Contains(logs.String(), "entry=AGENTS.md") {
		t.Errorf("expected progress in the debug log, got: %s", logs.String())
	}
}

func TestTracker_RendersToWriter(t *testing.T) {
	ui.EnableColors()
	logging.SetDefault(logging.New(logging.DefaultOptions()))

	var buf bytes.Buffer
	tr := New(Options{Total: 2, Writer: &buf})
	if !tr.Enabled() {
		t.Fatal("expected an enabled bar for an in-memory writer")
	}
	tr.Observe("AGENTS.md", false)
	tr.Observe("package.json", false)
	if err := tr.Finish(); err != nil {
		t.Fatalf("Finish() error: %v", err)
	}
	if !strings.Contains(buf.String(), "Syncing") {
		t.Errorf("expected label in output, got %q", buf.String())
	}
}

func TestTracker_Describe(t *testing.T) {
	ui.DisableColors()
	defer ui.EnableColors()

	tr := &Tracker{total: 5, done: 2}
	if got := tr.describe("AGENTS.md"); got != "[2/5] AGENTS.md" {
		t.Errorf("describe() = %q", got)
	}

	tr.failed = 1
	if got := tr.describe("package.json"); got != "[2/5] package.json (1 failed)" {
		t.Errorf("describe() = %q", got)
	}
}
