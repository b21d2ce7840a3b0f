// Package e2e provides testing infrastructure for end-to-end CLI tests.
// It includes a harness for running CLI commands against an isolated
// canonical source and project directory.
package e2e

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauern/canonsync/internal/cli"
	"github.com/klauern/canonsync/internal/util"
)

// Result contains the outcome of running a CLI command.
type Result struct {
	// Stdout contains the captured standard output.
	Stdout string
	// Stderr contains the captured standard error.
	Stderr string
	// Err is the error returned by the CLI command, if any.
	Err error
	// ExitCode is the inferred exit code (0 for success, 1 for error).
	ExitCode int
}

// Success returns true if the command completed without error.
func (r *Result) Success() bool {
	return r.Err == nil
}

// Harness provides a test harness for running E2E CLI tests.
// It manages environment isolation, the working directory, and output capture.
type Harness struct {
	t          *testing.T
	homeDir    string
	projectDir string
}

// NewHarness creates a new E2E test harness.
// CANONSYNC_HOME points at a fresh temp directory, so the default canonical
// source is <home>/canonical, and the working directory is an empty project.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	root := t.TempDir()
	h := &Harness{
		t:          t,
		homeDir:    filepath.Join(root, "home"),
		projectDir: filepath.Join(root, "project"),
	}
	for _, dir := range []string{h.homeDir, h.projectDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}

	h.SetEnv(util.HomeEnv, h.homeDir)
	t.Chdir(h.projectDir)

	return h
}

// SetEnv sets an environment variable for CLI commands run through this harness.
// The environment will be restored after the test completes.
func (h *Harness) SetEnv(key, value string) {
	h.t.Helper()
	h.t.Setenv(key, value)
}

// HomeDir returns the isolated canonsync home directory.
func (h *Harness) HomeDir() string {
	return h.homeDir
}

// ProjectDir returns the project directory commands run in.
func (h *Harness) ProjectDir() string {
	return h.projectDir
}

// Run executes a CLI command with the given arguments and captures the output.
// Colors are always disabled so output can be matched as plain text.
func (h *Harness) Run(args ...string) *Result {
	h.t.Helper()

	args = append([]string{"canonsync", "--no-color"}, args...)

	stdout, restoreStdout := h.capture(&os.Stdout)
	stderr, restoreStderr := h.capture(&os.Stderr)

	cmdErr := cli.Run(context.Background(), args)

	restoreStderr()
	restoreStdout()

	exitCode := 0
	if cmdErr != nil {
		exitCode = 1
	}

	return &Result{
		Stdout:   <-stdout,
		Stderr:   <-stderr,
		Err:      cmdErr,
		ExitCode: exitCode,
	}
}

// capture redirects *target into a pipe that is drained concurrently, so
// output larger than the pipe buffer cannot block the command.
func (h *Harness) capture(target **os.File) (<-chan string, func()) {
	h.t.Helper()

	old := *target
	r, w, err := os.Pipe()
	if err != nil {
		h.t.Fatalf("failed to create pipe: %v", err)
	}
	*target = w

	out := make(chan string, 1)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		_ = r.Close()
		out <- buf.String()
	}()

	return out, func() {
		if err := w.Close(); err != nil {
			h.t.Fatalf("failed to close pipe writer: %v", err)
		}
		*target = old
	}
}
