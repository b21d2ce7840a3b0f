package e2e

import (
	"os"
	"strings"
	"testing"
)

// AssertSuccess stops the test unless the command returned no error.
func AssertSuccess(t *testing.T, r *Result) {
	t.Helper()
	if !r.Success() {
		t.Fatalf("command failed: %v\nstdout:\n%s\nstderr:\n%s", r.Err, r.Stdout, r.Stderr)
	}
}

// AssertError stops the test unless the command returned an error.
func AssertError(t *testing.T, r *Result) {
	t.Helper()
	if r.Success() {
		t.Fatalf("command succeeded, expected an error\nstdout:\n%s", r.Stdout)
	}
}

// AssertExitCode checks the exit code main would have used.
func AssertExitCode(t *testing.T, r *Result, expected int) {
	t.Helper()
	if r.ExitCode != expected {
		t.Errorf("exit code %d, want %d (error: %v)", r.ExitCode, expected, r.Err)
	}
}

// AssertErrorContains stops the test unless the command failed with a
// message containing substr.
func AssertErrorContains(t *testing.T, r *Result, substr string) {
	t.Helper()
	AssertError(t, r)
	contains(t, "error", r.Err.Error(), substr, true)
}

// AssertOutputContains checks stdout for substr.
func AssertOutputContains(t *testing.T, r *Result, substr string) {
	t.Helper()
	contains(t, "stdout", r.Stdout, substr, true)
}

// AssertOutputNotContains checks that stdout lacks substr.
func AssertOutputNotContains(t *testing.T, r *Result, substr string) {
	t.Helper()
	contains(t, "stdout", r.Stdout, substr, false)
}

// AssertStderrContains checks stderr for substr.
func AssertStderrContains(t *testing.T, r *Result, substr string) {
	t.Helper()
	contains(t, "stderr", r.Stderr, substr, true)
}

// AssertOutputEquals compares stdout exactly.
func AssertOutputEquals(t *testing.T, r *Result, expected string) {
	t.Helper()
	if r.Stdout != expected {
		t.Errorf("stdout = %q, want %q", r.Stdout, expected)
	}
}

// AssertFileExists checks that path exists.
func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected %s to exist: %v", path, err)
	}
}

// AssertFileNotExists checks that nothing exists at path.
func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected %s not to exist", path)
	}
}

// AssertFileContains checks the content of path for substr.
func AssertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	contains(t, path, readFile(t, path), substr, true)
}

// AssertFileEquals compares the content of path exactly.
func AssertFileEquals(t *testing.T, path, expected string) {
	t.Helper()
	if got := readFile(t, path); got != expected {
		t.Errorf("%s = %q, want %q", path, got, expected)
	}
}

func contains(t *testing.T, what, got, substr string, want bool) {
	t.Helper()
	if strings.Contains(got, substr) == want {
		return
	}
	if want {
		t.Errorf("%s does not contain %q:\n%s", what, substr, got)
	} else {
		t.Errorf("%s unexpectedly contains %q:\n%s", what, substr, got)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	// #nosec G304 - path is provided by test code
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}
