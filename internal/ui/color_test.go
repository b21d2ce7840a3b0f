package ui

import (
	"strings"
	"testing"
)

func TestStatusLines(t *testing.T) {
	DisableColors()
	defer EnableColors()

	tests := map[string]struct {
		fn   func(string) string
		msg  string
		want string
	}{
		"success bare":    {StatusSuccess, "", SymbolSuccess},
		"success summary": {StatusSuccess, "Everything is up to date", SymbolSuccess + " Everything is up to date"},
		"error":           {StatusError, "AGENTS.md: permission denied", SymbolError + " AGENTS.md: permission denied"},
		"warning":         {StatusWarning, "critical entries failed", SymbolWarning + " critical entries failed"},
		"skipped bare":    {StatusSkipped, "", SymbolSkipped},
		"skipped":         {StatusSkipped, "package.json", SymbolSkipped + " package.json"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := tt.fn(tt.msg); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPaintersHonorNoColor(t *testing.T) {
	DisableColors()
	if IsColorEnabled() {
		t.Fatal("expected colors to be disabled")
	}
	for _, paint := range []func(a ...any) string{Success, Error, Warning, Info, Bold, Dim} {
		if got := paint("synced 2"); got != "synced 2" {
			t.Errorf("painter emitted %q with colors off", got)
		}
	}

	EnableColors()
	defer DisableColors()
	if !IsColorEnabled() {
		t.Fatal("expected colors to be enabled")
	}
	if got := Error("failed 1"); got == "failed 1" || !strings.Contains(got, "failed 1") {
		t.Errorf("expected escape codes around the text, got %q", got)
	}
}

func TestTitle(t *testing.T) {
	tests := map[string]string{
		"synced":         "Synced",
		"needs sync":     "Needs Sync",
		"source missing": "Source Missing",
		"":               "",
	}
	for in, want := range tests {
		if got := Title(in); got != want {
			t.Errorf("Title(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOutcome(t *testing.T) {
	DisableColors()
	defer EnableColors()

	tests := []struct {
		outcome string
		msg     string
		want    string
	}{
		{"synced", "", SymbolSuccess + " Synced"},
		{"failed", "boom", SymbolError + " Failed (boom)"},
		{"skipped", "up to date", SymbolSkipped + " Skipped (up to date)"},
	}
	for _, tt := range tests {
		if got := Outcome(tt.outcome, tt.msg); got != tt.want {
			t.Errorf("Outcome(%q, %q) = %q, want %q", tt.outcome, tt.msg, got, tt.want)
		}
	}
}

func TestConfigureColors(t *testing.T) {
	initial := IsColorEnabled()
	defer func() {
		if initial {
			EnableColors()
		} else {
			DisableColors()
		}
	}()

	ConfigureColors(ColorAlways, false)
	if !IsColorEnabled() {
		t.Error("always should enable colors")
	}
	ConfigureColors(ColorAlways, true)
	if IsColorEnabled() {
		t.Error("--no-color should win over always")
	}
	EnableColors()
	ConfigureColors(ColorNever, false)
	if IsColorEnabled() {
		t.Error("never should disable colors")
	}
	ConfigureColors(ColorAuto, false)
	if IsColorEnabled() {
		t.Error("auto should leave the current setting alone")
	}
}

func TestTable(t *testing.T) {
	out := Table([]string{"Path", "Strategy"}, [][]string{
		{"AGENTS.md", "replace"},
		{".agents/hooks", "directory-replace"},
	})
	for _, want := range []string{"Path", "Strategy", "AGENTS.md", "directory-replace"} {
		if !strings.Contains(out, want) {
			t.Errorf("Table() missing %q:\n%s", want, out)
		}
	}
}
