// Package ui provides terminal output helpers for canonsync.
package ui

import (
	"github.com/fatih/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Painters for the fixed output palette. All of them honor NoColor.
var (
	Success = color.New(color.FgGreen).SprintFunc()
	Error   = color.New(color.FgRed).SprintFunc()
	Warning = color.New(color.FgYellow).SprintFunc()
	Info    = color.New(color.FgCyan).SprintFunc()
	Bold    = color.New(color.Bold).SprintFunc()
	Dim     = color.New(color.Faint).SprintFunc()
)

// Symbols prefixed to status lines.
const (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "⚠"
	SymbolSkipped = "-"
)

func status(paint func(a ...any) string, symbol, msg string) string {
	if msg == "" {
		return paint(symbol)
	}
	return paint(symbol) + " " + msg
}

// StatusSuccess prefixes msg with a green checkmark.
func StatusSuccess(msg string) string { return status(Success, SymbolSuccess, msg) }

// StatusError prefixes msg with a red cross.
func StatusError(msg string) string { return status(Error, SymbolError, msg) }

// StatusWarning prefixes msg with a yellow warning sign.
func StatusWarning(msg string) string { return status(Warning, SymbolWarning, msg) }

// StatusSkipped prefixes msg with a dimmed dash.
func StatusSkipped(msg string) string { return status(Dim, SymbolSkipped, msg) }

// Title returns s in English title case ("needs sync" becomes "Needs Sync").
func Title(s string) string {
	return cases.Title(language.English).String(s)
}

// Outcome renders an entry outcome label with its status symbol.
func Outcome(outcome, msg string) string {
	label := Title(outcome)
	if msg != "" {
		label += " " + Dim("("+msg+")")
	}
	switch outcome {
	case "synced":
		return StatusSuccess(label)
	case "failed":
		return StatusError(label)
	default:
		return StatusSkipped(label)
	}
}

// Color modes understood by ConfigureColors.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// ConfigureColors applies a color mode. noColor forces colors off. In auto
// mode the terminal detection done by fatih/color is kept.
func ConfigureColors(mode string, noColor bool) {
	switch {
	case noColor || mode == ColorNever:
		DisableColors()
	case mode == ColorAlways:
		EnableColors()
	}
}

// DisableColors turns every painter into a no-op.
func DisableColors() { color.NoColor = true }

// EnableColors forces colored output, even when stdout is not a terminal.
func EnableColors() { color.NoColor = false }

// IsColorEnabled reports whether painters currently emit escape codes.
func IsColorEnabled() bool { return !color.NoColor }
