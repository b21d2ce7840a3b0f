package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/klauern/canonsync/internal/backup"
)

// Outcome is the final state of one manifest entry in a run.
type Outcome string

const (
	// OutcomeSynced indicates the destination was written.
	OutcomeSynced Outcome = "synced"

	// OutcomeSkipped indicates the destination was already up to date, or the
	// source was missing.
	OutcomeSkipped Outcome = "skipped"

	// OutcomeFailed indicates the entry could not be checked or applied.
	OutcomeFailed Outcome = "failed"
)

// EntryResult represents the outcome of processing a single manifest entry.
type EntryResult struct {
	// Entry is the manifest entry that was processed.
	Entry Entry

	// Outcome is the final state of the entry.
	Outcome Outcome

	// SourcePath and DestPath are the resolved absolute paths.
	SourcePath string
	DestPath   string

	// Backup is the snapshot taken before writing, if any.
	Backup *backup.Record

	// Err contains the failure cause when Outcome is OutcomeFailed.
	Err error

	// Message provides additional context about the outcome.
	Message string
}

// Success returns true unless the entry failed.
func (er *EntryResult) Success() bool {
	return er.Outcome != OutcomeFailed
}

// RunStats aggregates entry outcomes.
type RunStats struct {
	Total   int
	Synced  int
	Skipped int
	Failed  int

	// CriticalFailures lists the paths of failed entries marked critical, in manifest order.
	CriticalFailures []string

	// Duration is the wall-clock time of the run.
	Duration time.Duration
}

func (s *RunStats) add(er EntryResult) {
	s.Total++
	switch er.Outcome {
	case OutcomeSynced:
		s.Synced++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
		if er.Entry.Critical {
			s.CriticalFailures = append(s.CriticalFailures, er.Entry.Path)
		}
	}
}

// Result contains the complete outcome of a run.
type Result struct {
	// RunID uniquely identifies the run in the activity log and backup index.
	RunID string

	SourceRoot string
	DestRoot   string

	// SelfSync is set when the destination root is the source root.
	SelfSync bool

	// Aborted is set when an internal error ended the run early.
	Aborted bool

	// OverBudget is set when the run took longer than the configured budget.
	OverBudget bool

	// Entries holds one result per processed manifest entry, in order.
	Entries []EntryResult

	// Stats aggregates Entries.
	Stats RunStats
}

func (r *Result) record(er EntryResult) {
	r.Entries = append(r.Entries, er)
	r.Stats.add(er)
}

// Synced returns entries that were written.
func (r *Result) Synced() []EntryResult {
	return r.filterByOutcome(OutcomeSynced)
}

// Skipped returns entries that were skipped.
func (r *Result) Skipped() []EntryResult {
	return r.filterByOutcome(OutcomeSkipped)
}

// Failed returns entries that failed.
func (r *Result) Failed() []EntryResult {
	return r.filterByOutcome(OutcomeFailed)
}

func (r *Result) filterByOutcome(o Outcome) []EntryResult {
	var filtered []EntryResult
	for _, er := range r.Entries {
		if er.Outcome == o {
			filtered = append(filtered, er)
		}
	}
	return filtered
}

// Backups returns every snapshot taken during the run.
func (r *Result) Backups() []backup.Record {
	var records []backup.Record
	for _, er := range r.Entries {
		if er.Backup != nil {
			records = append(records, *er.Backup)
		}
	}
	return records
}

// HasCriticalFailures returns true if any critical entry failed.
func (r *Result) HasCriticalFailures() bool {
	return len(r.Stats.CriticalFailures) > 0
}

// Success returns true if no entry failed and the run was not aborted.
func (r *Result) Success() bool {
	return r.Stats.Failed == 0 && !r.Aborted
}

// Summary returns the one-line run summary.
func (r *Result) Summary() string {
	return fmt.Sprintf("synced %d, skipped %d, failed %d (total %d)",
		r.Stats.Synced, r.Stats.Skipped, r.Stats.Failed, r.Stats.Total)
}

// Details returns a multi-line, human-readable report of every entry.
func (r *Result) Details() string {
	var sb strings.Builder

	if r.SelfSync {
		sb.WriteString("Destination is the canonical source - nothing to do\n")
	}
	fmt.Fprintf(&sb, "Synced %s -> %s\n", r.SourceRoot, r.DestRoot)
	fmt.Fprintf(&sb, "  Synced:  %d\n", r.Stats.Synced)
	fmt.Fprintf(&sb, "  Skipped: %d\n", r.Stats.Skipped)
	fmt.Fprintf(&sb, "  Failed:  %d\n", r.Stats.Failed)

	if r.Stats.Failed > 0 {
		sb.WriteString("\nErrors:\n")
		for _, f := range r.Failed() {
			fmt.Fprintf(&sb, "  - %s: %v\n", f.Entry.Path, f.Err)
		}
	}
	if r.Aborted {
		sb.WriteString("\nRun aborted by an internal error; results are partial\n")
	}
	if r.HasCriticalFailures() {
		fmt.Fprintf(&sb, "\nCritical entries failed: %s\n", strings.Join(r.Stats.CriticalFailures, ", "))
	}

	return sb.String()
}
