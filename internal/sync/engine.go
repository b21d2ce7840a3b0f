package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/klauern/canonsync/internal/backup"
	"github.com/klauern/canonsync/internal/fingerprint"
	"github.com/klauern/canonsync/internal/logging"
	"github.com/klauern/canonsync/internal/util"
)

const (
	// DefaultBudget is the advisory wall-clock budget of a run.
	DefaultBudget = time.Second

	// DefaultBackupDir is where snapshots go, relative to the destination root.
	DefaultBackupDir = ".canonsync/backups"
)

const reasonSourceMissing = "source missing"

// ErrPanic wraps a panic recovered while processing an entry.
var ErrPanic = errors.New("internal error")

// Options configures an Engine.
type Options struct {
	// Fs is the filesystem both roots live on. Defaults to the OS filesystem.
	Fs afero.Fs

	// SourceRoot is the canonical location entries are read from.
	SourceRoot string

	// DestRoot is the location entries are written to.
	DestRoot string

	// BackupDir holds snapshots. Relative paths resolve against DestRoot.
	BackupDir string

	// Exclude holds doublestar patterns for files inside directory entries
	// that are neither fingerprinted nor copied.
	Exclude []string

	// DependencyKeys configures DependencyMapMerge.
	DependencyKeys []string

	// ManagedKey configures ManagedSectionOverlay.
	ManagedKey string

	// Budget is the advisory run duration; exceeding it only logs a warning.
	Budget time.Duration

	// Activity receives the durable run record. Nil disables it.
	Activity *logging.ActivityLog

	// Progress, when set, is called after every entry.
	Progress func(EntryResult)

	// Now supplies backup timestamps. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns the default engine options without roots.
func DefaultOptions() Options {
	return Options{
		Fs:             afero.NewOsFs(),
		BackupDir:      DefaultBackupDir,
		DependencyKeys: DefaultDependencyKeys,
		ManagedKey:     DefaultManagedKey,
		Budget:         DefaultBudget,
		Now:            time.Now,
	}
}

// Engine runs manifests from one source root into one destination root.
type Engine struct {
	opts   Options
	hasher *fingerprint.Hasher
}

// New creates an Engine, filling unset options with defaults.
func New(opts Options) *Engine {
	defaults := DefaultOptions()
	if opts.Fs == nil {
		opts.Fs = defaults.Fs
	}
	if opts.BackupDir == "" {
		opts.BackupDir = defaults.BackupDir
	}
	if len(opts.DependencyKeys) == 0 {
		opts.DependencyKeys = defaults.DependencyKeys
	}
	if opts.ManagedKey == "" {
		opts.ManagedKey = defaults.ManagedKey
	}
	if opts.Budget <= 0 {
		opts.Budget = defaults.Budget
	}
	if opts.Now == nil {
		opts.Now = defaults.Now
	}

	return &Engine{
		opts:   opts,
		hasher: fingerprint.New(opts.Fs, opts.Exclude...),
	}
}

// BackupDir returns the resolved snapshot directory.
func (e *Engine) BackupDir() string {
	return util.ExpandPath(e.opts.BackupDir, e.opts.DestRoot)
}

// Backups returns a backup manager over the engine's snapshot directory.
func (e *Engine) Backups() *backup.Manager {
	m := backup.NewManager(e.opts.Fs, e.BackupDir())
	m.Now = e.opts.Now
	return m
}

// StrategyFor returns the strategy implementing kind.
func (e *Engine) StrategyFor(kind Kind) (Strategy, error) {
	switch kind {
	case KindReplace:
		return Replace{Fs: e.opts.Fs}, nil
	case KindDirectoryReplace:
		return DirectoryReplace{Fs: e.opts.Fs, Skip: e.hasher.Excluded}, nil
	case KindDependencyMapMerge:
		return DependencyMapMerge{Fs: e.opts.Fs, Keys: e.opts.DependencyKeys}, nil
	case KindManagedSectionOverlay:
		return ManagedSectionOverlay{Fs: e.opts.Fs, Key: e.opts.ManagedKey}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// IsSelfSync reports whether the destination root is the source root.
func (e *Engine) IsSelfSync() bool {
	return util.SamePath(e.opts.SourceRoot, e.opts.DestRoot)
}

func (e *Engine) paths(entry Entry) (src, dst string) {
	rel := filepath.FromSlash(entry.Path)
	return filepath.Join(e.opts.SourceRoot, rel), filepath.Join(e.opts.DestRoot, rel)
}

// log writes msg to the diagnostic logger and the activity log.
func (e *Engine) log(level slog.Level, msg string, attrs ...any) {
	logging.Default().Log(context.Background(), level, msg, attrs...)
	e.opts.Activity.Append(level, msg)
}

// Run processes every manifest entry in order and returns the aggregated
// result. It never panics and never returns early on an entry failure.
func (e *Engine) Run(manifest Manifest) (result *Result) {
	start := time.Now()
	runID := uuid.NewString()

	selfSync := e.IsSelfSync()
	if selfSync {
		// The activity log lives under the destination, which is the source here.
		quiet := *e
		quiet.opts.Activity = nil
		e = &quiet
	}

	result = &Result{
		RunID:      runID,
		SourceRoot: e.opts.SourceRoot,
		DestRoot:   e.opts.DestRoot,
	}

	defer func() {
		if r := recover(); r != nil {
			result.Aborted = true
			e.log(logging.LevelFatal, fmt.Sprintf("run %s aborted: %v", runID, r), logging.RunID(runID))
		}

		result.Stats.Duration = time.Since(start)
		e.log(logging.LevelInfo,
			fmt.Sprintf("run %s finished: %s in %s", runID, result.Summary(), result.Stats.Duration.Round(time.Millisecond)),
			logging.RunID(runID),
			logging.Duration(result.Stats.Duration),
		)

		if result.Stats.Duration > e.opts.Budget {
			result.OverBudget = true
			e.log(logging.LevelWarn,
				fmt.Sprintf("run %s took %s, over the %s budget", runID, result.Stats.Duration.Round(time.Millisecond), e.opts.Budget),
				logging.RunID(runID),
			)
		}
	}()

	e.log(logging.LevelInfo,
		fmt.Sprintf("run %s started: %s -> %s (%d entries)", runID, e.opts.SourceRoot, e.opts.DestRoot, len(manifest)),
		logging.RunID(runID),
	)

	// Invalid entries fail on their own without touching either root.
	problems := manifest.problems()

	if selfSync {
		result.SelfSync = true
		e.log(logging.LevelInfo, "destination is the canonical source, skipping all entries", logging.RunID(runID))
		for i, entry := range manifest {
			if problems[i] != nil {
				e.finish(result, e.reject(entry, problems[i]))
				continue
			}
			src, dst := e.paths(entry)
			e.finish(result, EntryResult{
				Entry:      entry,
				Outcome:    OutcomeSkipped,
				SourcePath: src,
				DestPath:   dst,
				Message:    "self-sync",
			})
		}
		return result
	}

	backups := e.Backups()
	backups.RunID = runID

	for i, entry := range manifest {
		if problems[i] != nil {
			e.finish(result, e.reject(entry, problems[i]))
			continue
		}
		e.finish(result, e.processEntry(entry, backups))
	}

	return result
}

func (e *Engine) finish(result *Result, er EntryResult) {
	result.record(er)
	if e.opts.Progress != nil {
		e.opts.Progress(er)
	}
}

// reject records an entry that cannot be resolved against the roots.
func (e *Engine) reject(entry Entry, problem error) EntryResult {
	err := fmt.Errorf("%w: %w", ErrInvalidManifest, problem)
	level := logging.LevelWarn
	if entry.Critical {
		level = logging.LevelError
	}
	e.log(level, fmt.Sprintf("%q: invalid entry: %v", entry.Path, problem),
		logging.Entry(entry.Path),
		logging.Err(err),
	)
	return EntryResult{Entry: entry, Outcome: OutcomeFailed, Err: err, Message: "invalid entry"}
}

// processEntry moves one entry through change check, backup and apply.
func (e *Engine) processEntry(entry Entry, backups *backup.Manager) (er EntryResult) {
	src, dst := e.paths(entry)
	er = EntryResult{Entry: entry, SourcePath: src, DestPath: dst}

	defer func() {
		if r := recover(); r != nil {
			er.Outcome = OutcomeFailed
			er.Err = fmt.Errorf("%w: %v", ErrPanic, r)
			e.log(logging.LevelError, fmt.Sprintf("%s: %v", entry.Path, er.Err), logging.Entry(entry.Path))
		}
	}()

	fail := func(msg string, err error) EntryResult {
		er.Outcome = OutcomeFailed
		er.Err = err
		er.Message = msg
		level := logging.LevelWarn
		if entry.Critical {
			level = logging.LevelError
		}
		e.log(level, fmt.Sprintf("%s: %s: %v", entry.Path, msg, err),
			logging.Entry(entry.Path),
			logging.Strategy(string(entry.Kind)),
			logging.Err(err),
		)
		return er
	}

	strategy, err := e.StrategyFor(entry.Kind)
	if err != nil {
		return fail("no strategy", err)
	}

	needed, reason, err := e.needsSync(entry, strategy, src, dst)
	if err != nil {
		return fail("unable to determine sync state", err)
	}
	if !needed {
		er.Outcome = OutcomeSkipped
		er.Message = reason
		if reason == reasonSourceMissing {
			e.log(logging.LevelWarn, fmt.Sprintf("%s: source missing, skipping", entry.Path),
				logging.Entry(entry.Path),
				logging.Path(src),
			)
		} else {
			logging.Debug("entry skipped", logging.Entry(entry.Path), slog.String("reason", reason))
		}
		return er
	}

	rec, err := backups.Backup(dst)
	er.Backup = rec
	if err != nil {
		e.log(logging.LevelWarn, fmt.Sprintf("%s: backup failed: %v", entry.Path, err),
			logging.Entry(entry.Path),
			logging.Err(err),
		)
	} else if rec != nil {
		e.log(logging.LevelInfo, fmt.Sprintf("%s: backed up to %s", entry.Path, rec.StoredPath),
			logging.Entry(entry.Path),
			logging.Path(rec.StoredPath),
		)
	}

	if err := strategy.Apply(src, dst); err != nil {
		return fail("apply failed", err)
	}

	er.Outcome = OutcomeSynced
	er.Message = reason
	e.log(logging.LevelInfo, fmt.Sprintf("%s: synced (%s, %s)", entry.Path, entry.Kind, reason),
		logging.Entry(entry.Path),
		logging.Strategy(string(entry.Kind)),
	)
	return er
}

// fingerprint returns the fingerprint of path as a tree or a single file.
func (e *Engine) fingerprint(path string, dir bool) (fingerprint.Fingerprint, error) {
	if dir {
		return e.hasher.Tree(path)
	}
	return e.hasher.File(path)
}

// needsSync decides whether an entry must be written and why.
//
// A missing source never syncs; a missing destination always does. Otherwise
// the entry syncs when the fingerprints differ, with two refinements: a
// directory whose extra files are all destination-local is up to date, and
// for Renderer strategies the rendered merge result is compared with the
// destination so an already-merged destination is left alone.
func (e *Engine) needsSync(entry Entry, strategy Strategy, src, dst string) (bool, string, error) {
	srcFP, err := e.fingerprint(src, entry.IsDirectory())
	if err != nil {
		return false, "", fmt.Errorf("source: %w", err)
	}
	if !srcFP.Present() {
		return false, reasonSourceMissing, nil
	}

	dstFP, err := e.fingerprint(dst, entry.IsDirectory())
	if err != nil {
		return false, "", fmt.Errorf("destination: %w", err)
	}
	if !dstFP.Present() {
		return true, "destination missing", nil
	}
	if srcFP == dstFP {
		return false, "up to date", nil
	}

	if entry.IsDirectory() {
		rels, err := e.hasher.Files(src)
		if err != nil {
			return false, "", fmt.Errorf("source: %w", err)
		}
		sub, err := e.hasher.Subset(dst, rels)
		if err != nil {
			return false, "", fmt.Errorf("destination: %w", err)
		}
		if sub == srcFP {
			return false, "up to date, local files kept", nil
		}
		return true, "content differs", nil
	}

	if r, ok := strategy.(Renderer); ok {
		rendered, err := r.Render(src, dst)
		if err != nil {
			return false, "", err
		}
		if fingerprint.Bytes(rendered) == dstFP {
			return false, "already merged", nil
		}
		return true, "merge changes destination", nil
	}

	return true, "content differs", nil
}

// PlanItem describes what a run would do with one entry.
type PlanItem struct {
	Entry      Entry
	SourcePath string
	DestPath   string
	NeedsSync  bool
	Reason     string
	Err        error
}

// Plan evaluates the change check for every entry without writing anything.
func (e *Engine) Plan(manifest Manifest) []PlanItem {
	defer logging.Timer("plan")()

	items := make([]PlanItem, 0, len(manifest))
	selfSync := e.IsSelfSync()
	problems := manifest.problems()

	for i, entry := range manifest {
		if problems[i] != nil {
			items = append(items, PlanItem{Entry: entry, Err: fmt.Errorf("%w: %w", ErrInvalidManifest, problems[i])})
			continue
		}

		src, dst := e.paths(entry)
		item := PlanItem{Entry: entry, SourcePath: src, DestPath: dst}

		switch strategy, err := e.StrategyFor(entry.Kind); {
		case selfSync:
			item.Reason = "self-sync"
		case err != nil:
			item.Err = err
		default:
			item.NeedsSync, item.Reason, item.Err = e.needsSync(entry, strategy, src, dst)
		}

		items = append(items, item)
	}
	return items
}
