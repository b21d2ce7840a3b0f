package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/klauern/canonsync/internal/config"
	"github.com/klauern/canonsync/internal/logging"
	"github.com/klauern/canonsync/internal/progress"
	"github.com/klauern/canonsync/internal/sync"
	"github.com/klauern/canonsync/internal/ui"
	"github.com/klauern/canonsync/internal/util"
	"github.com/klauern/canonsync/internal/validation"
)

// ErrCriticalFailure is returned under --strict when a critical entry failed.
var ErrCriticalFailure = errors.New("critical entries failed")

// syncFlags are global so every command sees the same roots.
func syncFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "source",
			Aliases: []string{"s"},
			Usage:   "Canonical source root (default: source_root from config)",
		},
		&cli.StringFlag{
			Name:    "dest",
			Aliases: []string{"d"},
			Usage:   "Destination root (default: current directory)",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "Exit with an error when a critical entry fails",
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Synchronize the destination from the canonical source",
		UsageText: "canonsync [--source DIR] [--dest DIR] [--strict] sync",
		Description: `Brings every manifest entry in the destination up to date.

   Entries whose content already matches are skipped. Anything overwritten is
   backed up first. Failures never stop the run; with --strict a failed
   critical entry makes the command exit non-zero.

   Examples:
     canonsync sync
     canonsync --dest ~/code/app --strict sync`,
		Action: runSync,
	}
}

// roots resolves the source and destination roots from flags and config.
func roots(cmd *cli.Command, cfg *config.Config) (source, dest string, err error) {
	wd, err := workingDir()
	if err != nil {
		return "", "", err
	}

	dest = wd
	if v := cmd.String("dest"); v != "" {
		dest = util.ExpandPath(v, wd)
	}
	source = cfg.ResolvedSourceRoot(wd)
	if v := cmd.String("source"); v != "" {
		source = util.ExpandPath(v, wd)
	}
	return source, dest, nil
}

// preflight checks both roots, printing warnings to stderr.
func preflight(source, dest string, requireWrite bool) error {
	opts := validation.DefaultOptions()
	opts.RequireWritePermission = requireWrite
	result := validation.ValidateRoots(afero.NewOsFs(), source, dest, opts)

	for _, w := range result.Warnings {
		logging.Warn("preflight", logging.Operation("validate roots"), slog.String("warning", w))
		_, _ = fmt.Fprintln(os.Stderr, ui.StatusWarning(w))
	}
	if err := result.Error(); err != nil {
		return fmt.Errorf("cannot sync %s: %w", dest, err)
	}
	return nil
}

// engineOptions builds engine options for one destination from the config.
func engineOptions(cfg *config.Config, source, dest string) sync.Options {
	fsys := afero.NewOsFs()
	opts := sync.DefaultOptions()
	opts.Fs = fsys
	opts.SourceRoot = source
	opts.DestRoot = dest
	opts.BackupDir = cfg.BackupDir(dest)
	opts.Exclude = cfg.Sync.Exclude
	opts.DependencyKeys = cfg.Sync.DependencyKeys
	opts.ManagedKey = cfg.Sync.ManagedKey
	opts.Budget = cfg.Sync.Budget
	opts.Activity = logging.NewActivityLog(fsys, cfg.LogPath(dest), cfg.Log.MaxLines)
	return opts
}

func runSync(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	source, dest, err := roots(cmd, cfg)
	if err != nil {
		return err
	}

	// An unusable root is reported like any other failed run: the command
	// only fails under --strict.
	if err := preflight(source, dest, true); err != nil {
		logging.Warn("sync skipped", logging.Path(dest), logging.Err(err))
		_, _ = fmt.Fprintln(os.Stderr, ui.StatusError(err.Error()))
		if cmd.Bool("strict") {
			return fmt.Errorf("%w: %w", ErrCriticalFailure, err)
		}
		return nil
	}

	manifest := cfg.EffectiveManifest()
	opts := engineOptions(cfg, source, dest)

	tracker := progress.New(progress.Options{Total: len(manifest), Writer: os.Stderr})
	opts.Progress = func(er sync.EntryResult) {
		tracker.Observe(er.Entry.Path, er.Outcome == sync.OutcomeFailed)
	}

	result := sync.New(opts).Run(manifest)
	_ = tracker.Finish()

	verbose := cmd.Bool("verbose") || cmd.Bool("debug") || cfg.Output.Verbose
	printResult(os.Stdout, result, verbose)

	if cmd.Bool("strict") && (result.HasCriticalFailures() || result.Aborted) {
		if result.Aborted {
			return fmt.Errorf("%w: run aborted", ErrCriticalFailure)
		}
		return fmt.Errorf("%w: %s", ErrCriticalFailure, strings.Join(result.Stats.CriticalFailures, ", "))
	}
	return nil
}

// printResult writes the one-line summary, failures, and warnings.
func printResult(w io.Writer, r *sync.Result, verbose bool) {
	if r.SelfSync {
		_, _ = fmt.Fprintln(w, ui.Info("Destination is the canonical source, nothing to do"))
	}

	if verbose {
		for _, er := range r.Entries {
			_, _ = fmt.Fprintf(w, "  %s %s\n", ui.Bold(er.Entry.Path), ui.Outcome(string(er.Outcome), er.Message))
		}
	}

	failed := fmt.Sprintf("failed %d", r.Stats.Failed)
	if r.Stats.Failed > 0 {
		failed = ui.Error(failed)
	}
	_, _ = fmt.Fprintf(w, "%s, %s, %s (total %d)\n",
		ui.Success(fmt.Sprintf("synced %d", r.Stats.Synced)),
		ui.Dim(fmt.Sprintf("skipped %d", r.Stats.Skipped)),
		failed,
		r.Stats.Total,
	)

	for _, er := range r.Failed() {
		_, _ = fmt.Fprintf(w, "  %s\n", ui.StatusError(fmt.Sprintf("%s: %v", er.Entry.Path, er.Err)))
	}
	if r.HasCriticalFailures() {
		_, _ = fmt.Fprintln(w, ui.StatusWarning("critical entries failed: "+strings.Join(r.Stats.CriticalFailures, ", ")))
	}
	if r.Aborted {
		_, _ = fmt.Fprintln(w, ui.StatusError("run aborted by an internal error, results are partial"))
	}
	if verbose && r.OverBudget {
		_, _ = fmt.Fprintln(w, ui.StatusWarning(fmt.Sprintf("run took %s", r.Stats.Duration)))
	}
}
