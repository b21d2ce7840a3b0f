package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/klauern/canonsync/internal/backup"
	"github.com/klauern/canonsync/internal/ui"
	"github.com/klauern/canonsync/internal/util"
)

func backupsCommand() *cli.Command {
	return &cli.Command{
		Name:    "backups",
		Aliases: []string{"backup"},
		Usage:   "List, verify and restore snapshots taken before overwrites",
		Action:  runBackupsList,
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List snapshots for the destination, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Show at most this many snapshots (0 for all)",
					},
				},
				Action: runBackupsList,
			},
			{
				Name:      "restore",
				Usage:     "Restore a snapshot",
				UsageText: "canonsync backups restore <id> [--to PATH]",
				Description: `Copies a snapshot back to its original path, or to --to.
   Whatever is currently there is snapshotted first.`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "to",
						Usage: "Restore to this path instead of the original location",
					},
				},
				Action: runBackupsRestore,
			},
			{
				Name:   "verify",
				Usage:  "Check every snapshot against its recorded fingerprint",
				Action: runBackupsVerify,
			},
		},
	}
}

// backupManager returns the manager for the destination's snapshot directory.
func backupManager(cmd *cli.Command) (*backup.Manager, string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, "", err
	}
	_, dest, err := roots(cmd, cfg)
	if err != nil {
		return nil, "", err
	}
	return backup.NewManager(afero.NewOsFs(), cfg.BackupDir(dest)), dest, nil
}

func runBackupsList(_ context.Context, cmd *cli.Command) error {
	m, dest, err := backupManager(cmd)
	if err != nil {
		return err
	}

	records, err := m.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No backups found")
		return nil
	}
	if limit := int(cmd.Int("limit")); limit > 0 && limit < len(records) {
		records = records[:limit]
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		kind, size := "file", humanize.Bytes(uint64(max(rec.Size, 0))) // #nosec G115
		if rec.Directory {
			kind, size = "dir", "-"
		}
		rows = append(rows, []string{rec.ID, displayPath(rec.OriginalPath, dest), kind, size, humanize.Time(rec.Timestamp)})
	}
	fmt.Println(ui.Table([]string{"ID", "Original", "Type", "Size", "Created"}, rows))
	return nil
}

func runBackupsRestore(_ context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return errors.New("backup ID required")
	}

	m, dest, err := backupManager(cmd)
	if err != nil {
		return err
	}

	rec, err := m.Find(id)
	if err != nil {
		return err
	}
	target := rec.OriginalPath
	if to := cmd.String("to"); to != "" {
		wd, err := workingDir()
		if err != nil {
			return err
		}
		target = util.ExpandPath(to, wd)
	}

	prior, err := m.Restore(id, target)
	if err != nil {
		return err
	}

	fmt.Println(ui.StatusSuccess(fmt.Sprintf("Restored %s to %s", id, displayPath(target, dest))))
	if prior != nil {
		fmt.Printf("  previous content saved as %s\n", prior.ID)
	}
	return nil
}

func runBackupsVerify(_ context.Context, cmd *cli.Command) error {
	m, _, err := backupManager(cmd)
	if err != nil {
		return err
	}

	records, err := m.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	var bad []string
	for _, rec := range records {
		if err := m.Verify(rec); err != nil {
			bad = append(bad, rec.ID)
			fmt.Println(ui.StatusError(fmt.Sprintf("%s: %v", rec.ID, err)))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %s", backup.ErrCorrupted, strings.Join(bad, ", "))
	}
	fmt.Println(ui.StatusSuccess(fmt.Sprintf("%d backups verified", len(records))))
	return nil
}

// displayPath shows p relative to root when it lies inside it.
func displayPath(p, root string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return rel
}
