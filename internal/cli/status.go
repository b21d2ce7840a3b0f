package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/klauern/canonsync/internal/sync"
	"github.com/klauern/canonsync/internal/ui"
)

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show which manifest entries need syncing",
		Description: `Runs change detection for every manifest entry without writing anything.

   Examples:
     canonsync status
     canonsync --dest ~/code/app status`,
		Action: runStatus,
	}
}

func runStatus(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	source, dest, err := roots(cmd, cfg)
	if err != nil {
		return err
	}

	if err := preflight(source, dest, false); err != nil {
		return err
	}

	// No activity log: status must not write.
	opts := engineOptions(cfg, source, dest)
	opts.Activity = nil
	items := sync.New(opts).Plan(cfg.EffectiveManifest())

	fmt.Printf("Source:      %s\n", source)
	fmt.Printf("Destination: %s\n\n", dest)

	pending := 0
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		if item.NeedsSync {
			pending++
		}
		rows = append(rows, []string{
			item.Entry.Path,
			item.Entry.Kind.String(),
			criticalLabel(item.Entry.Critical),
			planState(item),
		})
	}
	fmt.Println(ui.Table([]string{"Path", "Strategy", "Critical", "State"}, rows))

	if pending == 0 {
		fmt.Println(ui.StatusSuccess("Everything is up to date"))
	} else {
		fmt.Println(ui.StatusWarning(fmt.Sprintf("%d of %d entries need syncing", pending, len(items))))
	}
	return nil
}

func planState(item sync.PlanItem) string {
	switch {
	case item.Err != nil:
		return "Error: " + item.Err.Error()
	case item.NeedsSync:
		return "Needs Sync (" + item.Reason + ")"
	default:
		return ui.Title(item.Reason)
	}
}

func criticalLabel(critical bool) string {
	if critical {
		return "yes"
	}
	return "no"
}
