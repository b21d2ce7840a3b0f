package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/klauern/canonsync/internal/ui"
)

func manifestCommand() *cli.Command {
	return &cli.Command{
		Name:  "manifest",
		Usage: "Print the effective manifest",
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			manifest := cfg.EffectiveManifest()
			rows := make([][]string, 0, len(manifest))
			for _, e := range manifest {
				rows = append(rows, []string{e.Path, e.Kind.String(), criticalLabel(e.Critical), e.Kind.Description()})
			}
			fmt.Println(ui.Table([]string{"Path", "Strategy", "Critical", "Behavior"}, rows))
			return nil
		},
	}
}
