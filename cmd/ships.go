package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// shipsCmd lists the reconciled catalog on the command line.
var shipsCmd = &cobra.Command{
	Use:   "ships",
	Short: "List the reconciled ship catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		svc, _, l, err := buildService(ctx)
		if err != nil {
			return err
		}
		defer l.Sync()

		ships, err := svc.Ships(ctx)
		if err != nil {
			return fmt.Errorf("failed to list ships: %w", err)
		}
		if len(ships) == 0 {
			cmd.Println("Catalog is empty; run `upgrade-tracker refresh` first.")
			return nil
		}

		for _, ship := range ships {
			maker := "?"
			if ship.Manufacturer != nil {
				maker = ship.Manufacturer.Name
			}
			cmd.Printf("%4d  %-40s %s\n", ship.ID, ship.Name, maker)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(shipsCmd)
}
