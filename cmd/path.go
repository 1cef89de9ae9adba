package cmd

import (
	"context"
	"fmt"

	"upgrade-tracker/feature/catalog/models"
	"upgrade-tracker/feature/catalog/pathfind"

	"github.com/spf13/cobra"
)

var (
	pathFrom        uint
	pathUnconfirmed bool
)

// pathCmd answers cheapest-path queries from the command line. The
// target is given as free text and resolved against the catalog, so
// "aurora mr" works as well as an exact name.
var pathCmd = &cobra.Command{
	Use:   "path <ship name>",
	Short: "Find the cheapest way to obtain a ship",
	Long: `Find the cheapest acquisition path for a ship.

Without --from the answer starts from nothing: a standalone purchase
followed by the cheapest upgrade chain. With --from the answer is the
cheapest upgrade chain from the ship you already own.

Examples:
  # Cheapest way to own a Gladius
  upgrade-tracker path gladius

  # Cheapest upgrade chain from ship 12 to a Freelancer MAX
  upgrade-tracker path "freelancer max" --from 12 --unconfirmed`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPath,
}

func init() {
	pathCmd.Flags().UintVar(&pathFrom, "from", 0, "Ship ID already owned (0 starts from nothing)")
	pathCmd.Flags().BoolVar(&pathUnconfirmed, "unconfirmed", false, "Include unconfirmed community offers")

	RootCmd.AddCommand(pathCmd)
}

func runPath(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc, _, l, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer l.Sync()

	query := ""
	for i, a := range args {
		if i > 0 {
			query += " "
		}
		query += a
	}

	match, ok := svc.ResolveShipName(query)
	if !ok {
		return fmt.Errorf("no ship matched %q", query)
	}
	if match.NeedsReview {
		cmd.Printf("Interpreting %q as %s (score %d, low confidence)\n", query, match.ShipName, match.Score)
	}

	opts := pathfind.QueryOptions{IncludeUnconfirmed: pathUnconfirmed}

	if pathFrom != pathfind.OriginID {
		path, err := svc.UpgradePath(pathFrom, match.ShipID, opts)
		if err != nil {
			return err
		}
		if path == nil {
			return fmt.Errorf("no upgrade chain reaches %s from ship %d", match.ShipName, pathFrom)
		}
		printUpgrades(cmd, *path)
		cmd.Printf("Total: $%.2f\n", path.TotalCost)
		return nil
	}

	path, err := svc.PurchasePath(match.ShipID, opts)
	if err != nil {
		return err
	}
	if path == nil {
		return fmt.Errorf("%s is not reachable from any purchase", match.ShipName)
	}

	cmd.Printf("Buy %s for $%.2f at %s\n", shipName(path.Start.Ship), path.Start.PriceUSD, storeOwner(path.Start.Store))
	printUpgrades(cmd, path.Upgrades)
	cmd.Printf("Total: $%.2f\n", path.TotalCost)
	return nil
}

func printUpgrades(cmd *cobra.Command, chain pathfind.UpgradePath) {
	for _, step := range chain.Steps {
		cmd.Printf("Upgrade %s -> %s for $%.2f at %s\n",
			shipName(step.ShipFrom), shipName(step.ShipTo), step.PriceUSD, storeOwner(step.Store))
	}
}

func shipName(s *models.Ship) string {
	if s == nil {
		return "?"
	}
	return s.Name
}

func storeOwner(s *models.Store) string {
	if s == nil {
		return "?"
	}
	return s.Owner
}
