package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newSeedCmd creates the 'seed' subcommand, which writes the configured
// source list into the registry.
func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seeds the source registry from configuration",
		Long: `Inserts the sources listed in the configuration file into the registry.
Existing rows keep their crawl cursors; only their configuration columns
are updated, so re-seeding never loses resumption state.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			n, err := appInstance.SeedSources(cmd.Context())
			if err != nil {
				return fmt.Errorf("seed sources: %w", err)
			}
			cmd.Printf("seeded %d sources\n", n)
			return nil
		},
	}
}
