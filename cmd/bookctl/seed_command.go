package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"theonebook/internal/bootstrap"
	"theonebook/internal/config"
)

func newSeedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default users and chapters on an empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd.Context(), func(rt *bootstrap.Runtime, cfg config.FileConfig) error {
				res, err := rt.App.Seed(cmd.Context(), cfg.Seed)
				if err != nil {
					return fmt.Errorf("seed: %w", err)
				}
				if res.Users == 0 && res.Chapters == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Database already seeded; nothing to do")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %d users and %d chapters\n", res.Users, res.Chapters)
				return nil
			})
		},
	}
}
