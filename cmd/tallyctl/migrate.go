package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/tally/internal/config"
	"github.com/MrJamesThe3rd/tally/internal/database"
	"github.com/MrJamesThe3rd/tally/internal/logging"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the database schema",
	}

	for _, sub := range []struct {
		use   string
		short string
		dir   database.Direction
	}{
		{"up", "Apply all pending migrations", database.Up},
		{"down", "Roll back every migration", database.Down},
	} {
		cmd.AddCommand(&cobra.Command{
			Use:   sub.use,
			Short: sub.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := config.Load()
				if err != nil {
					return err
				}

				logging.Setup(cfg.Log.Level, cfg.Log.Format)

				if err := database.Migrate(cfg.ConnectionString(), sub.dir); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: done\n", sub.use)

				return nil
			},
		})
	}

	return cmd
}
