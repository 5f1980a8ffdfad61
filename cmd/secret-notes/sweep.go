package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amirk1998/secret-notes/internal/purge"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete every expired note once and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := loadApplication(cmd.Context())
		if err != nil {
			return err
		}
		defer app.cleanup()

		sweeper := purge.NewSweeper(app.store, nil, app.log.With("component", "sweeper"))
		sweeper.OnSwept(app.noteService.RecordSwept)

		ids, err := sweeper.Sweep(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s %d expired note(s) deleted\n", successText("Sweep complete:"), len(ids))
		return nil
	},
}
