package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/ledgerbridge/tallysync/internal/ui"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all synced rows from the store",
	Long: `Delete every synced row, children before parents. The schema stays
in place; the next migrate run reloads from scratch.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetForce {
		var confirmed bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Delete all synced rows from %s?", cfg.Store.Source())).
					Affirmative("Delete").
					Negative("Cancel").
					Value(&confirmed),
			),
		)
		if err := form.Run(); err != nil {
			if err == huh.ErrUserAborted {
				fmt.Fprintln(os.Stderr, "Reset cancelled.")
				return nil
			}
			return err
		}
		if !confirmed {
			fmt.Fprintln(os.Stderr, "Reset cancelled.")
			return nil
		}
	}

	db, err := openStore(newLogger("store"))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Reset(cmd.Context()); err != nil {
		return err
	}
	fmt.Println(ui.RenderPass(ui.IconPass + " store reset"))
	return nil
}
