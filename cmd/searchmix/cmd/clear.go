package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/searchmix/searchmix/internal/ui"
)

func newClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every document from the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear without --yes")
			}

			mgr, _, cleanup, err := openManager()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := mgr.Clear(cmd.Context()); err != nil {
				return err
			}
			ui.New(cmd.OutOrStdout()).Statusf("Index cleared")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm clearing the whole index")
	return cmd
}
