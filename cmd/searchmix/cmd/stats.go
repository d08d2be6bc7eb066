package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var tag string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, _, cleanup, err := openManager()
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := mgr.GetStats(cmd.Context(), tag)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Also count documents carrying this tag")
	return cmd
}
