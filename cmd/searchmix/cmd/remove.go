package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/searchmix/searchmix/internal/ui"
)

func newRemoveCmd() *cobra.Command {
	var tag string

	cmd := &cobra.Command{
		Use:   "remove [path]",
		Short: "Remove documents by path or tag",
		Long: `Remove one document by path, or every document carrying a tag.

Examples:
  searchmix remove /docs/old.md
  searchmix remove --tag drafts`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if tag == "" && len(args) == 0 {
				return fmt.Errorf("either a path or --tag is required")
			}

			mgr, _, cleanup, err := openManager()
			if err != nil {
				return err
			}
			defer cleanup()

			out := ui.New(cmd.OutOrStdout())

			if tag != "" {
				n, err := mgr.RemoveByTag(cmd.Context(), tag)
				if err != nil {
					return err
				}
				out.Statusf("Removed %d documents tagged %q", n, tag)
				return nil
			}

			if err := mgr.RemoveDocument(cmd.Context(), args[0]); err != nil {
				return err
			}
			out.Statusf("Removed %s", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Remove every document carrying this tag")
	return cmd
}
