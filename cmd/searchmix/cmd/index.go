package cmd

import (
	"github.com/spf13/cobra"

	"github.com/searchmix/searchmix/internal/index"
	"github.com/searchmix/searchmix/internal/ui"
)

// indexOptions holds CLI flags for index.
type indexOptions struct {
	tags          []string
	exclude       []string
	recursive     bool
	update        bool
	skipExisting  bool
	checkModified bool
}

func newIndexCmd() *cobra.Command {
	opts := indexOptions{}
	defaults := index.DefaultAddOptions()

	cmd := &cobra.Command{
		Use:   "index <path>...",
		Short: "Index files or directories",
		Long: `Index one or more files or directory trees.

Already-indexed documents are skipped unless their modification time moved
or --update is given. Unsupported or unconvertible files inside a directory
are skipped with a warning.

Examples:
  searchmix index ./docs
  searchmix index notes.md manual.md --tag personal
  searchmix index ./books --exclude drafts --update`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, cleanup, err := openManager()
			if err != nil {
				return err
			}
			defer cleanup()

			out := ui.New(cmd.OutOrStdout())
			addOpts := index.AddOptions{
				Tags:          opts.tags,
				Exclude:       opts.exclude,
				Recursive:     opts.recursive,
				Update:        opts.update,
				SkipExisting:  opts.skipExisting,
				CheckModified: opts.checkModified,
			}

			total := index.AddResult{}
			for _, input := range args {
				res, err := mgr.Add(cmd.Context(), input, addOpts)
				if err != nil {
					return err
				}
				total.Indexed += res.Indexed
				total.Skipped += res.Skipped
				total.Failed += res.Failed
			}

			out.Statusf("Indexed %d, skipped %d, failed %d",
				total.Indexed, total.Skipped, total.Failed)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&opts.tags, "tag", "t", nil, "Tag to attach (repeatable)")
	cmd.Flags().StringSliceVar(&opts.exclude, "exclude", defaults.Exclude, "Glob patterns to exclude")
	cmd.Flags().BoolVarP(&opts.recursive, "recursive", "r", defaults.Recursive, "Descend into subdirectories")
	cmd.Flags().BoolVarP(&opts.update, "update", "u", false, "Re-index documents that already exist")
	cmd.Flags().BoolVar(&opts.skipExisting, "skip-existing", defaults.SkipExisting, "Skip documents that already exist")
	cmd.Flags().BoolVar(&opts.checkModified, "check-modified", defaults.CheckModified, "Re-index when the file modification time changed")

	return cmd
}
