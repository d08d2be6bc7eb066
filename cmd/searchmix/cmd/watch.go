package cmd

import (
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/searchmix/searchmix/internal/index"
	"github.com/searchmix/searchmix/internal/ui"
	"github.com/searchmix/searchmix/internal/watcher"
)

// watchOptions holds CLI flags for watch.
type watchOptions struct {
	tags      []string
	exclude   []string
	recursive bool
	debounce  time.Duration
}

func newWatchCmd() *cobra.Command {
	opts := watchOptions{}
	defaults := index.DefaultAddOptions()

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Watch a directory and keep the index in sync",
		Long: `Index a directory, then watch it: created and modified files are
re-indexed, deleted files are removed. A lock beside the database keeps a
second watcher from mutating the same index.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cfg, cleanup, err := openManager()
			if err != nil {
				return err
			}
			defer cleanup()

			// One watcher per index.
			lock := flock.New(cfg.DBPath + ".lock")
			locked, err := lock.TryLock()
			if err != nil {
				return err
			}
			if !locked {
				return fmt.Errorf("another watcher holds %s.lock", cfg.DBPath)
			}
			defer func() { _ = lock.Unlock() }()

			out := ui.New(cmd.OutOrStdout())
			out.Statusf("Watching %s (ctrl-c to stop)", args[0])

			w := watcher.New(mgr, index.AddOptions{
				Tags:          opts.tags,
				Exclude:       opts.exclude,
				Recursive:     opts.recursive,
				SkipExisting:  true,
				CheckModified: true,
			}, opts.debounce)
			return w.Watch(cmd.Context(), args[0])
		},
	}

	cmd.Flags().StringSliceVarP(&opts.tags, "tag", "t", nil, "Tag to attach (repeatable)")
	cmd.Flags().StringSliceVar(&opts.exclude, "exclude", defaults.Exclude, "Glob patterns to exclude")
	cmd.Flags().BoolVarP(&opts.recursive, "recursive", "r", defaults.Recursive, "Descend into subdirectories")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", watcher.DefaultDebounceWindow, "Event coalescing window")

	return cmd
}
