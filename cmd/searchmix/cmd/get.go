package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/searchmix/searchmix/internal/index"
)

// getOptions holds CLI flags for get.
type getOptions struct {
	position int
	length   int
	heading  string
	format   string
}

func newGetCmd() *cobra.Command {
	var opts getOptions

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Retrieve a stored document or one of its headings",
		Long: `Retrieve the stored record for a document path. With --heading, look up
one section by id instead (ids appear on search snippets).

Examples:
  searchmix get /docs/manual.md
  searchmix get /docs/manual.md --position 1000 --length 500
  searchmix get /docs/manual.md --heading s3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			mgr, _, cleanup, err := openManager()
			if err != nil {
				return err
			}
			defer cleanup()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if opts.heading != "" {
				details, err := mgr.GetHeadingByID(cmd.Context(), path, opts.heading)
				if err != nil {
					return err
				}
				if details == nil {
					return fmt.Errorf("heading not found: %s#%s", path, opts.heading)
				}
				return enc.Encode(details)
			}

			var getOpts *index.GetOptions
			if opts.position > 0 || opts.length > 0 {
				getOpts = &index.GetOptions{Position: opts.position, Length: opts.length}
			}
			doc, err := mgr.Get(cmd.Context(), path, getOpts)
			if err != nil {
				return err
			}
			if doc == nil {
				return fmt.Errorf("document not found: %s", path)
			}

			if opts.format == "body" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), doc.Body)
				return err
			}
			return enc.Encode(map[string]any{
				"path":  doc.Path,
				"title": doc.Title,
				"tags":  doc.Tags,
				"mtime": doc.MTime,
				"body":  doc.Body,
			})
		},
	}

	cmd.Flags().IntVar(&opts.position, "position", 0, "Byte offset to start the body window at")
	cmd.Flags().IntVar(&opts.length, "length", 0, "Body window size (default 5000 when --position is set)")
	cmd.Flags().StringVar(&opts.heading, "heading", "", "Heading id to look up instead of the whole document")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "Output format: json, body")

	return cmd
}
