package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/searchmix/searchmix/internal/index"
	"github.com/searchmix/searchmix/internal/ui"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit       int
	tags        []string
	snippets    bool
	snippetLen  int
	perDocument int
	count       bool
	format      string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed documents",
		Long: `Search the index with the full query language: bare terms, quoted
phrases, AND/OR/NOT, parentheses, trailing * for prefix match, and field
restrictions (title:, h1:..h6:, headings:, body:). Matching is accent and
case insensitive.

Examples:
  searchmix search "mediterraneo"
  searchmix search 'title:viaje AND body:barco*'
  searchmix search 'headings:"route planning"' --tags sailing --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]
			for _, a := range args[1:] {
				query += " " + a
			}

			mgr, _, cleanup, err := openManager()
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := mgr.Search(cmd.Context(), query, index.SearchOptions{
				Limit:          opts.limit,
				Tags:           opts.tags,
				Snippets:       opts.snippets,
				SnippetLength:  opts.snippetLen,
				SnippetsPerDoc: opts.perDocument,
				Count:          opts.count,
			})
			if err != nil {
				return err
			}

			if opts.format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			out := ui.New(cmd.OutOrStdout())
			if len(res.Results) == 0 {
				out.Statusf("No results for %q", query)
				return nil
			}
			if res.TotalCount != nil {
				out.Statusf("Found %d matching documents for %q:", *res.TotalCount, query)
			} else {
				out.Statusf("Results for %q:", query)
			}
			out.Newline()
			for i, sn := range res.Results {
				out.Result(i+1, sn.DocumentPath, sn.Rank, sn.Text)
				if crumbs := sn.GetBreadcrumbsText(""); crumbs != "" {
					out.Breadcrumb(crumbs)
				}
				out.Newline()
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of documents")
	cmd.Flags().StringSliceVar(&opts.tags, "tags", nil, "Restrict to documents carrying any of these tags")
	cmd.Flags().BoolVar(&opts.snippets, "snippets", true, "Extract in-context snippets")
	cmd.Flags().IntVar(&opts.snippetLen, "snippet-length", 0, "Snippet context window size")
	cmd.Flags().IntVar(&opts.perDocument, "snippets-per-doc", 0, "Snippets per matched document")
	cmd.Flags().BoolVar(&opts.count, "count", true, "Compute the total match count")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}
