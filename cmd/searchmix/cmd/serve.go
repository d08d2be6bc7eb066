package cmd

import (
	"github.com/spf13/cobra"

	"github.com/searchmix/searchmix/internal/mcp"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the index over the Model Context Protocol (stdio)",
		Long: `Run an MCP server over stdio exposing search, get_document,
get_heading, and index_status tools, for use from AI clients.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, _, cleanup, err := openManager()
			if err != nil {
				return err
			}
			defer cleanup()

			srv, err := mcp.NewServer(mgr)
			if err != nil {
				return err
			}
			return srv.Serve(cmd.Context())
		},
	}
	return cmd
}
