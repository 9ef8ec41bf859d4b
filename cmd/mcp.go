package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/bizassist/bizassist/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp [documents...]",
	Short: "Start an MCP server over the given documents",
	Long:  `Loads the documents and starts a Model Context Protocol server on stdio, exposing search_document and ask_document tools for AI agents.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.close()

		sess, err := a.openSession(ctx, "mcp", args)
		if err != nil {
			return err
		}

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		info := sess.Info()
		fmt.Fprintf(os.Stderr, "bizassist MCP server started on stdio (document=%s, passages=%d)\n", info.Document, info.Passages)

		return mcpserver.NewServer(a.orch, sess).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
