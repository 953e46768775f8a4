package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	codexsdk "github.com/BjornMelin/codex-sdk-agents"
)

var mcpStatusJSON bool

var mcpStatusCmd = &cobra.Command{
	Use:   "mcp-status",
	Short: "Show configured MCP servers and their tools",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		bridge, err := openBridge(ctx)
		if err != nil {
			return err
		}
		defer bridge.Close()

		var (
			servers []codexsdk.MCPServerStatus
			params  codexsdk.ListParams
		)

		for {
			resp, err := bridge.MCPServerStatusList(ctx, &params)
			if err != nil {
				return fmt.Errorf("list mcp servers: %w", err)
			}

			servers = append(servers, resp.Data...)

			if resp.NextCursor == nil || *resp.NextCursor == "" {
				break
			}

			params.Cursor = resp.NextCursor
		}

		if mcpStatusJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(servers)
		}

		printMCPStatus(cmd.OutOrStdout(), servers)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpStatusCmd)
	mcpStatusCmd.Flags().BoolVar(&mcpStatusJSON, "json", false, "Output as JSON")
}

func printMCPStatus(w io.Writer, servers []codexsdk.MCPServerStatus) {
	if len(servers) == 0 {
		fmt.Fprintln(w, "No MCP servers configured.")

		return
	}

	for _, s := range servers {
		fmt.Fprintf(w, "%s (%s, %d tools)\n", s.Name, s.AuthStatus, len(s.Tools))

		for _, name := range s.ToolNames() {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
}
