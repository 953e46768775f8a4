package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	codexsdk "github.com/BjornMelin/codex-sdk-agents"
)

var routeCmd = &cobra.Command{
	Use:   "route <routing.yaml> <workflow/role/step>",
	Short: "Show the MCP servers a workflow step resolves to",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		step, err := parseStep(args[1])
		if err != nil {
			return err
		}

		registry, err := codexsdk.LoadToolRouting(args[0])
		if err != nil {
			return err
		}

		return printRoute(cmd.Context(), cmd.OutOrStdout(), registry, step)
	},
}

func init() {
	rootCmd.AddCommand(routeCmd)
}

func printRoute(ctx context.Context, w io.Writer, registry *codexsdk.ToolRegistry, step codexsdk.StepAddress) error {
	bundles := registry.Router().Resolve(step)
	if len(bundles) == 0 {
		fmt.Fprintf(w, "%s: no tools\n", step)

		return nil
	}

	servers, err := registry.ResolveTools(ctx, step)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s: bundles %v\n", step, bundles)

	ids := make([]string, 0, len(servers))
	for id := range servers {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	for _, id := range ids {
		data, err := json.Marshal(servers[id])
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "  %s %s\n", id, data)
	}

	return nil
}
