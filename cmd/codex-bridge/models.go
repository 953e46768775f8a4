package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	codexsdk "github.com/BjornMelin/codex-sdk-agents"
)

var (
	modelsJSON   bool
	modelsRemote bool
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models",
	Long:  "List the built-in model catalog, or with --remote the models the app-server offers.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		list := codexsdk.Models()

		if modelsRemote {
			bridge, err := openBridge(cmd.Context())
			if err != nil {
				return err
			}
			defer bridge.Close()

			list, err = codexsdk.ListModels(cmd.Context(), bridge)
			if err != nil {
				return fmt.Errorf("list models: %w", err)
			}
		}

		if modelsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(list)
		}

		printModels(cmd.OutOrStdout(), list)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "Output as JSON")
	modelsCmd.Flags().BoolVar(&modelsRemote, "remote", false, "Ask the app-server instead of the built-in catalog")
}

func printModels(w io.Writer, list []codexsdk.Model) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTIER\tEFFORTS\tDEFAULT")

	for _, m := range list {
		def := ""
		if m.IsDefault {
			def = "*"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.ID, m.Name, m.CostTier, strings.Join(m.ReasoningEfforts, ","), def)
	}

	tw.Flush()
}
