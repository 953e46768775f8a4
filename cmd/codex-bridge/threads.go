package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	codexsdk "github.com/BjornMelin/codex-sdk-agents"
)

var (
	threadsJSON     bool
	threadsLimit    int
	threadsArchived bool
)

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "List stored threads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		bridge, err := openBridge(ctx)
		if err != nil {
			return err
		}
		defer bridge.Close()

		params := &codexsdk.ThreadListParams{}
		if threadsLimit > 0 {
			params.Limit = &threadsLimit
		}

		if threadsArchived {
			params.Archived = &threadsArchived
		}

		var threads []codexsdk.Thread

		for {
			resp, err := bridge.ThreadList(ctx, params)
			if err != nil {
				return fmt.Errorf("list threads: %w", err)
			}

			threads = append(threads, resp.Data...)

			if resp.NextCursor == nil || *resp.NextCursor == "" {
				break
			}

			if threadsLimit > 0 && len(threads) >= threadsLimit {
				break
			}

			params.Cursor = resp.NextCursor
		}

		if threadsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(threads)
		}

		printThreads(cmd.OutOrStdout(), threads)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(threadsCmd)
	threadsCmd.Flags().BoolVar(&threadsJSON, "json", false, "Output as JSON")
	threadsCmd.Flags().IntVar(&threadsLimit, "limit", 0, "Stop after this many threads")
	threadsCmd.Flags().BoolVar(&threadsArchived, "archived", false, "List archived threads")
}

func printThreads(w io.Writer, threads []codexsdk.Thread) {
	if len(threads) == 0 {
		fmt.Fprintln(w, "No threads.")

		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tCWD\tPREVIEW")

	for _, th := range threads {
		created := ""
		if th.CreatedAt > 0 {
			created = time.Unix(th.CreatedAt, 0).Format(time.DateTime)
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", th.ID, created, th.Cwd, preview(th.Preview, 60))
	}

	tw.Flush()
}

// preview shortens s to at most n runes on one line.
func preview(s string, n int) string {
	runes := []rune(s)
	for i, r := range runes {
		if r == '\n' || r == '\r' {
			runes[i] = ' '
		}
	}

	if len(runes) <= n {
		return string(runes)
	}

	return string(runes[:n-1]) + "…"
}
