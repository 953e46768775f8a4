// Command codex-bridge runs prompts against a codex app-server and inspects
// its threads, models and MCP servers.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	codexsdk "github.com/BjornMelin/codex-sdk-agents"
)

var (
	codexPath string
	listenURL string
	cwd       string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "codex-bridge",
	Short: "Drive the Codex app-server from the command line",
	Long: `codex-bridge talks to ` + "`codex app-server`" + ` over JSON-RPC. It spawns the
server over stdio, or connects to one started with --listen.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&codexPath, "codex", "", "Path to the codex binary (searched in PATH if unset)")
	rootCmd.PersistentFlags().StringVar(&listenURL, "listen", "", "Connect to a running app-server at this ws:// URL")
	rootCmd.PersistentFlags().StringVar(&cwd, "cwd", "", "Working directory for codex (default: current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newLogger creates a structured logger with the configured verbosity.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	return codexsdk.NewTextLogger(os.Stderr, level)
}

// connectionOptions are the options every subcommand shares.
func connectionOptions() []codexsdk.Option {
	opts := []codexsdk.Option{
		codexsdk.WithLogger(newLogger()),
		codexsdk.WithClientInfo("codex-bridge", "Codex Bridge", "0.1.0"),
	}

	if codexPath != "" {
		opts = append(opts, codexsdk.WithCodexPath(codexPath))
	}

	if listenURL != "" {
		opts = append(opts, codexsdk.WithListenURL(listenURL))
	}

	if cwd != "" {
		opts = append(opts, codexsdk.WithCwd(cwd))
	}

	if verbose {
		log := newLogger()
		opts = append(opts, codexsdk.WithStderr(func(line string) {
			log.Debug("app-server stderr", "line", line)
		}))
	}

	return opts
}

// openBridge connects a bare bridge for the inspection commands.
func openBridge(ctx context.Context) (*codexsdk.Bridge, error) {
	return codexsdk.NewBridge(ctx, connectionOptions()...)
}
