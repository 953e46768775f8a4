// Package cli locates the codex binary and builds the app-server command.
//
// # Discovery
//
//	discoverer := cli.NewDiscoverer(&cli.Config{
//	    CliPath: "",           // Optional explicit path
//	    Logger:  slog.Default(),
//	})
//	codexPath, err := discoverer.Discover(ctx)
//
// Discovery searches in the following order:
//  1. Explicit path in Config.CliPath (if provided)
//  2. System PATH
//  3. Common installation directories (/usr/local/bin, /opt/homebrew/bin,
//     /usr/bin, ~/.local/bin, ~/.npm-global/bin, ~/.cargo/bin)
//
// The version reported by `codex --version` is compared against
// MinimumVersion and a warning is logged when it is older. Set
// Config.SkipVersionCheck or CODEX_SDK_SKIP_VERSION_CHECK to skip the probe.
//
// # Command Building
//
//	cmd := cli.BuildCommand(codexPath, cwd, envOverrides, nil)
package cli
