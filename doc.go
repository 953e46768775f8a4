// Package codexsdk drives the Codex CLI app-server (`codex app-server`)
// from Go.
//
// The app-server speaks JSON-RPC over newline-delimited JSON on its stdio
// (or over a WebSocket with --listen). This package manages that
// connection, keeps one thread alive across runs and turns the server's
// notifications into a small set of typed events.
//
// # Basic Usage
//
// For a single prompt, use Run:
//
//	result, err := codexsdk.Run(ctx, "Summarize README.md",
//	    codexsdk.WithCwd(repoDir),
//	    codexsdk.WithSandboxMode(codexsdk.SandboxReadOnly),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println(result.Text)
//
// To watch the run as it happens, use Query:
//
//	for ev, err := range codexsdk.Query(ctx, "Fix the failing test") {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    switch e := ev.(type) {
//	    case codexsdk.MessageDeltaEvent:
//	        fmt.Print(e.TextDelta)
//	    case codexsdk.CommandExecutedEvent:
//	        fmt.Printf("\n$ %s\n", e.Command)
//	    }
//	}
//
// # Multi-turn Sessions
//
// A Backend keeps its thread between runs, so later prompts see earlier
// ones. WithBackend manages its lifetime:
//
//	err := codexsdk.WithBackend(ctx, func(b codexsdk.Backend) error {
//	    if _, err := b.Run(ctx, "Read the package docs", nil); err != nil {
//	        return err
//	    }
//
//	    result, err := b.Run(ctx, "Now write an example", nil)
//	    if err != nil {
//	        return err
//	    }
//
//	    fmt.Println(result.Text)
//
//	    return nil
//	}, codexsdk.WithCwd(repoDir))
//
// Changing the working directory, codex path or environment between runs
// restarts the app-server and resumes the same thread. Switching only the
// model reuses the connection.
//
// # Approvals
//
// Without a handler every approval is declined. Install one with
// WithServerRequestHandler:
//
//	codexsdk.WithServerRequestHandler(codexsdk.ServerRequestHandlerFunc(
//	    func(ctx context.Context, req *codexsdk.ServerRequest) (any, error) {
//	        if req.Method == codexsdk.RequestCommandExecutionApproval {
//	            return codexsdk.ApprovalResponse{Decision: codexsdk.DecisionAccept}, nil
//	        }
//
//	        return nil, nil
//	    },
//	))
//
// # Tools
//
// MCP servers reach codex as thread config. Add external servers with
// WithMCPServer, serve Go functions with WithSDKMCPServer or WithSDKTools,
// or route bundles per workflow step with WithToolResolver and WithStep.
//
// # Logging
//
// Pass an *slog.Logger with WithLogger. Logging is silent by default.
//
// # Error Handling
//
// Errors are typed and match with errors.AsType or errors.Is:
//
//	result, err := codexsdk.Run(ctx, prompt)
//	if err != nil {
//	    if nf, ok := errors.AsType[*codexsdk.CLINotFoundError](err); ok {
//	        log.Fatalf("codex not installed, searched: %v", nf.SearchedPaths)
//	    }
//
//	    if errors.Is(err, codexsdk.ErrConnectionClosed) {
//	        log.Fatal("app-server exited mid-turn")
//	    }
//
//	    log.Fatal(err)
//	}
//
// Cancelling the context interrupts the turn; the run then returns the
// text gathered so far without an error.
//
// # Requirements
//
// The codex binary must be on PATH or in a common install location. Use
// WithCodexPath to point at it explicitly.
package codexsdk
