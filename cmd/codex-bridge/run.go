package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	codexsdk "github.com/BjornMelin/codex-sdk-agents"
)

var (
	runModel     string
	runSandbox   string
	runApproval  string
	runEffort    string
	runTimeout   time.Duration
	runJSON      bool
	runYes       bool
	runSkipGit   bool
	runRouting   string
	runStep      string
	runStateless bool
)

var runCmd = &cobra.Command{
	Use:   "run <prompt>",
	Short: "Run one prompt and stream the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := runOptions()
		if err != nil {
			return err
		}

		prompt := strings.Join(args, " ")

		return runPrompt(cmd.Context(), cmd.OutOrStdout(), prompt, opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runModel, "model", "m", "", "Model id or alias")
	runCmd.Flags().StringVar(&runSandbox, "sandbox", "", "Sandbox mode: read-only, workspace-write, danger-full-access")
	runCmd.Flags().StringVar(&runApproval, "approval", "", "Approval policy: untrusted, on-failure, on-request, never")
	runCmd.Flags().StringVar(&runEffort, "effort", "", "Reasoning effort: none, minimal, low, medium, high, xhigh")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Interrupt the turn after this long")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print every event as a JSON line")
	runCmd.Flags().BoolVarP(&runYes, "yes", "y", false, "Accept every approval request")
	runCmd.Flags().BoolVar(&runSkipGit, "skip-git-repo-check", false, "Allow running outside a git repository")
	runCmd.Flags().StringVar(&runRouting, "routing", "", "Tool routing YAML file")
	runCmd.Flags().StringVar(&runStep, "step", "", "Workflow step as workflow/role/step (requires --routing)")
	runCmd.Flags().BoolVar(&runStateless, "stateless", false, "Start a fresh thread")
}

// runOptions turns the run flags into SDK options.
func runOptions() ([]codexsdk.Option, error) {
	opts := connectionOptions()

	if runModel != "" {
		opts = append(opts, codexsdk.WithModel(runModel))
	}

	if runSandbox != "" {
		opts = append(opts, codexsdk.WithSandboxMode(codexsdk.SandboxMode(runSandbox)))
	}

	if runApproval != "" {
		opts = append(opts, codexsdk.WithApprovalPolicy(codexsdk.ApprovalPolicy(runApproval)))
	}

	if runEffort != "" {
		opts = append(opts, codexsdk.WithReasoningEffort(codexsdk.ReasoningEffort(runEffort)))
	}

	if runTimeout > 0 {
		opts = append(opts, codexsdk.WithTimeout(runTimeout))
	}

	if runSkipGit {
		opts = append(opts, codexsdk.WithSkipGitRepoCheck(true))
	}

	if runStateless {
		opts = append(opts, codexsdk.WithThreadMode(codexsdk.ThreadStateless))
	}

	if runYes {
		opts = append(opts, codexsdk.WithServerRequestHandler(approveAll))
	}

	if runStep != "" {
		if runRouting == "" {
			return nil, errors.New("--step requires --routing")
		}

		step, err := parseStep(runStep)
		if err != nil {
			return nil, err
		}

		registry, err := codexsdk.LoadToolRouting(runRouting)
		if err != nil {
			return nil, err
		}

		opts = append(opts,
			codexsdk.WithToolResolver(registry),
			codexsdk.WithStep(step.WorkflowID, step.RoleID, step.StepID),
		)
	}

	return opts, nil
}

// runPrompt runs prompt and writes its output to w.
func runPrompt(ctx context.Context, w io.Writer, prompt string, opts []codexsdk.Option) error {
	for ev, err := range codexsdk.Query(ctx, prompt, opts...) {
		if err != nil {
			return err
		}

		if runJSON {
			line, err := codexsdk.MarshalEvent(ev)
			if err != nil {
				return err
			}

			fmt.Fprintf(w, "%s\n", line)

			continue
		}

		printEvent(w, ev)
	}

	return nil
}

// printEvent renders the events a person watching a run cares about.
func printEvent(w io.Writer, ev codexsdk.Event) {
	switch e := ev.(type) {
	case codexsdk.MessageDeltaEvent:
		fmt.Fprint(w, e.TextDelta)
	case codexsdk.MessageCompletedEvent:
		fmt.Fprintln(w)
	case codexsdk.CommandExecutedEvent:
		fmt.Fprintf(os.Stderr, "$ %s\n", e.Command)
	case codexsdk.FileChangedEvent:
		fmt.Fprintf(os.Stderr, "~ %s\n", e.Path)
	case codexsdk.TurnFailedEvent:
		fmt.Fprintf(os.Stderr, "turn failed: %s\n", e.Message)
	}
}

// approveAll accepts every approval and leaves user input to the default.
var approveAll = codexsdk.ServerRequestHandlerFunc(
	func(_ context.Context, req *codexsdk.ServerRequest) (any, error) {
		switch req.Method {
		case codexsdk.RequestCommandExecutionApproval, codexsdk.RequestFileChangeApproval:
			return codexsdk.ApprovalResponse{Decision: codexsdk.DecisionAccept}, nil
		case codexsdk.RequestApplyPatchApproval, codexsdk.RequestExecCommandApproval:
			return codexsdk.ReviewResponse{Decision: codexsdk.ReviewApproved}, nil
		default:
			return nil, nil
		}
	},
)

// parseStep parses workflow/role/step.
func parseStep(s string) (codexsdk.StepAddress, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 || slices.Contains(parts, "") {
		return codexsdk.StepAddress{}, fmt.Errorf("invalid step %q: want workflow/role/step", s)
	}

	return codexsdk.StepAddress{WorkflowID: parts[0], RoleID: parts[1], StepID: parts[2]}, nil
}
