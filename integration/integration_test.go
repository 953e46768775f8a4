//go:build integration

package integration

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	codexsdk "github.com/BjornMelin/codex-sdk-agents"
)

// skipIfCLINotInstalled skips the test if the error indicates codex is not found.
func skipIfCLINotInstalled(t *testing.T, err error) {
	t.Helper()

	if _, ok := errors.AsType[*codexsdk.CLINotFoundError](err); ok {
		t.Skip("codex CLI not installed")
	}
}

// contains42 checks if a string contains "42" in various formats.
func contains42(s string) bool {
	lower := strings.ToLower(s)

	return strings.Contains(lower, "42") ||
		strings.Contains(lower, "forty-two") ||
		strings.Contains(lower, "forty two")
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	return ctx
}

// baseOptions keep integration runs read-only and repository agnostic.
func baseOptions(t *testing.T) []codexsdk.Option {
	t.Helper()

	return []codexsdk.Option{
		codexsdk.WithCwd(t.TempDir()),
		codexsdk.WithSandboxMode(codexsdk.SandboxReadOnly),
		codexsdk.WithApprovalPolicy(codexsdk.ApprovalNever),
		codexsdk.WithSkipGitRepoCheck(true),
		codexsdk.WithReasoningEffort(codexsdk.EffortLow),
	}
}
