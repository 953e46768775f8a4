package config

import (
	"fmt"
	"strings"

	"github.com/BjornMelin/codex-sdk-agents/internal/errors"
)

// ApprovalPolicy controls when codex asks before running commands.
type ApprovalPolicy string

const (
	ApprovalUntrusted ApprovalPolicy = "untrusted"
	ApprovalOnFailure ApprovalPolicy = "on-failure"
	ApprovalOnRequest ApprovalPolicy = "on-request"
	ApprovalNever     ApprovalPolicy = "never"
)

// SandboxMode controls file system and network access for a thread.
type SandboxMode string

const (
	SandboxReadOnly         SandboxMode = "read-only"
	SandboxWorkspaceWrite   SandboxMode = "workspace-write"
	SandboxDangerFullAccess SandboxMode = "danger-full-access"
)

// ReasoningEffort is the requested reasoning depth. Support is model
// dependent; the app-server rejects values a model does not accept.
type ReasoningEffort string

const (
	EffortNone    ReasoningEffort = "none"
	EffortMinimal ReasoningEffort = "minimal"
	EffortLow     ReasoningEffort = "low"
	EffortMedium  ReasoningEffort = "medium"
	EffortHigh    ReasoningEffort = "high"
	EffortXHigh   ReasoningEffort = "xhigh"
)

// ReasoningSummary controls reasoning summaries emitted during a turn.
type ReasoningSummary string

const (
	SummaryAuto     ReasoningSummary = "auto"
	SummaryConcise  ReasoningSummary = "concise"
	SummaryDetailed ReasoningSummary = "detailed"
	SummaryNone     ReasoningSummary = "none"
)

// ThreadMode selects whether runs on one backend share a thread.
type ThreadMode string

const (
	// ThreadPersistent keeps context across runs on the same backend.
	ThreadPersistent ThreadMode = "persistent"
	// ThreadStateless starts a fresh thread for every run.
	ThreadStateless ThreadMode = "stateless"
)

// NormalizeApprovalPolicy maps snake_case spellings used by codex config
// files to the kebab-case wire values.
//
//   - "on_failure" -> "on-failure"
//   - "on_request" -> "on-request"
func NormalizeApprovalPolicy(p ApprovalPolicy) ApprovalPolicy {
	return ApprovalPolicy(strings.ReplaceAll(strings.ToLower(string(p)), "_", "-"))
}

// NormalizeSandboxMode maps snake_case spellings to the kebab-case wire values.
func NormalizeSandboxMode(m SandboxMode) SandboxMode {
	return SandboxMode(strings.ReplaceAll(strings.ToLower(string(m)), "_", "-"))
}

// Valid reports whether p is a known approval policy.
func (p ApprovalPolicy) Valid() bool {
	switch p {
	case ApprovalUntrusted, ApprovalOnFailure, ApprovalOnRequest, ApprovalNever:
		return true
	default:
		return false
	}
}

// Valid reports whether m is a known sandbox mode.
func (m SandboxMode) Valid() bool {
	switch m {
	case SandboxReadOnly, SandboxWorkspaceWrite, SandboxDangerFullAccess:
		return true
	default:
		return false
	}
}

// Valid reports whether e is a known reasoning effort.
func (e ReasoningEffort) Valid() bool {
	switch e {
	case EffortNone, EffortMinimal, EffortLow, EffortMedium, EffortHigh, EffortXHigh:
		return true
	default:
		return false
	}
}

// Valid reports whether s is a known reasoning summary mode.
func (s ReasoningSummary) Valid() bool {
	switch s {
	case SummaryAuto, SummaryConcise, SummaryDetailed, SummaryNone:
		return true
	default:
		return false
	}
}

// Valid reports whether m is a known thread mode.
func (m ThreadMode) Valid() bool {
	return m == ThreadPersistent || m == ThreadStateless
}

func invalidEnum(field string, value any) error {
	return &errors.ConfigError{Field: field, Err: fmt.Errorf("unknown value %q", value)}
}
