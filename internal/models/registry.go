package models

var codexCapabilities = []Capability{
	CapToolUse,
	CapReasoning,
	CapStructuredOutput,
	CapVision,
}

var (
	fullEfforts     = []string{"low", "medium", "high", "xhigh"}
	standardEfforts = []string{"minimal", "low", "medium", "high"}
)

// registry is the internal list of known Codex models. Only the latest model
// of a family gets the short alias.
var registry = []Model{
	{
		ID:               "gpt-5.2-codex",
		Name:             "GPT-5.2 Codex",
		Aliases:          []string{"codex"},
		CostTier:         CostTierHigh,
		Capabilities:     codexCapabilities,
		ReasoningEfforts: fullEfforts,
		DefaultEffort:    "medium",
		ContextWindow:    400_000,
		IsDefault:        true,
	},
	{
		ID:               "gpt-5.1-codex-max",
		Name:             "GPT-5.1 Codex Max",
		CostTier:         CostTierHigh,
		Capabilities:     codexCapabilities,
		ReasoningEfforts: fullEfforts,
		DefaultEffort:    "medium",
		ContextWindow:    400_000,
	},
	{
		ID:               "gpt-5.1-codex-mini",
		Name:             "GPT-5.1 Codex Mini",
		Aliases:          []string{"codex-mini"},
		CostTier:         CostTierLow,
		Capabilities:     codexCapabilities,
		ReasoningEfforts: []string{"medium", "high"},
		DefaultEffort:    "medium",
		ContextWindow:    400_000,
	},
	{
		ID:               "gpt-5.1-codex",
		Name:             "GPT-5.1 Codex",
		CostTier:         CostTierMedium,
		Capabilities:     codexCapabilities,
		ReasoningEfforts: []string{"low", "medium", "high"},
		DefaultEffort:    "medium",
		ContextWindow:    400_000,
	},
	{
		ID:               "gpt-5.2",
		Name:             "GPT-5.2",
		Aliases:          []string{"gpt-5"},
		CostTier:         CostTierMedium,
		Capabilities:     codexCapabilities,
		ReasoningEfforts: append([]string{"none"}, fullEfforts...),
		DefaultEffort:    "medium",
		ContextWindow:    400_000,
	},
	{
		ID:               "gpt-5.1",
		Name:             "GPT-5.1",
		CostTier:         CostTierMedium,
		Capabilities:     codexCapabilities,
		ReasoningEfforts: standardEfforts,
		DefaultEffort:    "medium",
		ContextWindow:    400_000,
	},
}
