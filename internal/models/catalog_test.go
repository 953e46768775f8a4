package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BjornMelin/codex-sdk-agents/internal/appserver"
)

func TestAll(t *testing.T) {
	all := All()
	require.NotEmpty(t, all, "catalog must not be empty")

	defaults := 0

	for _, m := range all {
		assert.NotEmpty(t, m.ID, "model ID must not be empty")
		assert.NotEmpty(t, m.Name, "model Name must not be empty")
		assert.NotEmpty(t, m.CostTier, "model CostTier must not be empty")
		assert.NotEmpty(t, m.Capabilities, "model Capabilities must not be empty")
		assert.Greater(t, m.ContextWindow, 0, "model ContextWindow must be positive")
		assert.True(t, m.SupportsEffort(m.DefaultEffort), "%s default effort must be supported", m.ID)

		if m.IsDefault {
			defaults++

			assert.Equal(t, DefaultModel, m.ID)
		}
	}

	assert.Equal(t, 1, defaults)
}

func TestAll_ReturnsCopy(t *testing.T) {
	a := All()
	b := All()
	a[0].ID = "mutated"

	assert.NotEqual(t, "mutated", b[0].ID, "All() must return independent copies")
}

func TestNoDuplicateIDs(t *testing.T) {
	seen := make(map[string]bool, len(registry))

	for _, m := range registry {
		assert.False(t, seen[m.ID], "duplicate model ID: %s", m.ID)
		seen[m.ID] = true
	}
}

func TestByID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantID  string
		wantNil bool
	}{
		{name: "exact match", input: "gpt-5.2-codex", wantID: "gpt-5.2-codex"},
		{name: "alias match codex", input: "codex", wantID: "gpt-5.2-codex"},
		{name: "alias match mini", input: "codex-mini", wantID: "gpt-5.1-codex-mini"},
		{name: "dated snapshot", input: "gpt-5.2-codex-2026-01-15", wantID: "gpt-5.2-codex"},
		{name: "longest prefix wins", input: "gpt-5.1-codex-mini-2026", wantID: "gpt-5.1-codex-mini"},
		{name: "not a dash boundary", input: "gpt-5.25", wantNil: true},
		{name: "not found", input: "gpt-4o", wantNil: true},
		{name: "empty string", input: "", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ByID(tt.input)
			if tt.wantNil {
				assert.Nil(t, got)

				return
			}

			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestResolve(t *testing.T) {
	assert.Equal(t, DefaultModel, Resolve("", ""))
	assert.Equal(t, "gpt-5.1", Resolve("", "gpt-5.1"))
	assert.Equal(t, "o4-mini", Resolve("o4-mini", "gpt-5.1"))
	assert.Equal(t, "gpt-5.1-codex-mini", Resolve("codex-mini", ""))
	assert.Equal(t, "gpt-5.2-codex", Resolve("", "codex"))
}

func TestByCostTier(t *testing.T) {
	tests := []struct {
		name    string
		tier    CostTier
		wantMin int
	}{
		{name: "high tier", tier: CostTierHigh, wantMin: 1},
		{name: "medium tier", tier: CostTierMedium, wantMin: 1},
		{name: "low tier", tier: CostTierLow, wantMin: 1},
		{name: "unknown tier", tier: CostTier("unknown"), wantMin: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ByCostTier(tt.tier)
			assert.GreaterOrEqual(t, len(got), tt.wantMin)

			for _, m := range got {
				assert.Equal(t, tt.tier, m.CostTier)
			}
		})
	}
}

func TestSupportsEffort(t *testing.T) {
	m := ByID("gpt-5.1-codex-mini")
	require.NotNil(t, m)

	assert.True(t, m.SupportsEffort(""))
	assert.True(t, m.SupportsEffort("high"))
	assert.False(t, m.SupportsEffort("xhigh"))
}

func TestCapabilityStrings(t *testing.T) {
	m := ByID(DefaultModel)
	require.NotNil(t, m)

	assert.Equal(t, []string{"tool-use", "reasoning", "structured-output", "vision"}, m.CapabilityStrings())
	assert.False(t, m.HasCapability(Capability("nonexistent")))
}

func TestMerge(t *testing.T) {
	merged := Merge([]appserver.Model{
		{
			ID:                     "gpt-5.1-codex-mini",
			Model:                  "gpt-5.1-codex-mini",
			DisplayName:            "codex mini",
			DefaultReasoningEffort: "high",
		},
		{
			ID:    "brand-new",
			Model: "brand-new",
			SupportedReasoningEfforts: []appserver.ReasoningEffortOption{
				{ReasoningEffort: "low"}, {ReasoningEffort: "high"},
			},
			IsDefault: true,
		},
	})

	require.Len(t, merged, 2)

	mini := merged[0]
	assert.Equal(t, "codex mini", mini.Name)
	assert.Equal(t, CostTierLow, mini.CostTier)
	assert.Equal(t, "high", mini.DefaultEffort)
	assert.False(t, mini.IsDefault)

	fresh := merged[1]
	assert.Equal(t, "brand-new", fresh.ID)
	assert.Equal(t, []string{"low", "high"}, fresh.ReasoningEfforts)
	assert.True(t, fresh.HasCapability(CapReasoning))
	assert.True(t, fresh.IsDefault)

	// The catalog entry itself is untouched.
	assert.Equal(t, "GPT-5.1 Codex Mini", ByID("gpt-5.1-codex-mini").Name)
}
