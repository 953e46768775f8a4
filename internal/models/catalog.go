// Package models provides a catalog of known Codex models and their
// capabilities. The live app-server list, when available, takes precedence;
// see Merge.
package models

import (
	"slices"
	"strings"

	"github.com/BjornMelin/codex-sdk-agents/internal/appserver"
)

// DefaultModel is used when neither the run nor the backend names a model.
const DefaultModel = "gpt-5.2-codex"

// Capability represents a model capability such as tool use.
type Capability string

const (
	// CapToolUse indicates the model can call tools and run commands.
	CapToolUse Capability = "tool-use"
	// CapReasoning indicates the model accepts a reasoning effort.
	CapReasoning Capability = "reasoning"
	// CapStructuredOutput indicates the model honors an output schema.
	CapStructuredOutput Capability = "structured-output"
	// CapVision indicates the model accepts image inputs.
	CapVision Capability = "vision"
)

// CostTier represents a relative cost tier.
type CostTier string

const (
	CostTierHigh   CostTier = "high"
	CostTierMedium CostTier = "medium"
	CostTierLow    CostTier = "low"
)

// Model holds metadata for a single Codex model.
type Model struct {
	// ID is the model identifier passed to thread/start and turn/start.
	ID string
	// Name is the human-readable display name.
	Name string
	// Aliases are shorthand names accepted by ByID.
	Aliases []string
	// CostTier is the relative cost tier for this model.
	CostTier CostTier
	// Capabilities lists what the model supports.
	Capabilities []Capability
	// ReasoningEfforts lists the accepted reasoning efforts.
	ReasoningEfforts []string
	// DefaultEffort is the effort used when a run sets none.
	DefaultEffort string
	// ContextWindow is the context window size in tokens.
	ContextWindow int
	// IsDefault marks the model the server picks when none is given.
	IsDefault bool
}

// HasCapability reports whether the model supports the given capability.
func (m Model) HasCapability(capability Capability) bool {
	return slices.Contains(m.Capabilities, capability)
}

// SupportsEffort reports whether effort is accepted. An empty effort is
// always accepted.
func (m Model) SupportsEffort(effort string) bool {
	return effort == "" || slices.Contains(m.ReasoningEfforts, effort)
}

// CapabilityStrings returns capabilities as a string slice.
func (m Model) CapabilityStrings() []string {
	out := make([]string, 0, len(m.Capabilities))
	for _, c := range m.Capabilities {
		out = append(out, string(c))
	}

	return out
}

// All returns a copy of every known model in the catalog.
func All() []Model {
	out := make([]Model, len(registry))
	copy(out, registry)

	return out
}

// ByID looks up a model by its identifier. It checks in order:
//  1. Exact match on ID
//  2. Alias match
//  3. Longest known ID that prefixes id (for dated snapshots)
//
// Returns nil if no model is found.
func ByID(id string) *Model {
	if id == "" {
		return nil
	}

	for i := range registry {
		if registry[i].ID == id {
			m := registry[i]

			return &m
		}
	}

	for i := range registry {
		if slices.Contains(registry[i].Aliases, id) {
			m := registry[i]

			return &m
		}
	}

	best := -1

	for i := range registry {
		if strings.HasPrefix(id, registry[i].ID+"-") &&
			(best < 0 || len(registry[i].ID) > len(registry[best].ID)) {
			best = i
		}
	}

	if best < 0 {
		return nil
	}

	m := registry[best]

	return &m
}

// Resolve returns the model a run should use: explicit, then fallback, then
// DefaultModel. Aliases are expanded.
func Resolve(explicit, fallback string) string {
	for _, id := range []string{explicit, fallback} {
		if id == "" {
			continue
		}

		if m := ByID(id); m != nil && slices.Contains(m.Aliases, id) {
			return m.ID
		}

		return id
	}

	return DefaultModel
}

// ByCostTier returns all models matching the given cost tier.
func ByCostTier(tier CostTier) []Model {
	var out []Model

	for _, m := range registry {
		if m.CostTier == tier {
			out = append(out, m)
		}
	}

	return out
}

// Merge overlays a model/list result on the catalog. Server entries win and
// keep the server's order; catalog metadata fills what the server omits.
// Catalog models the server does not list are dropped.
func Merge(remote []appserver.Model) []Model {
	out := make([]Model, 0, len(remote))

	for _, r := range remote {
		id := r.Model
		if id == "" {
			id = r.ID
		}

		m := Model{ID: id}
		if known := ByID(id); known != nil {
			m = *known
			m.ID = id
		}

		if r.DisplayName != "" {
			m.Name = r.DisplayName
		}

		if len(r.SupportedReasoningEfforts) > 0 {
			m.ReasoningEfforts = make([]string, 0, len(r.SupportedReasoningEfforts))
			for _, e := range r.SupportedReasoningEfforts {
				m.ReasoningEfforts = append(m.ReasoningEfforts, e.ReasoningEffort)
			}

			if !m.HasCapability(CapReasoning) {
				m.Capabilities = append(slices.Clone(m.Capabilities), CapReasoning)
			}
		}

		if r.DefaultReasoningEffort != "" {
			m.DefaultEffort = r.DefaultReasoningEffort
		}

		m.IsDefault = r.IsDefault
		out = append(out, m)
	}

	return out
}
