package codexsdk

import (
	"context"

	"github.com/BjornMelin/codex-sdk-agents/internal/appserver"
	"github.com/BjornMelin/codex-sdk-agents/internal/models"
)

// Re-export model types from internal/models.

// Model holds metadata for a single codex model.
type Model = models.Model

// ModelCapability represents a model capability such as vision or tool use.
type ModelCapability = models.Capability

// ModelCostTier represents a relative cost tier.
type ModelCostTier = models.CostTier

// DefaultModel is used when neither a run nor the backend names a model.
const DefaultModel = models.DefaultModel

// Model capability constants.
const (
	// ModelCapVision indicates the model supports image inputs.
	ModelCapVision = models.CapVision
	// ModelCapToolUse indicates the model can call tools and run commands.
	ModelCapToolUse = models.CapToolUse
	// ModelCapReasoning indicates the model accepts a reasoning effort.
	ModelCapReasoning = models.CapReasoning
	// ModelCapStructuredOutput indicates the model honors an output schema.
	ModelCapStructuredOutput = models.CapStructuredOutput
)

// Model cost tier constants.
const (
	ModelCostTierHigh   = models.CostTierHigh
	ModelCostTierMedium = models.CostTierMedium
	ModelCostTierLow    = models.CostTierLow
)

// Models returns a copy of all known codex models.
func Models() []Model {
	return models.All()
}

// ModelByID looks up a model by ID, alias, or dated prefix.
// Returns nil if no model is found.
func ModelByID(id string) *Model {
	return models.ByID(id)
}

// ResolveModel returns the model id a run would use for model: aliases
// are expanded and an empty model selects DefaultModel.
func ResolveModel(model string) string {
	return models.Resolve(model, "")
}

// ModelsByCostTier returns all models matching the given cost tier.
func ModelsByCostTier(tier ModelCostTier) []Model {
	return models.ByCostTier(tier)
}

// ModelCapabilities returns capability strings for the given model ID.
// Returns nil if the model is not found.
func ModelCapabilities(modelID string) []string {
	m := models.ByID(modelID)
	if m == nil {
		return nil
	}

	return m.CapabilityStrings()
}

// ListModels asks the app-server behind bridge for its models, following
// pagination, and merges the result with the local catalog.
func ListModels(ctx context.Context, bridge *Bridge) ([]Model, error) {
	var (
		remote []appserver.Model
		cursor *string
	)

	for {
		resp, err := bridge.ModelList(ctx, &appserver.ListParams{Cursor: cursor})
		if err != nil {
			return nil, err
		}

		remote = append(remote, resp.Data...)

		if resp.NextCursor == nil || *resp.NextCursor == "" {
			break
		}

		cursor = resp.NextCursor
	}

	return models.Merge(remote), nil
}
