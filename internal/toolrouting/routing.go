package toolrouting

import (
	"maps"
	"slices"
	"sync"
)

// StepAddress identifies a workflow step.
type StepAddress struct {
	WorkflowID string `json:"workflowId" yaml:"workflow"`
	RoleID     string `json:"roleId" yaml:"role"`
	StepID     string `json:"stepId" yaml:"step"`
}

func (a StepAddress) key() string {
	return a.WorkflowID + "\x00" + a.RoleID + "\x00" + a.StepID
}

// String renders the address as workflow/role/step.
func (a StepAddress) String() string {
	return a.WorkflowID + "/" + a.RoleID + "/" + a.StepID
}

// Table maps workflow -> role -> step -> ordered bundle ids.
type Table map[string]map[string]map[string][]string

// Merge returns base with override applied. Steps named in override replace
// the same steps in base; other steps of the role are kept. Neither input
// is modified.
func Merge(base, override Table) Table {
	merged := make(Table, len(base)+len(override))
	for workflowID, roles := range base {
		merged[workflowID] = cloneRoles(roles)
	}

	for workflowID, roles := range override {
		if roles == nil {
			continue
		}

		target := merged[workflowID]
		if target == nil {
			target = make(map[string]map[string][]string, len(roles))
			merged[workflowID] = target
		}

		for roleID, steps := range roles {
			if steps == nil {
				continue
			}

			stepMap := target[roleID]
			if stepMap == nil {
				stepMap = make(map[string][]string, len(steps))
				target[roleID] = stepMap
			}

			for stepID, bundles := range steps {
				stepMap[stepID] = slices.Clone(bundles)
			}
		}
	}

	return merged
}

func cloneRoles(roles map[string]map[string][]string) map[string]map[string][]string {
	out := make(map[string]map[string][]string, len(roles))
	for roleID, steps := range roles {
		stepMap := make(map[string][]string, len(steps))
		for stepID, bundles := range steps {
			stepMap[stepID] = slices.Clone(bundles)
		}

		out[roleID] = stepMap
	}

	return out
}

// Resolve returns the bundle ids routed to addr. Steps without an explicit
// mapping get no bundles.
func (t Table) Resolve(addr StepAddress) []string {
	bundles := t[addr.WorkflowID][addr.RoleID][addr.StepID]
	if bundles == nil {
		return []string{}
	}

	return bundles
}

// Workflows returns the workflow ids in the table, sorted.
func (t Table) Workflows() []string {
	return slices.Sorted(maps.Keys(t))
}

// Router resolves bundle ids per step and caches the answers.
// Callers must not modify returned slices.
type Router struct {
	table Table

	mu    sync.Mutex
	cache map[string][]string
}

// NewRouter creates a router over table with optional overrides applied.
func NewRouter(table, overrides Table) *Router {
	if overrides != nil {
		table = Merge(table, overrides)
	}

	return &Router{
		table: table,
		cache: make(map[string][]string, 16),
	}
}

// Resolve returns the bundle ids for addr, caching the result per step.
func (r *Router) Resolve(addr StepAddress) []string {
	key := addr.key()

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.cache[key]; ok {
		return cached
	}

	bundles := r.table.Resolve(addr)
	r.cache[key] = bundles

	return bundles
}

// Table returns the effective routing table.
func (r *Router) Table() Table {
	return r.table
}
