package scan

import "sync"

// TierProvider constructs the ordered module set for one tier. Providers are
// resolved only when their tier is reachable for a run, so low-privilege
// requests never pay for the engineer or admin collections.
type TierProvider func() []Module

// Registry maps tiers to their module providers. Each provider is invoked at
// most once per registry; the resolved set is reused across runs.
type Registry struct {
	providers map[Mode]TierProvider

	mu       sync.Mutex
	resolved map[Mode][]Module
}

// NewRegistry builds a registry from per-tier providers. Nil providers yield
// empty tiers.
func NewRegistry(business, engineer, admin TierProvider) *Registry {
	return &Registry{
		providers: map[Mode]TierProvider{
			ModeBusiness:   business,
			ModeEngineer:   engineer,
			ModeSuperAdmin: admin,
		},
		resolved: make(map[Mode][]Module),
	}
}

// Tier returns the module set for tier, resolving the provider on first use.
func (r *Registry) Tier(tier Mode) []Module {
	r.mu.Lock()
	defer r.mu.Unlock()

	if modules, ok := r.resolved[tier]; ok {
		return modules
	}
	provider := r.providers[tier]
	if provider == nil {
		r.resolved[tier] = nil
		return nil
	}
	modules := provider()
	r.resolved[tier] = modules
	return modules
}
