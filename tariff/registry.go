/*
registry.go - Operator/site policy selection

PURPOSE:
  Maps (operator, site) to the governing RatePolicy. Operators register one
  generic policy and optionally site-specific variants; a site-restricted
  policy always beats a generic one for its sites. Selection is explicit
  data lookup, never runtime code discovery.
*/
package tariff

import (
	"sync"

	"github.com/groundside/shift-engine/billing"
)

// Registry holds registered rate policies. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	policies map[billing.OperatorID][]*billing.RatePolicy
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{policies: make(map[billing.OperatorID][]*billing.RatePolicy)}
}

// Register adds a policy under its operator.
func (r *Registry) Register(p *billing.RatePolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[p.Operator] = append(r.policies[p.Operator], p)
}

// Lookup selects the policy governing an operator at a site. Site-restricted
// policies win over generic ones. Returns ErrPolicyNotFound when the
// operator is unknown or no registered policy covers the site.
func (r *Registry) Lookup(operator billing.OperatorID, site billing.SiteCode) (*billing.RatePolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var generic *billing.RatePolicy
	for _, p := range r.policies[operator] {
		if !p.AppliesTo(site) {
			continue
		}
		if len(p.Sites) > 0 {
			return p, nil
		}
		if generic == nil {
			generic = p
		}
	}
	if generic != nil {
		return generic, nil
	}
	return nil, billing.ErrPolicyNotFound
}

// Get finds a policy by ID across all operators, nil when absent.
func (r *Registry) Get(id billing.PolicyID) *billing.RatePolicy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ps := range r.policies {
		for _, p := range ps {
			if p.ID == id {
				return p
			}
		}
	}
	return nil
}

// All returns every registered policy, operator by operator.
func (r *Registry) All() []*billing.RatePolicy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*billing.RatePolicy
	for _, ps := range r.policies {
		out = append(out, ps...)
	}
	return out
}

// Operators lists the operator IDs with at least one policy.
func (r *Registry) Operators() []billing.OperatorID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]billing.OperatorID, 0, len(r.policies))
	for op := range r.policies {
		out = append(out, op)
	}
	return out
}
