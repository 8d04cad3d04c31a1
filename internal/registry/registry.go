// Package registry provides the in-memory rule store.
//
// CRUD over rules keyed by generated UUIDv7 identifiers. Iteration order is
// insertion order and stays stable across updates: replacing a rule keeps
// its slot, deleting compacts the order. Only the id is unique; rule names
// may repeat.
//
// The registry owns its rules exclusively. Returned rules are copies;
// condition trees are immutable once attached, so sharing the tree pointer
// between copies is safe.
package registry

import (
	"context"
	"sync"

	"github.com/fieldworks/meritd/internal/rules"
	"github.com/fieldworks/meritd/internal/types"
)

// Registry is a mutex-guarded in-memory rule store.
type Registry struct {
	mu    sync.RWMutex
	byID  map[types.RuleID]types.Rule
	order []types.RuleID
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byID: make(map[types.RuleID]types.Rule),
	}
}

// List returns all rules in insertion order.
func (r *Registry) List(ctx context.Context) ([]types.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.Rule, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out, nil
}

// ListByEventType returns rules scoped to eventType, in insertion order.
func (r *Registry) ListByEventType(ctx context.Context, eventType string) ([]types.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []types.Rule
	for _, id := range r.order {
		if rule := r.byID[id]; rule.EventType == eventType {
			out = append(out, rule)
		}
	}
	return out, nil
}

// Get returns the rule with the given id.
func (r *Registry) Get(ctx context.Context, id types.RuleID) (types.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.byID[id]
	if !ok {
		return types.Rule{}, types.ErrRuleNotFound
	}
	return rule, nil
}

// Create validates the payload and stores a new rule under a fresh id.
func (r *Registry) Create(ctx context.Context, name, eventType string, cond types.Condition, points int) (types.Rule, error) {
	if err := rules.ValidateRule(name, eventType, cond, points); err != nil {
		return types.Rule{}, err
	}

	rule := types.Rule{
		ID:        types.NewRuleID(),
		Name:      name,
		EventType: eventType,
		Condition: cond,
		Points:    points,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[rule.ID] = rule
	r.order = append(r.order, rule.ID)
	return rule, nil
}

// Replace swaps the whole rule under an existing id. Full replacement, no
// partial patch semantics; the identifier and iteration slot are preserved.
func (r *Registry) Replace(ctx context.Context, id types.RuleID, name, eventType string, cond types.Condition, points int) (types.Rule, error) {
	if err := rules.ValidateRule(name, eventType, cond, points); err != nil {
		return types.Rule{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return types.Rule{}, types.ErrRuleNotFound
	}
	rule := types.Rule{
		ID:        id,
		Name:      name,
		EventType: eventType,
		Condition: cond,
		Points:    points,
	}
	r.byID[id] = rule
	return rule, nil
}

// Delete removes the rule with the given id.
func (r *Registry) Delete(ctx context.Context, id types.RuleID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return types.ErrRuleNotFound
	}
	delete(r.byID, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
