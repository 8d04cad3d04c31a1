// Package ledger owns subject point balances and the append-only grant
// record.
//
// Core invariant: at most one grant ever exists per (rule, event) pair.
// GrantExists and RecordGrant are individually consistent, and RecordGrant
// re-checks the pair under its own lock so the check-then-act sequence is
// atomic even if two ingestions race on the same event id. Balance
// increment and grant append happen under the same critical section; a
// failed record leaves the ledger unchanged.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/fieldworks/meritd/internal/types"
)

type grantKey struct {
	rule  types.RuleID
	event types.EventID
}

// Ledger is a mutex-guarded in-memory balance and grant store.
type Ledger struct {
	mu       sync.RWMutex
	subjects map[types.SubjectID]types.Subject
	grants   []types.Grant
	byKey    map[grantKey]types.GrantID

	// now is swappable for deterministic grant timestamps in tests.
	now func() time.Time
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		subjects: make(map[types.SubjectID]types.Subject),
		byKey:    make(map[grantKey]types.GrantID),
		now:      time.Now,
	}
}

// AddSubject registers a subject, typically from the bootstrap loader.
// An existing subject with the same id is overwritten.
func (l *Ledger) AddSubject(s types.Subject) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subjects[s.ID] = s
}

// GetSubject returns the subject with the given id.
func (l *Ledger) GetSubject(ctx context.Context, id types.SubjectID) (types.Subject, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s, ok := l.subjects[id]
	if !ok {
		return types.Subject{}, types.ErrSubjectNotFound
	}
	return s, nil
}

// GrantExists reports whether a grant was already recorded for the pair.
func (l *Ledger) GrantExists(ctx context.Context, ruleID types.RuleID, eventID types.EventID) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.byKey[grantKey{ruleID, eventID}]
	return ok, nil
}

// RecordGrant appends a grant and increments the subject's balance in one
// critical section. Returns ErrDuplicateGrant if the (rule, event) pair was
// already granted and ErrSubjectNotFound if the subject is unknown; in both
// cases the ledger is unchanged.
func (l *Ledger) RecordGrant(ctx context.Context, ruleID types.RuleID, eventID types.EventID, subjectID types.SubjectID, points int) (types.Grant, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := grantKey{ruleID, eventID}
	if _, ok := l.byKey[key]; ok {
		return types.Grant{}, types.ErrDuplicateGrant
	}
	subject, ok := l.subjects[subjectID]
	if !ok {
		return types.Grant{}, types.ErrSubjectNotFound
	}

	grant := types.Grant{
		ID:        types.NewGrantID(),
		RuleID:    ruleID,
		EventID:   eventID,
		SubjectID: subjectID,
		Points:    points,
		Timestamp: l.now().UTC(),
	}

	l.grants = append(l.grants, grant)
	l.byKey[key] = grant.ID
	subject.PointBalance += points
	l.subjects[subjectID] = subject

	return grant, nil
}

// Grants returns a copy of the grant record in append order.
func (l *Ledger) Grants(ctx context.Context) ([]types.Grant, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]types.Grant, len(l.grants))
	copy(out, l.grants)
	return out, nil
}
