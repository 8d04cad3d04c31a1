// Package ingest orchestrates event ingestion: subject resolution, rule
// selection, condition evaluation, grant dedup and ledger mutation.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fieldworks/meritd/internal/rules"
	"github.com/fieldworks/meritd/internal/types"
)

/*
 * Ingestion flow for one event:
 *   1. Validate payload shape, resolve the subject; unknown subject rejects
 *      the whole event with no partial effects
 *   2. Select rules whose event type matches, in registry iteration order
 *   3. Per rule, in order: evaluate the condition, then check-and-record
 *      the grant and balance increment
 *   4. Return awarded rule ids in evaluation order
 *
 * Idempotency: re-ingesting the same event id against an unchanged rule set
 * produces the same final balance and never a second grant per (rule,
 * event) pair. Concurrent duplicate delivery is serialized through a keyed
 * mutex per event id, so the ledger's check-then-act dedup cannot race.
 * The mutex map grows by one entry per distinct event id; acceptable for
 * in-memory deployments, the SQL store enforces the same invariant with a
 * unique index.
 *
 * Failure isolation: rules are independent. A judgment capability failure
 * disqualifies only that rule; it is logged, reported in
 * Result.FailedRuleIDs and the remaining rules still run, so a transient
 * oracle outage cannot suppress deterministic rules. Dedup makes retrying
 * the whole event safe afterwards.
 */

// RuleSource yields the rules to evaluate for an event type, in stable
// iteration order. Implemented by internal/registry and internal/core/db.
type RuleSource interface {
	ListByEventType(ctx context.Context, eventType string) ([]types.Rule, error)
}

// Ledger is the balance and grant store the pipeline mutates.
// Implemented by internal/ledger and internal/core/db.
type Ledger interface {
	GetSubject(ctx context.Context, id types.SubjectID) (types.Subject, error)
	GrantExists(ctx context.Context, ruleID types.RuleID, eventID types.EventID) (bool, error)
	RecordGrant(ctx context.Context, ruleID types.RuleID, eventID types.EventID, subjectID types.SubjectID, points int) (types.Grant, error)
}

// Result is the outcome of ingesting one event.
type Result struct {
	// AwardedRuleIDs lists rules granted for this call, in evaluation order.
	AwardedRuleIDs []types.RuleID `json:"awardedRuleIds"`

	// FailedRuleIDs lists rules whose evaluation failed (judgment outage or
	// timeout) and were skipped. Empty on a clean run.
	FailedRuleIDs []types.RuleID `json:"failedRuleIds,omitempty"`
}

// Pipeline ingests events against a rule source and a ledger.
type Pipeline struct {
	source    RuleSource
	ledger    Ledger
	evaluator *rules.Evaluator
	log       zerolog.Logger

	eventMu   map[types.EventID]*sync.Mutex
	eventLock sync.Mutex
}

// New creates a pipeline. The evaluator carries the judgment capability.
func New(source RuleSource, ledger Ledger, evaluator *rules.Evaluator, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		source:    source,
		ledger:    ledger,
		evaluator: evaluator,
		log:       log,
		eventMu:   make(map[types.EventID]*sync.Mutex),
	}
}

// getEventMutex returns the mutex for an event id, creating it on first use.
// Serializes concurrent ingestion of duplicate deliveries of one event.
func (p *Pipeline) getEventMutex(id types.EventID) *sync.Mutex {
	p.eventLock.Lock()
	defer p.eventLock.Unlock()

	if _, ok := p.eventMu[id]; !ok {
		p.eventMu[id] = &sync.Mutex{}
	}
	return p.eventMu[id]
}

// Ingest processes one event and returns the awarded rule ids.
func (p *Pipeline) Ingest(ctx context.Context, event *types.Event) (Result, error) {
	var result Result

	if err := types.ValidateEvent(event); err != nil {
		return result, fmt.Errorf("invalid event: %w", err)
	}

	subject, err := p.ledger.GetSubject(ctx, event.SubjectID)
	if err != nil {
		return result, fmt.Errorf("resolve subject %s: %w", event.SubjectID, err)
	}

	selected, err := p.source.ListByEventType(ctx, event.Type)
	if err != nil {
		return result, fmt.Errorf("select rules for %q: %w", event.Type, err)
	}

	mu := p.getEventMutex(event.ID)
	mu.Lock()
	defer mu.Unlock()

	for _, rule := range selected {
		matched, err := p.evaluator.Evaluate(ctx, rule.Condition, event)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			p.log.Warn().
				Err(err).
				Str("rule_id", string(rule.ID)).
				Str("event_id", string(event.ID)).
				Msg("rule evaluation failed, skipping rule")
			result.FailedRuleIDs = append(result.FailedRuleIDs, rule.ID)
			continue
		}
		if !matched {
			continue
		}

		exists, err := p.ledger.GrantExists(ctx, rule.ID, event.ID)
		if err != nil {
			return result, fmt.Errorf("check grant for rule %s: %w", rule.ID, err)
		}
		if exists {
			continue
		}

		grant, err := p.ledger.RecordGrant(ctx, rule.ID, event.ID, subject.ID, rule.Points)
		if err != nil {
			// Lost a race with another writer on the same pair; the
			// invariant held, so treat it as already granted.
			if errors.Is(err, types.ErrDuplicateGrant) {
				continue
			}
			return result, fmt.Errorf("record grant for rule %s: %w", rule.ID, err)
		}

		p.log.Info().
			Str("grant_id", string(grant.ID)).
			Str("rule_id", string(rule.ID)).
			Str("subject_id", string(subject.ID)).
			Int("points", rule.Points).
			Msg("points granted")
		result.AwardedRuleIDs = append(result.AwardedRuleIDs, rule.ID)
	}

	return result, nil
}
