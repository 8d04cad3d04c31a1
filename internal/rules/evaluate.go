// internal/rules/evaluate.go
package rules

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fieldworks/meritd/internal/judge"
	"github.com/fieldworks/meritd/internal/types"
)

/*
 * Condition evaluation.
 *
 * Recursive interpreter mapping (Condition, Event) to a boolean. The
 * contract is uniformly context-aware because exactly one leaf kind
 * (llm_judge) suspends; every other branch is synchronous and pure.
 *
 * Per-node semantics:
 *   - eq: strict type-and-value equality; a missing key behaves as null,
 *     so eq against null matches an absent key
 *   - gt/lt: strict inequality over two numbers or two dates; null,
 *     missing or mixed-type operands never match (never an error)
 *   - contains: case-sensitive substring over strings only
 *   - and/or: branches are independent and evaluated concurrently, the
 *     result joins all of them. No short-circuit: full evaluation keeps
 *     cost and judge traffic deterministic per event
 *   - llm_judge: resolve text, delegate verdict to the judgment capability;
 *     a capability failure propagates as an error, not a false
 *   - unrecognized kind: false, never an error, so a corrupt rule never
 *     aborts ingestion
 */

// Evaluator interprets condition trees against events.
// The judgment capability is injected so tests run against a stub.
type Evaluator struct {
	judge judge.Judge
}

// NewEvaluator creates an evaluator with the given judgment capability.
func NewEvaluator(j judge.Judge) *Evaluator {
	return &Evaluator{judge: j}
}

// Evaluate interprets cond against the event's metadata.
// The only error sources are context cancellation and judgment failures;
// everything else resolves to a boolean.
func (e *Evaluator) Evaluate(ctx context.Context, cond types.Condition, event *types.Event) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	switch c := cond.(type) {
	case types.Eq:
		return scalarEqual(lookup(event, c.Path), c.Value), nil

	case types.Gt:
		return ordered(lookup(event, c.Path), c.Value, +1), nil

	case types.Lt:
		return ordered(lookup(event, c.Path), c.Value, -1), nil

	case types.Contains:
		s, ok := lookup(event, c.Path).(string)
		return ok && strings.Contains(s, c.Value), nil

	case types.And:
		results, err := e.evaluateBranches(ctx, c.Conditions, event)
		if err != nil {
			return false, err
		}
		for _, r := range results {
			if !r {
				return false, nil
			}
		}
		return true, nil

	case types.Or:
		results, err := e.evaluateBranches(ctx, c.Conditions, event)
		if err != nil {
			return false, err
		}
		for _, r := range results {
			if r {
				return true, nil
			}
		}
		return false, nil

	case types.LLMJudge:
		text, ok := lookup(event, c.Path).(string)
		if !ok {
			return false, nil
		}
		verdict, err := e.judge.Judge(ctx, c.Prompt, text)
		if err != nil {
			return false, fmt.Errorf("judge %q: %w", c.Path, err)
		}
		return verdict, nil

	default:
		// Fail closed: a deserialized tree with an unknown kind never
		// matches, and never brings the pipeline down.
		return false, nil
	}
}

// evaluateBranches runs every branch on its own goroutine and joins all of
// them before the parent's boolean is produced. Branches are pure except
// for judge leaves, so order is irrelevant; the first error wins.
func (e *Evaluator) evaluateBranches(ctx context.Context, subs []types.Condition, event *types.Event) ([]bool, error) {
	if len(subs) == 0 {
		return nil, nil
	}
	if len(subs) == 1 {
		r, err := e.Evaluate(ctx, subs[0], event)
		if err != nil {
			return nil, err
		}
		return []bool{r}, nil
	}

	results := make([]bool, len(subs))
	errs := make([]error, len(subs))

	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub types.Condition) {
			defer wg.Done()
			results[i], errs[i] = e.Evaluate(ctx, sub, event)
		}(i, sub)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// lookup resolves a metadata key; a missing key behaves as null.
func lookup(event *types.Event, path string) any {
	if event.Metadata == nil {
		return nil
	}
	return event.Metadata[path]
}

// ordered reports whether a compares to b with the given sign.
// Incomparable operand pairs never match.
func ordered(a, b any, sign int) bool {
	cmp, ok := scalarCompare(a, b)
	if !ok {
		return false
	}
	return (sign > 0 && cmp > 0) || (sign < 0 && cmp < 0)
}
