// internal/rules/validate.go
package rules

import (
	"github.com/fieldworks/meritd/internal/types"
)

/*
 * Rule and condition validation.
 *
 * Enforced at rule creation time rather than evaluation time: a rule that
 * passes Validate can always be evaluated without shape errors, and a
 * malformed payload is rejected before it reaches the registry.
 *
 * Typing rules:
 *   - Eq accepts any scalar (equality against identifiers, booleans and
 *     dates-as-opaque-values is intended use)
 *   - Gt/Lt accept only numbers or dates (the orderable scalars)
 *   - Contains accepts only strings (fixed by the struct field type)
 *   - LLMJudge requires a non-empty prompt
 *
 * Resource limits (depth, branch fan-out) bound recursion and goroutine
 * fan-out during evaluation of deserialized trees.
 */

// ValidateRule checks a rule payload before it enters the registry.
func ValidateRule(name, eventType string, cond types.Condition, points int) error {
	if name == "" {
		return types.ErrEmptyRuleName
	}
	if eventType == "" {
		return types.ErrEmptyEventType
	}
	if points <= 0 {
		return types.ErrNonPositivePoints
	}
	if cond == nil {
		return types.ErrNilCondition
	}
	return ValidateCondition(cond)
}

// ValidateCondition checks a condition tree for shape and limit errors.
func ValidateCondition(cond types.Condition) error {
	return validateNode(cond, 1)
}

func validateNode(cond types.Condition, depth int) error {
	if depth > types.MaxConditionDepth {
		return types.ErrConditionTooDeep
	}

	switch c := cond.(type) {
	case types.Eq:
		if c.Path == "" {
			return types.ErrEmptyPath
		}
		if !types.IsScalar(c.Value) {
			return types.ErrValueNotScalar
		}
	case types.Gt:
		if c.Path == "" {
			return types.ErrEmptyPath
		}
		if !types.IsOrdered(c.Value) {
			return types.ErrValueNotOrdered
		}
	case types.Lt:
		if c.Path == "" {
			return types.ErrEmptyPath
		}
		if !types.IsOrdered(c.Value) {
			return types.ErrValueNotOrdered
		}
	case types.Contains:
		if c.Path == "" {
			return types.ErrEmptyPath
		}
	case types.And:
		return validateBranches(c.Conditions, depth)
	case types.Or:
		return validateBranches(c.Conditions, depth)
	case types.LLMJudge:
		if c.Path == "" {
			return types.ErrEmptyPath
		}
		if c.Prompt == "" {
			return types.ErrEmptyPrompt
		}
	default:
		return types.ErrUnknownCondition
	}
	return nil
}

func validateBranches(subs []types.Condition, depth int) error {
	if len(subs) > types.MaxCombinatorBranches {
		return types.ErrTooManyBranches
	}
	for _, sub := range subs {
		if err := validateNode(sub, depth+1); err != nil {
			return err
		}
	}
	return nil
}
