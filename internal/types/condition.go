package types

import (
	"encoding/json"
	"fmt"
)

/*
 * Condition model.
 *
 * A condition is a tagged tree of comparison, substring, logical-combinator
 * and external-judgment nodes. The tree is pure data: evaluation lives in
 * internal/rules, validation limits in this package's constants.
 *
 * Wire format is a tagged envelope:
 *   {"type":"eq","path":"flag","value":true}
 *   {"type":"and","conditions":[...]}
 *   {"type":"llm_judge","path":"documentation","prompt":"..."}
 *
 * Closed sum type: one concrete struct per kind, discriminant fixed by the
 * type itself so unknown kinds are impossible to construct in code. Trees
 * deserialized from untrusted input may still carry an unrecognized tag;
 * those decode to Unknown, which the evaluator fails closed on.
 */

// Condition is one node in a rule's predicate tree.
type Condition interface {
	// Kind returns the wire discriminant ("eq", "gt", "and", ...).
	Kind() string
}

// Eq matches when metadata[Path] strictly equals Value. Value is an
// unconstrained scalar; a missing key behaves as null, so Eq with a nil
// Value matches an absent key.
type Eq struct {
	Path  string
	Value any
}

// Gt matches when metadata[Path] is strictly greater than Value.
// Value must be a number or a date; mixed or missing operands never match.
type Gt struct {
	Path  string
	Value any
}

// Lt matches when metadata[Path] is strictly less than Value.
type Lt struct {
	Path  string
	Value any
}

// Contains matches when metadata[Path] is a string containing Value as a
// case-sensitive substring.
type Contains struct {
	Path  string
	Value string
}

// And matches when every sub-condition matches. An empty And matches
// (universal quantification over the empty set).
type And struct {
	Conditions []Condition
}

// Or matches when at least one sub-condition matches. An empty Or never
// matches (existential quantification over the empty set).
type Or struct {
	Conditions []Condition
}

// LLMJudge delegates the verdict on metadata[Path] to the judgment
// capability using Prompt. The only condition kind with an external side
// effect.
type LLMJudge struct {
	Path   string
	Prompt string
}

// Unknown holds an unrecognized kind from a deserialized tree.
// Retained so a corrupt rule never aborts the pipeline; it simply never
// matches.
type Unknown struct {
	Tag string
}

func (Eq) Kind() string       { return "eq" }
func (Gt) Kind() string       { return "gt" }
func (Lt) Kind() string       { return "lt" }
func (Contains) Kind() string { return "contains" }
func (And) Kind() string      { return "and" }
func (Or) Kind() string       { return "or" }
func (LLMJudge) Kind() string { return "llm_judge" }
func (u Unknown) Kind() string {
	return u.Tag
}

// conditionEnvelope is the tagged wire representation of one node.
type conditionEnvelope struct {
	Type       string            `json:"type"`
	Path       string            `json:"path,omitempty"`
	Value      json.RawMessage   `json:"value,omitempty"`
	Prompt     string            `json:"prompt,omitempty"`
	Conditions []json.RawMessage `json:"conditions,omitempty"`
}

// DecodeCondition parses a tagged condition tree from JSON.
// Scalar values are normalized (numbers to float64, RFC 3339 strings to
// time.Time). Unrecognized tags decode to Unknown rather than erroring.
func DecodeCondition(data []byte) (Condition, error) {
	var env conditionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed condition: %w", err)
	}

	switch env.Type {
	case "eq":
		v, err := decodeScalar(env.Value)
		if err != nil {
			return nil, err
		}
		return Eq{Path: env.Path, Value: v}, nil
	case "gt":
		v, err := decodeScalar(env.Value)
		if err != nil {
			return nil, err
		}
		return Gt{Path: env.Path, Value: v}, nil
	case "lt":
		v, err := decodeScalar(env.Value)
		if err != nil {
			return nil, err
		}
		return Lt{Path: env.Path, Value: v}, nil
	case "contains":
		var s string
		if len(env.Value) > 0 {
			if err := json.Unmarshal(env.Value, &s); err != nil {
				return nil, fmt.Errorf("contains value: %w", err)
			}
		}
		return Contains{Path: env.Path, Value: s}, nil
	case "and":
		subs, err := decodeBranches(env.Conditions)
		if err != nil {
			return nil, err
		}
		return And{Conditions: subs}, nil
	case "or":
		subs, err := decodeBranches(env.Conditions)
		if err != nil {
			return nil, err
		}
		return Or{Conditions: subs}, nil
	case "llm_judge":
		return LLMJudge{Path: env.Path, Prompt: env.Prompt}, nil
	default:
		return Unknown{Tag: env.Type}, nil
	}
}

func decodeBranches(raw []json.RawMessage) ([]Condition, error) {
	subs := make([]Condition, 0, len(raw))
	for _, r := range raw {
		c, err := DecodeCondition(r)
		if err != nil {
			return nil, err
		}
		subs = append(subs, c)
	}
	return subs, nil
}

func decodeScalar(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("condition value: %w", err)
	}
	return NormalizeScalar(v), nil
}

// MarshalJSON emits the tagged envelope for each concrete kind.

func (c Eq) MarshalJSON() ([]byte, error)  { return marshalLeaf("eq", c.Path, c.Value) }
func (c Gt) MarshalJSON() ([]byte, error)  { return marshalLeaf("gt", c.Path, c.Value) }
func (c Lt) MarshalJSON() ([]byte, error)  { return marshalLeaf("lt", c.Path, c.Value) }

func (c Contains) MarshalJSON() ([]byte, error) {
	return marshalLeaf("contains", c.Path, c.Value)
}

func (c And) MarshalJSON() ([]byte, error) { return marshalCombinator("and", c.Conditions) }
func (c Or) MarshalJSON() ([]byte, error)  { return marshalCombinator("or", c.Conditions) }

func (c LLMJudge) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string `json:"type"`
		Path   string `json:"path"`
		Prompt string `json:"prompt"`
	}{"llm_judge", c.Path, c.Prompt})
}

func (u Unknown) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
	}{u.Tag})
}

func marshalLeaf(kind, path string, value any) ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		Path  string `json:"path"`
		Value any    `json:"value"`
	}{kind, path, value})
}

func marshalCombinator(kind string, subs []Condition) ([]byte, error) {
	raw := make([]json.RawMessage, 0, len(subs))
	for _, s := range subs {
		b, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		raw = append(raw, b)
	}
	return json.Marshal(struct {
		Type       string            `json:"type"`
		Conditions []json.RawMessage `json:"conditions"`
	}{kind, raw})
}
