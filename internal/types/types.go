// Package types provides domain models shared across meritd components.
//
// Zero-behavior design: types.go, condition.go and errors.go describe the
// domain vocabulary (subjects, events, rules, grants, conditions) without
// embedding evaluation or storage logic. Evaluation lives in internal/rules,
// state in internal/ledger, internal/registry and internal/core/db.
package types

import (
	"encoding/json"
	"time"
)

// EventTypeVisit is the single event kind in the current domain.
// The registry and pipeline contracts are not limited to it.
const EventTypeVisit = "visit"

// Metadata is a flat mapping from string key to a dynamically typed scalar
// (string | float64 | bool | time.Time | nil). Nested paths are not
// supported; a path is always a single top-level key.
type Metadata map[string]any

// UnmarshalJSON decodes metadata and normalizes every value into the scalar
// domain: JSON numbers become float64, strings that parse fully as RFC 3339
// become time.Time. Non-scalar values are preserved as decoded and rejected
// later by ValidateEvent.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Metadata, len(raw))
	for k, v := range raw {
		out[k] = NormalizeScalar(v)
	}
	*m = out
	return nil
}

// Event is a timestamped occurrence evaluated against rules.
type Event struct {
	ID        EventID   `json:"id"`
	SubjectID SubjectID `json:"subjectId"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Metadata  Metadata  `json:"metadata"`
}

// Rule pairs a condition tree with a point value, scoped to one event type.
// The condition tree is immutable once attached; replacing a rule swaps the
// whole tree, never mutates it in place.
type Rule struct {
	ID        RuleID    `json:"id"`
	Name      string    `json:"name"`
	EventType string    `json:"eventType"`
	Condition Condition `json:"condition"`
	Points    int       `json:"points"`
}

// UnmarshalJSON decodes a rule together with its tagged condition tree.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        RuleID          `json:"id"`
		Name      string          `json:"name"`
		EventType string          `json:"eventType"`
		Condition json.RawMessage `json:"condition"`
		Points    int             `json:"points"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.ID = raw.ID
	r.Name = raw.Name
	r.EventType = raw.EventType
	r.Points = raw.Points
	r.Condition = nil
	if len(raw.Condition) > 0 && string(raw.Condition) != "null" {
		cond, err := DecodeCondition(raw.Condition)
		if err != nil {
			return err
		}
		r.Condition = cond
	}
	return nil
}

// Grant records one rule having matched one event for one subject.
// At most one grant exists per (RuleID, EventID) pair, ever.
type Grant struct {
	ID        GrantID   `json:"id"`
	RuleID    RuleID    `json:"ruleId"`
	EventID   EventID   `json:"eventId"`
	SubjectID SubjectID `json:"subjectId"`
	Points    int       `json:"points"`
	Timestamp time.Time `json:"timestamp"`
}

// Subject accumulates points. PointBalance is monotonically non-decreasing
// and mutated only by the ledger as a side effect of grant creation.
type Subject struct {
	ID           SubjectID `json:"id"`
	Name         string    `json:"name"`
	PointBalance int       `json:"pointBalance"`
	Onboarded    bool      `json:"onboarded,omitempty"`
}

// Resource limits enforced during rule and event validation.
const (
	// MaxMetadataPairs limits metadata pairs to prevent unbounded iteration.
	MaxMetadataPairs = 64

	// MaxMetadataKeyLength prevents excessively long metadata keys.
	MaxMetadataKeyLength = 128

	// MaxConditionDepth prevents stack exhaustion when evaluating condition
	// trees deserialized from untrusted input.
	MaxConditionDepth = 16

	// MaxCombinatorBranches caps And/Or fan-out; each branch may run on its
	// own goroutine during evaluation.
	MaxCombinatorBranches = 64
)

// ValidateEvent checks an ingested event payload for shape errors.
// Metadata values must be scalars; nested objects and arrays are rejected.
func ValidateEvent(e *Event) error {
	if e.ID == "" {
		return ErrEmptyEventID
	}
	if e.SubjectID == "" {
		return ErrEmptySubjectID
	}
	if e.Type == "" {
		return ErrEmptyEventType
	}
	if len(e.Metadata) > MaxMetadataPairs {
		return ErrTooManyMetadataPairs
	}
	for k, v := range e.Metadata {
		if len(k) > MaxMetadataKeyLength {
			return ErrMetadataKeyTooLong
		}
		if !IsScalar(v) {
			return ErrMetadataNotScalar
		}
	}
	return nil
}
