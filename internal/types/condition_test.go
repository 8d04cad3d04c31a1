package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDecodeCondition_Leaves(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Condition
	}{
		{
			name: "eq bool",
			data: `{"type":"eq","path":"onboarded","value":true}`,
			want: Eq{Path: "onboarded", Value: true},
		},
		{
			name: "eq string",
			data: `{"type":"eq","path":"badge","value":"gold"}`,
			want: Eq{Path: "badge", Value: "gold"},
		},
		{
			name: "eq null",
			data: `{"type":"eq","path":"deletedAt","value":null}`,
			want: Eq{Path: "deletedAt", Value: nil},
		},
		{
			name: "eq absent value behaves as null",
			data: `{"type":"eq","path":"deletedAt"}`,
			want: Eq{Path: "deletedAt", Value: nil},
		},
		{
			name: "gt number decodes as float64",
			data: `{"type":"gt","path":"duration","value":60}`,
			want: Gt{Path: "duration", Value: float64(60)},
		},
		{
			name: "lt date string promotes to time",
			data: `{"type":"lt","path":"clockIn","value":"2025-01-15T09:00:00Z"}`,
			want: Lt{Path: "clockIn", Value: time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)},
		},
		{
			name: "contains",
			data: `{"type":"contains","path":"notes","value":"follow-up"}`,
			want: Contains{Path: "notes", Value: "follow-up"},
		},
		{
			name: "llm_judge",
			data: `{"type":"llm_judge","path":"documentation","prompt":"Is this thorough?"}`,
			want: LLMJudge{Path: "documentation", Prompt: "Is this thorough?"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCondition([]byte(tt.data))
			if err != nil {
				t.Fatalf("DecodeCondition() error = %v, want nil", err)
			}
			if !conditionEqual(got, tt.want) {
				t.Errorf("DecodeCondition() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeCondition_Combinators(t *testing.T) {
	data := `{
		"type": "and",
		"conditions": [
			{"type": "eq", "path": "onboarded", "value": true},
			{"type": "or", "conditions": [
				{"type": "gt", "path": "duration", "value": 60},
				{"type": "contains", "path": "notes", "value": "extended"}
			]}
		]
	}`

	got, err := DecodeCondition([]byte(data))
	if err != nil {
		t.Fatalf("DecodeCondition() error = %v, want nil", err)
	}

	and, ok := got.(And)
	if !ok {
		t.Fatalf("DecodeCondition() = %T, want And", got)
	}
	if len(and.Conditions) != 2 {
		t.Fatalf("And branches = %d, want 2", len(and.Conditions))
	}
	or, ok := and.Conditions[1].(Or)
	if !ok {
		t.Fatalf("second branch = %T, want Or", and.Conditions[1])
	}
	if len(or.Conditions) != 2 {
		t.Fatalf("Or branches = %d, want 2", len(or.Conditions))
	}
	if !conditionEqual(or.Conditions[0], Gt{Path: "duration", Value: float64(60)}) {
		t.Errorf("nested gt = %#v", or.Conditions[0])
	}
}

func TestDecodeCondition_UnknownKind(t *testing.T) {
	got, err := DecodeCondition([]byte(`{"type":"regex","path":"notes","value":".*"}`))
	if err != nil {
		t.Fatalf("DecodeCondition() error = %v, want nil", err)
	}
	u, ok := got.(Unknown)
	if !ok {
		t.Fatalf("DecodeCondition() = %T, want Unknown", got)
	}
	if u.Tag != "regex" {
		t.Errorf("Unknown.Tag = %q, want %q", u.Tag, "regex")
	}
}

func TestDecodeCondition_UnknownKindInsideCombinator(t *testing.T) {
	data := `{"type":"or","conditions":[
		{"type":"eq","path":"flag","value":true},
		{"type":"regex","path":"notes","value":".*"}
	]}`

	got, err := DecodeCondition([]byte(data))
	if err != nil {
		t.Fatalf("DecodeCondition() error = %v, want nil", err)
	}
	or := got.(Or)
	if _, ok := or.Conditions[1].(Unknown); !ok {
		t.Errorf("second branch = %T, want Unknown", or.Conditions[1])
	}
}

func TestDecodeCondition_Malformed(t *testing.T) {
	if _, err := DecodeCondition([]byte(`{"type":`)); err == nil {
		t.Fatal("DecodeCondition() error = nil, want malformed error")
	}
	if _, err := DecodeCondition([]byte(`{"type":"contains","path":"p","value":42}`)); err == nil {
		t.Fatal("DecodeCondition() error = nil, want contains value error")
	}
}

func TestCondition_RoundTrip(t *testing.T) {
	trees := []Condition{
		Eq{Path: "onboarded", Value: true},
		Gt{Path: "duration", Value: float64(45)},
		Lt{Path: "clockIn", Value: time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)},
		Contains{Path: "notes", Value: "medication"},
		LLMJudge{Path: "notes", Prompt: "Does this describe a safety concern?"},
		And{Conditions: []Condition{
			Eq{Path: "flag", Value: true},
			Or{Conditions: []Condition{
				Gt{Path: "duration", Value: float64(60)},
				Contains{Path: "notes", Value: "extended"},
			}},
		}},
		And{},
		Or{},
	}

	for _, tree := range trees {
		b, err := json.Marshal(tree)
		if err != nil {
			t.Fatalf("Marshal(%#v) error = %v", tree, err)
		}
		back, err := DecodeCondition(b)
		if err != nil {
			t.Fatalf("DecodeCondition(%s) error = %v", b, err)
		}
		if !conditionEqual(back, tree) {
			t.Errorf("round trip mismatch:\n  in:  %#v\n  out: %#v\n  wire: %s", tree, back, b)
		}
	}
}

// conditionEqual compares trees structurally; time values compare as
// instants.
func conditionEqual(a, b Condition) bool {
	switch x := a.(type) {
	case Eq:
		y, ok := b.(Eq)
		return ok && x.Path == y.Path && scalarValueEqual(x.Value, y.Value)
	case Gt:
		y, ok := b.(Gt)
		return ok && x.Path == y.Path && scalarValueEqual(x.Value, y.Value)
	case Lt:
		y, ok := b.(Lt)
		return ok && x.Path == y.Path && scalarValueEqual(x.Value, y.Value)
	case Contains:
		y, ok := b.(Contains)
		return ok && x == y
	case LLMJudge:
		y, ok := b.(LLMJudge)
		return ok && x == y
	case And:
		y, ok := b.(And)
		return ok && branchesEqual(x.Conditions, y.Conditions)
	case Or:
		y, ok := b.(Or)
		return ok && branchesEqual(x.Conditions, y.Conditions)
	case Unknown:
		y, ok := b.(Unknown)
		return ok && x == y
	default:
		return false
	}
}

func branchesEqual(a, b []Condition) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !conditionEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func scalarValueEqual(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return a == b
}
