// internal/rules/validate_test.go
package rules

import (
	"errors"
	"testing"
	"time"

	"github.com/fieldworks/meritd/internal/types"
)

func TestValidateRule(t *testing.T) {
	valid := types.Eq{Path: "flag", Value: true}

	tests := []struct {
		name      string
		ruleName  string
		eventType string
		cond      types.Condition
		points    int
		wantErr   error
	}{
		{"valid", "long visit", types.EventTypeVisit, valid, 10, nil},
		{"empty name", "", types.EventTypeVisit, valid, 10, types.ErrEmptyRuleName},
		{"empty event type", "r", "", valid, 10, types.ErrEmptyEventType},
		{"zero points", "r", types.EventTypeVisit, valid, 0, types.ErrNonPositivePoints},
		{"negative points", "r", types.EventTypeVisit, valid, -5, types.ErrNonPositivePoints},
		{"nil condition", "r", types.EventTypeVisit, nil, 10, types.ErrNilCondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRule(tt.ruleName, tt.eventType, tt.cond, tt.points)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateRule() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCondition(t *testing.T) {
	tests := []struct {
		name    string
		cond    types.Condition
		wantErr error
	}{
		{"eq string", types.Eq{Path: "p", Value: "v"}, nil},
		{"eq null", types.Eq{Path: "p", Value: nil}, nil},
		{"eq date", types.Eq{Path: "p", Value: time.Now()}, nil},
		{"eq empty path", types.Eq{Path: "", Value: "v"}, types.ErrEmptyPath},
		{"eq non-scalar value", types.Eq{Path: "p", Value: []any{"v"}}, types.ErrValueNotScalar},
		{"eq map value", types.Eq{Path: "p", Value: map[string]any{}}, types.ErrValueNotScalar},
		{"gt number", types.Gt{Path: "p", Value: float64(3)}, nil},
		{"gt date", types.Gt{Path: "p", Value: time.Now()}, nil},
		{"gt string rejected", types.Gt{Path: "p", Value: "3"}, types.ErrValueNotOrdered},
		{"gt bool rejected", types.Gt{Path: "p", Value: true}, types.ErrValueNotOrdered},
		{"gt null rejected", types.Gt{Path: "p", Value: nil}, types.ErrValueNotOrdered},
		{"lt number", types.Lt{Path: "p", Value: float64(3)}, nil},
		{"lt string rejected", types.Lt{Path: "p", Value: "3"}, types.ErrValueNotOrdered},
		{"contains", types.Contains{Path: "p", Value: "sub"}, nil},
		{"contains empty path", types.Contains{Path: "", Value: "sub"}, types.ErrEmptyPath},
		{"judge", types.LLMJudge{Path: "p", Prompt: "q"}, nil},
		{"judge empty prompt", types.LLMJudge{Path: "p", Prompt: ""}, types.ErrEmptyPrompt},
		{"judge empty path", types.LLMJudge{Path: "", Prompt: "q"}, types.ErrEmptyPath},
		{"empty and", types.And{}, nil},
		{"empty or", types.Or{}, nil},
		{"unknown kind", types.Unknown{Tag: "regex"}, types.ErrUnknownCondition},
		{"nested invalid leaf", types.And{Conditions: []types.Condition{
			types.Or{Conditions: []types.Condition{types.Gt{Path: "p", Value: "bad"}}},
		}}, types.ErrValueNotOrdered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCondition(tt.cond)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateCondition() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCondition_DepthLimit(t *testing.T) {
	var cond types.Condition = types.Eq{Path: "p", Value: "v"}
	for i := 0; i < types.MaxConditionDepth; i++ {
		cond = types.And{Conditions: []types.Condition{cond}}
	}

	err := ValidateCondition(cond)
	if !errors.Is(err, types.ErrConditionTooDeep) {
		t.Fatalf("ValidateCondition() error = %v, want ErrConditionTooDeep", err)
	}
}

func TestValidateCondition_BranchLimit(t *testing.T) {
	subs := make([]types.Condition, types.MaxCombinatorBranches+1)
	for i := range subs {
		subs[i] = types.Eq{Path: "p", Value: "v"}
	}

	err := ValidateCondition(types.Or{Conditions: subs})
	if !errors.Is(err, types.ErrTooManyBranches) {
		t.Fatalf("ValidateCondition() error = %v, want ErrTooManyBranches", err)
	}
}
