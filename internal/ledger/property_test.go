package ledger

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/fieldworks/meritd/internal/types"
)

// Property: for any delivery sequence, including repeats, the final balance
// is points times the number of distinct (rule, event) pairs, and never
// decreases along the way.
func TestLedger_PropertyIdempotentBalance(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("balance counts each pair once", prop.ForAll(
		func(deliveries []int, points int) bool {
			l := newTestLedger()
			ctx := context.Background()

			// A small fixed pool of (rule, event) pairs; the delivery
			// sequence indexes into it with repeats
			pairs := make([]struct {
				rule  types.RuleID
				event types.EventID
			}, 8)
			for i := range pairs {
				pairs[i].rule = types.NewRuleID()
				pairs[i].event = types.EventID(fmt.Sprintf("event-%03d", i))
			}

			distinct := make(map[int]bool)
			prev := 0
			for _, d := range deliveries {
				idx := d % len(pairs)
				_, err := l.RecordGrant(ctx, pairs[idx].rule, pairs[idx].event, "subject-001", points)
				if distinct[idx] {
					if err == nil {
						return false
					}
				} else if err != nil {
					return false
				}
				distinct[idx] = true

				s, err := l.GetSubject(ctx, "subject-001")
				if err != nil || s.PointBalance < prev {
					return false
				}
				prev = s.PointBalance
			}

			s, err := l.GetSubject(ctx, "subject-001")
			if err != nil {
				return false
			}
			return s.PointBalance == points*len(distinct)
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
		gen.IntRange(1, 100),
	))

	properties.TestingRun(t)
}
