// Package judge defines the judgment capability consumed by the rule
// evaluator: a text-classification oracle answering a yes/no prompt about a
// piece of text.
//
// The capability is an external collaborator. This package carries the
// contract, an HTTP client for chat-completion style endpoints, and a
// deterministic stub for tests.
package judge

import (
	"context"
	"errors"
)

// Judge renders a boolean verdict on text under the given prompt.
// Implementations must honor ctx cancellation; the call is the only
// suspension point in condition evaluation.
type Judge interface {
	Judge(ctx context.Context, prompt, text string) (bool, error)
}

// ErrUnavailable indicates the judgment service failed or timed out.
// A judgment failure propagates out of evaluation as an error, never as a
// silent false, so a transient outage cannot deny a rule that should match.
var ErrUnavailable = errors.New("judgment service unavailable")

// ErrNoVerdict indicates the service responded but its answer could not be
// read as true or false.
var ErrNoVerdict = errors.New("judgment response carried no verdict")

// Func adapts a function to the Judge interface.
type Func func(ctx context.Context, prompt, text string) (bool, error)

// Judge implements the Judge interface.
func (f Func) Judge(ctx context.Context, prompt, text string) (bool, error) {
	return f(ctx, prompt, text)
}
