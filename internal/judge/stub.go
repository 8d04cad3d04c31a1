package judge

import (
	"context"
	"strings"
	"sync"
)

// Stub is a deterministic in-process Judge for tests and offline replay.
// The verdict is a fixed function of the inputs: true when the text
// contains any configured marker (case-insensitive). An optional Err makes
// every call fail, for exercising the evaluation failure path.
type Stub struct {
	Markers []string
	Err     error

	mu    sync.Mutex
	calls []StubCall
}

// StubCall records one judgment request.
type StubCall struct {
	Prompt string
	Text   string
}

// Judge implements the Judge interface.
func (s *Stub) Judge(ctx context.Context, prompt, text string) (bool, error) {
	s.mu.Lock()
	s.calls = append(s.calls, StubCall{Prompt: prompt, Text: text})
	s.mu.Unlock()

	if s.Err != nil {
		return false, s.Err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	lower := strings.ToLower(text)
	for _, m := range s.Markers {
		if strings.Contains(lower, strings.ToLower(m)) {
			return true, nil
		}
	}
	return false, nil
}

// Calls returns a copy of all recorded judgment requests.
func (s *Stub) Calls() []StubCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StubCall, len(s.calls))
	copy(out, s.calls)
	return out
}
