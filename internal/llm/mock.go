package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockCompleter implements Completer for testing purposes. Responses can
// be scripted per-prompt or consumed from a fixed queue, making pipeline
// behavior fully deterministic.
type MockCompleter struct {
	mu sync.Mutex

	// Script, when set, decides the response for each prompt and takes
	// precedence over the Responses queue.
	Script func(prompt string) (string, error)

	// Responses are consumed in order when Script is nil. Once exhausted,
	// Complete returns Err.
	Responses []string

	// Err is returned after Responses run out (defaults to a generic
	// failure), simulating oracle exhaustion.
	Err error

	// Prompts records every prompt received, in call order.
	Prompts []string
}

// NewMockCompleter creates a mock that replays the given responses in order.
func NewMockCompleter(responses ...string) *MockCompleter {
	return &MockCompleter{Responses: responses}
}

// Complete implements Completer.
func (m *MockCompleter) Complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Prompts = append(m.Prompts, prompt)

	if m.Script != nil {
		return m.Script(prompt)
	}

	if len(m.Responses) == 0 {
		if m.Err != nil {
			return "", m.Err
		}
		return "", fmt.Errorf("mock completer: no responses left")
	}

	resp := m.Responses[0]
	m.Responses = m.Responses[1:]
	return resp, nil
}

// CallCount returns how many times Complete was invoked.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}
