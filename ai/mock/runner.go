package mock

import (
	"context"
	"fmt"
	"sync"
)

// MockRunner is a test double for ai.Runner.
// It allows custom behavior injection via function fields.
type MockRunner struct {
	// RunFunc is called by Run if set.
	// If nil, uses default deterministic behavior.
	RunFunc func(ctx context.Context, prompt, model string) (string, error)

	mu        sync.Mutex
	callCount int
	prompts   []string
}

// NewMockRunner creates a mock runner with default deterministic behavior.
// Note: Returns concrete type to allow test assertions via CallCount and Prompts.
func NewMockRunner() *MockRunner {
	return &MockRunner{}
}

// Run records the call and returns a deterministic completion unless
// RunFunc overrides the behavior.
func (m *MockRunner) Run(ctx context.Context, prompt, model string) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx, prompt, model)
	}

	return fmt.Sprintf("[%s] %s", model, prompt), nil
}

// CallCount returns the number of times Run was called.
func (m *MockRunner) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Prompts returns the prompts Run received, in call order.
func (m *MockRunner) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}
