package llm

import (
	"context"
	"sync"
)

// Mock is a scriptable LLM client for tests. Responses are returned per
// task label, falling back to a default response.
type Mock struct {
	mu        sync.Mutex
	responses map[string][]string
	Default   string
	Err       error
	Calls     []MockCall
}

// MockCall records one request made against the mock.
type MockCall struct {
	Task   string
	Prompt string
	JSON   bool
}

// NewMock creates an empty mock client.
func NewMock() *Mock {
	return &Mock{
		responses: make(map[string][]string),
		Default:   "{}",
	}
}

// Respond queues responses for a task label, consumed in order.
// The last response repeats once the queue is drained.
func (m *Mock) Respond(task string, responses ...string) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responses[task] = append(m.responses[task], responses...)

	return m
}

func (m *Mock) Complete(_ context.Context, task, prompt string) (string, error) {
	return m.next(task, prompt, false)
}

func (m *Mock) CompleteJSON(_ context.Context, task, prompt string) (string, error) {
	return m.next(task, prompt, true)
}

func (m *Mock) next(task, prompt string, isJSON bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{Task: task, Prompt: prompt, JSON: isJSON})

	if m.Err != nil {
		return "", m.Err
	}

	queue := m.responses[task]
	if len(queue) == 0 {
		return m.Default, nil
	}

	resp := queue[0]
	if len(queue) > 1 {
		m.responses[task] = queue[1:]
	}

	return resp, nil
}

var _ Client = (*Mock)(nil)
