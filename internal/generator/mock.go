package generator

import (
	"context"
	"sync"
)

// MockClient is a scripted generator for tests. Responses are returned in
// order; once exhausted the last response repeats. A non-nil Err wins over
// responses.
type MockClient struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Requests  []Request
	next      int
}

func NewMockClient(responses ...string) *MockClient {
	return &MockClient{Responses: responses}
}

func (m *MockClient) Generate(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "{}", nil
	}
	resp := m.Responses[m.next]
	if m.next < len(m.Responses)-1 {
		m.next++
	}
	return resp, nil
}

// SetError forces (or, with nil, clears) an error for subsequent calls.
func (m *MockClient) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// CallCount returns how many Generate calls were recorded.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
