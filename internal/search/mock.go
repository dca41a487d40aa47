package search

import (
	"context"
)

// MockProvider implements Provider for testing purposes.
type MockProvider struct {
	name    string
	results []Result
	err     error
	Queries []string // Every query received, in call order
}

// NewMockProvider creates a new mock search provider with a small fixed
// result set.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		name: "Mock",
		results: []Result{
			{
				Title:     "Scaling Laws Revisited",
				URL:       "http://arxiv.org/abs/2501.00001",
				Summary:   "A mock paper result for testing purposes.",
				Published: "2025-01-01T00:00:00Z",
				Source:    "arXiv",
			},
			{
				Title:     "Agentic Workflows Survey",
				URL:       "http://arxiv.org/abs/2501.00002",
				Summary:   "Another mock paper result.",
				Published: "2025-01-02T00:00:00Z",
				Source:    "arXiv",
			},
		},
	}
}

// GetName returns the name of this provider.
func (m *MockProvider) GetName() string {
	return m.name
}

// Search returns the scripted results, capped at maxResults.
func (m *MockProvider) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	m.Queries = append(m.Queries, query)
	if m.err != nil {
		return nil, m.err
	}
	if maxResults <= 0 || maxResults > len(m.results) {
		maxResults = len(m.results)
	}
	out := make([]Result, maxResults)
	copy(out, m.results[:maxResults])
	return out, nil
}

// SetResults allows customization of mock results for testing.
func (m *MockProvider) SetResults(results []Result) {
	m.results = results
}

// SetError makes every subsequent search fail with err.
func (m *MockProvider) SetError(err error) {
	m.err = err
}
