package search

import (
	"context"

	"crisiswatch/ports"
)

// MockProvider is a scripted search provider for testing
type MockProvider struct {
	Hits    []ports.Hit
	Err     error
	Queries []string
}

func (m *MockProvider) Search(ctx context.Context, query string, maxResults int) ([]ports.Hit, error) {
	m.Queries = append(m.Queries, query)
	if m.Err != nil {
		return nil, m.Err
	}
	if maxResults > 0 && len(m.Hits) > maxResults {
		return m.Hits[:maxResults], nil
	}
	return m.Hits, nil
}
