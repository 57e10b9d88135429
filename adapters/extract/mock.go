package extract

import (
	"context"

	"crisiswatch/ports"
)

// MockExtractor returns canned page text keyed by URL
type MockExtractor struct {
	Pages map[string]string
	Err   error
	URLs  []string
}

var _ ports.ContentExtractor = (*MockExtractor)(nil)

func (m *MockExtractor) Extract(ctx context.Context, url string) (string, error) {
	m.URLs = append(m.URLs, url)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Pages[url], nil
}
