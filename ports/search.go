package ports

import (
	"context"

	"crisiswatch/domain/core"
)

// Hit is one raw search result before any analysis
type Hit struct {
	Title       string          `json:"title"`
	URL         string          `json:"url"`
	Snippet     string          `json:"snippet"`
	PublishedAt *core.Timestamp `json:"published_at,omitempty"`
}

// SearchProvider is the external search capability. Implementations may
// return fewer hits than requested, including zero; an empty result set
// is not an error.
type SearchProvider interface {
	Search(ctx context.Context, query string, maxResults int) ([]Hit, error)
}
