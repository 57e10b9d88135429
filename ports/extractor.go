package ports

import "context"

// ContentExtractor fetches the readable main text behind a URL.
// Individual extraction failures are tolerated per item by callers; they
// never escalate to a whole-stage failure on their own.
type ContentExtractor interface {
	Extract(ctx context.Context, url string) (string, error)
}
