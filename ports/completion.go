package ports

import "context"

// CompletionRequest describes one structured-completion call
type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Completer is the structured-completion capability: a fallible,
// rate-limited, latency-variable dependency. Complete unmarshals the
// model's JSON answer into out, which must be a pointer to the expected
// response shape.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest, out any) error
}

// CompleterFactory builds Completers bound to a specific credential
// handle, so concurrent stages can work from distinct API keys.
type CompleterFactory interface {
	WithCredential(cred Credential) Completer
}
