package ports

import "context"

// Credential is one API credential handle from a shared pool
type Credential struct {
	Name   string
	APIKey string
}

// CredentialPool hands out credential handles to concurrent units of
// work. The pool is sized to the maximum stage concurrency so parallel
// branches never share a key and never collide on provider rate limits.
// Acquire blocks until a handle is free or the context is done; every
// acquired handle must be released exactly once.
type CredentialPool interface {
	Acquire(ctx context.Context) (Credential, error)
	Release(cred Credential)
}
