// Package credpool hands out API credentials to concurrent pipeline
// stages. The parallel research/scoring branch runs against distinct keys
// so one branch's rate-limit pressure never stalls the other.
package credpool

import (
	"context"
	"fmt"

	"crisiswatch/ports"
)

// Pool is a fixed-size credential pool. Acquire blocks until a handle is
// free; Release returns it. Scoped acquisition keeps key usage race-free
// without any global mutable state.
type Pool struct {
	handles chan ports.Credential
}

// New builds a pool from the given credentials. At least one is required;
// the pool size should match the maximum stage concurrency.
func New(creds []ports.Credential) (*Pool, error) {
	if len(creds) == 0 {
		return nil, fmt.Errorf("credential pool requires at least one credential")
	}
	handles := make(chan ports.Credential, len(creds))
	for _, c := range creds {
		if c.APIKey == "" {
			return nil, fmt.Errorf("credential %q has an empty API key", c.Name)
		}
		handles <- c
	}
	return &Pool{handles: handles}, nil
}

// FromKeys builds a pool from bare API keys, naming handles key-0..key-n
func FromKeys(keys ...string) (*Pool, error) {
	creds := make([]ports.Credential, 0, len(keys))
	for i, k := range keys {
		if k == "" {
			continue
		}
		creds = append(creds, ports.Credential{Name: fmt.Sprintf("key-%d", i), APIKey: k})
	}
	return New(creds)
}

// FromKeysSized builds a pool of at least size handles. When fewer keys
// than handles are configured, keys are reused round-robin so a
// single-key deployment still serves concurrent stages; the replicas then
// share that key's rate limit but never block each other on acquisition.
func FromKeysSized(size int, keys ...string) (*Pool, error) {
	usable := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			usable = append(usable, k)
		}
	}
	if len(usable) == 0 {
		return New(nil)
	}
	if size < len(usable) {
		size = len(usable)
	}
	creds := make([]ports.Credential, 0, size)
	for i := 0; i < size; i++ {
		creds = append(creds, ports.Credential{
			Name:   fmt.Sprintf("key-%d", i),
			APIKey: usable[i%len(usable)],
		})
	}
	return New(creds)
}

// Size returns the pool capacity
func (p *Pool) Size() int {
	return cap(p.handles)
}

// Acquire blocks until a credential handle is free or ctx is done
func (p *Pool) Acquire(ctx context.Context) (ports.Credential, error) {
	select {
	case cred := <-p.handles:
		return cred, nil
	case <-ctx.Done():
		return ports.Credential{}, ctx.Err()
	}
}

// Release returns a handle to the pool. Releasing more handles than were
// acquired is a programming error and panics via the full channel.
func (p *Pool) Release(cred ports.Credential) {
	select {
	case p.handles <- cred:
	default:
		panic("credpool: release without matching acquire")
	}
}
