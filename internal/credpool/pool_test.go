package credpool

import (
	"context"
	"testing"
	"time"

	"crisiswatch/ports"
)

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected error for empty pool")
	}
	if _, err := New([]ports.Credential{{Name: "bad"}}); err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestFromKeysSkipsEmpty(t *testing.T) {
	pool, err := FromKeys("k1", "", "k3")
	if err != nil {
		t.Fatalf("FromKeys: %v", err)
	}
	if pool.Size() != 2 {
		t.Errorf("Size = %d, want 2", pool.Size())
	}
	if _, err := FromKeys("", ""); err == nil {
		t.Error("expected error when every key is empty")
	}
}

func TestFromKeysSizedReplicatesToSize(t *testing.T) {
	pool, err := FromKeysSized(2, "only-key")
	if err != nil {
		t.Fatalf("FromKeysSized: %v", err)
	}
	if pool.Size() != 2 {
		t.Fatalf("Size = %d, want 2", pool.Size())
	}

	// both handles must be acquirable while the first is still held, so
	// a single-key deployment never serializes the concurrent stage pair
	first, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	second, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("second Acquire while first held: %v", err)
	}
	if first.APIKey != "only-key" || second.APIKey != "only-key" {
		t.Errorf("replicated handles carry keys %q, %q", first.APIKey, second.APIKey)
	}
	if first.Name == second.Name {
		t.Errorf("replicated handles share the name %q", first.Name)
	}
}

func TestFromKeysSizedKeepsExtraKeys(t *testing.T) {
	pool, err := FromKeysSized(2, "k1", "k2", "k3")
	if err != nil {
		t.Fatalf("FromKeysSized: %v", err)
	}
	if pool.Size() != 3 {
		t.Errorf("Size = %d, want 3", pool.Size())
	}

	if _, err := FromKeysSized(2, "", ""); err == nil {
		t.Error("expected error when every key is empty")
	}
}

func TestAcquireRelease(t *testing.T) {
	pool, err := FromKeys("k1")
	if err != nil {
		t.Fatalf("FromKeys: %v", err)
	}
	cred, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if cred.APIKey != "k1" {
		t.Errorf("APIKey = %q", cred.APIKey)
	}

	// the pool is empty now; a second acquire must block until release
	acquired := make(chan ports.Credential)
	go func() {
		c, err := pool.Acquire(context.Background())
		if err != nil {
			t.Errorf("second Acquire: %v", err)
		}
		acquired <- c
	}()

	select {
	case <-acquired:
		t.Fatal("Acquire returned before Release")
	case <-time.After(20 * time.Millisecond):
	}

	pool.Release(cred)
	select {
	case c := <-acquired:
		if c.APIKey != "k1" {
			t.Errorf("recycled APIKey = %q", c.APIKey)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire did not observe Release")
	}
}

func TestAcquireHonorsContext(t *testing.T) {
	pool, err := FromKeys("k1")
	if err != nil {
		t.Fatalf("FromKeys: %v", err)
	}
	if _, err := pool.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := pool.Acquire(ctx); err == nil {
		t.Error("expected context error on exhausted pool")
	}
}
