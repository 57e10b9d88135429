package state

import (
	"errors"
	"testing"

	"crisiswatch/domain/core"
)

func TestSeedAndHas(t *testing.T) {
	store := NewStore()
	err := store.Seed(map[Key]any{
		KeySubjectName: "Acme",
		KeyRunID:       "run-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !store.Has(KeySubjectName) || !store.Has(KeyRunID) {
		t.Error("seeded keys should be present")
	}
	if store.Has(KeySignalItems) {
		t.Error("unseeded key should be absent")
	}
}

func TestSeedRejectsDuplicate(t *testing.T) {
	store := NewStore()
	if err := store.Seed(map[Key]any{KeySubjectName: "Acme"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := store.Seed(map[Key]any{KeySubjectName: "Globex"})
	if !errors.Is(err, core.ErrDuplicateKey) {
		t.Errorf("expected duplicate key error, got %v", err)
	}
}

func TestSingleAssignment(t *testing.T) {
	store := NewStore()
	acc := store.Access("collection", nil, []Key{KeySignalItems})

	if err := acc.Set(KeySignalItems, []string{"a"}); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	err := acc.Set(KeySignalItems, []string{"b"})
	if !errors.Is(err, core.ErrDuplicateKey) {
		t.Errorf("expected duplicate key error on second write, got %v", err)
	}
	if !core.IsContractViolation(err) {
		t.Errorf("duplicate write must classify as contract violation, got %v", err)
	}
}

func TestUndeclaredWriteRejected(t *testing.T) {
	store := NewStore()
	acc := store.Access("collection", nil, []Key{KeySignalItems})

	err := acc.Set(KeyInvoice, "sneaky")
	if !errors.Is(err, core.ErrUndeclaredKey) {
		t.Errorf("expected undeclared key error, got %v", err)
	}
	if store.Has(KeyInvoice) {
		t.Error("rejected write must not land in the store")
	}
}

func TestUndeclaredReadRejected(t *testing.T) {
	store := NewStore()
	if err := store.Seed(map[Key]any{KeySubjectName: "Acme"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	acc := store.Access("scoring", []Key{KeySignalItems}, nil)

	_, err := acc.Get(KeySubjectName)
	if !errors.Is(err, core.ErrUndeclaredKey) {
		t.Errorf("expected undeclared key error, got %v", err)
	}
}

func TestMissingKeyRead(t *testing.T) {
	store := NewStore()
	acc := store.Access("scoring", []Key{KeySignalItems}, nil)

	_, err := acc.Get(KeySignalItems)
	if !errors.Is(err, core.ErrMissingKey) {
		t.Errorf("expected missing key error, got %v", err)
	}
}

func TestTypedGet(t *testing.T) {
	store := NewStore()
	if err := store.Seed(map[Key]any{KeyMaxSeverity: 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	acc := store.Access("strategy", []Key{KeyMaxSeverity}, nil)

	got, err := Get[int](acc, KeyMaxSeverity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 4 {
		t.Errorf("expected 4, got %d", got)
	}

	// Wrong type assertion is a contract violation.
	_, err = Get[string](acc, KeyMaxSeverity)
	if !core.IsContractViolation(err) {
		t.Errorf("expected contract violation for type mismatch, got %v", err)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	store := NewStore()
	if err := store.Seed(map[Key]any{KeySubjectName: "Acme"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := store.Snapshot()
	snap[KeySubjectName] = "Tampered"
	snap[KeyInvoice] = "injected"

	if store.Has(KeyInvoice) {
		t.Error("snapshot mutation leaked into the store")
	}
	acc := store.Access("check", []Key{KeySubjectName}, nil)
	got, err := Get[string](acc, KeySubjectName)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Acme" {
		t.Errorf("expected original value, got %q", got)
	}
}

func TestLookup(t *testing.T) {
	snap := map[Key]any{KeyTotalValueAtRisk: 1234.5}

	got, ok := Lookup[float64](snap, KeyTotalValueAtRisk)
	if !ok || got != 1234.5 {
		t.Errorf("expected 1234.5, got %v (ok=%v)", got, ok)
	}
	if _, ok := Lookup[string](snap, KeyTotalValueAtRisk); ok {
		t.Error("type-mismatched lookup must report absence")
	}
	if _, ok := Lookup[float64](snap, KeyScoringCost); ok {
		t.Error("missing key lookup must report absence")
	}
}
