package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	RunID    ID
	SignalID ID
	CaseID   ID
)

func (id RunID) String() string    { return ID(id).String() }
func (id SignalID) String() string { return ID(id).String() }
func (id CaseID) String() string   { return ID(id).String() }

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	return RunID(s), nil
}

// CustomerID is the external billing identifier for one analysis subject.
// Derived from the subject name when the caller does not supply one.
type CustomerID string

func (id CustomerID) String() string { return string(id) }

// DeriveCustomerID normalizes a subject name into a billing-safe external id
func DeriveCustomerID(subject string) CustomerID {
	s := strings.ToLower(strings.TrimSpace(subject))
	if s == "" {
		s = "unknown"
	}
	s = strings.NewReplacer(" ", "_", "-", "_", ".", "_").Replace(s)
	if len(s) > 64 {
		s = s[:64]
	}
	return CustomerID(s)
}
