package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Contract violations: graph-construction bugs, never retried
	ErrContractViolation = errors.New("stage contract violation")
	ErrMissingKey        = fmt.Errorf("%w: key not set", ErrContractViolation)
	ErrDuplicateKey      = fmt.Errorf("%w: key already written", ErrContractViolation)
	ErrUndeclaredKey     = fmt.Errorf("%w: key not declared by stage", ErrContractViolation)

	// External capability failures: retried up to the stage's declared limit
	ErrExternalService  = errors.New("external service failure")
	ErrSearchFailed     = fmt.Errorf("%w: search", ErrExternalService)
	ErrExtractionFailed = fmt.Errorf("%w: content extraction", ErrExternalService)
	ErrCompletionFailed = fmt.Errorf("%w: structured completion", ErrExternalService)

	// Validation failures: malformed scoring inputs, never retried
	ErrValidation = errors.New("validation failure")

	// A stage ended with zero usable items when at least one was expected
	ErrNoUsableItems = errors.New("no usable items survived stage")
)

// Error constructors with context

func NewMissingKeyError(stage, key string) error {
	return fmt.Errorf("%w: stage %s read %q", ErrMissingKey, stage, key)
}

func NewDuplicateKeyError(stage, key string) error {
	return fmt.Errorf("%w: stage %s wrote %q", ErrDuplicateKey, stage, key)
}

func NewUndeclaredKeyError(stage, key, direction string) error {
	return fmt.Errorf("%w: stage %s %s %q", ErrUndeclaredKey, stage, direction, key)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrValidation, field, reason)
}

// Error checking helpers

func IsContractViolation(err error) bool {
	return errors.Is(err, ErrContractViolation)
}

func IsExternalServiceError(err error) bool {
	return errors.Is(err, ErrExternalService)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsFatal reports whether an error must abort the run without retry
func IsFatal(err error) bool {
	return IsContractViolation(err) || IsValidationError(err)
}
