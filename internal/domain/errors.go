package domain

import (
	"errors"
	"fmt"
)

// Sentinels para clasificar errores con errors.Is sin conocer el tipo concreto.
var (
	ErrPersistence    = errors.New("persistence failure")
	ErrCorruptHistory = errors.New("corrupt history document")
	ErrInvalidWeights = errors.New("invalid weights")
	ErrInvalidPrice   = errors.New("price must be positive")
	ErrInvalidHistory = errors.New("history document fails its schema")
)

// PersistenceError wraps an I/O or serialization failure while reading or
// writing one of the persisted documents. On-disk state is left untouched.
type PersistenceError struct {
	Op     string // "load" | "save"
	Target string // document name or path
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s %s: %v", e.Op, e.Target, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// CorruptHistoryError means a stored document exists but is not well-formed.
// It requires manual recovery: callers must never replace the document with an
// empty one.
type CorruptHistoryError struct {
	Document string
	Reason   string
	Err      error
}

func (e *CorruptHistoryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corrupt %s: %s: %v", e.Document, e.Reason, e.Err)
	}
	return fmt.Sprintf("corrupt %s: %s", e.Document, e.Reason)
}

func (e *CorruptHistoryError) Unwrap() error { return e.Err }

func (e *CorruptHistoryError) Is(target error) bool { return target == ErrCorruptHistory }

// InvalidWeightsError is a programmer error: a weight vector handed to the
// combiner is not on the probability simplex.
type InvalidWeightsError struct {
	Sum    float64
	Reason string
}

func (e *InvalidWeightsError) Error() string {
	return fmt.Sprintf("invalid weights (sum=%.9f): %s", e.Sum, e.Reason)
}

func (e *InvalidWeightsError) Is(target error) bool { return target == ErrInvalidWeights }
