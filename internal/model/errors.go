package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateIdentifier = errors.New("model: duplicate identifier")
	ErrEvaluationCycle     = errors.New("model: evaluation cycle")
	ErrUnknownIdentifier   = errors.New("model: unknown identifier")
)

// DuplicateIdentifierError lists every id declared more than once.
type DuplicateIdentifierError struct {
	IDs []string
}

func (e *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("%v: %s", ErrDuplicateIdentifier, strings.Join(e.IDs, ", "))
}

func (e *DuplicateIdentifierError) Unwrap() error {
	return ErrDuplicateIdentifier
}

// CycleError names the id that was demanded while its own resolution was
// still in progress.
type CycleError struct {
	ID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v at %q", ErrEvaluationCycle, e.ID)
}

func (e *CycleError) Unwrap() error {
	return ErrEvaluationCycle
}
