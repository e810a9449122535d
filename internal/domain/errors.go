package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedDeclaration is returned when an ingredient declaration has unbalanced brackets
	ErrMalformedDeclaration = errors.New("malformed ingredient declaration")

	// ErrMissingRequiredInput is returned when a required column or argument is absent
	ErrMissingRequiredInput = errors.New("missing required input")

	// ErrInvalidNumber is returned when a numeric product column cannot be parsed
	ErrInvalidNumber = errors.New("invalid numeric value")

	// ErrInvalidWeightTable is returned when the ingredient weight table contains an unusable row
	ErrInvalidWeightTable = errors.New("invalid ingredient weight table")

	// ErrInvalidPattern is returned when an ingredient pattern does not compile
	ErrInvalidPattern = errors.New("invalid ingredient pattern")
)

// MalformedDeclarationError carries the offending declaration text.
type MalformedDeclarationError struct {
	Declaration string
	Offset      int
	Reason      string
}

func (e *MalformedDeclarationError) Error() string {
	return fmt.Sprintf("%s: %s at offset %d: %q", ErrMalformedDeclaration, e.Reason, e.Offset, e.Declaration)
}

// Is lets errors.Is match ErrMalformedDeclaration.
func (e *MalformedDeclarationError) Is(target error) bool {
	return target == ErrMalformedDeclaration
}

// MissingInputError names the required field that was not supplied.
type MissingInputError struct {
	Field string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingRequiredInput, e.Field)
}

// Is lets errors.Is match ErrMissingRequiredInput.
func (e *MissingInputError) Is(target error) bool {
	return target == ErrMissingRequiredInput
}
