package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmbedding signals that the model could not produce a vector for a text.
	ErrEmbedding = errors.New("embedding failed")
	// ErrDimensionMismatch signals that two vectors disagree in dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidParameter signals a search parameter outside its valid domain.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrCatalogLoad signals that the catalog could not be read from storage.
	ErrCatalogLoad = errors.New("catalog load failed")
)

// DimensionMismatchError wraps ErrDimensionMismatch with the offending dimensions.
type DimensionMismatchError struct {
	Field string // which vector disagreed, e.g. "query" or "title_embedding"
	Want  int
	Got   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: %s has dimension %d, want %d",
		ErrDimensionMismatch.Error(), e.Field, e.Got, e.Want)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(field string, want, got int) error {
	return &DimensionMismatchError{Field: field, Want: want, Got: got}
}

// InvalidParameter wraps ErrInvalidParameter with the parameter name and reason.
func InvalidParameter(name, format string, args ...any) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidParameter, name, fmt.Sprintf(format, args...))
}
