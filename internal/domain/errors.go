package domain

import (
	"errors"
	"fmt"
)

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrStoreNotFound      = errors.New("local embedding store not found")
	ErrInvalidWindow      = errors.New("chunk overlap must be smaller than chunk size")
)

// ConfigurationError is fatal at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// EmbeddingError wraps a failed embedding call.
type EmbeddingError struct {
	Input string
	Err   error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed (%d chars): %v", len(e.Input), e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// IndexUnavailableError means the vector index could not serve an operation.
type IndexUnavailableError struct {
	Op  string
	Err error
}

func (e *IndexUnavailableError) Error() string {
	return fmt.Sprintf("index unavailable during %s: %v", e.Op, e.Err)
}

func (e *IndexUnavailableError) Unwrap() error { return e.Err }

// MalformedVectorError reports an embedding of the wrong length.
type MalformedVectorError struct {
	Got  int
	Want int
}

func (e *MalformedVectorError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Want, e.Got)
}
