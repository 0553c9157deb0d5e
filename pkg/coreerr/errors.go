// Package coreerr defines the error-kind taxonomy shared by the store,
// embedding, and ingest layers, so HTTP handlers can map a single Kind
// enum to a status code instead of string-matching error text.
package coreerr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindDuplicateDocument   Kind = "duplicate_document"
	KindNoArticlesExtracted Kind = "no_articles_extracted"
	KindEmbeddingFailed     Kind = "embedding_failed"
	KindVectorWriteFailed   Kind = "vector_write_failed"
	KindRelationalWriteFailed Kind = "relational_write_failed"
	KindDimensionMismatch   Kind = "dimension_mismatch"
	KindTimeout             Kind = "timeout"
	KindCancelled           Kind = "cancelled"
	KindNotFound            Kind = "not_found"
)

// CoreError carries a Kind alongside the wrapped cause so callers can
// branch with errors.As without parsing message text.
type CoreError struct {
	Kind Kind
	Op   string
	Err  error
}

func New(kind Kind, op string, err error) *CoreError {
	return &CoreError{Kind: kind, Op: op, Err: err}
}

func (e *CoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *CoreError) Unwrap() error { return e.Err }

// Of returns the Kind of the first *CoreError in err's chain, and false if
// the chain holds none.
func Of(err error) (Kind, bool) {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}
