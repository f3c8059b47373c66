package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrErrorNotFound     = errors.New("document error not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("conflicting operation in progress")
	ErrUpstream          = errors.New("inference upstream unavailable")
	ErrMalformedResponse = errors.New("malformed inference response")
	ErrStorage           = errors.New("storage failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// Retryable reports whether the failure is worth retrying from the caller's
// point of view: the upstream erred or answered outside its contract, but the
// document itself is fine.
func Retryable(err error) bool {
	return IsKind(err, ErrUpstream) || IsKind(err, ErrMalformedResponse)
}
