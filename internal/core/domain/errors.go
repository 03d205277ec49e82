package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidFilter      = errors.New("invalid filter")
	ErrUnsupportedOp      = errors.New("unsupported filter operation")
	ErrRetrieverNotFound  = errors.New("retriever not found")
	ErrWeightsMismatch    = errors.New("weights length does not match retrievers")
	ErrTemporary          = errors.New("temporary failure")
	ErrBackendUnavailable = errors.New("backend unavailable")
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
