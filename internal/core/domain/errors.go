package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrEmptyDownload     = errors.New("file data empty or could not be downloaded")
	ErrTypeDetection     = errors.New("content type detection failed")
	ErrExtractionFailed  = errors.New("content extraction produced no text")
	ErrChunkingFailed    = errors.New("chunking produced no chunks")
	ErrNoCollection      = errors.New("no collection identifier configured")
	ErrTemporary         = errors.New("temporary failure")
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
