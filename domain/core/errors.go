package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrSampleNotFound = fmt.Errorf("%w: sample", ErrNotFound)
	ErrUploadNotFound = fmt.Errorf("%w: upload", ErrNotFound)

	ErrInvalidID       = errors.New("invalid id")
	ErrInvalidMapping  = errors.New("invalid column mapping")
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrEmptyFile       = errors.New("file has no header row")
	ErrEmptyRow        = errors.New("row has no mapped values")
)

// NewNotFoundError wraps ErrNotFound with the resource and id
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// IsNotFoundError reports whether err is any not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInputError reports whether err was caused by bad user input
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidMapping) ||
		errors.Is(err, ErrUnsupportedFile) ||
		errors.Is(err, ErrEmptyFile)
}
