package model

import "errors"

// Domain errors shared by the store, the management panel and the HTTP layer.
var (
	// ErrNotFound indicates a configuration index outside the stored list.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a request, schema or form state that fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPermissionDenied indicates the download permission has not been granted.
	ErrPermissionDenied = errors.New("permission denied")
)
