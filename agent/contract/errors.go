package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")

	// Boundary errors. These are the only failures a caller is expected to see.
	ErrUnauthenticated = errors.New("caller is not authenticated")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrForbidden       = errors.New("caller may not access resource")
	ErrNotFound        = errors.New("resource not found")
	ErrPersistence     = errors.New("persistence failed")
)
