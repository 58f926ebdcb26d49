package models

import "errors"

// Error kinds returned by the store. Callers match them with errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrForeignKey  = errors.New("foreign key error")
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence error")
)
