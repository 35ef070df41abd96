package core

import (
	"errors"
)

var (
	// ErrRecordNotFound is returned when a query expects at least one record but none were found.
	ErrRecordNotFound = errors.New("record not found")
	// ErrInvalidModel is returned when a model type cannot be mapped to a table descriptor.
	ErrInvalidModel = errors.New("invalid model")
	// ErrConnectionFailed is returned when the database connection cannot be established or is lost.
	ErrConnectionFailed = errors.New("connection failed")
	// ErrInvalidStatement is returned when a raw statement is empty or malformed.
	ErrInvalidStatement = errors.New("invalid statement")
	// ErrValidation is returned when record data fails schema-derived validation.
	ErrValidation = errors.New("validation failed")
)
