package app

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidCredentials is shown to end users and must not reveal which part was wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("not found")

	ErrFileRequired        = errors.New("file is required")
	ErrFileTooLarge        = errors.New("file too large")
	ErrUnsupportedFileType = errors.New("unsupported file type")
)

// FieldError is one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports every invalid field of a request at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConflictError is returned when a page title already exists in the target chapter.
type ConflictError struct {
	ExistingID int64
	Title      string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("a page titled %q already exists in this chapter", e.Title)
}

// StoreError wraps a persistence failure. Its message is for logs only.
type StoreError struct {
	Op  string
	ID  int64
	Err error
}

func (e *StoreError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("store %s (id %d): %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, id int64, err error) error {
	return &StoreError{Op: op, ID: id, Err: err}
}
