package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Stage names the point of a run at which a fatal error occurred.
type Stage string

// Fatal stages.
const (
	StageInit     Stage = "init"
	StageConfig   Stage = "config"
	StageSnapshot Stage = "snapshot"
	StageSanitize Stage = "sanitize"
	StagePersist  Stage = "persist"
)

// FatalError aborts a run. Only errors of this type leave the orchestrator.
type FatalError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal error during %s: %v", e.Stage, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *FatalError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *FatalError) Is(target error) bool {
	return target == ErrFatal
}

// NewFatalError creates a new FatalError. A nil err yields nil.
func NewFatalError(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var fe *FatalError
	if errors.As(err, &fe) {
		return err
	}
	return &FatalError{Stage: stage, Err: err}
}

// IsFatal reports whether err belongs to the fatal channel.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}

// FatalStage returns the stage of a fatal error, or "" if err is not fatal.
func FatalStage(err error) Stage {
	var fe *FatalError
	if errors.As(err, &fe) {
		return fe.Stage
	}
	return ""
}

// FieldError is a recoverable failure while producing one field's value.
type FieldError struct {
	Field string
	Stage string // "resolve", "transcode"
	Err   error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %s failed: %v", e.Field, e.Stage, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// NewFieldError creates a new FieldError.
func NewFieldError(field, stage string, err error) *FieldError {
	return &FieldError{Field: field, Stage: stage, Err: err}
}

// RecordError is a recoverable failure affecting one certificate record.
type RecordError struct {
	Serial string
	Stage  string // "detail", "commit"
	Err    error
}

// Error implements the error interface.
func (e *RecordError) Error() string {
	return fmt.Sprintf("certificate %s: %s failed: %v", e.Serial, e.Stage, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *RecordError) Unwrap() error {
	return e.Err
}

// NewRecordError creates a new RecordError.
func NewRecordError(serial, stage string, err error) *RecordError {
	return &RecordError{Serial: serial, Stage: stage, Err: err}
}

// SchemaFieldError is a failure pushing one field definition to the target system.
type SchemaFieldError struct {
	Field     string
	Operation string // "create", "update"
	Err       error
}

// Error implements the error interface.
func (e *SchemaFieldError) Error() string {
	return fmt.Sprintf("failed to %s metadata field %s: %v", e.Operation, e.Field, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *SchemaFieldError) Unwrap() error {
	return e.Err
}

// UnresolvedCharactersError reports banned characters that have no replacement.
type UnresolvedCharactersError struct {
	Characters []string
	Fields     []string
}

// Error implements the error interface.
func (e *UnresolvedCharactersError) Error() string {
	msg := fmt.Sprintf("%d banned character(s) have no replacement: %s",
		len(e.Characters), strings.Join(quoteAll(e.Characters), ", "))
	if len(e.Fields) > 0 {
		msg += fmt.Sprintf(" (fields: %s)", strings.Join(e.Fields, ", "))
	}
	return msg
}

// Is implements errors.Is support.
func (e *UnresolvedCharactersError) Is(target error) bool {
	return target == ErrInvalidInput
}

func quoteAll(values []string) []string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return quoted
}
