package services

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// ValidationError reports missing or malformed input. Never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an id that does not resolve.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ConflictError reports a state transition that is no longer possible,
// usually because another reviewer got there first.
type ConflictError struct {
	Resource string
	ID       string
	Status   string
	Message  string
}

func (e *ConflictError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s is already %s", e.Resource, e.ID, e.Status)
}

// DependencyError wraps a failure of the database or the payout gateway.
type DependencyError struct {
	Dependency string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// ConfigurationError reports missing account settings needed for payouts.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("payout configuration missing: %s", e.Setting)
}

// PayoutError means the transfer did not go through. Nothing was recorded and
// approve can be retried with the same idempotency key.
type PayoutError struct {
	SubmissionID string
	Err          error
}

func (e *PayoutError) Error() string {
	return fmt.Sprintf("payout failed for submission %s: %v", e.SubmissionID, e.Err)
}

func (e *PayoutError) Unwrap() error { return e.Err }

// BookkeepingError means money moved but the approval was not recorded.
// Retrying approve reuses the idempotency key and pays nothing twice.
type BookkeepingError struct {
	SubmissionID string
	TransferID   string
	Err          error
}

func (e *BookkeepingError) Error() string {
	return fmt.Sprintf("payout %s sent for submission %s but records were not updated: %v",
		e.TransferID, e.SubmissionID, e.Err)
}

func (e *BookkeepingError) Unwrap() error { return e.Err }

// storeError wraps a gorm failure as a database DependencyError.
func storeError(err error, action string) error {
	if err == nil {
		return nil
	}
	return &DependencyError{Dependency: "database", Err: pkgerrors.Wrap(err, action)}
}

// notFoundOr maps gorm.ErrRecordNotFound to NotFoundError and anything else to storeError.
func notFoundOr(err error, resource, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Resource: resource, ID: id}
	}
	return storeError(err, "load "+resource)
}
