/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when a record, container or database does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists is returned when attempting to create a resource that already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConditionFailed is returned when a conditional write fails
	ErrConditionFailed = errors.New("condition check failed")

	// ErrThrottled is returned when the store rejects a request for exceeding its capacity
	ErrThrottled = errors.New("request throttled")

	// ErrConflict is returned when a concurrent change prevented the operation
	ErrConflict = errors.New("conflicting operation")

	// ErrUnavailable is returned when the store cannot be reached or failed internally
	ErrUnavailable = errors.New("store unavailable")
)

// NotFoundError represents a missing resource. PartitionKey is empty for
// resources that are not records (databases, containers).
type NotFoundError struct {
	Type         string
	ID           string
	PartitionKey string
}

func (e *NotFoundError) Error() string {
	if e.PartitionKey != "" {
		return fmt.Sprintf("%s [%s,%s] not found", e.Type, e.PartitionKey, e.ID)
	}
	return fmt.Sprintf("%s %q not found", e.Type, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents a create against an existing resource
type AlreadyExistsError struct {
	Type         string
	ID           string
	PartitionKey string
}

func (e *AlreadyExistsError) Error() string {
	if e.PartitionKey != "" {
		return fmt.Sprintf("%s [%s,%s] already exists", e.Type, e.PartitionKey, e.ID)
	}
	return fmt.Sprintf("%s %q already exists", e.Type, e.ID)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConditionFailedError represents a failed conditional operation
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

// StoreError is a failure reported by the backing store. Kind is one of the
// sentinel errors above; Code is the backend's own error code.
type StoreError struct {
	Kind    error
	Code    string
	Message string
}

func (e *StoreError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%v (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *StoreError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError for a record
func NewNotFoundError(resourceType, id, partitionKey string) error {
	return &NotFoundError{Type: resourceType, ID: id, PartitionKey: partitionKey}
}

// NewAlreadyExistsError creates a new AlreadyExistsError for a record
func NewAlreadyExistsError(resourceType, id, partitionKey string) error {
	return &AlreadyExistsError{Type: resourceType, ID: id, PartitionKey: partitionKey}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// NewStoreError creates a new StoreError of the given kind
func NewStoreError(kind error, code, message string) error {
	return &StoreError{Kind: kind, Code: code, Message: message}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsThrottled checks if an error is a throttling error
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}
