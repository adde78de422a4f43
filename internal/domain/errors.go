package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur during a pipeline run.
var (
	// ErrInvalidTopicSet indicates that a topic set failed validation.
	ErrInvalidTopicSet = errors.New("invalid topic set")

	// ErrUnknownTopic indicates that a label does not name any topic.
	ErrUnknownTopic = errors.New("unknown topic")

	// ErrEmptySubject indicates that a run was requested without a subject.
	ErrEmptySubject = errors.New("empty subject")

	// ErrInvalidCorrections indicates that the critic returned a payload for
	// a topic that is not a proper list of corrections.
	ErrInvalidCorrections = errors.New("invalid corrections payload")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// TopicError records a failure of a per-topic task.
type TopicError struct {
	// Topic is the topic whose task failed.
	Topic Topic

	// Operation is the task that failed, such as "draft" or "revise".
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for TopicError.
func (e *TopicError) Error() string {
	return fmt.Sprintf("topic error: operation=%s, topic=%s, err=%v", e.Operation, e.Topic.Label, e.Err)
}

// Unwrap returns the underlying error.
func (e *TopicError) Unwrap() error { return e.Err }

// NewTopicError creates a new TopicError with the given details.
func NewTopicError(topic Topic, operation string, err error) *TopicError {
	return &TopicError{
		Topic:     topic,
		Operation: operation,
		Err:       err,
	}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
