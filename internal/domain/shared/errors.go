// Package shared contains common domain types, errors and events
// used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrOptimisticLock         = errors.New("optimistic lock failure")

	// Infrastructure errors
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progress", "certification"
	Op      string // Operation that failed, e.g., "CompleteLesson"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Catalog errors
var (
	ErrExerciseNotFound      = NewDomainError("catalog", "FindExercise", ErrNotFound, "exercise not found")
	ErrLessonNotFound        = NewDomainError("catalog", "FindLesson", ErrNotFound, "lesson not found")
	ErrUnitNotFound          = NewDomainError("catalog", "FindUnit", ErrNotFound, "unit not found")
	ErrCourseNotFound        = NewDomainError("catalog", "FindCourse", ErrNotFound, "course not found")
	ErrLanguageNotFound      = NewDomainError("catalog", "FindLanguage", ErrNotFound, "language not found")
	ErrCertificationNotFound = NewDomainError("catalog", "FindCertification", ErrNotFound, "certification not found")
)

// Progress errors
var (
	ErrLessonNotStarted        = NewDomainError("progress", "RequireLesson", ErrInvalidState, "lesson has not been started")
	ErrUnitNotStarted          = NewDomainError("progress", "RequireUnit", ErrInvalidState, "unit progress is missing")
	ErrCourseNotStarted        = NewDomainError("progress", "RequireCourse", ErrInvalidState, "course progress is missing")
	ErrLessonProgressNotFound  = NewDomainError("progress", "FindLesson", ErrNotFound, "lesson progress not found")
	ErrUnitProgressNotFound    = NewDomainError("progress", "FindUnit", ErrNotFound, "unit progress not found")
	ErrCourseProgressNotFound  = NewDomainError("progress", "FindCourse", ErrNotFound, "course progress not found")
	ErrLanguageProgressMissing = NewDomainError("progress", "FindLanguage", ErrNotFound, "language progress not found")
	ErrInvalidHintsUsed        = NewDomainError("progress", "Validate", ErrNegativeValue, "hints used cannot be negative")
)

// Gamification errors
var (
	ErrProfileNotFound         = NewDomainError("gamification", "FindProfile", ErrNotFound, "learner profile not found")
	ErrDailyGoalNotFound       = NewDomainError("gamification", "FindDailyGoal", ErrNotFound, "daily goal not found")
	ErrUserAchievementNotFound = NewDomainError("gamification", "FindAchievement", ErrNotFound, "user achievement not found")
	ErrInvalidDuration         = NewDomainError("gamification", "Validate", ErrNegativeValue, "session duration cannot be negative")
	ErrInvalidRating           = NewDomainError("gamification", "Validate", ErrValueOutOfRange, "rating must be between 1 and 5")
)

// Certification errors
var (
	ErrNotEligible              = NewDomainError("certification", "Issue", ErrInvalidState, "learner is not eligible for this certification")
	ErrCertificateAlreadyIssued = NewDomainError("certification", "Issue", ErrAlreadyExists, "certificate already issued")
	ErrCertificateNotFound      = NewDomainError("certification", "Find", ErrNotFound, "certificate not found")
	ErrCertificateRevoked       = NewDomainError("certification", "Revoke", ErrStateTransition, "certificate already revoked")
	ErrCertificateNumberTaken   = NewDomainError("certification", "Issue", ErrConcurrentModification, "certificate number collision")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsPrecondition checks if the operation was rejected because of the
// current state of the learner's progress.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrInvalidState) || errors.Is(err, ErrStateTransition)
}

// IsConflict checks if the error is a lost concurrency race.
func IsConflict(err error) bool {
	return errors.Is(err, ErrOptimisticLock) || errors.Is(err, ErrConcurrentModification)
}

// IsRetryable checks if the operation can be retried as a whole.
func IsRetryable(err error) bool {
	return IsConflict(err)
}
