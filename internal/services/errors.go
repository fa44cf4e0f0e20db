package services

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/mastery-service/internal/errors"
	"github.com/SAP-F-2025/mastery-service/internal/generator"
	"github.com/SAP-F-2025/mastery-service/internal/mastery"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("resource conflict")

	// Session specific errors
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyActive = errors.New("user already has an active session")
	ErrSessionCompleted     = errors.New("session already mastered")

	// Profile specific errors
	ErrProfileNotFound = errors.New("weakness profile not found")

	// Report specific errors
	ErrReportPending = errors.New("detailed report is still being generated")

	// Generation errors surfaced to the UI as retryable
	ErrGenerationUnavailable = errors.New("content generator unavailable")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

// ===== ERROR HELPERS =====

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrProfileNotFound)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrSessionAlreadyActive) ||
		errors.Is(err, ErrSessionCompleted)
}

// IsInvalidSubmission checks if error represents a submit rejected at the
// loop boundary (unanswered questions, wrong phase, unknown question).
func IsInvalidSubmission(err error) bool {
	return errors.Is(err, mastery.ErrUnansweredQuestions) ||
		errors.Is(err, mastery.ErrUnknownQuestion) ||
		errors.Is(err, mastery.ErrQuizNotActive) ||
		errors.Is(err, mastery.ErrRemediationInactive)
}

// IsRetryableGeneration checks if error represents a transient generator
// failure the caller may simply retry.
func IsRetryableGeneration(err error) bool {
	return errors.Is(err, ErrGenerationUnavailable) || generator.IsTransportError(err)
}
