// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	goerrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Domain-rule errors are expected outcomes: the caller cannot retry its way out
// of them without changing input. Storage and delivery errors are technical and
// eligible for engine-driven retries.
const (
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidState     ErrorCode = "INVALID_STATE"
	ErrCodeNoActiveMembers  ErrorCode = "NO_ACTIVE_MEMBERS"
	ErrCodeAlreadyAllocated ErrorCode = "ALREADY_ALLOCATED"

	ErrCodeStorageFailure         ErrorCode = "STORAGE_FAILURE"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewUnauthorizedError creates a non-retryable missing-caller-identity error.
// Raised before any store access.
func NewUnauthorizedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorized,
		Message:   "Caller identity missing or invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError creates a non-retryable entity-not-found error.
func NewNotFoundError(resourceType, resourceID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resourceType),
		Details:   fmt.Sprintf("%sId: %s", resourceType, resourceID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailedError creates a non-retryable input validation error.
func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidStateError creates a non-retryable state-transition error. The
// details carry the entity and its current state so an operator can correct
// the situation from the dashboard.
func NewInvalidStateError(resourceType, resourceID, currentState, attempted string) *StandardError {
	return &StandardError{
		Code:    ErrCodeInvalidState,
		Message: fmt.Sprintf("%s cannot be %s from state %s", resourceType, attempted, currentState),
		Details: fmt.Sprintf("%sId: %s, currentState: %s", resourceType, resourceID, currentState),
		Metadata: map[string]interface{}{
			"currentState": currentState,
			"attempted":    attempted,
		},
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoActiveMembersError creates a non-retryable allocation error: the fund
// has no active paid members to share the claim across.
func NewNoActiveMembersError(applicationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoActiveMembers,
		Message:   "No active paid members to allocate reimbursements to",
		Details:   fmt.Sprintf("applicationId: %s", applicationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAlreadyAllocatedError creates a non-retryable re-allocation error: every
// active member already holds a reimbursement row for this application.
func NewAlreadyAllocatedError(applicationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAlreadyAllocated,
		Message:   "All active members already have reimbursements for this application",
		Details:   fmt.Sprintf("applicationId: %s", applicationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageFailureError creates a retryable store error.
func NewStorageFailureError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageFailure,
		Message:   "Ledger store operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes (identical on
// both sides so process models reference the same names the code does).
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeUnauthorized:           "UNAUTHORIZED",
	ErrCodeNotFound:               "NOT_FOUND",
	ErrCodeValidationFailed:       "VALIDATION_FAILED",
	ErrCodeInvalidState:           "INVALID_STATE",
	ErrCodeNoActiveMembers:        "NO_ACTIVE_MEMBERS",
	ErrCodeAlreadyAllocated:       "ALREADY_ALLOCATED",
	ErrCodeStorageFailure:         "STORAGE_FAILURE",
	ErrCodeNotificationSendFailed: "NOTIFICATION_SEND_FAILED",
}

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStorageFailure,
		ErrCodeNotificationSendFailed:
		return 3 // Retryable technical errors

	default:
		return 0 // Domain-rule errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code) // Fallback
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// CodeOf extracts the ErrorCode from any error, or INTERNAL_ERROR when the
// error did not originate from this package.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if goerrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return "INTERNAL_ERROR"
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// IsDomainError reports whether the code is an expected domain-rule outcome as
// opposed to a technical failure.
func IsDomainError(code ErrorCode) bool {
	switch code {
	case ErrCodeUnauthorized,
		ErrCodeNotFound,
		ErrCodeValidationFailed,
		ErrCodeInvalidState,
		ErrCodeNoActiveMembers,
		ErrCodeAlreadyAllocated:
		return true
	default:
		return false
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "UNAUTHORIZED"):
		return "AUTH"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "STATE") || strings.Contains(codeStr, "MEMBERS") || strings.Contains(codeStr, "ALLOCATED") || strings.Contains(codeStr, "NOT_FOUND"):
		return "DOMAIN"
	case strings.Contains(codeStr, "STORAGE"):
		return "STORAGE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}
