// Package errors provides standardized error handling for the notification pipeline.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeConfigUnresolved ErrorCode = "CONFIG_UNRESOLVED"
	ErrCodeNotConfigured    ErrorCode = "NOTIFICATION_NOT_CONFIGURED"

	ErrCodeTransportRejected    ErrorCode = "TRANSPORT_REJECTED"
	ErrCodeTransportUnreachable ErrorCode = "TRANSPORT_UNREACHABLE"

	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	ErrCodeNoRecipientDelivered      ErrorCode = "NO_RECIPIENT_DELIVERED"
	ErrCodeAdminDirectoryUnavailable ErrorCode = "ADMIN_DIRECTORY_UNAVAILABLE"
	ErrCodeAuditWriteFailed          ErrorCode = "AUDIT_WRITE_FAILED"
	ErrCodeAlertPublishFailed        ErrorCode = "ALERT_PUBLISH_FAILED"
	ErrCodeAuthentication            ErrorCode = "AUTHENTICATION_ERROR"
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

// Is matches any StandardError carrying the same code, so callers can use
// errors.Is(err, &StandardError{Code: ...}).
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ==========================
// 2. Error Constructors
// ==========================

// NewConfigUnresolvedError reports that no source produced a complete relay configuration.
func NewConfigUnresolvedError(missing []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigUnresolved,
		Message:   "No configuration source yielded a complete relay configuration",
		Details:   fmt.Sprintf("missing: %s", strings.Join(missing, ", ")),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotConfiguredError is returned by send/test while the service is unconfigured.
func NewNotConfiguredError() *StandardError {
	return &StandardError{
		Code:      ErrCodeNotConfigured,
		Message:   "Notification service is not configured",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransportRejectedError records a non-success status from the relay.
func NewTransportRejectedError(status int, text string) *StandardError {
	details := fmt.Sprintf("status: %d", status)
	if text = strings.TrimSpace(text); text != "" {
		details = fmt.Sprintf("status: %d, response: %s", status, text)
	}
	return &StandardError{
		Code:      ErrCodeTransportRejected,
		Message:   "Relay rejected the delivery",
		Details:   details,
		Retryable: status >= 500 || status == 429,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransportUnreachableError records a network failure or exception while calling the relay.
func NewTransportUnreachableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransportUnreachable,
		Message:   "Relay could not be reached",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidInputError creates a non-retryable input error.
func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid notification input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoRecipientDeliveredError summarises a batch in which every recipient failed.
func NewNoRecipientDeliveredError(attempted int) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoRecipientDelivered,
		Message:   "Notification was not delivered to any recipient",
		Details:   fmt.Sprintf("attempted: %d", attempted),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAdminDirectoryUnavailableError wraps a failure to read the admin recipient list.
func NewAdminDirectoryUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAdminDirectoryUnavailable,
		Message:   "Admin recipient list could not be loaded",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuditWriteFailedError wraps a failure to persist delivery outcomes.
func NewAuditWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuditWriteFailed,
		Message:   "Delivery outcomes could not be recorded",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAlertPublishFailedError wraps a failure to publish an operator alert.
func NewAlertPublishFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAlertPublishFailed,
		Message:   "Operator alert could not be published",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthentication,
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// CodeOf extracts the error code, or "UNKNOWN_ERROR" for anything else.
func CodeOf(err error) string {
	if stdErr, ok := err.(*StandardError); ok && stdErr != nil {
		return string(stdErr.Code)
	}
	return "UNKNOWN_ERROR"
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "CONFIG"):
		return "CONFIGURATION"
	case strings.Contains(codeStr, "TRANSPORT"), strings.Contains(codeStr, "DELIVERED"):
		return "DELIVERY"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	case strings.Contains(codeStr, "AUTH"):
		return "AUTH"
	default:
		return "OTHER"
	}
}
