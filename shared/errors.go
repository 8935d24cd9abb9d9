package shared

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorCategory classifies failures crossing the gateway's boundaries.
type ErrorCategory string

const (
	ErrorCategoryNetwork        ErrorCategory = "network"
	ErrorCategoryTimeout        ErrorCategory = "timeout"
	ErrorCategoryUpstream       ErrorCategory = "upstream"
	ErrorCategoryCache          ErrorCategory = "cache"
	ErrorCategoryValidation     ErrorCategory = "validation"
	ErrorCategoryAuthentication ErrorCategory = "authentication"
	ErrorCategoryDatabase       ErrorCategory = "database"
)

// ServiceError is a categorized error with enough context to log usefully.
// Transient categories (network, timeout, upstream) are swallowed by the
// status store and surfaced to callers as a nil snapshot; only mutation
// failures propagate to the user.
type ServiceError struct {
	Category  ErrorCategory `json:"category"`
	Code      string        `json:"code"`
	Message   string        `json:"message"`
	Operation string        `json:"operation"`
	Retryable bool          `json:"retryable"`
	Timestamp time.Time     `json:"timestamp"`
	Cause     error         `json:"-"`
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError creates a categorized error.
func NewServiceError(category ErrorCategory, code, message, operation string, retryable bool, cause error) *ServiceError {
	return &ServiceError{
		Category:  category,
		Code:      code,
		Message:   message,
		Operation: operation,
		Retryable: retryable,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// WrapError wraps err with category context. A ServiceError passes through
// with its operation updated.
func WrapError(err error, category ErrorCategory, code, operation string, retryable bool) *ServiceError {
	if err == nil {
		return nil
	}
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		serviceErr.Operation = operation
		return serviceErr
	}
	return NewServiceError(category, code, err.Error(), operation, retryable, err)
}

// LogError emits the error with structured fields at the level matching its
// category: transient categories log at warn, the rest at error.
func (e *ServiceError) LogError() {
	entry := logrus.WithFields(logrus.Fields{
		"error_category": e.Category,
		"error_code":     e.Code,
		"operation":      e.Operation,
		"retryable":      e.Retryable,
		"cause":          e.Cause,
	})
	if e.IsTransient() {
		entry.Warn(e.Message)
		return
	}
	entry.Error(e.Message)
}

// IsTransient reports whether the failure is expected to clear on its own.
func (e *ServiceError) IsTransient() bool {
	switch e.Category {
	case ErrorCategoryNetwork, ErrorCategoryTimeout, ErrorCategoryUpstream:
		return true
	}
	return false
}

// IsRetryableError reports whether err looks safe to retry. ServiceErrors
// answer for themselves; plain errors fall back to net/context inspection and
// message heuristics.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Retryable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "connection refused", "connection reset", "temporary failure", "service unavailable"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
