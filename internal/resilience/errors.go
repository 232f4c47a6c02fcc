// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorType categorizes failures from external capabilities so the engine
// can decide between retrying and degrading to an indeterminate check.
type ErrorType int

const (
	ErrorTypeUnknown      ErrorType = iota
	ErrorTypeTransient              // temporary network or service trouble, retryable
	ErrorTypePermanent              // unsupported input, auth failure, never retried
	ErrorTypeTimeout                // deadline exceeded, retryable within budget
	ErrorTypeInvalidInput           // malformed request payload
)

func (et ErrorType) String() string {
	switch et {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps an error with its handling category.
type ClassifiedError struct {
	Original  error
	Type      ErrorType
	Message   string
	Retryable bool
}

func (e *ClassifiedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Original.Error()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Original
}

// IsRetryable returns whether this error should be retried.
func (e *ClassifiedError) IsRetryable() bool {
	return e.Retryable
}

// ClassifyError categorizes an error for appropriate handling. Already
// classified errors pass through unchanged.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeTimeout,
			Message:   fmt.Sprintf("timeout: %v", err),
			Retryable: true,
		}
	}
	if errors.Is(err, context.Canceled) {
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypePermanent,
			Message:   fmt.Sprintf("canceled: %v", err),
			Retryable: false,
		}
	}

	if isNetworkError(err) {
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeTransient,
			Message:   fmt.Sprintf("network error: %v", err),
			Retryable: true,
		}
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "throttl") || strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "service unavailable") || strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "temporarily"):
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeTransient,
			Message:   fmt.Sprintf("service error: %v", err),
			Retryable: true,
		}

	case strings.Contains(errStr, "unsupported") || strings.Contains(errStr, "access denied") ||
		strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "forbidden"):
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypePermanent,
			Message:   fmt.Sprintf("permanent service error: %v", err),
			Retryable: false,
		}

	case strings.Contains(errStr, "invalid") || strings.Contains(errStr, "malformed"):
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeInvalidInput,
			Message:   fmt.Sprintf("invalid input: %v", err),
			Retryable: false,
		}
	}

	// Unknown errors are retried within the backoff budget rather than
	// assumed fatal: an external OCR service rarely labels its hiccups.
	return &ClassifiedError{
		Original:  err,
		Type:      ErrorTypeUnknown,
		Message:   err.Error(),
		Retryable: true,
	}
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// NewTransientError creates a retryable error.
func NewTransientError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypeTransient,
		Message:   message,
		Retryable: true,
	}
}

// NewPermanentError creates a non-retryable error.
func NewPermanentError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypePermanent,
		Message:   message,
		Retryable: false,
	}
}

// NewInvalidInputError creates a non-retryable bad-input error.
func NewInvalidInputError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypeInvalidInput,
		Message:   message,
		Retryable: false,
	}
}

// IsPermanent reports whether the error should skip retry entirely.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	c := ClassifyError(err)
	return c.Type == ErrorTypePermanent || c.Type == ErrorTypeInvalidInput
}

// IsRetryable reports whether an error should be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return ClassifyError(err).IsRetryable()
}
