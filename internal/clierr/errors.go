// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package clierr provides error classification and user-friendly error formatting for the CLI.
// It helps distinguish between different error types and provides actionable hints.
package clierr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/monadic/ingest-wizard/pkg/backend"
	"github.com/monadic/ingest-wizard/pkg/wizard"
	"github.com/monadic/ingest-wizard/pkg/workflow"
)

// Common error types for CLI output.
const (
	TypeValidation  = "validation"  // Input rejected before any request was sent
	TypeApplication = "application" // The backend answered with a failure
	TypeAuth        = "auth"        // The database refused the credentials
	TypeNotFound    = "not_found"   // Export or resource missing on the backend
	TypeNetwork     = "network"     // Backend unreachable or response unreadable
	TypeCancelled   = "cancelled"   // User declined or interrupted
	TypeInternal    = "internal"    // Internal/unexpected errors
)

// IsValidation checks if the error is a wizard guard rejection.
func IsValidation(err error) bool {
	var ve *wizard.ValidationError
	return errors.As(err, &ve)
}

// IsNetworkError checks if the error is a connection/network error.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if backend.IsTransport(err) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var oe *workflow.OpError
	if errors.As(err, &oe) {
		return oe.Transport
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "i/o timeout")
}

// IsNotFound checks if the backend reported a missing file.
func IsNotFound(err error) bool {
	var ae *backend.APIError
	return errors.As(err, &ae) && ae.NotFound()
}

// IsAuthFailure checks if the database rejected the credentials.
func IsAuthFailure(err error) bool {
	if err == nil || IsNetworkError(err) {
		return false
	}
	msg := strings.ToLower(reason(err))
	return strings.Contains(msg, "authentication") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "access denied") ||
		strings.Contains(msg, "password")
}

// IsCancelled checks if the user declined or interrupted the run.
func IsCancelled(err error) bool {
	return errors.Is(err, workflow.ErrDeclined) || errors.Is(err, context.Canceled)
}

// ClassifyError determines the type of error for appropriate handling.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case IsCancelled(err):
		return TypeCancelled
	case IsValidation(err):
		return TypeValidation
	case IsNetworkError(err):
		return TypeNetwork
	case IsNotFound(err):
		return TypeNotFound
	case IsAuthFailure(err):
		return TypeAuth
	}
	var ae *backend.APIError
	var oe *workflow.OpError
	if errors.As(err, &ae) || errors.As(err, &oe) {
		return TypeApplication
	}
	return TypeInternal
}

// reason returns the backend's own wording when there is one.
func reason(err error) string {
	var oe *workflow.OpError
	if errors.As(err, &oe) {
		return oe.Message
	}
	return backend.Message(err)
}

// Pretty formats an error with a user-friendly message and actionable hints.
func Pretty(err error) string {
	if err == nil {
		return ""
	}

	baseMsg := err.Error()

	switch ClassifyError(err) {
	case TypeValidation:
		return baseMsg

	case TypeCancelled:
		return "Cancelled."

	case TypeNetwork:
		return fmt.Sprintf("%s\n\nHint: Check the ingestion backend is reachable:\n"+
			"  - Start the backend (default %s)\n"+
			"  - Pass --backend URL or set INGEST_WIZARD_BACKEND", baseMsg, backend.DefaultBaseURL)

	case TypeAuth:
		return fmt.Sprintf("%s\n\nHint: The database rejected the credentials.\n"+
			"  - Check the user and JWT token/password\n"+
			"  - Run ingest-wizard again after fixing connection.user / connection.token", baseMsg)

	case TypeNotFound:
		return fmt.Sprintf("Not found: %s\n\nHint: Exports exist only after a database to flat file ingestion completes.", baseMsg)

	case TypeApplication:
		return baseMsg

	default:
		return fmt.Sprintf("Error: %s", baseMsg)
	}
}

// WrapWithHint wraps an error with an additional hint message.
func WrapWithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w\n\nHint: %s", err, hint)
}

// Unwrap returns the underlying error, stripping any wrapper.
func Unwrap(err error) error {
	for {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err
		}
		err = unwrapped
	}
}
