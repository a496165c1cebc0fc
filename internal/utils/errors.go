package utils

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorWithSuggestion wraps an error with a user-friendly suggestion.
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface.
func (e *ErrorWithSuggestion) Error() string {
	return fmt.Sprintf("%s\n\nSuggestion: %s", e.Err.Error(), e.Suggestion)
}

// GetSuggestion returns the suggestion text.
func (e *ErrorWithSuggestion) GetSuggestion() string {
	return e.Suggestion
}

// Unwrap returns the underlying error for error chain support.
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// WrapWithSuggestion wraps an existing error with a suggestion.
func WrapWithSuggestion(err error, suggestion string) error {
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// ErrUnknownResource returns an error for an unsupported resource type name.
func ErrUnknownResource(name string, valid []string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("unknown resource type: %s", name),
		Suggestion: fmt.Sprintf("Valid options: %s", strings.Join(valid, ", ")),
	}
}

// ErrResourceNotFound returns an error for when a record is not found upstream.
func ErrResourceNotFound(resource, id string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("%s not found: %s", resource, id),
		Suggestion: fmt.Sprintf("Use 'suitedash %s list' to see available records", resource),
	}
}

// ErrReadOnlyResource returns an error for mutations on read-only resource types.
func ErrReadOnlyResource(resource string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("%s cannot be updated or deleted", resource),
		Suggestion: "Only projects and tasks support update and delete",
	}
}

// ErrRateLimited returns an error for an upstream 429 response.
func ErrRateLimited(err error) error {
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: "Rate limit exceeded. Please try again later",
	}
}

// ErrBackendOffline returns an error when the API is unreachable with smart suggestions.
func ErrBackendOffline(reason string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("SuiteDash API is unreachable: %s", reason),
		Suggestion: getSmartSuggestion(reason),
	}
}

// getSmartSuggestion returns a context-aware suggestion based on the error reason.
func getSmartSuggestion(reason string) string {
	lowerReason := strings.ToLower(reason)

	if strings.Contains(lowerReason, "no such host") || strings.Contains(lowerReason, "dns") {
		return "Check your DNS settings and internet connection"
	}

	if strings.Contains(lowerReason, "connection refused") {
		return "Check if the server is running and accessible"
	}

	if strings.Contains(lowerReason, "timeout") || strings.Contains(lowerReason, "deadline exceeded") {
		return "The server may be slow or unreachable. Try again later"
	}

	return "Check your internet connection and try again"
}

// ErrInvalidPayload returns an error for a malformed JSON payload.
func ErrInvalidPayload(err error) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid payload: %w", err),
		Suggestion: `Pass a JSON object, e.g. --data '{"name":"Website redesign"}'`,
	}
}

// ErrCredentialsNotFound returns an error when credentials are missing.
func ErrCredentialsNotFound() error {
	return &ErrorWithSuggestion{
		Err:        errors.New("SuiteDash credentials not found"),
		Suggestion: "Run 'suitedash credentials set --prompt' or set SUITEDASH_PUBLIC_ID and SUITEDASH_SECRET_KEY",
	}
}

// ErrAuthenticationFailed returns an error when the credential probe fails.
func ErrAuthenticationFailed(err error) error {
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: "Verify your public ID and secret key are correct and have not been revoked",
	}
}
