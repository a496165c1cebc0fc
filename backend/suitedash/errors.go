package suitedash

import (
	"errors"
	"fmt"
)

// ErrImmutable is returned for update or delete on read-only resource types.
var ErrImmutable = errors.New("resource type does not support update or delete")

// AuthError reports that the credential probe failed.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "failed to connect to SuiteDash"
	}
	return fmt.Sprintf("failed to connect to SuiteDash: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// AuthFailure marks the error as a credential problem for error reporting.
func (e *AuthError) AuthFailure() bool { return true }

// IsAuthError reports whether err is an *AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
