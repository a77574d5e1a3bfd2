package client

import (
	"errors"
	"fmt"
)

// AuthError codes. They classify sign-in failures for callers that render
// different UI per cause; the message is always safe to display.
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeNotSignedUp        = "NOT_SIGNED_UP"
	CodeAccountLocked      = "ACCOUNT_LOCKED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeNetwork            = "NETWORK"
	CodeBackend            = "BACKEND"
)

// ErrSignInInFlight is returned when a sign-in attempt starts while another
// one has not settled yet.
var ErrSignInInFlight = errors.New("sign-in already in flight")

// AuthError is the typed failure surfaced by every controller sign-in path.
// State is guaranteed unchanged when one is returned.
type AuthError struct {
	Code    string
	Message string
	cause   error
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AuthError) Unwrap() error { return e.cause }

func newAuthError(code, message string, cause error) *AuthError {
	return &AuthError{Code: code, Message: message, cause: cause}
}

// AsAuthError unwraps err into an *AuthError when possible.
func AsAuthError(err error) (*AuthError, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
