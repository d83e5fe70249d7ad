// internal/app/system/auth/messages.go
package auth

import "errors"

// Sign-in failure classes. Stores and handlers wrap or return these so the
// user only ever sees one of the fixed messages below.
var (
	ErrWrongCredential = errors.New("auth: wrong credential")
	ErrUserNotFound    = errors.New("auth: user not found")
	ErrThrottled       = errors.New("auth: too many attempts")
	ErrDisabled        = errors.New("auth: account disabled")
)

// Message maps a sign-in error to the text shown to the user.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrWrongCredential):
		return "Incorrect PIN or password."
	case errors.Is(err, ErrUserNotFound):
		return "User not found."
	case errors.Is(err, ErrThrottled):
		return "Too many sign-in attempts. Please wait a few minutes and try again."
	case errors.Is(err, ErrDisabled):
		return "This account is disabled."
	default:
		return "Sign-in failed. Please try again."
	}
}
