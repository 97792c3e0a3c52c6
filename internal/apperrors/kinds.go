// Package apperrors defines the sentinel error kinds shared by the credential store, the token issuer
// and the account services. Handlers map these kinds onto the public error catalog in schemas.
package apperrors

import "errors"

// Sentinel error kinds (stable for errors.Is and for mapping to API status codes).
var (
	ErrInvalidInput           = errors.New("invalid_input")
	ErrInvalidCredentials     = errors.New("invalid_credentials")
	ErrDuplicateContact       = errors.New("duplicate_contact")
	ErrDuplicateName          = errors.New("duplicate_name")
	ErrTokenNotFound          = errors.New("token_not_found")
	ErrTokenExpired           = errors.New("token_expired")
	ErrNotAuthenticated       = errors.New("not_authenticated")
	ErrConfirmationRequired   = errors.New("confirmation_required")
	ErrSessionMismatch        = errors.New("session_mismatch")
	ErrNotFound               = errors.New("not_found")
	ErrLastContact            = errors.New("last_contact")
	ErrPasswordChangeRequired = errors.New("password_change_required")
	ErrForbidden              = errors.New("forbidden")
)
