package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials indicates login failure. Unknown email and wrong
	// password both produce it.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateEmail indicates the email is already taken in the store.
	ErrDuplicateEmail = errors.New("user with this email already exists")
	// ErrRecordNotFound indicates the requested user does not exist.
	ErrRecordNotFound = errors.New("user not found")
	// ErrStorageFailure wraps unexpected authoritative store errors.
	ErrStorageFailure = errors.New("storage failure")
	// ErrExpiredToken indicates a bearer token past its expiration instant.
	ErrExpiredToken = errors.New("token expired")
	// ErrInvalidSignature indicates a tampered token or one signed with another key.
	ErrInvalidSignature = errors.New("token signature invalid")
	// ErrMalformedToken indicates input that is not a well-formed token.
	ErrMalformedToken = errors.New("token malformed")
	// ErrUnauthenticated indicates no bearer token was presented.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrValidation indicates request input failed boundary checks.
	ErrValidation = errors.New("validation failed")
)

// StorageFailure wraps cause so that errors.Is matches both ErrStorageFailure
// and the underlying cause.
func StorageFailure(op string, cause error) error {
	if cause == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, cause)
}
