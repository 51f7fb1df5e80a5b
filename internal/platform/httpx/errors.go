// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/userdir/userdir/internal/shared"
)

type problemKind struct {
	target error
	status int
	typ    string
	title  string
}

// problemKinds lists expected failures in match order. Each kind keeps a
// stable status and type so clients can branch on them.
var problemKinds = []problemKind{
	{shared.ErrValidation, http.StatusBadRequest, "validation_failed", "Validation Failed"},
	{shared.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "Invalid Credentials"},
	{shared.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated", "Unauthenticated"},
	{shared.ErrExpiredToken, http.StatusUnauthorized, "expired_token", "Expired Token"},
	{shared.ErrInvalidSignature, http.StatusUnauthorized, "invalid_signature", "Invalid Signature"},
	{shared.ErrMalformedToken, http.StatusUnauthorized, "malformed_token", "Malformed Token"},
	{shared.ErrDuplicateEmail, http.StatusConflict, "duplicate_email", "Duplicate Email"},
	{shared.ErrRecordNotFound, http.StatusNotFound, "record_not_found", "Not Found"},
}

// RespondError maps domain errors to HTTP responses using RFC7807. Unknown
// errors, including storage failures, never expose their cause.
func RespondError(w http.ResponseWriter, err error) {
	for _, kind := range problemKinds {
		if errors.Is(err, kind.target) {
			ProblemType(w, kind.status, kind.typ, kind.title, err.Error())
			return
		}
	}
	ProblemType(w, http.StatusInternalServerError, "storage_failure", "Internal Error", "")
}

// StatusFor returns the HTTP status RespondError would use for err.
func StatusFor(err error) int {
	for _, kind := range problemKinds {
		if errors.Is(err, kind.target) {
			return kind.status
		}
	}
	return http.StatusInternalServerError
}
