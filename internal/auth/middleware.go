package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/userdir/userdir/internal/platform/httpx"
	"github.com/userdir/userdir/internal/shared"
)

const bearerPrefix = "Bearer "

// Authorizer gates protected routes on a valid bearer token.
type Authorizer struct {
	tokens *TokenService
	logger *slog.Logger
}

// NewAuthorizer constructs an Authorizer.
func NewAuthorizer(tokens *TokenService, logger *slog.Logger) *Authorizer {
	return &Authorizer{tokens: tokens, logger: logger}
}

// Require rejects requests without a verifiable token and stores the claims
// in the request context otherwise. Tokens are never revoked before expiry.
func (a *Authorizer) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		claims, err := a.tokens.Verify(token)
		if err != nil {
			if a.logger != nil {
				a.logger.Debug("bearer token rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithClaims(r.Context(), claims)))
	})
}

// bearerToken extracts the token after the case-sensitive "Bearer " prefix.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, bearerPrefix)
	if !found || token == "" {
		return "", false
	}
	return token, true
}
