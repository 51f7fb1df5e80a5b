package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/userdir/userdir/internal/shared"
)

// DefaultTokenLifetime applies when no lifetime is configured.
const DefaultTokenLifetime = time.Hour

// tokenClaims is the signed payload: sub carries the user id.
type tokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// TokenService signs and verifies HS256 bearer tokens with a process-wide key.
type TokenService struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewTokenService constructs a TokenService. A non-positive lifetime falls
// back to DefaultTokenLifetime.
func NewTokenService(secret []byte, lifetime time.Duration) *TokenService {
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	return &TokenService{secret: secret, lifetime: lifetime, now: time.Now}
}

// Issue signs claims with an expiration of now plus the configured lifetime.
func (s *TokenService) Issue(claims shared.Claims) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(claims.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
		},
		Email: claims.Email,
	})
	return token.SignedString(s.secret)
}

// Verify returns the claim set carried by token. Failures are reported as
// shared.ErrExpiredToken, shared.ErrInvalidSignature or
// shared.ErrMalformedToken.
func (s *TokenService) Verify(token string) (shared.Claims, error) {
	parsed := &tokenClaims{}
	_, err := jwt.ParseWithClaims(token, parsed, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return shared.Claims{}, classify(err)
	}

	id, err := strconv.ParseInt(parsed.Subject, 10, 64)
	if err != nil || id <= 0 {
		return shared.Claims{}, shared.ErrMalformedToken
	}
	return shared.Claims{UserID: id, Email: parsed.Email}, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return shared.ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return shared.ErrInvalidSignature
	default:
		return shared.ErrMalformedToken
	}
}
