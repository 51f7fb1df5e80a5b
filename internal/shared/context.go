package shared

import "context"

// Claims is the identity asserted by a verified bearer token.
type Claims struct {
	UserID int64
	Email  string
}

type claimsContextKey struct{}

// ContextWithClaims stores the verified claim set in context.
func ContextWithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext extracts the claim set from context.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(Claims)
	return claims, ok
}
