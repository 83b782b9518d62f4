package auth

import (
	"context"
)

// Schlüsselkonstante für die Claims im Kontext
type contextKey string

const claimsKey contextKey = "jwt_claims"

// AddClaimsToContext fügt JWT-Claims zum Kontext hinzu
func AddClaimsToContext(ctx context.Context, claims *SessionClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaimsFromContext extrahiert die JWT-Claims aus dem Kontext
func GetClaimsFromContext(ctx context.Context) (*SessionClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*SessionClaims)
	return claims, ok && claims != nil
}

// SessionIDFromContext returns the session id of the request, "" without claims.
func SessionIDFromContext(ctx context.Context) string {
	if claims, ok := GetClaimsFromContext(ctx); ok {
		return claims.SessionID
	}
	return ""
}
