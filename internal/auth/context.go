package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const claimsKey contextKey = "adminClaims"

func WithClaims(ctx context.Context, claims jwt.MapClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims of an admin JWT accepted upstream in
// the chain. Requests authenticated by the shared token carry none.
func ClaimsFromContext(ctx context.Context) (jwt.MapClaims, bool) {
	c, ok := ctx.Value(claimsKey).(jwt.MapClaims)
	return c, ok
}
