package auth

import (
	"errors"
	"fmt"
	"time"

	keyfunc "github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

var ErrInvalidToken = errors.New("invalid token")

// JWTValidator checks admin bearer tokens against a key source and, when
// configured, the expected issuer and audience.
type JWTValidator struct {
	keyfunc  jwt.Keyfunc
	issuer   string
	audience string
	jwks     *keyfunc.JWKS
}

func NewJWTValidator(kf jwt.Keyfunc, issuer, audience string) *JWTValidator {
	return &JWTValidator{keyfunc: kf, issuer: issuer, audience: audience}
}

// NewJWKSValidator fetches the key set at jwksURL and keeps it refreshed in
// the background until Close is called.
func NewJWKSValidator(jwksURL, issuer, audience string, refresh time.Duration, logger *zap.Logger) (*JWTValidator, error) {
	if refresh <= 0 {
		refresh = 5 * time.Minute
	}
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   refresh,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Warn("jwks refresh failed", zap.String("jwks_url", jwksURL), zap.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jwks from %s: %w", jwksURL, err)
	}
	v := NewJWTValidator(jwks.Keyfunc, issuer, audience)
	v.jwks = jwks
	return v, nil
}

// Validate parses tokenString and returns its claims.
func (v *JWTValidator) Validate(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, v.keyfunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer", ErrInvalidToken)
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return nil, fmt.Errorf("%w: unexpected audience", ErrInvalidToken)
	}
	return claims, nil
}

func (v *JWTValidator) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}
