package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// AdminMiddleware protects management routes. A request is let through when
// it carries the shared token, either as X-Admin-Token or as a bearer token,
// or when the bearer token is a JWT accepted by validator. Either check may
// be disabled by passing an empty token or a nil validator.
func AdminMiddleware(token string, validator *JWTValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get("X-Admin-Token")
			bearer := bearerToken(r)
			if presented == "" {
				presented = bearer
			}
			if presented == "" {
				unauthorized(w)
				return
			}

			if token != "" && subtle.ConstantTimeCompare([]byte(presented), []byte(token)) == 1 {
				next.ServeHTTP(w, r)
				return
			}

			if validator != nil && bearer != "" {
				claims, err := validator.Validate(bearer)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
					return
				}
				logger.Warn("admin token rejected",
					zap.String("request_id", r.Header.Get("X-Request-ID")),
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				unauthorized(w)
				return
			}

			forbidden(w)
		})
	}
}

func bearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if len(authz) > 7 && strings.EqualFold(authz[:7], "Bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="tenant-api-gateway", error="invalid_token"`)
	writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
}

func forbidden(w http.ResponseWriter) {
	writeAuthError(w, http.StatusForbidden, "FORBIDDEN", "forbidden")
}

func writeAuthError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `","code":"` + code + `"}`))
}
