package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

type contextKey string

// OperatorKey is the context key used to store the authenticated operator.
const OperatorKey contextKey = "operator"

// ErrInvalidToken is returned when a bearer token does not match.
var ErrInvalidToken = errors.New("invalid token")

// Authenticator checks operator bearer tokens against a single shared token.
// With an empty configured token any non-empty bearer is accepted, which
// config validation only allows in development.
type Authenticator struct {
	token  string
	logger zerolog.Logger
}

// NewAuthenticator creates an Authenticator for the given API token.
func NewAuthenticator(token string, logger zerolog.Logger) *Authenticator {
	return &Authenticator{token: token, logger: logger}
}

// RequireAuth middleware checks for a valid bearer token in the Authorization header
// and stores the operator name in the request context. Returns 401 Unauthorized if
// authentication fails.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r.Header.Get("Authorization"))
		if !ok {
			a.logger.Debug().Msg("auth: missing or malformed Authorization header")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		operator, err := a.ValidateToken(token)
		if err != nil {
			a.logger.Warn().Err(err).Msg("auth: token validation failed")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), OperatorKey, operator)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken parses an "Authorization: Bearer <token>" value (RFC 7235).
// The scheme is case-insensitive.
func BearerToken(header string) (string, bool) {
	fields := strings.Fields(header)
	if len(fields) < 2 || !strings.EqualFold(fields[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(strings.Join(fields[1:], " "))
	return token, token != ""
}

// ValidateToken returns the operator name for a valid token.
func (a *Authenticator) ValidateToken(token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", ErrInvalidToken
	}
	if a.token == "" {
		return "operator", nil
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
		return "", ErrInvalidToken
	}
	return "operator", nil
}

// GetOperatorFromContext returns the authenticated operator from the context.
func GetOperatorFromContext(ctx context.Context) (string, bool) {
	operator, ok := ctx.Value(OperatorKey).(string)
	return operator, ok
}
