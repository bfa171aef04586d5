package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/digicoders-git/ksmedical-backend/internal/common"
)

var errNoToken = errors.New("auth: token missing")

// Middleware validates bearer tokens issued by the platform's identity
// service. This service never mints tokens itself; it only verifies the
// shared-secret signature and reads the subject and role claims.
type Middleware struct {
	Secret    []byte
	Validator TokenValidator
	Now       func() time.Time
}

// RequireAuth enforces that a valid token is present before executing the next handler.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.authenticateRequest(r)
		if err != nil {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole enforces authentication plus the presence of a role claim.
func (m Middleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := m.authenticateRequest(r)
			if err != nil {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
				return
			}
			if !common.HasRole(ctx, role) {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (m Middleware) authenticateRequest(r *http.Request) (context.Context, error) {
	raw := extractToken(r)
	if raw == "" {
		return r.Context(), errNoToken
	}
	tok, err := m.ParseAccessToken(raw)
	if err != nil {
		return r.Context(), err
	}
	ctx := common.WithUserID(r.Context(), tok.Subject())
	ctx = common.WithRoles(ctx, tokenRoles(tok))
	return ctx, nil
}

// ParseAccessToken verifies the signature and contextual claims of a token
// and returns the parsed token on success.
func (m Middleware) ParseAccessToken(token string) (jwt.Token, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, errNoToken
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}
	if m.Validator.Algorithm != "" && algorithm != m.Validator.Algorithm {
		return nil, fmt.Errorf("auth: unexpected token algorithm %s", algorithm)
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, m.Secret))
	if err != nil {
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}
	if err := m.Validator.Validate(parsed, algorithm, m.now()); err != nil {
		return nil, err
	}
	return parsed, nil
}

func (m Middleware) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		algorithm = alg
	}
	return algorithm, nil
}

func tokenRoles(tok jwt.Token) []string {
	raw, ok := tok.Get("roles")
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		roles := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				roles = append(roles, s)
			}
		}
		return roles
	case string:
		return []string{v}
	default:
		return nil
	}
}
