// Package rpc's auth.go issues and verifies the bearer tokens backing the
// §6 login contract, adapted from the teacher's
// gateway/middleware/auth.go HMAC JWT pattern (jwt.Parse with a
// SigningMethodHMAC guard) and its test-side token construction
// (tests/rpc/security_test.go's jwt.NewWithClaims(..., jwt.SigningMethodHS256)).
package rpc

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = time.Hour

type contextKey string

const contextKeySubject contextKey = "rpc.subject"

// tokenIssuer signs and verifies bearer tokens for one operator credential
// (§6 does not define a multi-account system).
type tokenIssuer struct {
	secret []byte
}

func newTokenIssuer(secret string) *tokenIssuer {
	return &tokenIssuer{secret: []byte(secret)}
}

func (i *tokenIssuer) issue(subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

func (i *tokenIssuer) verify(raw string) (string, error) {
	if len(i.secret) == 0 {
		return "", errors.New("rpc: auth secret not configured")
	}
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("rpc: unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", errors.New("rpc: token invalid")
	}
	return claims.Subject, nil
}

func extractBearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// authenticate checks r's bearer token the way the teacher's handle()
// inline-guards specific methods via requireAuthInto, rather than wrapping
// the whole router: every method shares one JSON-RPC endpoint, and only
// login is exempt, so the check runs per-dispatch instead of as chi
// middleware. On success it returns a request context carrying the
// authenticated subject.
func (s *Server) authenticate(r *http.Request) (*http.Request, error) {
	token := extractBearer(r.Header.Get("Authorization"))
	if token == "" {
		return r, errors.New("missing bearer token")
	}
	subject, err := s.tokens.verify(token)
	if err != nil {
		return r, err
	}
	ctx := context.WithValue(r.Context(), contextKeySubject, subject)
	return r.WithContext(ctx), nil
}
