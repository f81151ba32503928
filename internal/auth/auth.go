// Package auth turns the shared server secret into signed bearer tokens.
//
// Every process that knows the secret can mint a token for its own player id;
// the server accepts a request only if the token verifies against the same
// secret. The token subject carries the player id, which the mailbox uses to
// route private replies.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "cardstack"

var (
	// ErrEmptySecret is returned when a Signer is built without a secret.
	ErrEmptySecret = errors.New("shared secret must not be empty")
	// ErrUnauthorized is returned for missing, malformed or forged tokens.
	ErrUnauthorized = errors.New("unauthorized")
)

// Signer issues and verifies tokens with an HMAC shared secret.
type Signer struct {
	key []byte
	now func() time.Time
}

// NewSigner creates a Signer for the given shared secret.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Signer{key: []byte(secret), now: time.Now}, nil
}

// Issue returns a token whose subject is pid.
func (s *Signer) Issue(pid int64) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  strconv.FormatInt(pid, 10),
		Issuer:   issuer,
		IssuedAt: jwt.NewNumericDate(s.now()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature and returns the player id it names.
func (s *Signer) Verify(token string) (int64, error) {
	if token == "" {
		return 0, fmt.Errorf("%w: missing token", ErrUnauthorized)
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	pid, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject %q", ErrUnauthorized, claims.Subject)
	}
	return pid, nil
}

type ctxKey struct{}

// WithPlayer stores the authenticated player id in ctx.
func WithPlayer(ctx context.Context, pid int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, pid)
}

// PlayerFrom returns the player id stored by Require.
func PlayerFrom(ctx context.Context) (int64, bool) {
	pid, ok := ctx.Value(ctxKey{}).(int64)
	return pid, ok
}

// BearerToken extracts the token from the Authorization header, falling back
// to the "token" query parameter.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// SetBearer adds the Authorization header for token.
func SetBearer(h http.Header, token string) {
	h.Set("Authorization", "Bearer "+token)
}

// Require rejects requests without a valid token and passes the player id on
// through the request context.
func (s *Signer) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pid, err := s.Verify(BearerToken(r))
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPlayer(r.Context(), pid)))
	})
}
