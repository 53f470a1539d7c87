// Package auth guards the LOGS admin endpoints. An operator-held admin token,
// stored only as a bcrypt hash, is exchanged for a short-lived HS256 JWT.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/berealtors/wrapsheet/internal/util"
)

const (
	issuer    = "wrapsheet"
	adminRole = "logs-admin"
)

var (
	ErrNotConfigured = errors.New("admin auth not configured")
	ErrBadToken      = errors.New("invalid admin token")
	ErrUnauthorized  = errors.New("unauthorized")
)

// Claims is the payload of an admin session token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator issues and checks admin sessions.
type Authenticator struct {
	tokenHash string
	secret    []byte
	ttl       time.Duration
	now       func() time.Time
}

// New returns an Authenticator. An empty hash or secret leaves every admin
// endpoint locked.
func New(tokenHash, jwtSecret string, ttl time.Duration) *Authenticator {
	return &Authenticator{tokenHash: tokenHash, secret: []byte(jwtSecret), ttl: ttl, now: time.Now}
}

func (a *Authenticator) configured() bool {
	return a != nil && a.tokenHash != "" && len(a.secret) > 0
}

// IssueSession checks token against the configured hash and returns a signed
// session JWT with its expiry.
func (a *Authenticator) IssueSession(token string) (string, time.Time, error) {
	if !a.configured() {
		return "", time.Time{}, ErrNotConfigured
	}
	if !util.CheckSecret(a.tokenHash, token) {
		return "", time.Time{}, ErrBadToken
	}
	now := a.now()
	exp := now.Add(a.ttl)
	claims := Claims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "admin",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, exp, nil
}

// Validate parses a session token and checks its signature, expiry and role.
func (a *Authenticator) Validate(tokenString string) (*Claims, error) {
	if !a.configured() {
		return nil, ErrNotConfigured
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}
	if claims.Role != adminRole {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireAdmin rejects requests without a valid admin session with 401.
func (a *Authenticator) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := a.Validate(BearerToken(r)); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
			return
		}
		next(w, r)
	}
}

// CheckUploadKey compares the member upload key in constant time.
func CheckUploadKey(configured, given string) bool {
	return util.EqualConstantTime(configured, given)
}
