package utils // package utils provides helper functions for session tokens and hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens

	"github.com/funrun2025/registration-service/internal/model"
)

// SessionCookieName is the http-only cookie carrying the signed session
// token for admin areas.
const SessionCookieName = "auth_token"

// ErrInvalidSession covers every token failure mode: malformed token, wrong
// signature, expiry in the past, or a payload missing required fields.
// Callers must treat all of them identically to an absent token.
var ErrInvalidSession = errors.New("invalid session token")

// SessionClaims is the typed payload of an admin session token.  Role and
// FieldOfficeID are fixed for the session's lifetime; privilege changes
// require a fresh login.
type SessionClaims struct {
	Role          string `json:"role"`
	FieldOfficeID uint64 `json:"field_office_id"`
	jwt.RegisteredClaims
}

// SessionToken bundles a signed token with its expiry so handlers can set
// the cookie Max-Age without re-parsing.
type SessionToken struct {
	Token string
	Exp   time.Time
}

// NewSessionToken builds and signs an HS256 session token for an admin.
// The subject is the admin's username; role and field office id ride along
// as custom claims and are validated again on every decode.
func NewSessionToken(secret, subject, role string, fieldOfficeID uint64, ttlMin int) (SessionToken, error) {
	if !model.ValidRole(role) {
		return SessionToken{}, ErrInvalidSession
	}
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := SessionClaims{
		Role:          role,
		FieldOfficeID: fieldOfficeID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies the signature and expiry of a session token
// and validates the payload shape once, at decode time.  Any failure maps
// to ErrInvalidSession: the access gate never distinguishes between a bad
// signature, an expired token and a malformed payload.
func ParseSessionToken(secret, raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidSession
	}
	if claims.Subject == "" || !model.ValidRole(claims.Role) ||
		claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
