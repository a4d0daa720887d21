package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/funrun2025/registration-service/internal/model"
)

const testSecret = "test-secret"

func TestSessionTokenRoundTrip(t *testing.T) {
	t.Parallel()

	tok, err := NewSessionToken(testSecret, "alice", model.RoleFieldAdmin, 7, 15)
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}
	if tok.Token == "" {
		t.Fatal("empty token")
	}

	claims, err := ParseSessionToken(testSecret, tok.Token)
	if err != nil {
		t.Fatalf("ParseSessionToken: %v", err)
	}
	if claims.Subject != "alice" {
		t.Errorf("subject = %q, want alice", claims.Subject)
	}
	if claims.Role != model.RoleFieldAdmin {
		t.Errorf("role = %q, want %q", claims.Role, model.RoleFieldAdmin)
	}
	if claims.FieldOfficeID != 7 {
		t.Errorf("field office = %d, want 7", claims.FieldOfficeID)
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl < 14*time.Minute || ttl > 15*time.Minute {
		t.Errorf("ttl = %v, want ~15m", ttl)
	}
}

func TestParseSessionTokenRejections(t *testing.T) {
	t.Parallel()

	sign := func(claims SessionClaims, secret string, method jwt.SigningMethod) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	now := time.Now().UTC()
	valid := func() SessionClaims {
		return SessionClaims{
			Role:          model.RoleMainAdmin,
			FieldOfficeID: 1,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "bob",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
			},
		}
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.jwt"},
		{"empty", ""},
		{"wrong secret", sign(valid(), "other-secret", jwt.SigningMethodHS256)},
		{"expired", sign(func() SessionClaims {
			c := valid()
			c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
			return c
		}(), testSecret, jwt.SigningMethodHS256)},
		{"unknown role", sign(func() SessionClaims {
			c := valid()
			c.Role = "superuser"
			return c
		}(), testSecret, jwt.SigningMethodHS256)},
		{"missing subject", sign(func() SessionClaims {
			c := valid()
			c.Subject = ""
			return c
		}(), testSecret, jwt.SigningMethodHS256)},
		{"missing expiry", sign(func() SessionClaims {
			c := valid()
			c.ExpiresAt = nil
			return c
		}(), testSecret, jwt.SigningMethodHS256)},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseSessionToken(testSecret, tc.token); err != ErrInvalidSession {
				t.Errorf("err = %v, want ErrInvalidSession", err)
			}
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("s3cret", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword(hash, "s3cret") {
		t.Error("correct password rejected")
	}
	if VerifyPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}
