package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := testIssuer(t)

	token, err := issuer.Issue("usr-001", "a@x.com", RoleStudent)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if claims.UserID != "usr-001" || claims.Subject != "usr-001" {
		t.Errorf("UserID/Subject = %q/%q, want usr-001", claims.UserID, claims.Subject)
	}
	if claims.Email != "a@x.com" {
		t.Errorf("Email = %q, want a@x.com", claims.Email)
	}
	if claims.Role != RoleStudent {
		t.Errorf("Role = %q, want STUDENT", claims.Role)
	}
	if claims.ID == "" {
		t.Error("JTI (ID) should not be empty")
	}

	if got := claims.Identity(); got != (Identity{ID: "usr-001", Email: "a@x.com", Role: RoleStudent}) {
		t.Errorf("Identity() = %+v", got)
	}
}

func TestIssue_DefaultTTL(t *testing.T) {
	issuer := testIssuer(t)
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return fixed }

	token, err := issuer.Issue("usr-001", "a@x.com", RoleAdmin)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 7*24*time.Hour {
		t.Errorf("token lifetime = %v, want 168h", got)
	}
	if issuer.TTL() != DefaultTokenTTL {
		t.Errorf("TTL() = %v, want %v", issuer.TTL(), DefaultTokenTTL)
	}
}

func TestVerify_Expired(t *testing.T) {
	issuer := testIssuer(t)
	issued := time.Now().Add(-8 * 24 * time.Hour)
	issuer.now = func() time.Time { return issued }

	token, err := issuer.Issue("usr-001", "a@x.com", RoleStudent)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	issuer.now = time.Now
	_, err = issuer.Verify(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Verify() error = %v, want ErrTokenExpired", err)
	}
	if errors.Is(err, ErrTokenInvalid) {
		t.Error("expired token should not also be reported as invalid")
	}
}

func TestVerify_Tampered(t *testing.T) {
	issuer := testIssuer(t)

	token, err := issuer.Issue("usr-001", "a@x.com", RoleStudent)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// Swap the payload for one claiming ADMIN, keeping the original signature.
	forged, err := NewTokenIssuer(testSecret, 0)
	if err != nil {
		t.Fatal(err)
	}
	adminToken, err := forged.Issue("usr-001", "a@x.com", RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}
	parts := strings.Split(token, ".")
	adminParts := strings.Split(adminToken, ".")
	tampered := parts[0] + "." + adminParts[1] + "." + parts[2]

	_, err = issuer.Verify(tampered)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify() error = %v, want ErrTokenInvalid", err)
	}
	if errors.Is(err, ErrTokenExpired) {
		t.Error("tampered token should not be reported as expired")
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	other, err := NewTokenIssuer("another-secret-key-at-least-32-chars", 0)
	if err != nil {
		t.Fatal(err)
	}
	token, err := other.Issue("usr-001", "a@x.com", RoleStudent)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := testIssuer(t).Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}

func TestVerify_Garbage(t *testing.T) {
	for _, tok := range []string{"", "not-a-valid-jwt", "a.b.c"} {
		if _, err := testIssuer(t).Verify(tok); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("Verify(%q) error = %v, want ErrTokenInvalid", tok, err)
		}
	}
}

func TestVerify_InvalidSigningMethod(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "usr-001",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID: "usr-001",
		Role:   RoleAdmin,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing none token: %v", err)
	}

	if _, err := testIssuer(t).Verify(signed); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Verify() error = %v, want ErrTokenInvalid for alg=none", err)
	}
}

func TestVerify_RejectsUnknownRoleAndMissingExpiry(t *testing.T) {
	sign := func(c Claims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testSecret))
		if err != nil {
			t.Fatal(err)
		}
		return s
	}
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := map[string]string{
		"unknown role": sign(Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "usr-1", ExpiresAt: exp},
			UserID:           "usr-1",
			Role:             "JANITOR",
		}),
		"no expiry": sign(Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "usr-1"},
			UserID:           "usr-1",
			Role:             RoleStudent,
		}),
		"subject mismatch": sign(Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "usr-2", ExpiresAt: exp},
			UserID:           "usr-1",
			Role:             RoleStudent,
		}),
	}

	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := testIssuer(t).Verify(tok); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("Verify() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func TestNewTokenIssuer_EmptySecret(t *testing.T) {
	if _, err := NewTokenIssuer("", time.Hour); err == nil {
		t.Error("NewTokenIssuer() should reject an empty secret")
	}
}
