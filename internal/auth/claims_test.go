package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-for-jwt-signing-0123456789"

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("ops-1", RoleAdmin, testSecret, "venuewatch", 15*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := ParseToken(token, testSecret, "venuewatch")
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "ops-1" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "ops-1")
	}
	if claims.Role != RoleAdmin {
		t.Errorf("Role = %q, want %q", claims.Role, RoleAdmin)
	}
	if claims.ID == "" {
		t.Error("JTI (ID) should not be empty")
	}
	if !claims.ExpiresAt.After(time.Now()) {
		t.Error("newly generated token should not be expired")
	}
}

func TestGenerateToken_DefaultTTL(t *testing.T) {
	token, err := GenerateToken("ops-1", RoleViewer, testSecret, "", 0)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	claims, err := ParseToken(token, testSecret, "")
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	diff := claims.ExpiresAt.Sub(time.Now().Add(defaultTokenTTL))
	if diff < -time.Minute || diff > time.Minute {
		t.Errorf("default TTL off by %v", diff)
	}
}

func TestGenerateToken_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		role    Role
	}{
		{"empty subject", "", RoleAdmin},
		{"unknown role", "ops-1", Role("owner")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateToken(tt.subject, tt.role, testSecret, "", time.Minute)
			if !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("GenerateToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func signClaims(t *testing.T, claims jwt.Claims, method jwt.SigningMethod, key any) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return signed
}

func TestParseToken_Rejects(t *testing.T) {
	now := time.Now()
	valid := func() CustomClaims {
		return CustomClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "ops-1",
				Issuer:    "venuewatch",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
			Role: RoleViewer,
		}
	}

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
	noExpiry := valid()
	noExpiry.ExpiresAt = nil
	noSubject := valid()
	noSubject.Subject = ""
	badRole := valid()
	badRole.Role = "owner"
	otherIssuer := valid()
	otherIssuer.Issuer = "someone-else"

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-valid-jwt"},
		{"empty", ""},
		{"malformed", "abc.def"},
		{"wrong secret", signClaims(t, valid(), jwt.SigningMethodHS256, []byte("another-secret-another-secret-00"))},
		{"wrong algorithm", signClaims(t, valid(), jwt.SigningMethodHS512, []byte(testSecret))},
		{"unsigned", signClaims(t, valid(), jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType)},
		{"expired", signClaims(t, expired, jwt.SigningMethodHS256, []byte(testSecret))},
		{"no expiry", signClaims(t, noExpiry, jwt.SigningMethodHS256, []byte(testSecret))},
		{"no subject", signClaims(t, noSubject, jwt.SigningMethodHS256, []byte(testSecret))},
		{"unknown role", signClaims(t, badRole, jwt.SigningMethodHS256, []byte(testSecret))},
		{"other issuer", signClaims(t, otherIssuer, jwt.SigningMethodHS256, []byte(testSecret))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.token, testSecret, "venuewatch")
			if !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}
