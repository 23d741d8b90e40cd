package jwt_test

import (
	"testing"
	"time"

	"campushub/internal/pkg/auth/jwt"
)

const testSecret = "test-secret"

func TestGenerateAndParseToken(t *testing.T) {
	payload := &jwt.Payload{
		ID:          "user-1",
		Role:        "teacher",
		DisplayName: "Ms. Park",
	}

	tokenString, err := jwt.GenerateToken(payload, testSecret, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	parsed, err := jwt.ParseToken(tokenString, testSecret)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}

	if parsed.ID != "user-1" {
		t.Errorf("Expected ID user-1, got %s", parsed.ID)
	}
	if parsed.Role != "teacher" {
		t.Errorf("Expected role teacher, got %s", parsed.Role)
	}
	if parsed.Issuer != jwt.TokenIssuer {
		t.Errorf("Expected issuer %s, got %s", jwt.TokenIssuer, parsed.Issuer)
	}
}

func TestParseTokenRejectsInvalidInput(t *testing.T) {
	expired, err := jwt.GenerateToken(&jwt.Payload{ID: "user-2", Role: "student"}, testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	wrongKey, err := jwt.GenerateToken(&jwt.Payload{ID: "user-3", Role: "student"}, "other-secret", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"expired", expired},
		{"wrong signing key", wrongKey},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := jwt.ParseToken(tc.token, testSecret); err == nil {
				t.Errorf("ParseToken accepted %s token", tc.name)
			}
		})
	}
}
