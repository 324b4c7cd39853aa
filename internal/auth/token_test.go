package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
)

var secret = []byte("test-secret")

func TestTokenRoundTrip(t *testing.T) {
	for _, role := range []Role{RoleStudent, RoleStaff} {
		p := Principal{ID: "user-1", Role: role}

		token, err := GenerateToken(secret, p, time.Hour)
		if err != nil {
			t.Fatalf("GenerateToken failed: %v", err)
		}

		got, err := ParseToken(secret, token)
		if err != nil {
			t.Fatalf("ParseToken failed: %v", err)
		}
		if got != p {
			t.Errorf("got %+v, want %+v", got, p)
		}
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(secret, Principal{ID: "user-1", Role: RoleStudent}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := ParseToken([]byte("other-secret"), token); err == nil {
		t.Error("token accepted with wrong secret")
	}
}

func TestParseTokenExpired(t *testing.T) {
	token, err := GenerateToken(secret, Principal{ID: "user-1", Role: RoleStudent}, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := ParseToken(secret, token); err == nil {
		t.Error("expired token accepted")
	}
}

func TestParseTokenUnknownRole(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "user-1",
		"role": "superuser",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, err := ParseToken(secret, signed); err == nil {
		t.Error("token with unknown role accepted")
	}
}

func TestParseTokenGarbage(t *testing.T) {
	if _, err := ParseToken(secret, "not-a-token"); err == nil {
		t.Error("garbage token accepted")
	}
}

func TestPrincipalHelpers(t *testing.T) {
	if !(Principal{}).IsAnonymous() {
		t.Error("zero principal should be anonymous")
	}
	if (Principal{ID: "u", Role: RoleStudent}).IsStaff() {
		t.Error("student is not staff")
	}
	if !(Principal{ID: "u", Role: RoleStaff}).IsStaff() {
		t.Error("staff principal not recognised")
	}
}
