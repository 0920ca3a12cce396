package tokens

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestVerify_ValidToken(t *testing.T) {
	token, err := Sign("secret", "imgwarden", "delivery-platform", time.Minute)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	claims, err := NewVerifier("secret", "imgwarden").Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Subject != "delivery-platform" {
		t.Errorf("Subject = %q", claims.Subject)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := Sign("secret", "imgwarden", "delivery-platform", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewVerifier("other-secret", "imgwarden").Verify(token); err == nil {
		t.Fatal("Verify() error = nil, want signature failure")
	}
}

func TestVerify_WrongAudience(t *testing.T) {
	token, err := Sign("secret", "someone-else", "delivery-platform", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewVerifier("secret", "imgwarden").Verify(token); err == nil {
		t.Fatal("Verify() error = nil, want audience failure")
	}
}

func TestVerify_ExpiredToken(t *testing.T) {
	token, err := Sign("secret", "imgwarden", "delivery-platform", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewVerifier("secret", "imgwarden").Verify(token); err == nil {
		t.Fatal("Verify() error = nil, want expiry failure")
	}
}

func TestVerify_RejectsNonHMAC(t *testing.T) {
	// alg=none style tokens must be rejected outright.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewVerifier("secret", "").Verify(signed); err == nil {
		t.Fatal("Verify() error = nil, want method rejection")
	}
}
