package security

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenTypes(t *testing.T) {
	logToken, err := IssueLogToken(testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	adminToken, err := IssueAdminToken(testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	expired, err := IssueLogToken(testSecret, -time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		token   string
		secret  string
		typ     string
		wantErr bool
	}{
		{"log token", logToken, testSecret, TokenTypeEventLog, false},
		{"admin token", adminToken, testSecret, TokenTypeAdmin, false},
		{"admin token as log token", adminToken, testSecret, TokenTypeEventLog, true},
		{"wrong secret", logToken, "other", TokenTypeEventLog, true},
		{"no secret", logToken, "", TokenTypeEventLog, true},
		{"expired", expired, testSecret, TokenTypeEventLog, true},
		{"garbage", "not-a-token", testSecret, TokenTypeEventLog, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateTokenType(tt.token, tt.secret, tt.typ)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateTokenType() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidToken) {
				t.Errorf("error %v does not wrap ErrInvalidToken", err)
			}
		})
	}
}

func TestValidateJWTRejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"type": TokenTypeAdmin})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateJWT(signed, testSecret); err == nil {
		t.Error("expected an alg=none token to be rejected")
	}
}

func TestGenerateJWTRequiresSecret(t *testing.T) {
	if _, err := GenerateJWT(jwt.MapClaims{}, ""); err == nil {
		t.Error("expected an error without a secret")
	}
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword(hash, "hunter2") {
		t.Error("expected the password to match")
	}
	if CheckPassword(hash, "hunter3") || CheckPassword("", "hunter2") {
		t.Error("unexpected match")
	}
}

func TestGenerateULID(t *testing.T) {
	a, b := GenerateULID(), GenerateULID()
	if len(a) != 26 || a == b || a >= b {
		t.Errorf("ULIDs %q %q should be distinct and increasing", a, b)
	}
}

func TestGenerateSecureKey(t *testing.T) {
	a, err := GenerateSecureKey(64)
	if err != nil {
		t.Fatalf("GenerateSecureKey() error = %v", err)
	}
	b, _ := GenerateSecureKey(64)
	if len(a) != 64 || a == b {
		t.Errorf("keys %q and %q", a, b)
	}
}
