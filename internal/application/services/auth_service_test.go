package services

import (
	"errors"
	"testing"
	"time"

	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/observability/logging"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/security"
)

func TestAuthenticateAdmin(t *testing.T) {
	hash, err := security.HashPassword("correct horse")
	if err != nil {
		t.Fatal(err)
	}
	svc := NewAuthService(hash, testSecret, time.Hour, logging.NewDiscardLogger())

	res, err := svc.AuthenticateAdmin("correct horse")
	if err != nil {
		t.Fatalf("AuthenticateAdmin() error = %v", err)
	}
	if res.Role != "admin" || res.Token == "" {
		t.Errorf("result = %+v", res)
	}
	if err := svc.ValidateAdminToken(res.Token); err != nil {
		t.Errorf("ValidateAdminToken() error = %v", err)
	}

	if _, err := svc.AuthenticateAdmin("wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("wrong password error = %v", err)
	}

	logTok, _ := security.IssueLogToken(testSecret, time.Hour)
	for name, tok := range map[string]string{"empty": "", "log token": logTok, "garbage": "abc"} {
		if err := svc.ValidateAdminToken(tok); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("%s: error = %v", name, err)
		}
	}
}

func TestAuthenticateAdminUnconfigured(t *testing.T) {
	svc := NewAuthService("", testSecret, time.Hour, logging.NewDiscardLogger())
	if _, err := svc.AuthenticateAdmin(""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("error = %v", err)
	}
}
