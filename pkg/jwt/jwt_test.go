package jwt

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndParse(t *testing.T) {
	token, err := GenerateToken("secret", "alice", time.Hour)
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	account, err := ParseToken("secret", token)
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if account != "alice" {
		t.Errorf("Unexpected account. Expected: alice; Actual: %s.", account)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	expired, _ := GenerateToken("secret", "alice", -time.Minute)
	wrongKey, _ := GenerateToken("other", "alice", time.Hour)
	noSubject, _ := GenerateToken("secret", "", time.Hour)

	for name, token := range map[string]string{
		"expired":    expired,
		"wrong key":  wrongKey,
		"no subject": noSubject,
		"garbage":    "not.a.token",
	} {
		if _, err := ParseToken("secret", token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: expected ErrInvalidToken, got: %v", name, err)
		}
	}
}
