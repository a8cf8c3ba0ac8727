package keystore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"onecall/pkg/db"
	"onecall/pkg/exchange"
)

const testSecret = "a-long-enough-encryption-secret"

var (
	cipherOnce sync.Once
	testCipher *Cipher
)

// sharedCipher derives the key once; scrypt is slow on purpose.
func sharedCipher(t *testing.T) *Cipher {
	t.Helper()
	var err error
	cipherOnce.Do(func() { testCipher, err = NewCipher(testSecret) })
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	return testCipher
}

func newSQLiteService(t *testing.T) (*Service, *SQLRepository) {
	t.Helper()
	conn, err := db.Connect(context.Background(), db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	t.Cleanup(func() { conn.Close() })

	repo := NewSQLRepository(conn)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	return NewService(repo, sharedCipher(t), nil), repo
}

func TestCipher_RoundTrip(t *testing.T) {
	c := sharedCipher(t)
	sealed, err := c.Encrypt("my-api-secret", "alice/bybit/secret")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if strings.Contains(sealed, "my-api-secret") {
		t.Errorf("Ciphertext contains the plaintext")
	}
	again, _ := c.Encrypt("my-api-secret", "alice/bybit/secret")
	if again == sealed {
		t.Errorf("Expected a fresh nonce per encryption")
	}
	plain, err := c.Decrypt(sealed, "alice/bybit/secret")
	if err != nil || plain != "my-api-secret" {
		t.Errorf("Unexpected plaintext: %q, %v", plain, err)
	}
}

func TestCipher_RejectsTampering(t *testing.T) {
	c := sharedCipher(t)
	sealed, _ := c.Encrypt("my-api-secret", "alice/bybit/secret")
	tampered := []byte(sealed)
	tampered[len(tampered)/2] ^= 'A' ^ 'B'
	if _, err := c.Decrypt(string(tampered), "alice/bybit/secret"); !errors.Is(err, ErrCiphertext) {
		t.Errorf("Expected ErrCiphertext, got: %v", err)
	}
	if _, err := c.Decrypt(sealed, "bob/bybit/secret"); !errors.Is(err, ErrCiphertext) {
		t.Errorf("Expected ErrCiphertext for another binding, got: %v", err)
	}
	if _, err := c.Decrypt("not base64!", "alice/bybit/secret"); !errors.Is(err, ErrCiphertext) {
		t.Errorf("Expected ErrCiphertext, got: %v", err)
	}
	if _, err := NewCipher("short"); err == nil {
		t.Errorf("Expected an error for a short secret")
	}
}

func TestService_SaveLoadDelete(t *testing.T) {
	svc, repo := newSQLiteService(t)
	ctx := context.Background()

	creds, _ := exchange.NewCredentialsWithPassphrase("okx-key", "okx-secret", "okx-phrase")
	if err := svc.Save(ctx, "alice", "OKX", creds); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	rec, err := repo.Get(ctx, "alice", "okx")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if rec.Secret == "okx-secret" || rec.Passphrase == "okx-phrase" || rec.APIKey != "okx-key" {
		t.Errorf("Unexpected stored record: %+v", rec)
	}

	loaded, err := svc.Credentials(ctx, "alice", "okx")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if loaded != creds {
		t.Errorf("Unexpected credentials. Expected: %s; Actual: %s.", creds, loaded)
	}

	replacement, _ := exchange.NewCredentialsWithPassphrase("okx-key-2", "okx-secret-2", "okx-phrase-2")
	if err := svc.Save(ctx, "alice", "okx", replacement); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if loaded, _ := svc.Credentials(ctx, "alice", "okx"); loaded.Key() != "okx-key-2" {
		t.Errorf("Expected keys to be replaced, got %s", loaded)
	}

	if err := svc.Delete(ctx, "alice", "okx"); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if _, err := svc.Credentials(ctx, "alice", "okx"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got: %v", err)
	}
	if err := svc.Delete(ctx, "alice", "okx"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting twice, got: %v", err)
	}
}

func TestService_AccountsAreIsolated(t *testing.T) {
	svc, _ := newSQLiteService(t)
	ctx := context.Background()

	creds, _ := exchange.NewCredentials("bob-key", "bob-secret")
	if err := svc.Save(ctx, "bob", "bybit", creds); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if _, err := svc.Credentials(ctx, "carol", "bybit"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for another account, got: %v", err)
	}
	if _, err := svc.Credentials(ctx, "bob", "binance"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for another exchange, got: %v", err)
	}
}

func TestService_SwappedCiphertextIsRejected(t *testing.T) {
	svc, repo := newSQLiteService(t)
	ctx := context.Background()

	bob, _ := exchange.NewCredentials("bob-key", "bob-secret")
	carol, _ := exchange.NewCredentials("carol-key", "carol-secret")
	if err := svc.Save(ctx, "bob", "bybit", bob); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if err := svc.Save(ctx, "carol", "bybit", carol); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	stolen, err := repo.Get(ctx, "bob", "bybit")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	stolen.Account = "carol"
	if err := repo.Save(ctx, *stolen); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	if _, err := svc.Credentials(ctx, "carol", "bybit"); !errors.Is(err, ErrCiphertext) {
		t.Errorf("Unexpected error. Expected: %v; Actual: %v.", ErrCiphertext, err)
	}
	if loaded, err := svc.Credentials(ctx, "bob", "bybit"); err != nil || loaded != bob {
		t.Errorf("Unexpected credentials for bob: %s, %v", loaded, err)
	}
}
