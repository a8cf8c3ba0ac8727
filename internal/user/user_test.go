package user

import (
	"context"
	"errors"
	"testing"

	"onecall/pkg/db"
)

func newSQLiteService(t *testing.T) *Service {
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
	return NewService(repo, nil)
}

func TestService_RegisterAndLogin(t *testing.T) {
	s := newSQLiteService(t)
	ctx := context.Background()

	a, err := s.Register(ctx, " Alice ", "hunter22")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if a.Name != "alice" {
		t.Errorf("Unexpected name. Expected: alice; Actual: %s.", a.Name)
	}

	if _, err := s.Register(ctx, "alice", "other"); !errors.Is(err, ErrAccountExists) {
		t.Errorf("Unexpected error. Expected: %v; Actual: %v.", ErrAccountExists, err)
	}

	logged, err := s.Login(ctx, "ALICE", "hunter22")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if logged.Name != "alice" {
		t.Errorf("Unexpected name. Expected: alice; Actual: %s.", logged.Name)
	}
}

func TestService_LoginFailures(t *testing.T) {
	s := newSQLiteService(t)
	ctx := context.Background()
	if _, err := s.Register(ctx, "bob", "secret-password"); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	tests := []struct {
		name, account, password string
	}{
		{"wrong password", "bob", "guess"},
		{"unknown account", "carol", "secret-password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Login(ctx, tt.account, tt.password); !errors.Is(err, ErrInvalidCreds) {
				t.Errorf("Unexpected error. Expected: %v; Actual: %v.", ErrInvalidCreds, err)
			}
		})
	}
}
