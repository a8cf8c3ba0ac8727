package db

import (
	"context"
	"testing"
)

func TestConnect_SQLiteMemory(t *testing.T) {
	conn, err := Connect(context.Background(), DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	defer conn.Close()

	var one int
	if err := conn.Get(&one, "SELECT 1"); err != nil || one != 1 {
		t.Errorf("Unexpected result: %d, %v", one, err)
	}
}

func TestConnect_UnknownDriver(t *testing.T) {
	if _, err := Connect(context.Background(), "mysql", "dsn"); err == nil {
		t.Errorf("Expected an error for an unsupported driver")
	}
}
