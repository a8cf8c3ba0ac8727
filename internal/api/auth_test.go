package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"onecall/internal/api/dto"
	"onecall/internal/user"
	"onecall/pkg/db"
	"onecall/pkg/exchange"
)

func newAuthServer(t *testing.T) *httptest.Server {
	t.Helper()
	conn, err := db.Connect(context.Background(), db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	t.Cleanup(func() { conn.Close() })
	repo := user.NewSQLRepository(conn)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	keys := newMemKeyStore()
	factory := func(name string, creds exchange.Credentials) (exchange.Exchange, error) {
		return &stubExchange{name: name}, nil
	}
	router, _ := NewRouter(NewHandler(keys, factory, time.Second, nil), RouterConfig{
		JWTSecret: testSecret,
		Auth:      NewAuthHandler(user.NewService(repo, nil), testSecret, time.Hour, nil),
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAuth_RegisterLoginAndUseToken(t *testing.T) {
	server := newAuthServer(t)
	creds := `{"account":"alice","password":"long-enough"}`

	expectStatus(t, postJSON(t, server.URL+"/auth/register", creds), http.StatusCreated)
	expectStatus(t, postJSON(t, server.URL+"/auth/register", creds), http.StatusConflict)
	expectStatus(t, postJSON(t, server.URL+"/auth/register", `{"account":"al","password":"long-enough"}`), http.StatusBadRequest)

	expectStatus(t, postJSON(t, server.URL+"/auth/login", `{"account":"alice","password":"wrong-password"}`), http.StatusUnauthorized)

	resp := postJSON(t, server.URL+"/auth/login", creds)
	expectStatus(t, resp, http.StatusOK)
	var auth dto.AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	if auth.Account != "alice" || auth.Token == "" {
		t.Fatalf("Unexpected response: %+v", auth)
	}

	req, _ := http.NewRequest(http.MethodPut, server.URL+"/api/bybit/keys",
		strings.NewReader(`{"api_key":"bybit-key-1234","secret_key":"s"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+auth.Token)
	keysResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}
	defer keysResp.Body.Close()
	expectStatus(t, keysResp, http.StatusOK)
}
