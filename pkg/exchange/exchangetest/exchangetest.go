// Package exchangetest holds httptest helpers shared by the exchange client tests.
package exchangetest

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// DroppingServer accepts the connection and closes it without answering.
func DroppingServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Fatalf("Response writer does not support hijacking")
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Fatalf("Hijack failed: %s", err.Error())
		}
		conn.Close()
	}))
	t.Cleanup(ts.Close)
	return ts
}

// StatusServer answers every request with status and body.
func StatusServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

// Route maps "METHOD /path" to a canned JSON body.
type Route map[string]string

// RouteServer serves canned bodies by method and path and fails the test on
// anything else. check, when non-nil, sees every request first.
func RouteServer(t *testing.T, routes Route, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		body, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

// HangingServer never answers; requests end when the client gives up.
func HangingServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(ts.Close)
	return ts
}
