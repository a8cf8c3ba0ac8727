package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRunServer_DrainsInFlightRequests(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	started := make(chan struct{})
	release := make(chan struct{})
	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.Write([]byte("done"))
	})}

	ctx, cancel := context.WithCancel(context.Background())
	returned := make(chan error, 1)
	go func() { returned <- runServer(ctx, server, ln, 5*time.Second, zap.NewNop()) }()

	type result struct {
		body string
		err  error
	}
	responses := make(chan result, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err != nil {
			responses <- result{err: err}
			return
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		responses <- result{string(body), err}
	}()

	<-started
	cancel()

	select {
	case err := <-returned:
		t.Fatalf("Server returned with a request in flight: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	close(release)
	if err := <-returned; err != nil {
		t.Errorf("Unexpected error: %s", err.Error())
	}
	res := <-responses
	if res.err != nil || res.body != "done" {
		t.Errorf("Unexpected response. Expected: done; Actual: %q, %v.", res.body, res.err)
	}
}

func TestRunServer_ReportsShutdownTimeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
	})}

	ctx, cancel := context.WithCancel(context.Background())
	returned := make(chan error, 1)
	go func() { returned <- runServer(ctx, server, ln, 50*time.Millisecond, zap.NewNop()) }()
	go http.Get("http://" + ln.Addr().String() + "/")

	<-started
	cancel()
	if err := <-returned; err == nil {
		t.Errorf("Expected an error when in-flight requests outlive the timeout")
	}
}
