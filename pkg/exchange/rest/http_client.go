package rest

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"

	"onecall/pkg/exchange"
)

// NewHTTPClient returns cfg.HTTPClient when set, otherwise a client with
// cfg.Timeout that dials through cfg.ProxyAddr (SOCKS5) when configured.
// A proxy address that is not host:port is an error; requests never fall
// back to a direct connection.
func NewHTTPClient(cfg exchange.Config) (*http.Client, error) {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient, nil
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = exchange.DefaultTimeout
	}

	if cfg.ProxyAddr == "" {
		return &http.Client{Timeout: timeout}, nil
	}

	host, port, err := net.SplitHostPort(cfg.ProxyAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy address %q: %w", cfg.ProxyAddr, err)
	}
	if host == "" || port == "" {
		return nil, fmt.Errorf("invalid proxy address %q: host and port are required", cfg.ProxyAddr)
	}

	proxyURL := &url.URL{
		Scheme: "socks5h",
		Host:   cfg.ProxyAddr,
	}
	dialer, err := proxy.FromURL(proxyURL, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		},
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}
