package exchange

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error returned by an exchange client.
type Kind int

const (
	KindConfiguration Kind = iota + 1
	KindAuthentication
	KindNetwork
	KindExchange
	KindInvalidRequest
	KindNotSupported
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAuthentication:
		return "authentication"
	case KindNetwork:
		return "network"
	case KindExchange:
		return "exchange"
	case KindInvalidRequest:
		return "invalid request"
	case KindNotSupported:
		return "not supported"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Every *Error matches exactly one of them.
var (
	ErrConfiguration  = errors.New("configuration error")
	ErrAuthentication = errors.New("authentication error")
	ErrNetwork        = errors.New("network error")
	ErrExchange       = errors.New("exchange error")
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotSupported   = errors.New("operation not supported")
)

// Error is the error type returned by every client in this module.
type Error struct {
	Kind       Kind
	Exchange   string
	Op         string
	StatusCode int    // HTTP status, 0 when no response was received
	Code       string // exchange error code, if the payload carried one
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	prefix := e.Kind.String()
	if e.Exchange != "" {
		prefix = e.Exchange + " " + prefix
	}
	if e.Op != "" {
		prefix += " (" + e.Op + ")"
	}

	switch {
	case e.Code != "" && e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d, code %s: %s", prefix, e.StatusCode, e.Code, msg)
	case e.Code != "":
		return fmt.Sprintf("%s: code %s: %s", prefix, e.Code, msg)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d: %s", prefix, e.StatusCode, msg)
	default:
		return fmt.Sprintf("%s: %s", prefix, msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrConfiguration:
		return e.Kind == KindConfiguration
	case ErrAuthentication:
		return e.Kind == KindAuthentication
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrExchange:
		return e.Kind == KindExchange
	case ErrInvalidRequest:
		return e.Kind == KindInvalidRequest
	case ErrNotSupported:
		return e.Kind == KindNotSupported
	}
	return false
}

// RateLimited reports whether the exchange refused the call because of rate limiting.
func (e *Error) RateLimited() bool {
	return e.Kind == KindExchange && e.StatusCode == http.StatusTooManyRequests
}

// IsRateLimited reports whether err carries a rate-limit rejection.
func IsRateLimited(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.RateLimited()
	}
	return false
}

// KindOf returns the kind of err, or 0 if err was not produced by this module.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func ConfigurationError(exchange, msg string, err error) *Error {
	return &Error{Kind: KindConfiguration, Exchange: exchange, Message: msg, Err: err}
}

func InvalidRequestError(exchange, op, msg string) *Error {
	return &Error{Kind: KindInvalidRequest, Exchange: exchange, Op: op, Message: msg}
}

func NotSupportedError(exchange, op string) *Error {
	return &Error{Kind: KindNotSupported, Exchange: exchange, Op: op, Message: op + " is not offered by " + exchange}
}

func NetworkError(exchange, op string, err error) *Error {
	return &Error{Kind: KindNetwork, Exchange: exchange, Op: op, Err: err}
}
