package client

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Option configures a Client during construction in New.
//
// Options run before the bearer transport is installed, so transports set
// here (including the debug transport) sit underneath it and see the
// Authorization header.
type Option func(*Client) error

// WithHTTPClient replaces the underlying http.Client. The client is copied;
// its Transport is wrapped, not modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		copied := *hc
		c.http = &copied
		return nil
	}
}

// WithHTTPTimeout sets the overall timeout of a single request.
// Prefer context deadlines; this is a coarse upper bound.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		c.http.Timeout = d
		return nil
	}
}

// WithTokenStore sets where tokens are read from when a request context has
// none, and where Login saves them.
func WithTokenStore(s TokenStore) Option {
	return func(c *Client) error {
		c.tokens = s
		return nil
	}
}

// WithDebugLogging logs every request and response at debug level on logger.
// A nil logger disables it.
func WithDebugLogging(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			return nil
		}
		base := c.http.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		c.http.Transport = &debugTransport{base: base, logger: logger}
		return nil
	}
}
