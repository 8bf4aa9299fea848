// Package client is a Go client for the talk back REST API.
//
// Every request goes through a transport that adds
// "Authorization: Bearer <token>" when a token is available, either on the
// request context (WithToken) or in the configured TokenStore. Requests
// without a token are sent unchanged.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spatalkback/talkback/pkg/endpoints"
)

type Client struct {
	endpoints endpoints.Endpoints
	http      *http.Client
	tokens    TokenStore
}

// New builds a client for the API under baseURL, for example the value of
// config.ResolveAPIBaseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL cannot be empty")
	}

	c := &Client{
		endpoints: endpoints.New(baseURL),
		http:      &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.http.Transport = &bearerTransport{base: base, tokens: c.tokens}

	return c, nil
}

// Endpoints returns the URL table the client talks to.
func (c *Client) Endpoints() endpoints.Endpoints {
	return c.endpoints
}

// Tokens returns the configured store, or nil.
func (c *Client) Tokens() TokenStore {
	return c.tokens
}

// do sends the request and decodes a 2xx JSON body into out (when non-nil).
// Any other status becomes an *APIError.
func (c *Client) do(ctx context.Context, method, url string, body io.Reader, contentType string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, url, err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, url string, in, out any) error {
	if in == nil {
		return c.do(ctx, method, url, nil, "", out)
	}

	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, method, url, bytes.NewReader(body), "application/json", out)
}
