package client

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httputil"
)

type tokenKey struct{}

// WithToken returns a context whose requests carry tok as their bearer token.
// It takes precedence over the TokenStore.
func WithToken(ctx context.Context, tok string) context.Context {
	return context.WithValue(ctx, tokenKey{}, tok)
}

// TokenFromContext returns the token set by WithToken, or "".
func TokenFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(tokenKey{}).(string)
	return tok
}

// bearerTransport adds the Authorization header when a token is available.
// It never refreshes or retries.
type bearerTransport struct {
	base   http.RoundTripper
	tokens TokenStore
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok := TokenFromContext(req.Context())
	if tok == "" && t.tokens != nil {
		// a store that cannot be read counts as no token
		tok, _ = t.tokens.Get(AccessTokenKey)
	}
	if tok == "" {
		return t.base.RoundTrip(req)
	}

	cloned := req.Clone(req.Context())
	cloned.Header.Set("Authorization", "Bearer "+tok)
	return t.base.RoundTrip(cloned)
}

// debugTransport dumps every request and response at debug level.
// Dumps include headers, so bearer tokens end up in the log.
type debugTransport struct {
	base   http.RoundTripper
	logger *slog.Logger
}

func (dt *debugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if reqDump, err := httputil.DumpRequestOut(req, true); err == nil {
		dt.logger.Debug("🌐 [Client] HTTP request", "method", req.Method, "url", req.URL.String(), "request_dump", string(reqDump))
	}

	resp, err := dt.base.RoundTrip(req)
	if err != nil {
		dt.logger.Error("❌ [Client] HTTP request failed", "method", req.Method, "url", req.URL.String(), "error", err)
		return nil, err
	}

	if respDump, err := httputil.DumpResponse(resp, true); err == nil {
		dt.logger.Debug("🌐 [Client] HTTP response", "method", req.Method, "url", req.URL.String(), "status_code", resp.StatusCode, "response_dump", string(respDump))
	}
	return resp, nil
}
