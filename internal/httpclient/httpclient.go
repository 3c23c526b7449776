// Package httpclient provides the HTTP clients used for talking to SSO and ESI.
//
// All clients log HTTP errors and, when the log level is DEBUG, every response.
// Automatic retries are disabled: failed requests are returned to the caller unchanged.
package httpclient

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
)

// Config configures a new client.
type Config struct {
	// The RoundTripper used to make requests, e.g. one with a proxy.
	// If nil, http.DefaultTransport is used
	Transport http.RoundTripper

	// Responses from URLs containing any of these strings will never have their body logged.
	RedactedURLs []string
}

// New returns a new retryablehttp client, which never retries.
func New(cfg Config) *retryablehttp.Client {
	rhc := retryablehttp.NewClient()
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	rhc.HTTPClient = &http.Client{Transport: transport}
	rhc.Logger = slog.Default()
	rhc.RetryMax = 0
	rhc.CheckRetry = noRetry
	rhc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	redacted := append([]string{}, cfg.RedactedURLs...)
	rhc.ResponseLogHook = func(l retryablehttp.Logger, r *http.Response) {
		logResponse(redacted, r)
	}
	return rhc
}

// NewStandard returns a new client as standard HTTP client.
func NewStandard(cfg Config) *http.Client {
	return New(cfg).StandardClient()
}

// noRetry is a retry policy which never retries a request.
func noRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	return false, nil
}
