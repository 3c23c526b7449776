// Package esi provides an authenticated client for the ESI API.
//
// Every call to ESI passes through [Client.Call],
// which ensures a valid access token is attached to the request
// and translates HTTP errors into [app.AuthorizationError].
package esi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/ErikKalkoken/evefit/internal/app"
	"github.com/ErikKalkoken/evefit/internal/httpclient"
	"github.com/ErikKalkoken/evefit/internal/xsync"
)

const (
	baseURLDefault = "https://esi.evepc.163.com"
	timeoutDefault = 30 * time.Second
	verifyPath     = "/verify/"
)

var (
	ErrInvalidParams = errors.New("invalid params")
	ErrTimeout       = errors.New("request timed out")
)

// TokenRefresher refreshes the access token of a character.
type TokenRefresher interface {
	RefreshAccessToken(ctx context.Context, token *app.CharacterToken) error
}

// Config represents the configuration for a client.
type Config struct {
	// The origin of the ESI API. Default is the ESI server of the Serenity cluster.
	BaseURL string

	// The value for the Origin header. Default is BaseURL.
	Origin string

	// The RoundTripper used to make requests, e.g. one with a proxy.
	// If nil, http.DefaultTransport is used
	Transport http.RoundTripper

	// Maximum duration of a single call. Default is 30 seconds.
	Timeout time.Duration

	// Maximum average number of requests per second. 0 means no limit.
	RequestsPerSecond float64
}

// Client is a client for the ESI API.
//
// Each character has its own session with its own HTTP client and header set.
// Calls for the same character are serialized,
// while calls for different characters can run concurrently.
type Client struct {
	baseURL   string
	limiter   *rate.Limiter
	origin    string
	refresher TokenRefresher
	sessions  xsync.Map[int32, *session]
	timeout   time.Duration
	transport http.RoundTripper
}

// session holds the transport state of one character.
type session struct {
	mu     sync.Mutex
	client *retryablehttp.Client
	header http.Header
}

// NewClient returns a new ESI client.
// The refresher is used for refreshing expired access tokens before a call.
func NewClient(cfg Config, refresher TokenRefresher) (*Client, error) {
	if refresher == nil {
		return nil, fmt.Errorf("esi: must specify token refresher: %w", app.ErrInvalid)
	}
	c := &Client{
		baseURL:   baseURLDefault,
		refresher: refresher,
		timeout:   timeoutDefault,
		transport: cfg.Transport,
	}
	if cfg.BaseURL != "" {
		c.baseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	c.origin = c.baseURL
	if cfg.Origin != "" {
		c.origin = cfg.Origin
	}
	if cfg.Timeout > 0 {
		c.timeout = cfg.Timeout
	}
	if cfg.RequestsPerSecond > 0 {
		burst := max(1, int(cfg.RequestsPerSecond))
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c, nil
}

func (c *Client) newHTTPClient() *retryablehttp.Client {
	return httpclient.New(httpclient.Config{Transport: c.transport})
}

func (c *Client) defaultHeader() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("Origin", c.origin)
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	return h
}

// session returns the session for a character. Creates a new session if needed.
func (c *Client) session(characterID int32) *session {
	s, ok := c.sessions.Load(characterID)
	if ok {
		return s
	}
	s, _ = c.sessions.LoadOrStore(characterID, &session{
		client: c.newHTTPClient(),
		header: c.defaultHeader(),
	})
	return s
}

// CloseSession removes the session of a character, e.g. after it was deleted.
func (c *Client) CloseSession(characterID int32) {
	s, ok := c.sessions.LoadAndDelete(characterID)
	if !ok {
		return
	}
	s.client.HTTPClient.CloseIdleConnections()
}

// Call makes an authenticated request to an endpoint of ESI for a character
// and returns the parsed JSON response.
//
// When the token's access token has expired, it is refreshed once before the request.
// A failed refresh is returned immediately.
// Responses with a HTTP status of 400 or higher are returned as [app.AuthorizationError].
// The timeout covers the whole call including the refresh.
// Timeouts are returned as error wrapping [ErrTimeout].
// An empty response is returned as nil.
func (c *Client) Call(ctx context.Context, method string, token *app.CharacterToken, ep Endpoint, params Params, body []byte) (any, error) {
	data, err := c.do(ctx, method, token, ep, params, body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("esi %s: parse response: %w", ep.Name, err)
	}
	return v, nil
}

// Get makes an authenticated GET request.
func (c *Client) Get(ctx context.Context, token *app.CharacterToken, ep Endpoint, params Params) (any, error) {
	return c.Call(ctx, http.MethodGet, token, ep, params, nil)
}

// Post makes an authenticated POST request with a JSON body.
func (c *Client) Post(ctx context.Context, token *app.CharacterToken, ep Endpoint, params Params, body []byte) (any, error) {
	return c.Call(ctx, http.MethodPost, token, ep, params, body)
}

// Delete makes an authenticated DELETE request.
func (c *Client) Delete(ctx context.Context, token *app.CharacterToken, ep Endpoint, params Params) (any, error) {
	return c.Call(ctx, http.MethodDelete, token, ep, params, nil)
}

// do sends an authenticated request and returns the raw response body.
func (c *Client) do(ctx context.Context, method string, token *app.CharacterToken, ep Endpoint, params Params, body []byte) ([]byte, error) {
	wrapErr := func(err error) error {
		return fmt.Errorf("esi %s: %w", ep.Name, err)
	}
	if token == nil {
		return nil, wrapErr(fmt.Errorf("missing token: %w", app.ErrInvalid))
	}
	if method != ep.Method {
		return nil, wrapErr(fmt.Errorf("method %s not supported: %w", method, ErrInvalidParams))
	}
	path, err := ep.Resolve(params)
	if err != nil {
		return nil, err
	}
	u := c.baseURL + path

	s := c.session(token.CharacterID)
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if token.IsExpired() {
		slog.Info("Access token expired. Refreshing", "characterID", token.CharacterID)
		if err := c.refresher.RefreshAccessToken(ctx, token); err != nil {
			return nil, wrapErr(wrapTimeout(err))
		}
	}
	if token.AccessToken != "" {
		s.header.Set("Authorization", "Bearer "+token.AccessToken)
	}
	header := s.header.Clone()
	if body != nil {
		header.Set("Content-Type", "application/json")
	}
	data, err := c.send(ctx, s.client, method, u, header, body)
	if err != nil {
		return nil, wrapErr(err)
	}
	return data, nil
}

// send sends a request and returns the response body.
// The context must carry the deadline of the call.
func (c *Client) send(ctx context.Context, client *retryablehttp.Client, method, u string, header http.Header, body []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	var rawBody any
	if body != nil {
		rawBody = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, rawBody)
	if err != nil {
		return nil, err
	}
	req.Header = header
	slog.Debug("Sending ESI request", "method", method, "url", u)
	resp, err := client.Do(req)
	if err != nil {
		return nil, wrapTimeout(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapTimeout(err)
	}
	if w := resp.Header.Get("Warning"); w != "" {
		slog.Warn("ESI warning", "warning", w, "url", u)
	}
	if resp.StatusCode >= 400 {
		return nil, app.NewAuthorizationError(u, resp.StatusCode, data)
	}
	return data, nil
}

// wrapTimeout wraps timeout errors with [ErrTimeout] and returns all other errors unchanged.
func wrapTimeout(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

// Verify returns the character an access token belongs to.
//
// The token is used directly without refresh.
// This is meant for learning the identity behind a newly created token.
func (c *Client) Verify(ctx context.Context, accessToken string) (*app.VerifiedCharacter, error) {
	header := c.defaultHeader()
	header.Set("Authorization", "Bearer "+accessToken)
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	data, err := c.send(ctx, c.newHTTPClient(), http.MethodGet, c.baseURL+verifyPath, header, nil)
	if err != nil {
		return nil, fmt.Errorf("esi verify: %w", err)
	}
	var vc app.VerifiedCharacter
	if err := json.Unmarshal(data, &vc); err != nil {
		return nil, fmt.Errorf("esi verify: parse response: %w", err)
	}
	if vc.CharacterID == 0 {
		return nil, fmt.Errorf("esi verify: no character ID in response: %w", app.ErrInvalid)
	}
	return &vc, nil
}
