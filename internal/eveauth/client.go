// Package eveauth provides users the ability to authenticate characters
// with the Eve Online Single Sign-On (SSO) service.
//
// It implements the OAuth 2.0 authorization code and refresh token grants
// and keeps refresh tokens encrypted at all times.
package eveauth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ErikKalkoken/evefit/internal/app"
	"github.com/ErikKalkoken/evefit/internal/optional"
	"github.com/ErikKalkoken/evefit/internal/tokencipher"
	"github.com/ErikKalkoken/evefit/internal/xsync"
)

const (
	authorizeURLDefault = "https://login.evepc.163.com/v2/oauth/authorize"
	deviceURLDefault    = "https://mpay-web.g.mkey.163.com/device/init"
	realmDefault        = "ESI"
	redirectURIDefault  = "https://esi.evepc.163.com/ui/oauth2-redirect.html"
	stateMaxAge         = 10 * time.Minute
	tokenURLDefault     = "https://login.evepc.163.com/v2/oauth/token"
)

var (
	ErrInvalid             = errors.New("invalid operation")
	ErrInvalidState        = errors.New("invalid state")
	ErrMissingRefreshToken = errors.New("no refresh token")
	ErrTokenError          = errors.New("token error")
)

// Arguments for registering a device with the device endpoint.
var deviceArgs = url.Values{
	"game_id":        {"aecfu6bgiuaaaal2-g-ma79"},
	"device_type":    {"PC"},
	"system_name":    {"Windows"},
	"system_version": {"10"},
	"resolution":     {"1920*1080"},
	"device_model":   {"64"},
}

// Config represents the configuration for a client.
type Config struct {
	// How the client identifies itself at the token endpoint.
	Mode SSOMode

	// The SSO client ID of the app. This field is required.
	ClientID string

	// The SSO client secret of the app. Required for [ModeDirect].
	ClientSecret string

	// The cipher for encrypting and decrypting refresh tokens. This field is required.
	Cipher *tokencipher.Cipher

	// The redirect URI registered for the app.
	RedirectURI string

	// The realm marker sent with the authorization request. Default is "ESI".
	Realm string

	// The HTTP client to use for all requests. Uses the [http.DefaultClient] by default.
	HTTPClient *http.Client

	// Customer logger instance. Uses slog by default.
	Logger LeveledLogger

	// OAuth2 authorization endpoint
	AuthorizeURL string

	// OAuth2 token endpoint
	TokenURL string

	// Endpoint for registering a device. Device registration is skipped when set to "-".
	DeviceURL string
}

// Client represents a client for authenticating Eve Online characters with the SSO service.
//
// A client instance is re-usable and applications usually only need to hold one instance.
// It is safe for concurrent use.
type Client struct {
	authorizeURL string
	cipher       *tokencipher.Cipher
	clientID     string
	clientSecret string
	deviceURL    string
	httpClient   *http.Client
	logger       LeveledLogger
	mode         SSOMode
	realm        string
	redirectURI  string
	states       xsync.Map[string, time.Time] // pending anti-CSRF states with creation time
	tokenURL     string
}

// NewClient returns a new client for authenticating characters.
//
// A client needs to be configured with config.
// NewClient will return an error if the configuration is invalid.
func NewClient(config Config) (*Client, error) {
	if config.ClientID == "" {
		return nil, fmt.Errorf("must specify client ID: %w", ErrInvalid)
	}
	if config.Mode == ModeDirect && config.ClientSecret == "" {
		return nil, fmt.Errorf("must specify client secret in %s mode: %w", config.Mode, ErrInvalid)
	}
	if config.Mode != ModeDirect && config.Mode != ModeManaged {
		return nil, fmt.Errorf("unknown mode %s: %w", config.Mode, ErrInvalid)
	}
	if config.Cipher == nil {
		return nil, fmt.Errorf("must specify cipher: %w", ErrInvalid)
	}
	s := &Client{
		authorizeURL: authorizeURLDefault,
		cipher:       config.Cipher,
		clientID:     config.ClientID,
		clientSecret: config.ClientSecret,
		deviceURL:    deviceURLDefault,
		httpClient:   http.DefaultClient,
		logger:       slog.Default(),
		mode:         config.Mode,
		realm:        realmDefault,
		redirectURI:  redirectURIDefault,
		tokenURL:     tokenURLDefault,
	}
	if config.AuthorizeURL != "" {
		s.authorizeURL = config.AuthorizeURL
	}
	if config.DeviceURL == "-" {
		s.deviceURL = ""
	} else if config.DeviceURL != "" {
		s.deviceURL = config.DeviceURL
	}
	if config.HTTPClient != nil {
		s.httpClient = config.HTTPClient
	}
	if config.Logger != nil {
		s.logger = config.Logger
	}
	if config.Realm != "" {
		s.realm = config.Realm
	}
	if config.RedirectURI != "" {
		s.redirectURI = config.RedirectURI
	}
	if config.TokenURL != "" {
		s.tokenURL = config.TokenURL
	}
	return s, nil
}

// Mode returns the SSO mode of a client.
func (s *Client) Mode() SSOMode {
	return s.mode
}

// TokenURL returns the URL of the token endpoint.
func (s *Client) TokenURL() string {
	return s.tokenURL
}

// AuthorizationURL returns the URL for starting the SSO authorization of a character
// in the system's browser.
//
// Each call generates a new anti-CSRF state, which must be echoed back by the SSO server
// and is verified with [Client.VerifyState].
func (s *Client) AuthorizationURL(ctx context.Context, scopes []string) (string, error) {
	state := uuid.NewString()
	s.pruneStates()
	s.states.Store(state, time.Now())
	deviceID := s.DeviceID(ctx).ValueOrZero()
	escaped := make([]string, len(scopes))
	for i, x := range scopes {
		escaped[i] = url.QueryEscape(x)
	}
	// the order of the parameters is significant for the SSO server
	args := []struct{ key, value string }{
		{"response_type", "token"},
		{"client_id", url.QueryEscape(s.clientID)},
		{"redirect_uri", url.QueryEscape(s.redirectURI)},
		{"scope", strings.Join(escaped, "+")},
		{"realm", url.QueryEscape(s.realm)},
		{"state", state},
		{"device_id", url.QueryEscape(deviceID)},
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.key + "=" + a.value
	}
	return s.authorizeURL + "?" + strings.Join(parts, "&"), nil
}

// pruneStates removes pending states which are too old to be verified.
func (s *Client) pruneStates() {
	s.states.Range(func(k string, created time.Time) bool {
		if time.Since(created) > stateMaxAge {
			s.states.Delete(k)
		}
		return true
	})
}

// VerifyState reports an error wrapping [ErrInvalidState]
// when a state was not generated by this client or has expired.
// A state can only be verified once.
func (s *Client) VerifyState(state string) error {
	created, ok := s.states.LoadAndDelete(state)
	if !ok {
		return fmt.Errorf("verify state %q: unknown: %w", state, ErrInvalidState)
	}
	if time.Since(created) > stateMaxAge {
		return fmt.Errorf("verify state %q: expired: %w", state, ErrInvalidState)
	}
	return nil
}

// CompleteAuthorization verifies the state returned by the SSO server
// and then exchanges the authorization code for a new token.
func (s *Client) CompleteAuthorization(ctx context.Context, state, code string) (*TokenPayload, error) {
	if err := s.VerifyState(state); err != nil {
		return nil, fmt.Errorf("sso-authorize: %w", err)
	}
	p, err := s.ExchangeAuthorizationCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("sso-authorize: %w", err)
	}
	return p, nil
}

type devicePayload struct {
	Device struct {
		ID string `json:"id"`
	} `json:"device"`
}

// DeviceID returns the ID of this device as registered with the device endpoint.
//
// This is a best-effort lookup. Any failure is logged
// and results in an empty optional.
func (s *Client) DeviceID(ctx context.Context) optional.Optional[string] {
	var z optional.Optional[string]
	if s.deviceURL == "" {
		return z
	}
	id, err := s.fetchDeviceID(ctx)
	if err != nil {
		s.logger.Warn("Failed to fetch device ID", "url", s.deviceURL, "error", err)
		return z
	}
	if id == "" {
		return z
	}
	return optional.New(id)
}

func (s *Client) fetchDeviceID(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.deviceURL+"?"+deviceArgs.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", app.NewAuthorizationError(s.deviceURL, resp.StatusCode, body)
	}
	var p devicePayload
	if err := json.Unmarshal(body, &p); err != nil {
		return "", err
	}
	return p.Device.ID, nil
}

// TokenPayload is a token as returned from the SSO API.
type TokenPayload struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
}

// expiresAt returns the time when this token will expire.
func (t *TokenPayload) expiresAt() time.Time {
	x := time.Now().Add(time.Second * time.Duration(t.ExpiresIn))
	return x
}

// ExchangeAuthorizationCode returns a new token from the SSO API in exchange for a code.
//
// It returns an [app.AuthorizationError] when the SSO server rejected the request.
func (s *Client) ExchangeAuthorizationCode(ctx context.Context, code string) (*TokenPayload, error) {
	if code == "" {
		return nil, fmt.Errorf("sso-exchange: missing code: %w", ErrInvalid)
	}
	form := url.Values{
		"grant_type": {"authorization_code"},
		"code":       {code},
	}
	s.logger.Info("Sending auth request to SSO API")
	p, err := s.fetchToken(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("sso-exchange: %w", err)
	}
	return p, nil
}

// RefreshAccessToken fetches a new access token for a character
// and updates the token when successful.
//
// It returns an error wrapping [ErrMissingRefreshToken] when the token has no refresh token
// or the refresh token can not be decrypted.
// Both require the character to be authorized again.
// It returns an [app.AuthorizationError] when the SSO server rejected the request.
func (s *Client) RefreshAccessToken(ctx context.Context, token *app.CharacterToken) (*TokenPayload, error) {
	if token == nil || !token.HasRefreshToken() {
		return nil, fmt.Errorf("sso-refresh: %w", ErrMissingRefreshToken)
	}
	refreshToken, err := s.cipher.Decrypt(token.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("sso-refresh: character %d: %w: %w", token.CharacterID, ErrMissingRefreshToken, err)
	}
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	s.logger.Info("Refreshing token", "characterID", token.CharacterID, "characterName", token.CharacterName)
	p, err := s.fetchToken(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("sso-refresh: character %d: %w", token.CharacterID, err)
	}
	if err := s.UpdateToken(token, p); err != nil {
		return nil, fmt.Errorf("sso-refresh: character %d: %w", token.CharacterID, err)
	}
	return p, nil
}

// UpdateToken updates a character token from a token payload.
//
// The refresh token is only updated when the payload contains a new one.
func (s *Client) UpdateToken(token *app.CharacterToken, p *TokenPayload) error {
	if p.RefreshToken != "" {
		b, err := s.cipher.Encrypt(p.RefreshToken)
		if err != nil {
			return err
		}
		token.RefreshToken = b
	}
	token.AccessToken = p.AccessToken
	token.ExpiresAt = p.expiresAt()
	token.RefreshedAt = optional.New(time.Now())
	if p.TokenType != "" {
		token.TokenType = p.TokenType
	}
	return nil
}

// fetchToken posts a grant to the token endpoint and returns the new token.
func (s *Client) fetchToken(ctx context.Context, form url.Values) (*TokenPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s.mode == ModeDirect {
		req.Header.Set("Authorization", "Basic "+basicCredentials(s.clientID, s.clientSecret))
	}
	s.logger.Debug("Requesting token from SSO API", "grant_type", form.Get("grant_type"), "url", s.tokenURL, "mode", s.mode)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, app.NewAuthorizationError(s.tokenURL, resp.StatusCode, body)
	}
	token := TokenPayload{}
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("token payload: %w: %w", ErrTokenError, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token payload has no access token: %w", ErrTokenError)
	}
	return &token, nil
}

func basicCredentials(clientID, clientSecret string) string {
	return base64.StdEncoding.EncodeToString([]byte(clientID + ":" + clientSecret))
}
