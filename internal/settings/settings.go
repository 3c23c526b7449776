// Package settings loads the app's configuration from a YAML file.
package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/ErikKalkoken/evefit/internal/app"
	"github.com/ErikKalkoken/evefit/internal/eveauth"
)

// Defaults
const (
	ClientIDDefault     = "bc90aa496a404724a93f41b4f4e97761"
	DeviceURLDefault    = "https://mpay-web.g.mkey.163.com/device/init"
	ESIBaseURLDefault   = "https://esi.evepc.163.com"
	LogLevelDefault     = "INFO"
	RedirectURIDefault  = "https://esi.evepc.163.com/ui/oauth2-redirect.html"
	SSOBaseURLDefault   = "https://login.evepc.163.com/v2"
	SSOModeDefault      = "managed"
	TimeoutDefault      = "30s"
)

// Settings is the configuration of the app.
// Empty fields in a config file keep their defaults.
type Settings struct {
	ClientID          string  `yaml:"client_id"`
	ClientSecret      string  `yaml:"client_secret"`
	DeviceURL         string  `yaml:"device_url"` // "-" disables the device lookup
	ESIBaseURL        string  `yaml:"esi_base_url"`
	LogLevel          string  `yaml:"log_level"`
	Origin            string  `yaml:"origin"`
	ProxyURL          string  `yaml:"proxy_url"`
	RedirectURI       string  `yaml:"redirect_uri"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	SSOBaseURL        string  `yaml:"sso_base_url"`
	SSOMode           string  `yaml:"sso_mode"`
	Timeout           string  `yaml:"timeout"`
}

// Default returns the default settings.
func Default() Settings {
	return Settings{
		ClientID:    ClientIDDefault,
		DeviceURL:   DeviceURLDefault,
		ESIBaseURL:  ESIBaseURLDefault,
		LogLevel:    LogLevelDefault,
		RedirectURI: RedirectURIDefault,
		SSOBaseURL:  SSOBaseURLDefault,
		SSOMode:     SSOModeDefault,
		Timeout:     TimeoutDefault,
	}
}

// Load returns the settings from a YAML file at path.
// Returns the defaults when the file does not exist.
// The returned settings are validated.
func Load(path string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("No config file found. Using defaults", "path", path)
		return s, nil
	}
	if err != nil {
		return s, err
	}
	if err := s.Parse(data); err != nil {
		return s, fmt.Errorf("config file %s: %w", path, err)
	}
	return s, nil
}

// Parse updates the settings from YAML data and validates them.
func (s *Settings) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("%w: %w", app.ErrInvalid, err)
	}
	d := Default()
	fillDefault(&s.ClientID, d.ClientID)
	fillDefault(&s.DeviceURL, d.DeviceURL)
	fillDefault(&s.ESIBaseURL, d.ESIBaseURL)
	fillDefault(&s.LogLevel, d.LogLevel)
	fillDefault(&s.RedirectURI, d.RedirectURI)
	fillDefault(&s.SSOBaseURL, d.SSOBaseURL)
	fillDefault(&s.SSOMode, d.SSOMode)
	fillDefault(&s.Timeout, d.Timeout)
	return s.Validate()
}

func fillDefault(v *string, d string) {
	if *v == "" {
		*v = d
	}
}

// Validate reports whether the settings are valid.
func (s Settings) Validate() error {
	mode, err := eveauth.ParseSSOMode(s.SSOMode)
	if err != nil {
		return fmt.Errorf("sso_mode: %w: %w", app.ErrInvalid, err)
	}
	if mode == eveauth.ModeDirect && (s.ClientID == "" || s.ClientSecret == "") {
		return fmt.Errorf("sso mode direct needs client ID and client secret: %w", app.ErrInvalid)
	}
	urls := map[string]string{
		"esi_base_url": s.ESIBaseURL,
		"redirect_uri": s.RedirectURI,
		"sso_base_url": s.SSOBaseURL,
	}
	if s.DeviceURL != "-" {
		urls["device_url"] = s.DeviceURL
	}
	if s.ProxyURL != "" {
		urls["proxy_url"] = s.ProxyURL
	}
	for k, v := range urls {
		if err := validateURL(v); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil || d <= 0 {
		return fmt.Errorf("invalid timeout %q: %w", s.Timeout, app.ErrInvalid)
	}
	if s.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second can not be negative: %w", app.ErrInvalid)
	}
	if _, err := s.SlogLevel(); err != nil {
		return err
	}
	return nil
}

func validateURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("%w: %w", app.ErrInvalid, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid URL %q: %w", s, app.ErrInvalid)
	}
	return nil
}

// Mode returns the SSO mode.
func (s Settings) Mode() eveauth.SSOMode {
	m, _ := eveauth.ParseSSOMode(s.SSOMode)
	return m
}

// TimeoutDuration returns the timeout for ESI calls.
func (s Settings) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		d, _ = time.ParseDuration(TimeoutDefault)
	}
	return d
}

// AuthorizeURL returns the URL of the SSO authorize endpoint.
func (s Settings) AuthorizeURL() string {
	return strings.TrimSuffix(s.SSOBaseURL, "/") + "/oauth/authorize"
}

// TokenURL returns the URL of the SSO token endpoint.
func (s Settings) TokenURL() string {
	return strings.TrimSuffix(s.SSOBaseURL, "/") + "/oauth/token"
}

// SlogLevel returns the log level.
func (s Settings) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return l, fmt.Errorf("invalid log level %q: %w", s.LogLevel, app.ErrInvalid)
	}
	return l, nil
}

// HTTPTransport returns a new transport for all outgoing requests.
// The transport uses the configured proxy or else the proxy from the environment.
func (s Settings) HTTPTransport() (*http.Transport, error) {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if s.ProxyURL != "" {
		u, err := url.Parse(s.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("proxy_url: %w: %w", app.ErrInvalid, err)
		}
		t.Proxy = http.ProxyURL(u)
	}
	return t, nil
}
