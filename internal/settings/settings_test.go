package settings_test

import (
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ErikKalkoken/evefit/internal/app"
	"github.com/ErikKalkoken/evefit/internal/eveauth"
	"github.com/ErikKalkoken/evefit/internal/settings"
)

func TestLoad(t *testing.T) {
	t.Run("should return defaults when file does not exist", func(t *testing.T) {
		// when
		got, err := settings.Load(filepath.Join(t.TempDir(), "missing.yaml"))
		// then
		if assert.NoError(t, err) {
			assert.Equal(t, settings.Default(), got)
			assert.Equal(t, eveauth.ModeManaged, got.Mode())
		}
	})
	t.Run("can load settings from file", func(t *testing.T) {
		// given
		p := filepath.Join(t.TempDir(), "config.yaml")
		data := `
sso_mode: direct
client_id: my-id
client_secret: my-secret
timeout: 5s
requests_per_second: 10
log_level: debug
`
		require.NoError(t, os.WriteFile(p, []byte(data), 0o600))
		// when
		got, err := settings.Load(p)
		// then
		if assert.NoError(t, err) {
			assert.Equal(t, eveauth.ModeDirect, got.Mode())
			assert.Equal(t, "my-id", got.ClientID)
			assert.Equal(t, "my-secret", got.ClientSecret)
			assert.Equal(t, 5*time.Second, got.TimeoutDuration())
			assert.InDelta(t, 10, got.RequestsPerSecond, 0.001)
			l, err := got.SlogLevel()
			if assert.NoError(t, err) {
				assert.Equal(t, slog.LevelDebug, l)
			}
			assert.Equal(t, settings.ESIBaseURLDefault, got.ESIBaseURL)
		}
	})
	t.Run("should return error when file is not valid YAML", func(t *testing.T) {
		// given
		p := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(p, []byte("client_id: [alpha"), 0o600))
		// when
		_, err := settings.Load(p)
		// then
		assert.ErrorIs(t, err, app.ErrInvalid)
	})
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		change func(s *settings.Settings)
	}{
		{"unknown sso mode", func(s *settings.Settings) { s.SSOMode = "auto" }},
		{"direct mode without secret", func(s *settings.Settings) { s.SSOMode = "direct" }},
		{"invalid esi base URL", func(s *settings.Settings) { s.ESIBaseURL = "esi.example.com" }},
		{"invalid proxy URL", func(s *settings.Settings) { s.ProxyURL = "::" }},
		{"invalid timeout", func(s *settings.Settings) { s.Timeout = "soon" }},
		{"negative timeout", func(s *settings.Settings) { s.Timeout = "-1s" }},
		{"negative request rate", func(s *settings.Settings) { s.RequestsPerSecond = -1 }},
		{"unknown log level", func(s *settings.Settings) { s.LogLevel = "chatty" }},
	}
	for _, tc := range cases {
		t.Run("should report invalid settings: "+tc.name, func(t *testing.T) {
			s := settings.Default()
			tc.change(&s)
			assert.ErrorIs(t, s.Validate(), app.ErrInvalid)
		})
	}
	t.Run("should accept defaults", func(t *testing.T) {
		assert.NoError(t, settings.Default().Validate())
	})
	t.Run("should accept disabled device lookup", func(t *testing.T) {
		s := settings.Default()
		s.DeviceURL = "-"
		assert.NoError(t, s.Validate())
	})
}

func TestSettingsURLs(t *testing.T) {
	s := settings.Default()
	s.SSOBaseURL = "https://sso.example.com/v2/"
	assert.Equal(t, "https://sso.example.com/v2/oauth/authorize", s.AuthorizeURL())
	assert.Equal(t, "https://sso.example.com/v2/oauth/token", s.TokenURL())
}

func TestHTTPTransport(t *testing.T) {
	t.Run("should use configured proxy", func(t *testing.T) {
		// given
		s := settings.Default()
		s.ProxyURL = "http://proxy.example.com:8080"
		// when
		tr, err := s.HTTPTransport()
		// then
		require.NoError(t, err)
		req, _ := http.NewRequest("GET", "https://esi.evepc.163.com/", nil)
		got, err := tr.Proxy(req)
		if assert.NoError(t, err) {
			want, _ := url.Parse("http://proxy.example.com:8080")
			assert.Equal(t, want, got)
		}
	})
}

func TestSlogLevel(t *testing.T) {
	t.Run("can return configured level", func(t *testing.T) {
		s := settings.Default()
		s.LogLevel = "debug"
		got, err := s.SlogLevel()
		if assert.NoError(t, err) {
			assert.Equal(t, slog.LevelDebug, got)
		}
	})
	t.Run("should return error for unknown level", func(t *testing.T) {
		s := settings.Default()
		s.LogLevel = "chatty"
		_, err := s.SlogLevel()
		assert.ErrorIs(t, err, app.ErrInvalid)
	})
}
