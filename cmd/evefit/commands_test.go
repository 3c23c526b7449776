package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ErikKalkoken/evefit/internal/app"
	"github.com/ErikKalkoken/evefit/internal/characterservice"
	"github.com/ErikKalkoken/evefit/internal/esi"
	"github.com/ErikKalkoken/evefit/internal/eveauth"
	"github.com/ErikKalkoken/evefit/internal/testutil"
	"github.com/ErikKalkoken/evefit/internal/tokencipher"
)

const (
	esiBaseURL = "https://esi.example.com"
	tokenURL   = "https://sso.example.com/oauth/token"
)

func TestParseRedirect(t *testing.T) {
	cases := []struct {
		name      string
		in        string
		wantState string
		wantCode  string
		wantErr   bool
	}{
		{"query", "https://esi.example.com/ui/oauth2-redirect.html?code=abc&state=xyz", "xyz", "abc", false},
		{"fragment", "https://esi.example.com/ui/oauth2-redirect.html#code=abc&state=xyz", "xyz", "abc", false},
		{"surrounding spaces", "  https://esi.example.com/?code=abc&state=xyz\n", "xyz", "abc", false},
		{"missing code", "https://esi.example.com/?state=xyz", "", "", true},
		{"missing state", "https://esi.example.com/?code=abc", "", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state, code, err := parseRedirect(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, errUsage)
				return
			}
			if assert.NoError(t, err) {
				assert.Equal(t, tc.wantState, state)
				assert.Equal(t, tc.wantCode, code)
			}
		})
	}
}

func newCLI(t *testing.T, in string) (*cli, *bytes.Buffer, *httpmock.MockTransport, testutil.Factory, *tokencipher.Cipher) {
	t.Helper()
	db, st, factory := testutil.New()
	t.Cleanup(func() { db.Close() })
	cipher, err := tokencipher.NewRandom()
	require.NoError(t, err)
	mt := httpmock.NewMockTransport()
	sso, err := eveauth.NewClient(eveauth.Config{
		AuthorizeURL: "https://sso.example.com/oauth/authorize",
		Cipher:       cipher,
		ClientID:     "client-id",
		DeviceURL:    "-",
		HTTPClient:   &http.Client{Transport: mt},
		TokenURL:     tokenURL,
	})
	require.NoError(t, err)
	cs, err := characterservice.New(characterservice.Params{
		ESIConfig:  esi.Config{BaseURL: esiBaseURL, Transport: mt},
		SSOService: sso,
		Storage:    st,
	})
	require.NoError(t, err)
	var out bytes.Buffer
	c := &cli{cs: cs, in: strings.NewReader(in), out: &out}
	return c, &out, mt, factory, cipher
}

// redirectReader simulates a user pasting the redirect URL for the login URL printed to out.
type redirectReader struct {
	out  *bytes.Buffer
	done bool
}

func (r *redirectReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, io.EOF
	}
	r.done = true
	m := regexp.MustCompile(`state=([^&\s]+)`).FindStringSubmatch(r.out.String())
	if m == nil {
		return 0, io.EOF
	}
	line := "https://esi.example.com/ui/oauth2-redirect.html?code=abc&state=" + m[1] + "\n"
	return copy(p, line), nil
}

func TestCLI(t *testing.T) {
	ctx := context.Background()
	t.Run("should return usage error for unknown command", func(t *testing.T) {
		c, _, _, _, _ := newCLI(t, "")
		err := c.run(ctx, []string{"dance"})
		assert.ErrorIs(t, err, errUsage)
	})
	t.Run("should return usage error for missing command", func(t *testing.T) {
		c, _, _, _, _ := newCLI(t, "")
		err := c.run(ctx, nil)
		assert.ErrorIs(t, err, errUsage)
	})
	t.Run("should report when there are no characters", func(t *testing.T) {
		c, out, _, _, _ := newCLI(t, "")
		err := c.run(ctx, []string{"characters"})
		if assert.NoError(t, err) {
			assert.Contains(t, out.String(), "No characters")
		}
	})
	t.Run("can list characters", func(t *testing.T) {
		// given
		c, out, _, factory, _ := newCLI(t, "")
		factory.CreateCharacterToken(app.CharacterToken{CharacterID: 42, CharacterName: "Bruce Wayne"})
		// when
		err := c.run(ctx, []string{"characters"})
		// then
		if assert.NoError(t, err) {
			assert.Contains(t, out.String(), "Bruce Wayne")
			assert.Contains(t, out.String(), "stale")
		}
	})
	t.Run("should return error for commands which need a character", func(t *testing.T) {
		c, _, _, _, _ := newCLI(t, "")
		err := c.run(ctx, []string{"fittings"})
		assert.ErrorIs(t, err, app.ErrNotFound)
	})
	t.Run("can login a character", func(t *testing.T) {
		// given
		c, out, mt, _, _ := newCLI(t, "")
		c.in = &redirectReader{out: out}
		mt.RegisterResponder("POST", tokenURL, httpmock.NewStringResponder(http.StatusOK, `{"access_token": "access", "expires_in": 1199, "refresh_token": "refresh"}`))
		mt.RegisterResponder("GET", esiBaseURL+"/verify/", httpmock.NewStringResponder(http.StatusOK, `{"CharacterID": 42, "CharacterName": "Bruce Wayne"}`))
		// when
		err := c.run(ctx, []string{"login"})
		// then
		if assert.NoError(t, err) {
			assert.Contains(t, out.String(), "Added character Bruce Wayne (42)")
		}
	})
	t.Run("can show skills of a character", func(t *testing.T) {
		// given
		c, out, mt, factory, cipher := newCLI(t, "")
		b, err := cipher.Encrypt("refresh")
		require.NoError(t, err)
		factory.CreateCharacterToken(app.CharacterToken{CharacterID: 42, RefreshToken: b})
		mt.RegisterResponder("POST", tokenURL, httpmock.NewStringResponder(http.StatusOK, `{"access_token": "access", "expires_in": 1199}`))
		mt.RegisterResponder("GET", esiBaseURL+"/characters/42/skills/", httpmock.NewStringResponder(http.StatusOK, `{"total_sp": 5000000, "skills": [{"skill_id": 3300, "active_skill_level": 3}]}`))
		mt.RegisterResponder("GET", esiBaseURL+"/characters/42/", httpmock.NewStringResponder(http.StatusOK, `{"name": "Bruce Wayne", "security_status": 2.51}`))
		// when
		err = c.run(ctx, []string{"skills"})
		// then
		if assert.NoError(t, err) {
			assert.Contains(t, out.String(), "Character: Bruce Wayne (42)")
			assert.Contains(t, out.String(), "Security status: 2.5")
			assert.Contains(t, out.String(), "Total SP: 5,000,000")
			assert.Contains(t, out.String(), "Skills: 1")
		}
	})
	t.Run("can show levels of given skills", func(t *testing.T) {
		// given
		c, out, mt, factory, cipher := newCLI(t, "")
		b, err := cipher.Encrypt("refresh")
		require.NoError(t, err)
		factory.CreateCharacterToken(app.CharacterToken{CharacterID: 42, RefreshToken: b})
		mt.RegisterResponder("POST", tokenURL, httpmock.NewStringResponder(http.StatusOK, `{"access_token": "access", "expires_in": 1199}`))
		mt.RegisterResponder("GET", esiBaseURL+"/characters/42/skills/", httpmock.NewStringResponder(http.StatusOK, `{"total_sp": 5000000, "skills": [{"skill_id": 3300, "active_skill_level": 3}]}`))
		mt.RegisterResponder("GET", esiBaseURL+"/characters/42/", httpmock.NewStringResponder(http.StatusOK, `{"name": "Bruce Wayne", "security_status": 2.51}`))
		// when
		err = c.run(ctx, []string{"skills", "3300", "3301"})
		// then
		if assert.NoError(t, err) {
			assert.Regexp(t, `3300\s+3\n`, out.String())
			assert.Regexp(t, `3301\s+0\n`, out.String())
		}
	})
	t.Run("should return usage error for invalid skill ID", func(t *testing.T) {
		c, _, _, _, _ := newCLI(t, "")
		err := c.run(ctx, []string{"skills", "abc"})
		assert.ErrorIs(t, err, errUsage)
	})
	t.Run("can create and delete fitting", func(t *testing.T) {
		// given
		c, out, mt, factory, cipher := newCLI(t, "")
		b, err := cipher.Encrypt("refresh")
		require.NoError(t, err)
		factory.CreateCharacterToken(app.CharacterToken{CharacterID: 42, RefreshToken: b})
		mt.RegisterResponder("POST", tokenURL, httpmock.NewStringResponder(http.StatusOK, `{"access_token": "access", "expires_in": 1199}`))
		mt.RegisterResponder("POST", esiBaseURL+"/characters/42/fittings/", httpmock.NewStringResponder(http.StatusCreated, `{"fitting_id": 7}`))
		mt.RegisterResponder("DELETE", esiBaseURL+"/characters/42/fittings/7/", httpmock.NewStringResponder(http.StatusNoContent, ""))
		p := filepath.Join(t.TempDir(), "fitting.json")
		require.NoError(t, os.WriteFile(p, []byte(`{"name": "Rifter", "ship_type_id": 587, "items": []}`), 0o600))
		// when
		err1 := c.run(ctx, []string{"create-fitting", p})
		err2 := c.run(ctx, []string{"delete-fitting", "7"})
		// then
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Contains(t, out.String(), "Created fitting 7")
		assert.Contains(t, out.String(), "Deleted fitting 7")
	})
	t.Run("should return usage error for invalid fitting ID", func(t *testing.T) {
		c, _, _, _, _ := newCLI(t, "")
		err := c.run(ctx, []string{"delete-fitting", "abc"})
		assert.ErrorIs(t, err, errUsage)
	})
}
