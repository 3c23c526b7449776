// Package characterservice manages the authenticated characters
// and provides access to their data on ESI.
package characterservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ErikKalkoken/go-set"

	"github.com/ErikKalkoken/evefit/internal/app"
	"github.com/ErikKalkoken/evefit/internal/esi"
	"github.com/ErikKalkoken/evefit/internal/eveauth"
	"github.com/ErikKalkoken/evefit/internal/storage"
	"github.com/ErikKalkoken/evefit/internal/xsync"
)

// ErrReauthorize is returned when a character's credential was dropped
// and the character needs to be authorized again.
var ErrReauthorize = errors.New("character needs to be authorized again")

// CharacterService provides access to all authenticated characters.
//
// Tokens are kept in memory once loaded, so access tokens survive between calls.
// Only refresh tokens are persisted.
type CharacterService struct {
	esi    *esi.Client
	sso    *eveauth.Client
	st     *storage.Storage
	tokens xsync.Map[int32, *app.CharacterToken]
}

type Params struct {
	ESIConfig  esi.Config
	SSOService *eveauth.Client
	Storage    *storage.Storage
}

// New creates a new character service and returns it.
func New(arg Params) (*CharacterService, error) {
	if arg.SSOService == nil || arg.Storage == nil {
		return nil, fmt.Errorf("characterservice: must specify SSO service and storage: %w", app.ErrInvalid)
	}
	s := &CharacterService{
		sso: arg.SSOService,
		st:  arg.Storage,
	}
	c, err := esi.NewClient(arg.ESIConfig, s)
	if err != nil {
		return nil, err
	}
	s.esi = c
	return s, nil
}

// LoginURL returns the URL for starting the authorization of a new character.
func (s *CharacterService) LoginURL(ctx context.Context) (string, error) {
	return s.sso.AuthorizationURL(ctx, app.ScopesSlice())
}

// AddCharacter completes the authorization of a character
// and stores its credential.
// Authorizing an existing character again replaces its credential.
func (s *CharacterService) AddCharacter(ctx context.Context, state, code string) (*app.CharacterToken, error) {
	p, err := s.sso.CompleteAuthorization(ctx, state, code)
	if err != nil {
		return nil, err
	}
	vc, err := s.esi.Verify(ctx, p.AccessToken)
	if err != nil {
		return nil, err
	}
	token := &app.CharacterToken{
		CharacterID:   vc.CharacterID,
		CharacterName: vc.CharacterName,
		Scopes:        set.Of(strings.Fields(vc.Scopes)...),
		TokenType:     vc.TokenType,
	}
	if err := s.sso.UpdateToken(token, p); err != nil {
		return nil, err
	}
	if token.HasRefreshToken() {
		if err := s.st.UpdateOrCreateCharacterToken(ctx, token); err != nil {
			return nil, err
		}
	} else {
		slog.Warn("No refresh token issued. Character will not be remembered", "characterID", token.CharacterID)
	}
	s.tokens.Store(token.CharacterID, token)
	slog.Info("Character added", "characterID", token.CharacterID, "name", token.CharacterName)
	return token, nil
}

// RefreshAccessToken refreshes the access token of a character and stores the result.
//
// When the credential can not be refreshed anymore it is deleted
// and an error wrapping [ErrReauthorize] is returned.
func (s *CharacterService) RefreshAccessToken(ctx context.Context, token *app.CharacterToken) error {
	_, err := s.sso.RefreshAccessToken(ctx, token)
	if err != nil {
		if !needsReauthorization(err) {
			return err
		}
		slog.Warn("Dropping credential of character", "characterID", token.CharacterID, "error", err)
		token.AccessToken = ""
		token.RefreshToken = nil
		if err2 := s.deleteCredential(ctx, token.CharacterID); err2 != nil {
			slog.Error("Failed to delete credential", "characterID", token.CharacterID, "error", err2)
		}
		return fmt.Errorf("character %d: %w: %w", token.CharacterID, ErrReauthorize, err)
	}
	if err := s.st.UpdateOrCreateCharacterToken(ctx, token); err != nil {
		return err
	}
	slog.Info("Token refreshed", "characterID", token.CharacterID)
	return nil
}

// needsReauthorization reports whether an error means that a refresh token is no longer usable.
func needsReauthorization(err error) bool {
	if errors.Is(err, eveauth.ErrMissingRefreshToken) {
		return true
	}
	var authErr *app.AuthorizationError
	return errors.As(err, &authErr) && authErr.StatusCode == 400
}

// GetCharacterToken returns the token of a character.
// Returns [app.ErrNotFound] when the character does not exist.
func (s *CharacterService) GetCharacterToken(ctx context.Context, characterID int32) (*app.CharacterToken, error) {
	if t, ok := s.tokens.Load(characterID); ok {
		return t, nil
	}
	t, err := s.st.GetCharacterToken(ctx, characterID)
	if err != nil {
		return nil, err
	}
	t, _ = s.tokens.LoadOrStore(characterID, t)
	return t, nil
}

// ListCharacters returns the tokens of all characters ordered by name.
func (s *CharacterService) ListCharacters(ctx context.Context) ([]*app.CharacterToken, error) {
	tokens, err := s.st.ListCharacterTokens(ctx)
	if err != nil {
		return nil, err
	}
	for i, t := range tokens {
		tokens[i], _ = s.tokens.LoadOrStore(t.CharacterID, t)
	}
	return tokens, nil
}

// HasRequiredScopes reports whether a character's token has all scopes needed by the app.
func (s *CharacterService) HasRequiredScopes(ctx context.Context, characterID int32) (bool, error) {
	t, err := s.GetCharacterToken(ctx, characterID)
	if errors.Is(err, app.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return t.HasScopes(app.Scopes()), nil
}

// DeleteCharacter deletes a character and its credential.
func (s *CharacterService) DeleteCharacter(ctx context.Context, characterID int32) error {
	if err := s.deleteCredential(ctx, characterID); err != nil {
		return err
	}
	s.esi.CloseSession(characterID)
	slog.Info("Character deleted", "characterID", characterID)
	return nil
}

func (s *CharacterService) deleteCredential(ctx context.Context, characterID int32) error {
	s.tokens.Delete(characterID)
	return s.st.DeleteCharacterToken(ctx, characterID)
}
