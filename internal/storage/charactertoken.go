package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ErikKalkoken/go-set"

	"github.com/ErikKalkoken/evefit/internal/app"
	"github.com/ErikKalkoken/evefit/internal/optional"
)

const characterTokenColumns = `character_id, character_name, refreshed_at, refresh_token, scopes, token_type`

// UpdateOrCreateCharacterToken stores the credential of a character.
// The access token is not stored.
func (st *Storage) UpdateOrCreateCharacterToken(ctx context.Context, t *app.CharacterToken) error {
	if t == nil || t.CharacterID == 0 {
		return fmt.Errorf("update or create token: missing character ID: %w", app.ErrInvalid)
	}
	if !t.HasRefreshToken() {
		return fmt.Errorf("update or create token for character %d: missing refresh token: %w", t.CharacterID, app.ErrInvalid)
	}
	_, err := st.db.ExecContext(ctx, `
		INSERT INTO character_tokens (`+characterTokenColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(character_id) DO UPDATE SET
			character_name = excluded.character_name,
			refreshed_at = excluded.refreshed_at,
			refresh_token = excluded.refresh_token,
			scopes = excluded.scopes,
			token_type = excluded.token_type;`,
		int64(t.CharacterID),
		t.CharacterName,
		optional.ToNullTime(t.RefreshedAt),
		t.RefreshToken,
		scopesToDB(t.Scopes),
		t.TokenType,
	)
	if err != nil {
		return fmt.Errorf("update or create token for character %d: %w", t.CharacterID, err)
	}
	return nil
}

// GetCharacterToken returns the stored credential of a character.
// The returned token has no access token and is therefore expired.
func (st *Storage) GetCharacterToken(ctx context.Context, characterID int32) (*app.CharacterToken, error) {
	row := st.db.QueryRowContext(ctx, `
		SELECT `+characterTokenColumns+`
		FROM character_tokens
		WHERE character_id = ?;`,
		int64(characterID),
	)
	t, err := scanCharacterToken(row)
	if errors.Is(err, sql.ErrNoRows) {
		err = app.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get token for character %d: %w", characterID, err)
	}
	return t, nil
}

// ListCharacterTokens returns the stored credentials of all characters ordered by name.
func (st *Storage) ListCharacterTokens(ctx context.Context) ([]*app.CharacterToken, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT `+characterTokenColumns+`
		FROM character_tokens
		ORDER BY character_name;`,
	)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()
	var tokens []*app.CharacterToken
	for rows.Next() {
		t, err := scanCharacterToken(rows)
		if err != nil {
			return nil, fmt.Errorf("list tokens: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	return tokens, nil
}

// ListCharacterIDs returns the IDs of all characters with a stored credential.
func (st *Storage) ListCharacterIDs(ctx context.Context) (set.Set[int32], error) {
	rows, err := st.db.QueryContext(ctx, `SELECT character_id FROM character_tokens;`)
	if err != nil {
		return set.Set[int32]{}, fmt.Errorf("list character IDs: %w", err)
	}
	defer rows.Close()
	var ids []int32
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return set.Set[int32]{}, fmt.Errorf("list character IDs: %w", err)
		}
		ids = append(ids, int32(id))
	}
	if err := rows.Err(); err != nil {
		return set.Set[int32]{}, fmt.Errorf("list character IDs: %w", err)
	}
	return set.Of(ids...), nil
}

// DeleteCharacterToken deletes the credential of a character.
// Deleting a non existing credential is not an error.
func (st *Storage) DeleteCharacterToken(ctx context.Context, characterID int32) error {
	_, err := st.db.ExecContext(ctx, `DELETE FROM character_tokens WHERE character_id = ?;`, int64(characterID))
	if err != nil {
		return fmt.Errorf("delete token for character %d: %w", characterID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCharacterToken(row rowScanner) (*app.CharacterToken, error) {
	var (
		characterID  int64
		name         string
		refreshedAt  sql.NullTime
		refreshToken []byte
		scopes       string
		tokenType    string
	)
	if err := row.Scan(&characterID, &name, &refreshedAt, &refreshToken, &scopes, &tokenType); err != nil {
		return nil, err
	}
	t := &app.CharacterToken{
		CharacterID:   int32(characterID),
		CharacterName: name,
		RefreshedAt:   optional.FromNullTime(refreshedAt),
		RefreshToken:  refreshToken,
		Scopes:        scopesFromDB(scopes),
		TokenType:     tokenType,
	}
	return t, nil
}

func scopesToDB(s set.Set[string]) string {
	return strings.Join(slices.Sorted(s.All()), " ")
}

func scopesFromDB(s string) set.Set[string] {
	return set.Of(strings.Fields(s)...)
}
