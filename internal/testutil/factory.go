package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/ErikKalkoken/go-set"

	"github.com/ErikKalkoken/evefit/internal/app"
	"github.com/ErikKalkoken/evefit/internal/optional"
	"github.com/ErikKalkoken/evefit/internal/storage"
)

// Factory creates test objects in the storage.
type Factory struct {
	st *storage.Storage
}

func NewFactory(st *storage.Storage) Factory {
	return Factory{st: st}
}

// CreateCharacterToken is a test factory for character tokens.
// The refresh token is stored as is, so callers must provide an encrypted one when needed.
func (f Factory) CreateCharacterToken(args ...app.CharacterToken) *app.CharacterToken {
	ctx := context.Background()
	var t app.CharacterToken
	if len(args) > 0 {
		t = args[0]
	}
	if t.CharacterID == 0 {
		ids, err := f.st.ListCharacterIDs(ctx)
		if err != nil {
			panic(err)
		}
		if ids.Size() == 0 {
			t.CharacterID = 1
		} else {
			t.CharacterID = set.Max(ids) + 1
		}
	}
	if t.CharacterName == "" {
		t.CharacterName = fmt.Sprintf("Generated character #%d", t.CharacterID)
	}
	if len(t.RefreshToken) == 0 {
		t.RefreshToken = []byte(fmt.Sprintf("refresh-%d", t.CharacterID))
	}
	if t.Scopes.Size() == 0 {
		t.Scopes = app.Scopes()
	}
	if t.TokenType == "" {
		t.TokenType = "Bearer"
	}
	if t.RefreshedAt.IsEmpty() {
		t.RefreshedAt = optional.New(time.Now().UTC().Truncate(time.Second))
	}
	if err := f.st.UpdateOrCreateCharacterToken(ctx, &t); err != nil {
		panic(err)
	}
	return &t
}
