package testutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ErikKalkoken/evefit/internal/app"
	"github.com/ErikKalkoken/evefit/internal/testutil"
)

func TestFactoryCreateCharacterToken(t *testing.T) {
	db, _, factory := testutil.New()
	defer db.Close()
	t.Run("should assign next free character ID", func(t *testing.T) {
		// given
		testutil.TruncateTables(db)
		factory.CreateCharacterToken(app.CharacterToken{CharacterID: 5})
		factory.CreateCharacterToken(app.CharacterToken{CharacterID: 3})
		// when
		x := factory.CreateCharacterToken()
		// then
		assert.EqualValues(t, 6, x.CharacterID)
	})
	t.Run("should start with ID 1 when empty", func(t *testing.T) {
		// given
		testutil.TruncateTables(db)
		// when
		x := factory.CreateCharacterToken()
		// then
		assert.EqualValues(t, 1, x.CharacterID)
		assert.True(t, x.HasRefreshToken())
		assert.Equal(t, "Bearer", x.TokenType)
	})
}
