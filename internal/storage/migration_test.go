package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ErikKalkoken/evefit/internal/storage"
)

func TestConnectDB(t *testing.T) {
	t.Run("can reopen existing database without applying migrations again", func(t *testing.T) {
		// given
		p := filepath.Join(t.TempDir(), "evefit.sqlite")
		db1, err := storage.ConnectDB(p, true)
		require.NoError(t, err)
		db1.Close()
		// when
		db2, err := storage.ConnectDB(p, true)
		// then
		require.NoError(t, err)
		defer db2.Close()
		var count int
		err = db2.QueryRow(`SELECT COUNT(*) FROM migrations;`).Scan(&count)
		if assert.NoError(t, err) {
			assert.Equal(t, 1, count)
		}
	})
}
