package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	newStore := func(t *testing.T) *LocalStore {
		t.Helper()
		store, err := NewLocalStore(t.TempDir(), "http://localhost:8080")
		require.NoError(t, err)
		return store
	}

	t.Run("upload writes the file and returns a public URL", func(t *testing.T) {
		store := newStore(t)

		url, err := store.Upload(context.Background(), "comprobantes/recibo.jpg", "image/jpeg", strings.NewReader("payload"))
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/uploads/comprobantes/recibo.jpg", url)

		written, err := os.ReadFile(filepath.Join(store.RootAbs(), "comprobantes", "recibo.jpg"))
		require.NoError(t, err)
		assert.Equal(t, "payload", string(written))
	})

	t.Run("delete removes the file and tolerates repeats", func(t *testing.T) {
		store := newStore(t)

		_, err := store.Upload(context.Background(), "promos/banner.jpg", "image/jpeg", strings.NewReader("x"))
		require.NoError(t, err)

		require.NoError(t, store.Delete(context.Background(), "promos/banner.jpg"))
		_, err = os.Stat(filepath.Join(store.RootAbs(), "promos", "banner.jpg"))
		assert.True(t, os.IsNotExist(err))

		// Deleting an already-gone key is not an error.
		assert.NoError(t, store.Delete(context.Background(), "promos/banner.jpg"))
	})

	t.Run("keys that escape the root are rejected", func(t *testing.T) {
		store := newStore(t)

		for _, key := range []string{"../outside.txt", "/etc/passwd", "a/../../b", "", "   ", "sp ace.jpg"} {
			_, err := store.Upload(context.Background(), key, "text/plain", strings.NewReader("x"))
			assert.Error(t, err, "key %q should be rejected", key)
		}
	})
}
