package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meera/digicard/internal/domain"
)

func TestDiskStoreSave(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	t.Run("stores allowed extensions", func(t *testing.T) {
		for _, filename := range []string{"a.png", "b.jpg", "c.JPEG", "d.gif", "e.webp"} {
			name, err := store.Save(context.Background(), strings.NewReader("img"), "profile", filename)
			require.NoError(t, err, filename)
			assert.True(t, strings.HasPrefix(name, "profile_"), name)
		}
	})

	t.Run("writes the stream to disk", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewDiskStore(dir)
		require.NoError(t, err)

		name, err := store.Save(context.Background(), strings.NewReader("pixels"), "banner", "wide.png")
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, "pixels", string(data))
	})

	t.Run("rejects anything outside the allow list", func(t *testing.T) {
		for _, filename := range []string{"payload.exe", "doc.pdf", "page.html", "noext", "script.png.sh"} {
			_, err := store.Save(context.Background(), strings.NewReader("x"), "profile", filename)
			assert.ErrorIs(t, err, domain.ErrUnsupportedUpload, filename)
		}
	})

	t.Run("generated names do not collide", func(t *testing.T) {
		a, err := store.Save(context.Background(), strings.NewReader("x"), "profile", "same.png")
		require.NoError(t, err)
		b, err := store.Save(context.Background(), strings.NewReader("x"), "profile", "same.png")
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
	})
}

func TestNewDiskStoreCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "uploads")

	_, err := NewDiskStore(root)

	require.NoError(t, err)
	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
