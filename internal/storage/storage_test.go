package storage

import (
	"context"
	"errors"
	"testing"

	"tripcatalog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	*MemoryStore
	failAfter int
	calls     int
}

func (s *failingStore) Store(ctx context.Context, f File) (string, error) {
	s.calls++
	if s.calls > s.failAfter {
		return "", errors.New("disk full")
	}
	return s.MemoryStore.Store(ctx, f)
}

func TestStoreBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("empty batch", func(t *testing.T) {
		_, err := StoreBatch(ctx, NewMemoryStore(""), nil)
		assert.ErrorIs(t, err, models.ErrUploadRejected)
		assert.Contains(t, err.Error(), "no files uploaded")
	})

	t.Run("six files rejected", func(t *testing.T) {
		store := NewMemoryStore("")
		files := make([]File, 6)
		for i := range files {
			files[i] = pngFile("a.png", 10)
		}
		_, err := StoreBatch(ctx, store, files)
		assert.ErrorIs(t, err, models.ErrUploadRejected)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("one bad file rejects the whole batch", func(t *testing.T) {
		store := NewMemoryStore("")
		files := []File{pngFile("a.png", 10), {Name: "b.exe", ContentType: "application/x-msdownload", Size: 1}}
		_, err := StoreBatch(ctx, store, files)
		assert.ErrorIs(t, err, models.ErrUploadRejected)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("keeps upload order", func(t *testing.T) {
		store := NewMemoryStore("/uploads")
		files := []File{pngFile("1.png", 10), pngFile("2.png", 20), pngFile("3.png", 30)}
		refs, err := StoreBatch(ctx, store, files)
		require.NoError(t, err)
		require.Len(t, refs, 3)
		for _, ref := range refs {
			ok, err := store.Exists(ctx, ref)
			require.NoError(t, err)
			assert.True(t, ok)
		}
	})

	t.Run("write failure removes partial batch", func(t *testing.T) {
		store := &failingStore{MemoryStore: NewMemoryStore(""), failAfter: 2}
		files := []File{pngFile("1.png", 10), pngFile("2.png", 10), pngFile("3.png", 10)}
		_, err := StoreBatch(ctx, store, files)
		assert.Error(t, err)
		assert.Equal(t, 0, store.Len())
	})
}

func TestRefName(t *testing.T) {
	name, err := refName("/uploads", "/uploads/destination-1-2.png")
	require.NoError(t, err)
	assert.Equal(t, "destination-1-2.png", name)

	name, err = refName("/uploads/", "plain.png")
	require.NoError(t, err)
	assert.Equal(t, "plain.png", name)

	for _, bad := range []string{"", "/uploads/", "/uploads/a/b.png", "/uploads/..", "/other/a.png", `/uploads/..\x.png`} {
		_, err := refName("/uploads", bad)
		assert.Error(t, err, bad)
	}
}
