package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalStorage(t *testing.T) {
	t.Run("creates directory if not exists", func(t *testing.T) {
		tempDir := filepath.Join(t.TempDir(), "nested", "tmp")

		storage, err := NewLocalStorage(tempDir)
		require.NoError(t, err)
		assert.Equal(t, tempDir, storage.TempDir())
		assert.DirExists(t, tempDir)
	})

	t.Run("uses default directory when empty", func(t *testing.T) {
		storage, err := NewLocalStorage("")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(os.TempDir(), "findsilence"), storage.TempDir())
	})
}

func TestLocalStorage_SaveTemp(t *testing.T) {
	storage := setupTestStorage(t)

	t.Run("saves data and keeps the extension", func(t *testing.T) {
		path, err := storage.SaveTemp(context.Background(), "side_a.wav", bytes.NewReader([]byte("RIFF data")))
		require.NoError(t, err)

		base := filepath.Base(path)
		assert.True(t, strings.HasPrefix(base, "side_a_"), base)
		assert.Equal(t, ".wav", filepath.Ext(base))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "RIFF data", string(content))
	})

	t.Run("name without extension", func(t *testing.T) {
		path, err := storage.SaveTemp(context.Background(), "upload", bytes.NewReader(nil))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(filepath.Base(path), "upload_"))
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := storage.SaveTemp(ctx, "test.wav", bytes.NewReader([]byte("data")))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLocalStorage_Open(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	t.Run("opens saved file", func(t *testing.T) {
		path, err := storage.SaveTemp(ctx, "open.wav", bytes.NewReader([]byte("track data")))
		require.NoError(t, err)

		reader, err := storage.Open(ctx, path)
		require.NoError(t, err)
		defer func() { _ = reader.Close() }()

		content, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, "track data", string(content))
	})

	t.Run("returns error for non-existent file", func(t *testing.T) {
		_, err := storage.Open(ctx, filepath.Join(storage.TempDir(), "missing.wav"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := storage.Open(ctx, "/some/path")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLocalStorage_CleanupTemp(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	t.Run("removes files", func(t *testing.T) {
		var paths []string
		for i := 0; i < 3; i++ {
			path, err := storage.SaveTemp(ctx, "cleanup.wav", bytes.NewReader([]byte("data")))
			require.NoError(t, err)
			paths = append(paths, path)
		}

		require.NoError(t, storage.CleanupTemp(ctx, paths))
		for _, p := range paths {
			assert.NoFileExists(t, p)
		}
	})

	t.Run("ignores non-existent files", func(t *testing.T) {
		assert.NoError(t, storage.CleanupTemp(ctx, []string{"/non/existent/file"}))
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := storage.CleanupTemp(ctx, []string{"/some/path"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLocalStorage_Publish(t *testing.T) {
	storage := setupTestStorage(t)

	_, err := storage.Publish(context.Background(), "key", bytes.NewReader([]byte("data")))
	assert.ErrorIs(t, err, ErrPublishNotConfigured)
}

func setupTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	storage, err := NewLocalStorage(filepath.Join(t.TempDir(), "tmp"))
	require.NoError(t, err)
	return storage
}
