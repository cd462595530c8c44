package storage_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/inkwell-notes/notes-api/internal/config"
	"github.com/inkwell-notes/notes-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalStorage_PutOpenDelete(t *testing.T) {
	ctx := context.Background()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	obj, err := s.Put(ctx, "notes/123", "Diagram.PNG", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(obj.Path, "notes/123/"))
	assert.True(t, strings.HasSuffix(obj.Path, ".png"))
	assert.Equal(t, int64(len("png-bytes")), obj.Size)

	rc, err := s.Open(ctx, obj.Path)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "png-bytes", string(body))

	require.NoError(t, s.Delete(ctx, obj.Path))
	_, err = s.Open(ctx, obj.Path)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)

	// deleting twice is fine
	assert.NoError(t, s.Delete(ctx, obj.Path))
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Open(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, storage.ErrInvalidPath)

	err = s.Delete(context.Background(), "notes/../../outside")
	assert.ErrorIs(t, err, storage.ErrInvalidPath)
}

func TestNewStorage(t *testing.T) {
	s, err := storage.NewStorage(&config.StorageConfig{Mode: "local", LocalBasePath: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStorage{}, s)

	_, err = storage.NewStorage(&config.StorageConfig{Mode: "azure"}, zap.NewNop())
	assert.Error(t, err)

	_, err = storage.NewStorage(&config.StorageConfig{Mode: "ftp"}, zap.NewNop())
	assert.Error(t, err)
}
