package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/inkwell-notes/notes-api/internal/config"
	"go.uber.org/zap"
)

var (
	// ErrObjectNotFound is returned when a stored object does not exist
	ErrObjectNotFound = errors.New("object not found")
	// ErrInvalidPath is returned for keys that escape the storage root
	ErrInvalidPath = errors.New("invalid storage path")
)

// Object describes a stored attachment blob
type Object struct {
	Path string
	Size int64
}

// Storage stores attachment bodies under a per-note prefix
type Storage interface {
	Put(ctx context.Context, prefix, filename, contentType string, data io.Reader) (Object, error)
	Open(ctx context.Context, storagePath string) (io.ReadCloser, error)
	Delete(ctx context.Context, storagePath string) error
}

// NewStorage creates the backend selected by storage.mode
func NewStorage(cfg *config.StorageConfig, logger *zap.Logger) (Storage, error) {
	switch cfg.Mode {
	case "local", "":
		return NewLocalStorage(cfg.LocalBasePath)
	case "cloud", "azure":
		if cfg.CloudConnectionString == "" {
			return nil, fmt.Errorf("cloud connection string required for azure storage")
		}
		return NewAzureBlobStorage(cfg.CloudConnectionString, cfg.CloudContainer, logger)
	default:
		return nil, fmt.Errorf("unsupported storage mode: %s", cfg.Mode)
	}
}

// objectKey builds "<prefix>/<uuid><ext>" with a lowercased, sanitized extension
func objectKey(prefix, filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	name := uuid.New().String() + ext
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// LocalStorage keeps objects on the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates the base directory if needed
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// resolve maps a storage key to a file path inside basePath
func (s *LocalStorage) resolve(storagePath string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(storagePath, `\`, "/"))
	if clean == "/" || clean != "/"+strings.TrimPrefix(storagePath, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, storagePath)
	}
	return filepath.Join(s.basePath, filepath.FromSlash(clean)), nil
}

// Put writes data to a new object under prefix
func (s *LocalStorage) Put(ctx context.Context, prefix, filename, contentType string, data io.Reader) (Object, error) {
	key := objectKey(prefix, filename)
	fullPath, err := s.resolve(key)
	if err != nil {
		return Object{}, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return Object{}, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return Object{}, fmt.Errorf("failed to create file: %w", err)
	}

	size, err := io.Copy(file, data)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(fullPath)
		return Object{}, fmt.Errorf("failed to write file: %w", err)
	}

	return Object{Path: key, Size: size}, nil
}

// Open returns a reader for a stored object
func (s *LocalStorage) Open(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(storagePath)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, storagePath)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes a stored object; missing objects are not an error
func (s *LocalStorage) Delete(ctx context.Context, storagePath string) error {
	fullPath, err := s.resolve(storagePath)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
