package uploads

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"failureforward/adapters/excel"
	"failureforward/domain/core"
	"failureforward/internal/errors"
	"failureforward/ports"
)

// StorageConfig configures local staging of uploads
type StorageConfig struct {
	BasePath  string
	MaxBytes  int64
	ChunkSize int
}

// DefaultStorageConfig returns the settings used when none are given
func DefaultStorageConfig() *StorageConfig {
	return &StorageConfig{
		BasePath:  "uploads",
		MaxBytes:  50 * 1024 * 1024,
		ChunkSize: 32 * 1024,
	}
}

// LocalFileStorage implements ports.UploadStore on the local filesystem.
// Files are named "<upload id>_<original name>", so an upload can be found
// again by id after a restart.
type LocalFileStorage struct {
	config *StorageConfig
}

// NewLocalFileStorage creates a new local file storage instance
func NewLocalFileStorage(config *StorageConfig) *LocalFileStorage {
	if config == nil {
		config = DefaultStorageConfig()
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultStorageConfig().ChunkSize
	}
	return &LocalFileStorage{config: config}
}

var _ ports.UploadStore = (*LocalFileStorage)(nil)

// Stage saves an upload under a fresh id. Files over MaxBytes are rejected
// and nothing is kept.
func (s *LocalFileStorage) Stage(ctx context.Context, r io.Reader, filename string) (*ports.StagedUpload, error) {
	name := sanitizeFilename(filename)
	if _, err := excel.FileType(name); err != nil {
		return nil, errors.Wrap(err, "upload rejected")
	}

	if err := os.MkdirAll(s.config.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	id := core.NewID()
	filePath := filepath.Join(s.config.BasePath, id.String()+"_"+name)

	destFile, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destFile.Close()

	src := r
	if s.config.MaxBytes > 0 {
		src = io.LimitReader(r, s.config.MaxBytes+1)
	}
	buf := make([]byte, s.config.ChunkSize)
	written, err := io.CopyBuffer(destFile, src, buf)
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to copy file contents: %w", err)
	}
	if s.config.MaxBytes > 0 && written > s.config.MaxBytes {
		os.Remove(filePath)
		return nil, tooLarge(s.config.MaxBytes)
	}

	log.Printf("[Uploads] staged %s as %s (%d bytes)", name, id, written)
	return &ports.StagedUpload{
		ID:       id,
		Filename: name,
		Path:     filePath,
		Size:     written,
		StagedAt: time.Now(),
	}, nil
}

// Open returns the staged upload and a reader over its contents
func (s *LocalFileStorage) Open(ctx context.Context, id core.ID) (*ports.StagedUpload, io.ReadCloser, error) {
	upload, err := s.find(id)
	if err != nil {
		return nil, nil, err
	}
	file, err := os.Open(upload.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	return upload, file, nil
}

// Remove deletes a staged upload
func (s *LocalFileStorage) Remove(ctx context.Context, id core.ID) error {
	upload, err := s.find(id)
	if err != nil {
		return err
	}
	if err := os.Remove(upload.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Purge removes staged files last modified before cutoff
func (s *LocalFileStorage) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.config.BasePath)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to list uploads: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.config.BasePath, entry.Name())); err != nil && !os.IsNotExist(err) {
			log.Printf("[Uploads] failed to purge %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *LocalFileStorage) find(id core.ID) (*ports.StagedUpload, error) {
	if _, err := core.ParseID(id.String()); err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(s.config.BasePath, id.String()+"_*"))
	if err != nil {
		return nil, fmt.Errorf("failed to look up upload: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrUploadNotFound, id)
	}

	path := matches[0]
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}
	return &ports.StagedUpload{
		ID:       id,
		Filename: strings.TrimPrefix(filepath.Base(path), id.String()+"_"),
		Path:     path,
		Size:     info.Size(),
		StagedAt: info.ModTime(),
	}, nil
}

// sanitizeFilename keeps the base name and replaces anything outside a
// conservative character set.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "upload"
	}
	return out
}
