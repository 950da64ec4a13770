package ports

import (
	"context"
	"io"
	"time"

	"failureforward/domain/core"
)

// StagedUpload describes a file kept between preview and import
type StagedUpload struct {
	ID       core.ID   `json:"id"`
	Filename string    `json:"filename"`
	Path     string    `json:"-"`
	Size     int64     `json:"size"`
	StagedAt time.Time `json:"staged_at"`
}

// UploadStore keeps uploaded spreadsheets until they are imported
type UploadStore interface {
	Stage(ctx context.Context, r io.Reader, filename string) (*StagedUpload, error)
	Open(ctx context.Context, id core.ID) (*StagedUpload, io.ReadCloser, error)
	Remove(ctx context.Context, id core.ID) error
	// Purge deletes uploads staged before cutoff and returns how many went
	Purge(ctx context.Context, cutoff time.Time) (int, error)
}
