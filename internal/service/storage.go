package service

import (
	"context"
	"io"
)

// FileStorage abstracts the external attachment storage collaborator. The
// engine only keeps descriptors; the bytes live behind this interface.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
	Destroy(ctx context.Context, url string) error
}
