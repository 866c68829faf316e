// Package storage holds the binary store behind document ingestion: raw PDFs
// go in at upload time and come back out when the orchestrator persists the
// originals as case attachments.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a read references a path that was never
// written (or was removed out of band).
var ErrNotFound = errors.New("stored file not found")

// Store saves and reads opaque blobs by path.
type Store interface {
	// Save persists the bytes under a name derived from filename and
	// returns the storage path to read them back.
	Save(ctx context.Context, data []byte, filename string) (string, error)
	// Read returns the bytes at path; ErrNotFound when absent.
	Read(ctx context.Context, path string) ([]byte, error)
}
