// Package storage wraps the S3-compatible bucket that holds run records.
package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by GetObject when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage captures the minimal object operations the ledger needs.
type ObjectStorage interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}
