// Package blobstore keeps uploaded media and cover bytes and hands back a location reference.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gofrs/uuid/v5"
)

// ErrBadLocation is returned for references the store did not issue.
var ErrBadLocation = errors.New("blobstore: unrecognised location")

// Store persists byte streams.
type Store interface {
	// Put stores size bytes from r under key and returns the location reference.
	Put(ctx context.Context, key string, r io.Reader, size int64) (string, error)
	// Delete removes the object behind a location returned by Put.
	Delete(ctx context.Context, location string) error
}

// NewKey returns a date-partitioned object key under prefix.
func NewKey(prefix string, at time.Time) string {
	return fmt.Sprintf("%s/%d/%02d/%02d/%s", prefix, at.Year(), at.Month(), at.Day(), uuid.Must(uuid.NewV4()))
}
