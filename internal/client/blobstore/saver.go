// Package blobstore saves exported tax returns: into the download directory
// and, optionally, into an S3-compatible bucket.
package blobstore

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/taxbox/internal/client/models"
)

// Saver stores blob under name. Implementations must not overwrite an
// existing object silently.
type Saver interface {
	SaveBlobAs(ctx context.Context, blob models.Blob, name string) error
}

// SavedFunc receives the location (path or URI) of each saved blob.
type SavedFunc func(location string)

// Multi saves to every saver in order. All savers are attempted; the
// failures are joined.
type Multi []Saver

func (m Multi) SaveBlobAs(ctx context.Context, blob models.Blob, name string) error {
	var errs []error
	for _, s := range m {
		if err := s.SaveBlobAs(ctx, blob, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
