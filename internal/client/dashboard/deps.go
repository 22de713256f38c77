package dashboard

import (
	"context"

	"github.com/dmitrijs2005/taxbox/internal/client/models"
)

type RecordFetcher interface {
	FetchRecords(ctx context.Context) ([]models.TaxReturn, error)
}

// DocumentUploader sends one document. progress may be called with the
// percentage of bytes sent; implementations that cannot tell ignore it.
type DocumentUploader interface {
	UploadDocument(ctx context.Context, doc models.Document, progress func(percent int)) error
}

// ProgressReporter is implemented by uploaders whose progress callback
// reflects real transfer progress. Without it the controller reports a
// single synthetic midpoint.
type ProgressReporter interface {
	ReportsProgress() bool
}

type RecordExporter interface {
	ExportRecord(ctx context.Context, id string) (models.Blob, error)
}

// BlobSaver stores an exported payload under a suggested file name.
type BlobSaver interface {
	SaveBlobAs(ctx context.Context, blob models.Blob, name string) error
}

// RecordCache serves the last successfully fetched records, if any.
type RecordCache interface {
	CachedRecords(ctx context.Context) ([]models.TaxReturn, error)
}

type SessionView interface {
	Identity() models.Identity
}
