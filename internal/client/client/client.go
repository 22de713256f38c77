package client

import (
	"context"

	"github.com/dmitrijs2005/taxbox/internal/client/models"
)

// Client is the transport-agnostic contract with the TaxBox backend.
type Client interface {
	Authenticate(ctx context.Context, email, password string) (models.User, error)
	CreateAccount(ctx context.Context, email, fullName, password string) error
	Logout()

	FetchRecords(ctx context.Context) ([]models.TaxReturn, error)
	UploadDocument(ctx context.Context, doc models.Document, progress func(percent int)) error
	ExportRecord(ctx context.Context, id string) (models.Blob, error)

	// StreamsProgress reports whether UploadDocument calls progress with
	// real transfer progress.
	StreamsProgress() bool

	Ping(ctx context.Context) error
	Close() error
}
