package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/taxbox/internal/client/client"
	"github.com/dmitrijs2005/taxbox/internal/client/models"
	"github.com/dmitrijs2005/taxbox/internal/client/repositories/returns"
	"github.com/dmitrijs2005/taxbox/internal/dbx"
	"github.com/dmitrijs2005/taxbox/internal/logging"
)

// RecordService serves the dashboard: it fetches, uploads and exports
// through the client, mirrors fetched returns into the local cache and logs
// the transport detail that never reaches the user.
type RecordService struct {
	client    client.Client
	db        *sql.DB
	log       logging.Logger
	onExpired func()
}

type RecordOption func(*RecordService)

// OnSessionExpired is called whenever a call fails with
// client.ErrSessionExpired.
func OnSessionExpired(fn func()) RecordOption {
	return func(s *RecordService) { s.onExpired = fn }
}

func NewRecordService(c client.Client, db *sql.DB, log logging.Logger, opts ...RecordOption) *RecordService {
	s := &RecordService{client: c, db: db, log: log.With("component", "records")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchRecords loads the collection and replaces the cache with it. A cache
// write failure is logged; the fetched records are still returned.
func (s *RecordService) FetchRecords(ctx context.Context) ([]models.TaxReturn, error) {
	records, err := s.client.FetchRecords(ctx)
	if err != nil {
		return nil, s.fail(ctx, "fetch tax returns", err)
	}
	s.log.Debug(ctx, "tax returns fetched", "count", len(records))

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return returns.NewSQLiteRepository(tx).ReplaceAll(ctx, records)
	})
	if err != nil {
		s.log.Warn(ctx, "caching tax returns failed", "error", err)
	}
	return records, nil
}

// CachedRecords returns the collection from the last successful fetch.
func (s *RecordService) CachedRecords(ctx context.Context) ([]models.TaxReturn, error) {
	return returns.NewSQLiteRepository(s.db).GetAll(ctx)
}

func (s *RecordService) UploadDocument(ctx context.Context, doc models.Document, progress func(percent int)) error {
	if err := s.client.UploadDocument(ctx, doc, progress); err != nil {
		return s.fail(ctx, "upload document", err, "name", doc.Name, "size", doc.Size)
	}
	s.log.Info(ctx, "document uploaded", "name", doc.Name, "size", doc.Size)
	return nil
}

// ReportsProgress tells the dashboard whether upload progress is real.
func (s *RecordService) ReportsProgress() bool {
	return s.client.StreamsProgress()
}

func (s *RecordService) ExportRecord(ctx context.Context, id string) (models.Blob, error) {
	blob, err := s.client.ExportRecord(ctx, id)
	if err != nil {
		return models.Blob{}, s.fail(ctx, "export tax return", err, "id", id)
	}
	s.log.Debug(ctx, "tax return exported", "id", id, "bytes", len(blob.Data))
	return blob, nil
}

func (s *RecordService) fail(ctx context.Context, op string, err error, args ...any) error {
	s.log.Error(ctx, op+" failed", append(args, "error", err)...)
	if errors.Is(err, client.ErrSessionExpired) && s.onExpired != nil {
		s.onExpired()
	}
	return err
}
