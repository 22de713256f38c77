package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/taxbox/internal/client/models"
	"github.com/dmitrijs2005/taxbox/internal/client/repositories"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := repositories.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func getMeta(t *testing.T, db *sql.DB, k string) []byte {
	t.Helper()
	var v []byte
	err := db.QueryRow(`SELECT value FROM metadata WHERE key=?`, k).Scan(&v)
	require.NoError(t, err)
	return v
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

// fakeClient implements client.Client with canned results.
type fakeClient struct {
	mu sync.Mutex

	User      models.User
	AuthErr   error
	CreateErr error
	FetchRet  []models.TaxReturn
	FetchErr  error
	UploadErr error
	Progress  []int
	ExportRet models.Blob
	ExportErr error
	PingErr   error
	CloseErr  error
	Streams   bool

	AuthCalls  int
	LoggedOut  bool
	LastCreate [3]string
	LastUpload models.Document
	LastExport string
}

func (f *fakeClient) Authenticate(_ context.Context, email, _ string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AuthCalls++
	return f.User, f.AuthErr
}

func (f *fakeClient) CreateAccount(_ context.Context, email, fullName, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastCreate = [3]string{email, fullName, password}
	return f.CreateErr
}

func (f *fakeClient) Logout() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LoggedOut = true
}

func (f *fakeClient) FetchRecords(context.Context) ([]models.TaxReturn, error) {
	return f.FetchRet, f.FetchErr
}

func (f *fakeClient) UploadDocument(_ context.Context, doc models.Document, progress func(int)) error {
	f.LastUpload = doc
	for _, p := range f.Progress {
		progress(p)
	}
	return f.UploadErr
}

func (f *fakeClient) ExportRecord(_ context.Context, id string) (models.Blob, error) {
	f.LastExport = id
	return f.ExportRet, f.ExportErr
}

func (f *fakeClient) StreamsProgress() bool      { return f.Streams }
func (f *fakeClient) Ping(context.Context) error { return f.PingErr }
func (f *fakeClient) Close() error               { return f.CloseErr }
