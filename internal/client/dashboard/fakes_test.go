package dashboard

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/taxbox/internal/client/models"
)

type fakeSession struct {
	mu sync.Mutex
	id models.Identity
}

func signedIn() *fakeSession {
	return &fakeSession{id: models.Authenticated(models.User{Email: "jane@example.com", FullName: "Jane Roe"})}
}

func (f *fakeSession) Identity() models.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id
}

func (f *fakeSession) signOut() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.id = models.Identity{}
}

type fakeRecords struct {
	mu      sync.Mutex
	records []models.TaxReturn
	err     error
	calls   int
	block   chan struct{}
}

func (f *fakeRecords) FetchRecords(ctx context.Context) ([]models.TaxReturn, error) {
	f.mu.Lock()
	f.calls++
	block, records, err := f.block, f.records, f.err
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return records, err
}

func (f *fakeRecords) set(records []models.TaxReturn, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records, f.err = records, err
}

func (f *fakeRecords) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeUploader struct {
	mu       sync.Mutex
	uploaded []string
	failOn   map[string]error
	steps    []int
}

func (f *fakeUploader) UploadDocument(ctx context.Context, doc models.Document, progress func(int)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.steps {
		progress(p)
	}
	if err := f.failOn[doc.Name]; err != nil {
		return err
	}
	f.uploaded = append(f.uploaded, doc.Name)
	return nil
}

type streamingUploader struct {
	fakeUploader
}

func (*streamingUploader) ReportsProgress() bool { return true }

type fakeExporter struct {
	blob models.Blob
	err  error
	ids  []string
}

func (f *fakeExporter) ExportRecord(ctx context.Context, id string) (models.Blob, error) {
	f.ids = append(f.ids, id)
	return f.blob, f.err
}

type savedBlob struct {
	blob models.Blob
	name string
}

type fakeSaver struct {
	saved []savedBlob
	err   error
}

func (f *fakeSaver) SaveBlobAs(ctx context.Context, blob models.Blob, name string) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, savedBlob{blob: blob, name: name})
	return nil
}

type fakeCache struct {
	records []models.TaxReturn
	err     error
}

func (f *fakeCache) CachedRecords(context.Context) ([]models.TaxReturn, error) {
	return f.records, f.err
}

func doc(name string) models.Document {
	return models.Document{Name: name, Size: 3}
}
