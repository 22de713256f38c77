// Package dashboard drives the dashboard view model: the tax-return list and
// its totals, document uploads, JSON exports and the notification toasts
// that report their outcome.
package dashboard

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/taxbox/internal/client/aggregate"
	"github.com/dmitrijs2005/taxbox/internal/client/apperrors"
	"github.com/dmitrijs2005/taxbox/internal/client/asyncop"
	"github.com/dmitrijs2005/taxbox/internal/client/models"
	"github.com/dmitrijs2005/taxbox/internal/client/notify"
	"github.com/jonboulle/clockwork"
)

// UploadResetDelay is the pause after a completed upload before the upload
// slot goes idle and the view returns to the dashboard. Settled fetches and
// downloads go idle after the same delay.
const UploadResetDelay = time.Second

// SyntheticProgress is reported once for uploaders that cannot stream progress.
const SyntheticProgress = 50

const (
	MsgFetchFailed    = "Failed to load tax returns"
	MsgUploaded       = "Document uploaded successfully!"
	MsgUploadFailed   = "Failed to upload document"
	MsgDownloaded     = "Tax return downloaded successfully!"
	MsgDownloadFailed = "Failed to download tax return"
	MsgReturnFiled    = "Tax return filed successfully!"
	MsgNoReturnID     = "Please choose a tax return to download"
)

var (
	ErrNotAuthenticated = errors.New("dashboard: not authenticated")
	ErrNotMounted       = errors.New("dashboard: not mounted")
)

// MsgUnsupportedDocument is shown when a file fails the extension check.
var MsgUnsupportedDocument = "Unsupported file type, allowed: " + strings.Join(models.AllowedDocumentExtensions, " ")

type Deps struct {
	Records  RecordFetcher
	Uploader DocumentUploader
	Exporter RecordExporter
	Saver    BlobSaver
	Session  SessionView

	// Cache is optional.
	Cache RecordCache
	// Clock defaults to the real clock.
	Clock clockwork.Clock
}

type Option func(*Controller)

func WithUploadResetDelay(d time.Duration) Option {
	return func(c *Controller) { c.resetDelay = d }
}

// WithQueueOptions forwards options to the notification queue.
func WithQueueOptions(opts ...notify.Option) Option {
	return func(c *Controller) { c.queueOpts = append(c.queueOpts, opts...) }
}

// WithUploadObserver is called on every upload state change, progress included.
func WithUploadObserver(fn func(asyncop.State)) Option {
	return func(c *Controller) { c.uploadObserver = fn }
}

type Controller struct {
	deps           Deps
	clock          clockwork.Clock
	resetDelay     time.Duration
	queueOpts      []notify.Option
	uploadObserver func(asyncop.State)

	queue    *notify.Queue
	fetch    *asyncop.Operation[[]models.TaxReturn]
	upload   *asyncop.Operation[struct{}]
	download *asyncop.Operation[models.Blob]

	mu         sync.Mutex
	mounted    bool
	generation uint64
	loading    bool
	mode       ViewMode
	records    []models.TaxReturn
	stats      aggregate.Stats
}

func New(deps Deps, opts ...Option) *Controller {
	c := &Controller{
		deps:       deps,
		clock:      deps.Clock,
		resetDelay: UploadResetDelay,
		mode:       ModeDashboard,
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	for _, opt := range opts {
		opt(c)
	}

	c.queue = notify.New(c.clock, c.queueOpts...)
	c.fetch = asyncop.New[[]models.TaxReturn]("fetch", asyncop.WithClock(c.clock))
	uploadOpts := []asyncop.Option{asyncop.WithClock(c.clock)}
	if c.uploadObserver != nil {
		uploadOpts = append(uploadOpts, asyncop.WithOnChange(c.uploadObserver))
	}
	c.upload = asyncop.New[struct{}]("upload", uploadOpts...)
	c.download = asyncop.New[models.Blob]("download", asyncop.WithClock(c.clock))
	return c
}

// Mount starts a dashboard session: cached records are shown right away,
// then a fetch replaces them.
func (c *Controller) Mount(ctx context.Context) error {
	if !c.deps.Session.Identity().Authenticated {
		return ErrNotAuthenticated
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.mounted = true
	c.loading = true
	c.mode = ModeDashboard
	c.mu.Unlock()

	if c.deps.Cache != nil {
		if cached, err := c.deps.Cache.CachedRecords(ctx); err == nil && len(cached) > 0 {
			c.replace(gen, cached)
		}
	}

	err := c.fetchRecords(ctx, gen, true)

	c.mu.Lock()
	if c.generation == gen {
		c.loading = false
	}
	c.mu.Unlock()
	return err
}

// Unmount drops the records and notifications and cancels every timer.
// Calls still in flight settle but no longer touch the view.
func (c *Controller) Unmount() {
	c.mu.Lock()
	c.generation++
	c.mounted = false
	c.loading = false
	c.mode = ModeDashboard
	c.records = nil
	c.stats = aggregate.Stats{}
	c.mu.Unlock()

	c.queue.Clear()
	c.fetch.Reset()
	c.upload.Reset()
	c.download.Reset()
}

// Close unmounts and stops the notification queue for good.
func (c *Controller) Close() {
	c.Unmount()
	c.queue.Close()
	c.fetch.Close()
	c.upload.Close()
	c.download.Close()
}

// TriggerFetch refreshes the record list. A failed refresh keeps the
// records already shown.
func (c *Controller) TriggerFetch(ctx context.Context) error {
	gen, err := c.current()
	if err != nil {
		return err
	}
	return c.fetchRecords(ctx, gen, true)
}

// TriggerUpload sends docs one at a time. Each success is announced and
// followed by a refresh; the first failure is announced, resets the upload
// slot and stops the batch.
func (c *Controller) TriggerUpload(ctx context.Context, docs []models.Document) error {
	gen, err := c.current()
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	if c.upload.State().Phase == asyncop.PhasePending {
		err := &apperrors.ConcurrentOperationError{Operation: c.upload.Name()}
		c.push(gen, apperrors.UserMessage(err), notify.KindError)
		return err
	}

	c.setMode(gen, ModeUploadForm)

	for _, doc := range docs {
		_, err := c.upload.Run(ctx, func(ctx context.Context, report asyncop.ProgressFunc) (struct{}, error) {
			return struct{}{}, c.send(ctx, doc, report)
		})
		if err != nil {
			if !apperrors.IsConcurrent(err) {
				c.upload.Reset()
			}
			c.push(gen, apperrors.UserMessage(err), notify.KindError)
			return err
		}

		c.push(gen, MsgUploaded, notify.KindSuccess)
		_ = c.fetchRecords(ctx, gen, false)
	}

	c.upload.ResetAfter(c.resetDelay, func() { c.setMode(gen, ModeDashboard) })
	return nil
}

func (c *Controller) send(ctx context.Context, doc models.Document, report asyncop.ProgressFunc) error {
	if err := doc.CheckType(); err != nil {
		return apperrors.Validation(MsgUnsupportedDocument)
	}

	progress := func(int) {}
	if pr, ok := c.deps.Uploader.(ProgressReporter); ok && pr.ReportsProgress() {
		progress = report
	} else {
		report(SyntheticProgress)
	}

	if err := c.deps.Uploader.UploadDocument(ctx, doc, progress); err != nil {
		return apperrors.Transport(MsgUploadFailed, err)
	}
	return nil
}

// TriggerDownload exports the return and hands it to the saver as
// tax_return_<id>.json. The payload is not inspected.
func (c *Controller) TriggerDownload(ctx context.Context, id string) error {
	gen, err := c.current()
	if err != nil {
		return err
	}

	_, err = c.download.Run(ctx, func(ctx context.Context, _ asyncop.ProgressFunc) (models.Blob, error) {
		if strings.TrimSpace(id) == "" {
			return models.Blob{}, apperrors.Validation(MsgNoReturnID)
		}
		blob, err := c.deps.Exporter.ExportRecord(ctx, id)
		if err != nil {
			return models.Blob{}, apperrors.Transport(MsgDownloadFailed, err)
		}
		if err := c.deps.Saver.SaveBlobAs(ctx, blob, models.ExportFilename(id)); err != nil {
			return models.Blob{}, apperrors.Transport(MsgDownloadFailed, err)
		}
		return blob, nil
	})
	if !apperrors.IsConcurrent(err) {
		c.download.ResetAfter(c.resetDelay, nil)
	}
	if err != nil {
		c.push(gen, apperrors.UserMessage(err), notify.KindError)
		return err
	}

	c.push(gen, MsgDownloaded, notify.KindSuccess)
	return nil
}

// ReturnFiled is called once the tax form was submitted elsewhere. It
// closes the form, announces the filing and refreshes the list.
func (c *Controller) ReturnFiled(ctx context.Context) error {
	gen, err := c.current()
	if err != nil {
		return err
	}
	c.setMode(gen, ModeDashboard)
	c.push(gen, MsgReturnFiled, notify.KindSuccess)
	_ = c.fetchRecords(ctx, gen, false)
	return nil
}

func (c *Controller) DismissNotification(id notify.ID) {
	c.queue.Dismiss(id)
}

func (c *Controller) SetMode(m ViewMode) error {
	if _, err := ParseViewMode(string(m)); err != nil {
		return err
	}
	gen, err := c.current()
	if err != nil {
		return err
	}
	c.setMode(gen, m)
	return nil
}

// View returns a snapshot of the view model.
func (c *Controller) View() ViewModel {
	c.mu.Lock()
	vm := ViewModel{
		Mode:    c.mode,
		Records: slices.Clone(c.records),
		Stats:   c.stats,
		Loading: c.loading,
	}
	c.mu.Unlock()

	vm.Notifications = c.queue.Items()
	vm.Fetch = c.fetch.State()
	vm.Upload = c.upload.State()
	vm.Download = c.download.State()

	var name string
	if id := c.deps.Session.Identity(); id.User != nil {
		name = id.User.FullName
	}
	vm.Greeting = Greeting(c.clock.Now(), name)
	return vm
}

// fetchRecords runs the fetch slot. announce controls whether a rejected
// duplicate fetch is reported to the user; internal refreshes stay quiet.
func (c *Controller) fetchRecords(ctx context.Context, gen uint64, announce bool) error {
	records, err := c.fetch.Run(ctx, func(ctx context.Context, _ asyncop.ProgressFunc) ([]models.TaxReturn, error) {
		rs, err := c.deps.Records.FetchRecords(ctx)
		if err != nil {
			return nil, apperrors.Transport(MsgFetchFailed, err)
		}
		return rs, nil
	})
	if !apperrors.IsConcurrent(err) {
		c.fetch.ResetAfter(c.resetDelay, nil)
	}
	if err != nil {
		if announce || !apperrors.IsConcurrent(err) {
			c.push(gen, apperrors.UserMessage(err), notify.KindError)
		}
		return err
	}

	c.replace(gen, records)
	return nil
}

func (c *Controller) current() (uint64, error) {
	if !c.deps.Session.Identity().Authenticated {
		return 0, ErrNotAuthenticated
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		return 0, ErrNotMounted
	}
	return c.generation, nil
}

func (c *Controller) replace(gen uint64, records []models.TaxReturn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return
	}
	c.records = records
	c.stats = aggregate.Compute(records)
}

func (c *Controller) setMode(gen uint64, m ViewMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation == gen {
		c.mode = m
	}
}

func (c *Controller) push(gen uint64, msg string, kind notify.Kind) {
	c.mu.Lock()
	live := c.generation == gen
	c.mu.Unlock()
	if live {
		c.queue.Push(msg, kind)
	}
}
