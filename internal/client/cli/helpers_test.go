package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/taxbox/internal/client/blobstore"
	"github.com/dmitrijs2005/taxbox/internal/client/client"
	"github.com/dmitrijs2005/taxbox/internal/client/config"
	"github.com/dmitrijs2005/taxbox/internal/client/dashboard"
	"github.com/dmitrijs2005/taxbox/internal/client/models"
	"github.com/dmitrijs2005/taxbox/internal/client/notify"
	"github.com/dmitrijs2005/taxbox/internal/client/session"
	"github.com/dmitrijs2005/taxbox/internal/logging"
	"github.com/jonboulle/clockwork"
)

var jane = models.User{Email: "jane@example.com", FullName: "Jane Doe"}

// syncBuffer is written from timer goroutines as well as the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeAuth struct {
	mu sync.Mutex

	user      models.User
	authErr   error
	createErr error
	pingErr   error

	created []string
	cleared int
	closed  bool
	pings   int
}

func (f *fakeAuth) Authenticate(_ context.Context, email, _ string) (models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.authErr != nil {
		return models.Identity{}, f.authErr
	}
	return models.Authenticated(f.user), nil
}

func (f *fakeAuth) CreateAccount(_ context.Context, email, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, email)
	return f.createErr
}

func (f *fakeAuth) ClearOfflineData(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	return nil
}

func (f *fakeAuth) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return f.pingErr
}

func (f *fakeAuth) setPingErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pingErr = err
}

func (f *fakeAuth) Close(context.Context) error {
	f.closed = true
	return nil
}

// fakeRecords serves fetch, upload and export.
type fakeRecords struct {
	mu        sync.Mutex
	records   []models.TaxReturn
	fetchErr  error
	uploadErr error
	uploaded  []string
	exported  models.Blob
}

func (f *fakeRecords) FetchRecords(context.Context) ([]models.TaxReturn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records, f.fetchErr
}

func (f *fakeRecords) UploadDocument(_ context.Context, doc models.Document, _ func(int)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploaded = append(f.uploaded, doc.Name)
	return nil
}

func (f *fakeRecords) ExportRecord(_ context.Context, id string) (models.Blob, error) {
	if id == "missing" {
		return models.Blob{}, client.ErrNotFound
	}
	return f.exported, nil
}

func sampleReturns() []models.TaxReturn {
	created := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	return []models.TaxReturn{
		{ID: "r2", TaxYear: 2024, Status: models.StatusDraft, Income: 80000, RefundAmount: 350, CreatedAt: created},
		{ID: "r1", TaxYear: 2023, Status: models.StatusFiled, Income: 100000, AmountOwed: 1, CreatedAt: created.AddDate(-1, 0, 0)},
	}
}

type testApp struct {
	*App
	out     *syncBuffer
	auth    *fakeAuth
	records *fakeRecords
	clock   *clockwork.FakeClock
	dir     string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DownloadDir = t.TempDir()

	clock := clockwork.NewFakeClockAt(time.Date(2025, 4, 15, 9, 0, 0, 0, time.Local))
	out := &syncBuffer{}
	auth := &fakeAuth{user: jane}
	records := &fakeRecords{records: sampleReturns(), exported: models.Blob{Data: []byte(`{"id":"r1"}`)}}

	a := &App{
		config: cfg,
		log:    logging.Nop{},
		clock:  clock,
		auth:   auth,
		reader: bufio.NewReader(strings.NewReader("")),
		out:    out,
		ctx:    context.Background(),
	}
	saved := func(loc string) { a.printf("Saved to %s\n", loc) }
	a.session = session.New(auth, session.WithTerminator(auth), session.WithClock(clock))
	a.dashboard = dashboard.New(dashboard.Deps{
		Records:  records,
		Uploader: records,
		Exporter: records,
		Saver:    blobstore.NewLocalSaver(cfg.DownloadDir, saved),
		Session:  a.session,
		Clock:    clock,
	}, a.dashboardOptions()...)
	a.bind()
	t.Cleanup(a.dashboard.Close)

	return &testApp{App: a, out: out, auth: auth, records: records, clock: clock, dir: cfg.DownloadDir}
}

// stubInputs feeds text prompts from lines and password prompts from
// passwords, in order.
func stubInputs(t *testing.T, lines []string, passwords ...string) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})

	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if len(lines) == 0 {
			return "", io.EOF
		}
		l := lines[0]
		lines = lines[1:]
		return l, nil
	}
	getPassword = func(string, io.Writer) ([]byte, error) {
		if len(passwords) == 0 {
			return nil, io.EOF
		}
		p := passwords[0]
		passwords = passwords[1:]
		return []byte(p), nil
	}
}

func (ta *testApp) signIn(t *testing.T) {
	t.Helper()
	stubInputs(t, []string{"jane@example.com"}, "Secr3t!pw")
	if err := ta.Login(context.Background()); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func formatID(id notify.ID) string {
	return strconv.FormatInt(int64(id), 10)
}
