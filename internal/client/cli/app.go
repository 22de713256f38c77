package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/taxbox/internal/client/asyncop"
	"github.com/dmitrijs2005/taxbox/internal/client/blobstore"
	"github.com/dmitrijs2005/taxbox/internal/client/client"
	"github.com/dmitrijs2005/taxbox/internal/client/config"
	"github.com/dmitrijs2005/taxbox/internal/client/dashboard"
	"github.com/dmitrijs2005/taxbox/internal/client/models"
	"github.com/dmitrijs2005/taxbox/internal/client/notify"
	"github.com/dmitrijs2005/taxbox/internal/client/repositories"
	"github.com/dmitrijs2005/taxbox/internal/client/services"
	"github.com/dmitrijs2005/taxbox/internal/client/session"
	"github.com/dmitrijs2005/taxbox/internal/logging"
	"github.com/jonboulle/clockwork"
)

// Mode is the connectivity shown in the prompt.
type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config    *config.Config
	log       logging.Logger
	clock     clockwork.Clock
	auth      services.AuthService
	session   *session.Controller
	dashboard *dashboard.Controller
	reader    *bufio.Reader
	out       io.Writer

	// ctx backs the work started from session listeners.
	ctx     context.Context
	closers []func() error

	mu        sync.Mutex
	mode      Mode
	lastShown notify.ID
	lastPct   int
}

// NewApp opens the local cache, dials the server and wires the controllers.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := repositories.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	apiClient, err := client.New(c.Transport, c.ServerEndpointAddr,
		client.WithLogger(log),
		client.WithTimeout(c.RequestTimeout),
		client.WithRateLimit(c.RequestsPerSecond, c.RequestBurst),
		client.WithBreaker(c.BreakerFailures, c.BreakerTimeout),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &App{
		config: c,
		log:    log,
		clock:  clockwork.NewRealClock(),
		auth:   services.NewAuthService(apiClient, db, log),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		ctx:    ctx,
	}
	a.closers = append(a.closers, db.Close)

	saver, err := a.newSaver(ctx)
	if err != nil {
		_ = a.auth.Close(ctx)
		_ = db.Close()
		return nil, err
	}

	a.session = session.New(a.auth, session.WithTerminator(a.auth), session.WithClock(a.clock))
	records := services.NewRecordService(apiClient, db, log, services.OnSessionExpired(a.session.Invalidate))

	a.dashboard = dashboard.New(dashboard.Deps{
		Records:  records,
		Uploader: records,
		Exporter: records,
		Cache:    records,
		Saver:    saver,
		Session:  a.session,
		Clock:    a.clock,
	}, a.dashboardOptions()...)

	a.bind()
	return a, nil
}

func (a *App) newSaver(ctx context.Context) (blobstore.Saver, error) {
	saved := func(loc string) { a.printf("Saved to %s\n", loc) }

	local := blobstore.NewLocalSaver(a.config.DownloadDir, saved)
	if !a.config.S3.Enabled() {
		return local, nil
	}

	remote, err := blobstore.NewS3Saver(ctx, a.config.S3, saved)
	if err != nil {
		return nil, err
	}
	return blobstore.Multi{local, remote}, nil
}

func (a *App) dashboardOptions() []dashboard.Option {
	queueOpts := []notify.Option{notify.WithOnChange(a.showNotifications)}
	if a.config.NotificationLifetime > 0 {
		queueOpts = append(queueOpts, notify.WithLifetime(a.config.NotificationLifetime))
	}
	if a.config.NotificationLimit > 0 {
		queueOpts = append(queueOpts, notify.WithMaxLen(a.config.NotificationLimit))
	}

	return []dashboard.Option{
		dashboard.WithQueueOptions(queueOpts...),
		dashboard.WithUploadResetDelay(a.config.UploadResetDelay),
		dashboard.WithUploadObserver(a.showUploadProgress),
	}
}

// bind mounts the dashboard for every new identity and unmounts it when the
// session ends, whatever ended it.
func (a *App) bind() {
	a.session.Subscribe(func(id models.Identity) {
		if !id.Authenticated {
			a.dashboard.Unmount()
			a.printf("Signed out\n")
			return
		}
		if err := a.dashboard.Mount(a.ctx); err != nil {
			a.log.Debug(a.ctx, "dashboard mount", "error", err)
		}
	})
}

// showNotifications prints toasts that have not been shown yet. Expiry
// also lands here and prints nothing.
func (a *App) showNotifications(items []notify.Notification) {
	a.mu.Lock()
	var fresh []notify.Notification
	for _, n := range items {
		if n.ID > a.lastShown {
			fresh = append(fresh, n)
			a.lastShown = n.ID
		}
	}
	a.mu.Unlock()

	for _, n := range fresh {
		a.printf("%s\n", formatNotification(n))
	}
}

func (a *App) showUploadProgress(s asyncop.State) {
	a.mu.Lock()
	changed := s.Phase == asyncop.PhasePending && s.Progress != a.lastPct
	if s.Phase != asyncop.PhasePending {
		a.lastPct = 0
	} else {
		a.lastPct = s.Progress
	}
	a.mu.Unlock()

	if changed {
		a.printf("Uploading... %d%%\n", s.Progress)
	}
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.log.Info(a.ctx, "connectivity changed", "mode", mode)
	}
}

func (a *App) currentMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) isLoggedIn() bool {
	return a.session.IsAuthenticated()
}

// Run starts the connectivity watcher and blocks in the REPL until the user
// exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	defer a.Close(ctx)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(watchCtx, a.config.OnlineCheckInterval)

	a.printf("Welcome to TaxBox (type 'help' for commands)\n")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

// Close tears the controllers down and releases the client and database.
func (a *App) Close(ctx context.Context) {
	a.dashboard.Close()
	if err := a.auth.Close(ctx); err != nil {
		a.log.Warn(ctx, "closing client", "error", err)
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Warn(ctx, "closing resource", "error", err)
		}
	}
}

// StartOnlineStatusWatcher pings the server every interval and tracks the
// connectivity mode until ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.checkOnline(ctx)

	ticker := a.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, a.config.RequestTimeout)
	defer cancel()

	if err := a.auth.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}
