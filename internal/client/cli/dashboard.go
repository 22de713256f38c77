package cli

import (
	"context"
	"errors"
	"strconv"

	"github.com/dmitrijs2005/taxbox/internal/client/dashboard"
	"github.com/dmitrijs2005/taxbox/internal/client/models"
	"github.com/dmitrijs2005/taxbox/internal/client/notify"
)

var errUsage = errors.New("usage")

// List prints the returns currently shown on the dashboard.
func (a *App) List(ctx context.Context) error {
	vm := a.dashboard.View()
	a.printf("%s\n", vm.Greeting)
	renderReturns(a.out, vm.Records)
	return nil
}

// Refresh fetches the returns again and prints them.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.dashboard.TriggerFetch(ctx); err != nil {
		return err
	}
	return a.List(ctx)
}

func (a *App) Stats(ctx context.Context) error {
	renderStats(a.out, a.dashboard.View().Stats)
	return nil
}

// Upload sends the files at paths one by one. Outcomes are reported as
// notifications.
func (a *App) Upload(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		a.printf("Usage: upload <file> [file...]\n")
		return errUsage
	}

	docs := make([]models.Document, 0, len(paths))
	for _, p := range paths {
		doc, err := models.DocumentFromPath(p)
		if err != nil {
			a.printf("Cannot read %s\n", p)
			a.log.Debug(ctx, "upload: open document", "path", p, "error", err)
			return err
		}
		docs = append(docs, doc)
	}

	return a.dashboard.TriggerUpload(ctx, docs)
}

func (a *App) Download(ctx context.Context, id string) error {
	if id == "" {
		a.printf("Usage: download <id>\n")
		return errUsage
	}
	return a.dashboard.TriggerDownload(ctx, id)
}

// Notifications lists the toasts that have not expired yet.
func (a *App) Notifications(ctx context.Context) error {
	items := a.dashboard.View().Notifications
	if len(items) == 0 {
		a.printf("No notifications\n")
		return nil
	}
	for _, n := range items {
		a.printf("%s\n", formatNotification(n))
	}
	return nil
}

func (a *App) Dismiss(ctx context.Context, arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		a.printf("Usage: dismiss <notification id>\n")
		return errUsage
	}
	a.dashboard.DismissNotification(notify.ID(id))
	return nil
}

// Filed reports that the tax form was submitted.
func (a *App) Filed(ctx context.Context) error {
	return a.dashboard.ReturnFiled(ctx)
}

func (a *App) SetView(ctx context.Context, arg string) error {
	m, err := dashboard.ParseViewMode(arg)
	if err != nil {
		a.printf("Usage: mode <dashboard|tax-form|upload-form>\n")
		return errUsage
	}
	return a.dashboard.SetMode(m)
}

// getStatus renders the prompt status, e.g. "(jane@example.com online) [dashboard]".
func (a *App) getStatus() string {
	s := ""
	if id := a.session.Identity(); id.Authenticated {
		s = id.Email() + " "
	}
	if m := a.currentMode(); m != "" {
		s += string(m)
	}
	if s != "" {
		s = "(" + s + ")"
	}
	if a.isLoggedIn() {
		s += " [" + string(a.dashboard.View().Mode) + "]"
	}
	return s
}
