package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/taxbox/internal/client/aggregate"
	"github.com/dmitrijs2005/taxbox/internal/client/asyncop"
	"github.com/dmitrijs2005/taxbox/internal/client/models"
	"github.com/dmitrijs2005/taxbox/internal/client/notify"
)

// ViewMode selects which panel is shown. Exactly one is active.
type ViewMode string

const (
	ModeDashboard  ViewMode = "dashboard"
	ModeTaxForm    ViewMode = "tax-form"
	ModeUploadForm ViewMode = "upload-form"
)

// ParseViewMode accepts the textual form of a ViewMode.
func ParseViewMode(s string) (ViewMode, error) {
	switch m := ViewMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeDashboard, ModeTaxForm, ModeUploadForm:
		return m, nil
	}
	return "", fmt.Errorf("unknown view mode %q", s)
}

// ViewModel is a consistent snapshot of everything the dashboard renders.
type ViewModel struct {
	Mode          ViewMode
	Records       []models.TaxReturn
	Stats         aggregate.Stats
	Notifications []notify.Notification

	Fetch    asyncop.State
	Upload   asyncop.State
	Download asyncop.State

	// Loading is true until the first fetch after Mount settles.
	Loading  bool
	Greeting string
}

// Greeting picks the salutation for the local hour of t and appends the
// first word of fullName when there is one.
func Greeting(t time.Time, fullName string) string {
	var g string
	switch h := t.Hour(); {
	case h < 12:
		g = "Good morning"
	case h < 18:
		g = "Good afternoon"
	default:
		g = "Good evening"
	}

	if first, _, _ := strings.Cut(strings.TrimSpace(fullName), " "); first != "" {
		g += ", " + first
	}
	return g
}
