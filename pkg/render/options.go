package render

import (
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-runform/pkg/model"
	"github.com/goliatone/go-runform/pkg/vision"
)

// RenderOptions describe per-request data that renderers use to customise
// their output without mutating the form.
type RenderOptions struct {
	// Values is the caller-owned value map. Missing keys render empty.
	Values model.Values
	// Errors surfaces server-side feedback keyed by variable key. Use
	// MapErrorPayload to normalise raw payloads.
	Errors map[string][]string
	// FormErrors carries messages not tied to a single variable.
	FormErrors []string
	// Attachments lists the projected attachments already collected so the
	// attachment control can show them.
	Attachments []vision.Attachment
	// Action and Method set the HTML form target. Method defaults to POST.
	Action string
	Method string
	// HiddenFields are emitted as extra hidden inputs (CSRF tokens etc.).
	HiddenFields map[string]string
	// DefaultMaxLength caps text inputs without their own limit.
	DefaultMaxLength int

	Locale     string
	Translator Translator
	OnMissing  MissingTranslationHandler

	// Theme carries a resolved go-theme renderer configuration. Renderers that
	// support theming expose its CSS variables on the form root.
	Theme *theme.RendererConfig
}
