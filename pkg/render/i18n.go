package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-runform/pkg/model"
)

// Translation keys for the fixed chrome around a run form.
const (
	KeyOptional    = "app.common.optional"
	KeyClear       = "common.operation.clear"
	KeyRun         = "app.generation.run"
	KeyImageUpload = "common.imageUploader.imageUpload"
	KeyUnsupported = "app.form.unsupportedField"
)

// ErrMissingTranslator is passed to MissingTranslationHandler when no
// Translator is configured.
var ErrMissingTranslator = errors.New("render: translator not configured")

// Translator resolves a translation key for a locale.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// MissingTranslationHandler decides what to show when a key cannot be
// translated. params mirrors the args passed to Translate; the first element
// may be a map carrying a "default" fallback.
type MissingTranslationHandler func(locale, key string, params []any, err error) string

// Catalog is a Translator backed by nested maps: locale -> key -> message.
// Messages may contain fmt verbs consumed by args.
type Catalog map[string]map[string]string

// Translate implements Translator. Locales fall back from "en-US" to "en".
func (c Catalog) Translate(locale, key string, args ...any) (string, error) {
	for _, candidate := range localeChain(locale) {
		if msg, ok := c[candidate][key]; ok {
			if len(args) > 0 && strings.Contains(msg, "%") {
				return fmt.Sprintf(msg, args...), nil
			}
			return msg, nil
		}
	}
	return "", fmt.Errorf("render: no translation for %q (%s)", key, locale)
}

// DefaultCatalog carries English defaults for the form chrome.
func DefaultCatalog() Catalog {
	return Catalog{
		"en": {
			KeyOptional:    "optional",
			KeyClear:       "Clear",
			KeyRun:         "Run",
			KeyImageUpload: "Image Upload",
			KeyUnsupported: "Unsupported field type %q",
		},
	}
}

// Labels is the resolved chrome copy for one render.
type Labels struct {
	Optional    string `json:"optional"`
	Clear       string `json:"clear"`
	Run         string `json:"run"`
	ImageUpload string `json:"imageUpload"`
}

// ResolveLabels translates the fixed chrome keys, falling back to the
// English defaults.
func ResolveLabels(opts RenderOptions) Labels {
	fallback := DefaultCatalog()["en"]
	return Labels{
		Optional:    Translate(opts, KeyOptional, fallback[KeyOptional]),
		Clear:       Translate(opts, KeyClear, fallback[KeyClear]),
		Run:         Translate(opts, KeyRun, fallback[KeyRun]),
		ImageUpload: Translate(opts, KeyImageUpload, fallback[KeyImageUpload]),
	}
}

// UnsupportedNotice renders the message shown in place of an unknown widget.
func UnsupportedNotice(opts RenderOptions, fieldType model.FieldType) string {
	fallback := fmt.Sprintf(DefaultCatalog()["en"][KeyUnsupported], string(fieldType))
	if opts.Translator == nil {
		return fallback
	}
	msg, err := opts.Translator.Translate(opts.Locale, KeyUnsupported, string(fieldType))
	if err != nil || strings.TrimSpace(msg) == "" {
		return fallback
	}
	return msg
}

// Translate resolves key with opts, using fallback when translation fails.
func Translate(opts RenderOptions, key, fallback string) string {
	onMissing := opts.OnMissing
	if onMissing == nil {
		onMissing = missingTranslationDefault
	}
	return translate(opts.Locale, key, fallback, opts.Translator, onMissing)
}

// LocalizeForm translates variable labels and descriptions in place. Keys
// follow "<formID>.<variableKey>.label" and "<formID>.<variableKey>.description";
// missing entries keep the configured text.
func LocalizeForm(form *model.Form, opts RenderOptions) {
	if form == nil || opts.Translator == nil {
		return
	}
	prefix := strings.TrimSpace(form.ID)
	for i := range form.Variables {
		variable := &form.Variables[i]
		base := variable.Key
		if prefix != "" {
			base = prefix + "." + base
		}
		variable.Name = translateQuiet(opts, base+".label", variable.Name)
		if variable.Description != "" {
			variable.Description = translateQuiet(opts, base+".description", variable.Description)
		}
	}
}

func translateQuiet(opts RenderOptions, key, fallback string) string {
	result, err := opts.Translator.Translate(opts.Locale, key)
	if err != nil || strings.TrimSpace(result) == "" {
		return fallback
	}
	return result
}

func translate(locale, key, fallback string, t Translator, onMissing MissingTranslationHandler) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}

	if t == nil {
		return onMissing(locale, key, []any{map[string]any{"default": fallback}}, ErrMissingTranslator)
	}

	result, err := t.Translate(locale, key)
	if err == nil && strings.TrimSpace(result) != "" {
		return result
	}
	return onMissing(locale, key, []any{map[string]any{"default": fallback}}, err)
}

func missingTranslationDefault(_ string, key string, params []any, _ error) string {
	if len(params) > 0 {
		if m, ok := params[0].(map[string]any); ok {
			if fallback, ok := m["default"].(string); ok && strings.TrimSpace(fallback) != "" {
				return fallback
			}
		}
	}
	return key
}

func localeChain(locale string) []string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return []string{"en"}
	}
	chain := []string{locale}
	if idx := strings.IndexAny(locale, "-_"); idx > 0 {
		chain = append(chain, locale[:idx])
	}
	if chain[len(chain)-1] != "en" {
		chain = append(chain, "en")
	}
	return chain
}
