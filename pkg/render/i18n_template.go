package render

import (
	"strings"
)

// TemplateI18nFuncs returns helpers suitable for injecting into template
// engines (e.g. via gotemplate.WithTemplateFunc):
//
//	translate(locale, key, ...args) string
//
// Missing keys route through onMissing, which defaults to echoing the key.
func TemplateI18nFuncs(t Translator, onMissing MissingTranslationHandler) map[string]any {
	if onMissing == nil {
		onMissing = missingTranslationDefault
	}

	return map[string]any{
		"translate": func(locale, key string, params ...any) string {
			key = strings.TrimSpace(key)
			if key == "" {
				return ""
			}
			if t == nil {
				return onMissing(locale, key, params, ErrMissingTranslator)
			}
			msg, err := t.Translate(locale, key, params...)
			if err != nil || strings.TrimSpace(msg) == "" {
				return onMissing(locale, key, params, err)
			}
			return msg
		},
	}
}
