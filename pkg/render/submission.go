package render

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// SessionFieldName carries the host session id in rendered HTML forms.
const SessionFieldName = "_session"

// HiddenField is a name/value pair posted alongside the prompt variables.
type HiddenField struct {
	Name  string
	Value string
}

// Hidden formats value with fmt.Sprint.
func Hidden(name string, value any) HiddenField {
	return HiddenField{Name: strings.TrimSpace(name), Value: fmt.Sprint(value)}
}

// CSRFToken is Hidden for an anti-forgery token.
func CSRFToken(name, token string) HiddenField { return Hidden(name, token) }

// SessionField binds a rendered form to the server-side session id.
func SessionField(id string) HiddenField { return Hidden(SessionFieldName, id) }

// MergeHiddenFields layers fields over a copy of base. Later entries win and
// blank names are dropped. The result is nil when nothing survives.
func MergeHiddenFields(base map[string]string, fields ...HiddenField) map[string]string {
	merged := make(map[string]string, len(base)+len(fields))
	put := func(name, value string) {
		if name = strings.TrimSpace(name); name != "" {
			merged[name] = value
		}
	}
	for name, value := range base {
		put(name, value)
	}
	for _, field := range fields {
		put(field.Name, field.Value)
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}

// SortedHiddenFields lists fields by name so markup is stable between renders.
func SortedHiddenFields(fields map[string]string) []HiddenField {
	clean := MergeHiddenFields(fields)
	if clean == nil {
		return nil
	}
	out := make([]HiddenField, 0, len(clean))
	for _, name := range slices.Sorted(maps.Keys(clean)) {
		out = append(out, HiddenField{Name: name, Value: clean[name]})
	}
	return out
}
