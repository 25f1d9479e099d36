package render

import (
	"sort"
	"strings"

	"github.com/goliatone/go-runform/pkg/model"
)

// ErrorMapping splits a validation payload into variable-level and form-level
// messages.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// MapErrorPayload normalises server error payloads onto variable keys.
// Paths may be bare keys, dotted ("inputs.topic") or JSON pointers
// ("/inputs/topic"); wrapper segments such as "inputs" or "body" are
// skipped. Unmatched paths become form-level messages so nothing is lost.
func MapErrorPayload(form model.Form, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{}
	if len(payload) == 0 {
		return mapping
	}

	known := make(map[string]struct{}, len(form.Variables))
	for _, variable := range form.Variables {
		known[variable.Key] = struct{}{}
	}

	for _, rawPath := range sortedPayloadKeys(payload) {
		messages := normalizeMessages(payload[rawPath])
		if len(messages) == 0 {
			continue
		}
		key, ok := matchErrorPath(rawPath, known)
		if !ok {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		if mapping.Fields == nil {
			mapping.Fields = make(map[string][]string)
		}
		mapping.Fields[key] = append(mapping.Fields[key], messages...)
	}

	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

// MergeFormErrors concatenates form-level messages, trimming and removing
// duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

func matchErrorPath(raw string, known map[string]struct{}) (string, bool) {
	segments := strings.FieldsFunc(strings.TrimLeft(strings.TrimSpace(raw), "#$"), func(r rune) bool {
		return r == '.' || r == '/'
	})
	for len(segments) > 0 {
		switch strings.ToLower(segments[0]) {
		case "inputs", "body", "payload", "data":
			segments = segments[1:]
			continue
		}
		break
	}
	if len(segments) == 0 {
		return "", false
	}
	key := strings.ReplaceAll(strings.ReplaceAll(segments[0], "~1", "/"), "~0", "~")
	if _, ok := known[key]; !ok {
		return "", false
	}
	return key, true
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func sortedPayloadKeys(payload map[string][]string) []string {
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
