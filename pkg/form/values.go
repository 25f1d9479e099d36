package form

import (
	"strings"

	"github.com/goliatone/go-runform/pkg/model"
)

// Edit returns a copy of values with key set to value. values is not
// modified.
func Edit(values model.Values, key, value string) model.Values {
	next := values.Clone()
	next[key] = value
	return next
}

// Reset returns a map with every descriptor key set to the empty string.
// Prior values, including keys not covered by a descriptor, are discarded.
func Reset(descriptors []model.FieldDescriptor) model.Values {
	out := make(model.Values, len(descriptors))
	for _, desc := range descriptors {
		out[desc.Key] = ""
	}
	return out
}

// Initial seeds a value map for a new session: every descriptor key is
// present, taking the descriptor default when one is configured.
func Initial(descriptors []model.FieldDescriptor) model.Values {
	out := make(model.Values, len(descriptors))
	for _, desc := range descriptors {
		out[desc.Key] = desc.Default
	}
	return out
}

// MissingRequired lists keys of required descriptors whose value is blank.
// The form never calls this on submit; hosts may use it before running.
func MissingRequired(descriptors []model.FieldDescriptor, values model.Values) []string {
	var missing []string
	for _, desc := range descriptors {
		if !desc.Required {
			continue
		}
		if strings.TrimSpace(values.Get(desc.Key)) == "" {
			missing = append(missing, desc.Key)
		}
	}
	return missing
}
