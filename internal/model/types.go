package model

import "github.com/goliatone/go-runform/pkg/vision"

// FieldType is the closed set of input kinds a prompt variable can declare.
type FieldType string

const (
	FieldTypeSelect    FieldType = "select"
	FieldTypeText      FieldType = "text"
	FieldTypeParagraph FieldType = "paragraph"
	FieldTypeNumber    FieldType = "number"
)

// Known reports whether t is one of the supported field types.
func (t FieldType) Known() bool {
	switch t {
	case FieldTypeSelect, FieldTypeText, FieldTypeParagraph, FieldTypeNumber:
		return true
	default:
		return false
	}
}

// FieldDescriptor models one prompt variable. Struct fields are annotated so
// renderers and config files can serialise them directly.
type FieldDescriptor struct {
	Key         string    `json:"key" yaml:"key"`
	Name        string    `json:"name" yaml:"name"`
	Type        FieldType `json:"type" yaml:"type"`
	Required    bool      `json:"required" yaml:"required"`
	Options     []string  `json:"options,omitempty" yaml:"options,omitempty"`
	MaxLength   int       `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Visible     bool      `json:"visible" yaml:"visible"`
	Default     string    `json:"default,omitempty" yaml:"default,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// Values is the caller-owned snapshot of field contents keyed by descriptor
// key. A missing key reads as the empty string.
type Values map[string]string

// Get returns the value stored under key, or "" when absent.
func (v Values) Get(key string) string {
	if v == nil {
		return ""
	}
	return v[key]
}

// Clone returns an independent copy. A nil receiver yields an empty map so
// callers can always write into the result.
func (v Values) Clone() Values {
	out := make(Values, len(v)+1)
	for key, value := range v {
		out[key] = value
	}
	return out
}

// Form is the top-level representation renderers consume: one prompt
// configuration plus optional vision settings.
type Form struct {
	ID          string            `json:"id" yaml:"id"`
	Title       string            `json:"title,omitempty" yaml:"title,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Variables   []FieldDescriptor `json:"variables" yaml:"variables"`
	Vision      vision.Settings   `json:"vision" yaml:"vision"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Keys returns the descriptor keys in declaration order.
func (f Form) Keys() []string {
	keys := make([]string, 0, len(f.Variables))
	for _, variable := range f.Variables {
		keys = append(keys, variable.Key)
	}
	return keys
}

// Variable looks up a descriptor by key.
func (f Form) Variable(key string) (FieldDescriptor, bool) {
	for _, variable := range f.Variables {
		if variable.Key == key {
			return variable, true
		}
	}
	return FieldDescriptor{}, false
}
