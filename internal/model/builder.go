package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrEmptyKey         = errors.New("model: variable key is required")
	ErrDuplicateKey     = errors.New("model: duplicate variable key")
	ErrUnknownFieldType = errors.New("model: unknown field type")
)

// RawVariable is the loosely typed shape found in configuration files. It
// accepts both the flat prompt_variables layout (key/name) and the entries of
// a keyed user_input_form (variable/label).
type RawVariable struct {
	Key         string   `json:"key,omitempty" yaml:"key,omitempty"`
	Variable    string   `json:"variable,omitempty" yaml:"variable,omitempty"`
	Name        string   `json:"name,omitempty" yaml:"name,omitempty"`
	Label       string   `json:"label,omitempty" yaml:"label,omitempty"`
	Type        string   `json:"type,omitempty" yaml:"type,omitempty"`
	Required    bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Options     []string `json:"options,omitempty" yaml:"options,omitempty"`
	MaxLength   int      `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Default     string   `json:"default,omitempty" yaml:"default,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Hidden      *bool    `json:"hidden,omitempty" yaml:"hidden,omitempty"`
}

// InputFormEntry is one element of a user_input_form list: a single-key map
// whose key names the control type.
type InputFormEntry map[string]RawVariable

// FlattenInputForm converts user_input_form entries into RawVariables, taking
// the type from each entry's key. Entries with several keys are expanded in
// sorted key order so results stay deterministic.
func FlattenInputForm(entries []InputFormEntry) []RawVariable {
	out := make([]RawVariable, 0, len(entries))
	for _, entry := range entries {
		for _, kind := range sortedKeys(entry) {
			raw := entry[kind]
			if strings.TrimSpace(raw.Type) == "" {
				raw.Type = kind
			}
			out = append(out, raw)
		}
	}
	return out
}

// Builder converts raw configuration into field descriptors.
type Builder struct {
	opts Options
}

// New creates a Builder with the supplied options.
func New(options Options) *Builder {
	opts := defaultOptions()
	if options.Labeler != nil {
		opts.Labeler = options.Labeler
	}
	if options.HiddenSuffix != "" {
		opts.HiddenSuffix = options.HiddenSuffix
	}
	opts.AllowUnknownTypes = options.AllowUnknownTypes
	return &Builder{opts: opts}
}

// Build normalises raw variables into descriptors, preserving order.
func (b *Builder) Build(raw []RawVariable) ([]FieldDescriptor, error) {
	out := make([]FieldDescriptor, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for idx, item := range raw {
		desc, err := b.descriptor(item)
		if err != nil {
			return nil, fmt.Errorf("variable %d: %w", idx, err)
		}
		if _, exists := seen[desc.Key]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, desc.Key)
		}
		seen[desc.Key] = struct{}{}
		out = append(out, desc)
	}
	return out, nil
}

func (b *Builder) descriptor(raw RawVariable) (FieldDescriptor, error) {
	key := strings.TrimSpace(raw.Key)
	if key == "" {
		key = strings.TrimSpace(raw.Variable)
	}
	if key == "" {
		return FieldDescriptor{}, ErrEmptyKey
	}

	fieldType, ok := NormalizeFieldType(raw.Type)
	if !ok && !b.opts.AllowUnknownTypes {
		return FieldDescriptor{}, fmt.Errorf("%w %q for %q", ErrUnknownFieldType, raw.Type, key)
	}

	name := strings.TrimSpace(raw.Name)
	if name == "" {
		name = strings.TrimSpace(raw.Label)
	}
	if name == "" && b.opts.Labeler != nil {
		name = b.opts.Labeler(key)
	}

	visible := true
	if b.opts.HiddenSuffix != "" && strings.HasSuffix(key, b.opts.HiddenSuffix) {
		visible = false
	}
	if raw.Hidden != nil {
		visible = !*raw.Hidden
	}

	desc := FieldDescriptor{
		Key:         key,
		Name:        name,
		Type:        fieldType,
		Required:    raw.Required,
		Visible:     visible,
		Default:     raw.Default,
		Description: strings.TrimSpace(raw.Description),
	}
	if raw.MaxLength > 0 {
		desc.MaxLength = raw.MaxLength
	}
	if fieldType == FieldTypeSelect {
		desc.Options = dedupeOptions(raw.Options)
	}
	return desc, nil
}

// NormalizeFieldType resolves configuration aliases onto the closed FieldType
// set. Unknown values are returned verbatim with ok=false.
func NormalizeFieldType(raw string) (FieldType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "select":
		return FieldTypeSelect, true
	case "text", "string", "text-input", "text_input":
		return FieldTypeText, true
	case "paragraph", "textarea":
		return FieldTypeParagraph, true
	case "number", "integer":
		return FieldTypeNumber, true
	default:
		return FieldType(strings.TrimSpace(raw)), false
	}
}

func dedupeOptions(options []string) []string {
	if len(options) == 0 {
		return nil
	}
	out := make([]string, 0, len(options))
	seen := make(map[string]struct{}, len(options))
	for _, option := range options {
		if _, exists := seen[option]; exists {
			continue
		}
		seen[option] = struct{}{}
		out = append(out, option)
	}
	return out
}

func sortedKeys(entry InputFormEntry) []string {
	keys := make([]string, 0, len(entry))
	for key := range entry {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
