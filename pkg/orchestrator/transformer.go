package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-runform/pkg/model"
)

// Transformer mutates a resolved Form before decorators run. Implementations
// can relabel variables, hide them, or inject metadata.
type Transformer interface {
	Transform(ctx context.Context, form *model.Form) error
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, form *model.Form) error

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, form *model.Form) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, form)
}

// PresetTransformer applies declarative overrides loaded from a YAML or JSON
// document. Patches are scoped per form id; the "*" entry applies to every
// form:
//
//	story:
//	  title: Write a story
//	  metadata: {team: content}
//	  variables:
//	    tone: {label: Mood, options: [calm, loud, wild]}
//	    user_id: {hidden: true}
type PresetTransformer struct {
	document map[string]formPatch
}

type formPatch struct {
	Title       string                   `yaml:"title"`
	Description string                   `yaml:"description"`
	Metadata    map[string]string        `yaml:"metadata"`
	Variables   map[string]variablePatch `yaml:"variables"`
}

type variablePatch struct {
	Label       string   `yaml:"label"`
	Description string   `yaml:"description"`
	Default     *string  `yaml:"default"`
	Required    *bool    `yaml:"required"`
	Hidden      *bool    `yaml:"hidden"`
	MaxLength   *int     `yaml:"max_length"`
	Options     []string `yaml:"options"`
}

const allForms = "*"

// NewPresetTransformer constructs a transformer from raw YAML or JSON bytes.
func NewPresetTransformer(data []byte) (*PresetTransformer, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("preset transformer: document is empty")
	}
	var document map[string]formPatch
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("preset transformer: parse document: %w", err)
	}
	return &PresetTransformer{document: document}, nil
}

// NewPresetTransformerFromFS loads a preset document from the provided
// filesystem path.
func NewPresetTransformerFromFS(fsys fs.FS, path string) (*PresetTransformer, error) {
	if fsys == nil {
		return nil, errors.New("preset transformer: filesystem is nil")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("preset transformer: path is required")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("preset transformer: read %s: %w", path, err)
	}
	return NewPresetTransformer(data)
}

// Transform applies the wildcard patch, then the patch for form.ID.
func (t *PresetTransformer) Transform(ctx context.Context, form *model.Form) error {
	if form == nil {
		return errors.New("preset transformer: form is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, id := range []string{allForms, form.ID} {
		patch, ok := t.document[id]
		if !ok {
			continue
		}
		if err := applyFormPatch(form, patch, id == allForms); err != nil {
			return err
		}
	}
	return nil
}

func applyFormPatch(form *model.Form, patch formPatch, lenient bool) error {
	if patch.Title != "" {
		form.Title = patch.Title
	}
	if patch.Description != "" {
		form.Description = patch.Description
	}
	if len(patch.Metadata) > 0 {
		form.Metadata = mergeStringMap(form.Metadata, patch.Metadata)
	}

	for key, vp := range patch.Variables {
		idx := variableIndex(form.Variables, key)
		if idx < 0 {
			if lenient {
				continue
			}
			return fmt.Errorf("preset transformer: variable %q not found in form %q", key, form.ID)
		}
		applyVariablePatch(&form.Variables[idx], vp)
	}
	return nil
}

func applyVariablePatch(desc *model.FieldDescriptor, patch variablePatch) {
	if patch.Label != "" {
		desc.Name = patch.Label
	}
	if patch.Description != "" {
		desc.Description = patch.Description
	}
	if patch.Default != nil {
		desc.Default = *patch.Default
	}
	if patch.Required != nil {
		desc.Required = *patch.Required
	}
	if patch.Hidden != nil {
		desc.Visible = !*patch.Hidden
	}
	if patch.MaxLength != nil && desc.Type == model.FieldTypeText {
		desc.MaxLength = *patch.MaxLength
	}
	if len(patch.Options) > 0 && desc.Type == model.FieldTypeSelect {
		desc.Options = append([]string(nil), patch.Options...)
	}
}

func variableIndex(variables []model.FieldDescriptor, key string) int {
	for idx := range variables {
		if variables[idx].Key == key {
			return idx
		}
	}
	return -1
}

func mergeStringMap(dst, src map[string]string) map[string]string {
	if len(src) == 0 {
		return dst
	}
	out := make(map[string]string, len(dst)+len(src))
	for key, value := range dst {
		out[key] = value
	}
	for key, value := range src {
		out[key] = value
	}
	return out
}
