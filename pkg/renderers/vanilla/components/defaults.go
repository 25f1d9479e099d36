package components

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goliatone/go-runform/pkg/form"
)

const templatePrefix = "templates/components/"

// NewDefaultRegistry returns a registry holding the template-backed controls
// of the vanilla renderer, each widget kind bound to its control.
func NewDefaultRegistry() *Registry {
	registry := New()
	for _, name := range []string{NameInput, NameTextarea, NameSelect, NameNumber, NameHidden, NameUnsupported} {
		registry.MustRegister(Descriptor{
			Name:     name,
			Renderer: templateComponentRenderer("forms."+name, templatePrefix+name+".tmpl"),
		})
	}
	for kind, name := range defaultBindings {
		if err := registry.Bind(kind, name); err != nil {
			panic(err)
		}
	}
	return registry
}

func templateComponentRenderer(partialKey, templateName string) Renderer {
	return func(buf *bytes.Buffer, field form.FieldView, data ComponentData) error {
		if data.Template == nil {
			return fmt.Errorf("components: template renderer not configured for %q", templateName)
		}

		resolvedTemplate := templateName
		if data.ThemePartials != nil {
			if candidate := strings.TrimSpace(data.ThemePartials[partialKey]); candidate != "" {
				resolvedTemplate = candidate
			}
		}

		rendered, err := data.Template.RenderTemplate(resolvedTemplate, map[string]any{
			"field": FieldContext(field, data),
		})
		if err != nil {
			return fmt.Errorf("components: render template %q: %w", templateName, err)
		}
		buf.WriteString(rendered)
		return nil
	}
}

// FieldContext flattens a view into the template payload. Only strings,
// ints, bools, and nested maps are used so templates see stable values.
func FieldContext(field form.FieldView, data ComponentData) map[string]any {
	options := make([]map[string]any, 0, len(field.Options))
	for _, option := range field.Options {
		options = append(options, map[string]any{
			"value":    option,
			"selected": option == field.Value,
		})
	}
	return map[string]any{
		"key":         field.Key,
		"id":          data.ControlID,
		"label":       field.Label,
		"type":        string(field.Type),
		"kind":        string(field.Kind),
		"value":       field.Value,
		"placeholder": field.Placeholder,
		"required":    field.Required,
		"max_length":  field.MaxLength,
		"options":     options,
		"invalid":     data.Invalid,
		"notice":      data.Notice,
	}
}
