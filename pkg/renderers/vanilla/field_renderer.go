package vanilla

import (
	"bytes"
	"fmt"
	"html"
	"slices"
	"strings"

	"github.com/goliatone/go-runform/pkg/form"
	"github.com/goliatone/go-runform/pkg/render/template"
	"github.com/goliatone/go-runform/pkg/renderers/vanilla/components"
)

type componentRenderer struct {
	templates template.TemplateRenderer
	registry  *components.Registry
	overrides map[string]string
	partials  map[string]string

	usedComponents map[string]struct{}
}

func newComponentRenderer(templates template.TemplateRenderer, registry *components.Registry, overrides, partials map[string]string) *componentRenderer {
	if registry == nil {
		registry = components.NewDefaultRegistry()
	}
	return &componentRenderer{
		templates:      templates,
		registry:       registry,
		overrides:      overrides,
		partials:       partials,
		usedComponents: make(map[string]struct{}),
	}
}

// render produces the markup for one view. errs are the field's server-side
// messages; notice is shown for unsupported widgets.
func (r *componentRenderer) render(view form.FieldView, errs []string, notice string) (string, error) {
	descriptor, err := r.registry.Resolve(view, r.overrides[view.Key])
	if err != nil {
		return "", err
	}
	componentName := descriptor.Name

	data := components.ComponentData{
		Template:      r.templates,
		ControlID:     controlID(view.Key),
		Invalid:       len(errs) > 0,
		Notice:        notice,
		ThemePartials: r.partials,
	}

	var control bytes.Buffer
	if err := descriptor.Renderer(&control, view, data); err != nil {
		return "", fmt.Errorf("render component %q for field %q: %w", componentName, view.Key, err)
	}

	r.usedComponents[componentName] = struct{}{}

	if !view.Visible {
		return strings.TrimSpace(control.String()), nil
	}
	return buildFieldMarkup(view, componentName, strings.TrimSpace(control.String()), errs), nil
}

func (r *componentRenderer) stylesheets() []string {
	if r.registry == nil || len(r.usedComponents) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.usedComponents))
	for name := range r.usedComponents {
		names = append(names, name)
	}
	slices.Sort(names)
	return r.registry.Stylesheets(names)
}

func buildFieldMarkup(view form.FieldView, componentName, control string, errs []string) string {
	var builder strings.Builder
	builder.Grow(len(control) + 256)

	builder.WriteString(`<div class="`)
	builder.WriteString(string(ClassField))
	builder.WriteString(`" data-field="`)
	builder.WriteString(html.EscapeString(view.Key))
	builder.WriteString(`" data-component="`)
	builder.WriteString(html.EscapeString(componentName))
	builder.WriteString(`">`)

	if view.Label != "" {
		if componentName == components.NameUnsupported {
			builder.WriteString(`<div class="`)
		} else {
			builder.WriteString(`<label for="`)
			builder.WriteString(html.EscapeString(controlID(view.Key)))
			builder.WriteString(`" class="`)
		}
		builder.WriteString(string(ClassLabel))
		builder.WriteString(`">`)
		builder.WriteString(html.EscapeString(view.Label))
		if view.Required {
			builder.WriteString(`<span class="`)
			builder.WriteString(string(ClassRequired))
			builder.WriteString(`" aria-hidden="true">*</span>`)
		}
		if componentName == components.NameUnsupported {
			builder.WriteString(`</div>`)
		} else {
			builder.WriteString(`</label>`)
		}
	}

	builder.WriteString(control)

	if desc := sanitizeDescription(view.Description); desc != "" {
		builder.WriteString(`<p class="`)
		builder.WriteString(string(ClassDescription))
		builder.WriteString(`">`)
		builder.WriteString(desc)
		builder.WriteString(`</p>`)
	}

	if len(errs) > 0 {
		builder.WriteString(`<ul class="`)
		builder.WriteString(string(ClassFieldErrors))
		builder.WriteString(`" role="alert">`)
		for _, msg := range errs {
			builder.WriteString(`<li>`)
			builder.WriteString(html.EscapeString(msg))
			builder.WriteString(`</li>`)
		}
		builder.WriteString(`</ul>`)
	}

	builder.WriteString(`</div>`)
	return builder.String()
}

func controlID(key string) string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return ""
	}
	return "rf-" + trimmed
}
