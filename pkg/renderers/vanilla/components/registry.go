package components

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/goliatone/go-runform/pkg/form"
	rendertemplate "github.com/goliatone/go-runform/pkg/render/template"
)

// ErrUnknownComponent is returned when a name or widget binding points at a
// component that was never registered.
var ErrUnknownComponent = errors.New("components: unknown component")

// Renderer writes the control markup for one prompt variable into buf. The
// surrounding label, hint and error list belong to the field wrapper.
type Renderer func(buf *bytes.Buffer, field form.FieldView, data ComponentData) error

// ComponentData is what a Renderer gets besides the view itself.
type ComponentData struct {
	Template rendertemplate.TemplateRenderer
	// ControlID is the DOM id the label points at.
	ControlID string
	Invalid   bool
	// Notice is the localised message for unsupported widgets.
	Notice string
	// ThemePartials maps partial keys (forms.input, ...) to theme templates.
	ThemePartials map[string]string
}

// Descriptor is a named control renderer plus the stylesheets it pulls into
// the page the first time it is used.
type Descriptor struct {
	Name        string
	Renderer    Renderer
	Stylesheets []string
}

// Registry owns the control renderers and decides which one draws each
// widget kind. Hidden variables always go to the hidden component.
type Registry struct {
	mu         sync.RWMutex
	components map[string]Descriptor
	bindings   map[form.WidgetKind]string
}

// New creates a registry with no components and no widget bindings.
func New() *Registry {
	return &Registry{
		components: make(map[string]Descriptor),
		bindings:   make(map[form.WidgetKind]string),
	}
}

// Register adds or replaces the component named by descriptor.Name.
func (r *Registry) Register(descriptor Descriptor) error {
	name := normalize(descriptor.Name)
	if name == "" {
		return errors.New("components: component name is required")
	}
	if descriptor.Renderer == nil {
		return fmt.Errorf("components: %q has no renderer", name)
	}
	descriptor.Name = name
	descriptor.Stylesheets = slices.Clone(descriptor.Stylesheets)

	r.mu.Lock()
	r.components[name] = descriptor
	r.mu.Unlock()
	return nil
}

// MustRegister panics when Register fails.
func (r *Registry) MustRegister(descriptor Descriptor) {
	if err := r.Register(descriptor); err != nil {
		panic(err)
	}
}

// Bind routes every visible variable of kind to the named component.
func (r *Registry) Bind(kind form.WidgetKind, name string) error {
	name = normalize(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.components[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownComponent, name)
	}
	r.bindings[kind] = name
	return nil
}

// Lookup returns the component registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	descriptor, ok := r.components[normalize(name)]
	if !ok {
		return Descriptor{}, false
	}
	descriptor.Stylesheets = slices.Clone(descriptor.Stylesheets)
	return descriptor, true
}

// Resolve picks the component for view. A non-empty override wins for
// visible variables. Kinds without a binding fall back to unsupported.
func (r *Registry) Resolve(view form.FieldView, override string) (Descriptor, error) {
	name := NameHidden
	if view.Visible {
		name = strings.TrimSpace(override)
		if name == "" {
			r.mu.RLock()
			bound, ok := r.bindings[view.Kind]
			r.mu.RUnlock()
			name = NameUnsupported
			if ok {
				name = bound
			}
		}
	}
	descriptor, ok := r.Lookup(name)
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q for variable %q", ErrUnknownComponent, name, view.Key)
	}
	return descriptor, nil
}

// Components lists registered component names, sorted.
func (r *Registry) Components() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Stylesheets collects the stylesheets of the named components without
// duplicates, keeping first-seen order. Unknown names are skipped.
func (r *Registry) Stylesheets(names []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for _, name := range names {
		for _, href := range r.components[normalize(name)].Stylesheets {
			if href != "" && !slices.Contains(out, href) {
				out = append(out, href)
			}
		}
	}
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
