package form

import (
	"strings"

	"github.com/goliatone/go-runform/pkg/model"
)

// FieldView is the render-ready view of one descriptor.
type FieldView struct {
	Key         string          `json:"key"`
	Label       string          `json:"label"`
	Type        model.FieldType `json:"type"`
	Kind        WidgetKind      `json:"kind"`
	Value       string          `json:"value"`
	Placeholder string          `json:"placeholder,omitempty"`
	Description string          `json:"description,omitempty"`
	Required    bool            `json:"required"`
	Visible     bool            `json:"visible"`
	MaxLength   int             `json:"maxLength,omitempty"`
	Options     []string        `json:"options,omitempty"`
	Widget      Widget          `json:"-"`
}

// Supported reports whether the view resolved to a known widget.
func (v FieldView) Supported() bool {
	return v.Kind != KindUnsupported
}

// LayoutOptions customises view construction.
type LayoutOptions struct {
	// OptionalLabel is appended in parentheses to placeholders of optional
	// fields. Defaults to "optional".
	OptionalLabel string
}

// Layout returns one view per descriptor in declaration order. Hidden
// descriptors are included with Visible=false so renderers can still carry
// their values.
func (c Controller) Layout(opts LayoutOptions) []FieldView {
	views := make([]FieldView, 0, len(c.Descriptors))
	for _, desc := range c.Descriptors {
		widget := Resolve(desc, c.DefaultMaxLength)
		view := FieldView{
			Key:         desc.Key,
			Label:       desc.Name,
			Type:        desc.Type,
			Kind:        widget.Kind(),
			Value:       c.Values.Get(desc.Key),
			Description: desc.Description,
			Required:    desc.Required,
			Visible:     desc.Visible,
			Widget:      widget,
		}
		switch w := widget.(type) {
		case SelectWidget:
			view.Options = w.Options
		case TextWidget:
			view.MaxLength = w.MaxLength
			view.Placeholder = Placeholder(desc, opts.OptionalLabel)
		case ParagraphWidget, NumberWidget:
			view.Placeholder = Placeholder(desc, opts.OptionalLabel)
		}
		views = append(views, view)
	}
	return views
}

// VisibleLabels returns the labels of visible descriptors in order.
func VisibleLabels(views []FieldView) []string {
	var labels []string
	for _, view := range views {
		if view.Visible {
			labels = append(labels, view.Label)
		}
	}
	return labels
}

// Placeholder renders "Name" for required fields and "Name(optional)" for the
// rest.
func Placeholder(desc model.FieldDescriptor, optionalLabel string) string {
	if desc.Required {
		return desc.Name
	}
	optionalLabel = strings.TrimSpace(optionalLabel)
	if optionalLabel == "" {
		optionalLabel = "optional"
	}
	return desc.Name + "(" + optionalLabel + ")"
}
