// Package jsonview renders a form layout as JSON so single-page clients can
// draw their own widgets while keeping the same dispatch, labels, and
// placeholders as the HTML renderer.
package jsonview

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/goliatone/go-runform/pkg/form"
	"github.com/goliatone/go-runform/pkg/model"
	"github.com/goliatone/go-runform/pkg/render"
	"github.com/goliatone/go-runform/pkg/vision"
)

// Document is the serialised layout.
type Document struct {
	ID           string              `json:"id"`
	Title        string              `json:"title,omitempty"`
	Description  string              `json:"description,omitempty"`
	Fields       []Field             `json:"fields"`
	Labels       render.Labels       `json:"labels"`
	Vision       *VisionView         `json:"vision,omitempty"`
	Errors       map[string][]string `json:"errors,omitempty"`
	FormErrors   []string            `json:"formErrors,omitempty"`
	HiddenFields map[string]string   `json:"hiddenFields,omitempty"`
	Action       string              `json:"action,omitempty"`
}

// Field wraps a form.FieldView with the notice shown for unsupported widgets.
type Field struct {
	form.FieldView
	Notice string `json:"notice,omitempty"`
}

// VisionView describes the attachment control when enabled.
type VisionView struct {
	Settings    vision.Settings     `json:"settings"`
	Attachments []vision.Attachment `json:"attachments"`
}

// Option configures the renderer.
type Option func(*Renderer)

// WithIndent pretty-prints the output.
func WithIndent(indent string) Option {
	return func(r *Renderer) {
		r.indent = indent
	}
}

// Renderer implements render.Renderer with JSON output.
type Renderer struct {
	indent string
}

// New constructs the renderer.
func New(options ...Option) *Renderer {
	r := &Renderer{}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Renderer) Name() string {
	return "json"
}

func (r *Renderer) ContentType() string {
	return "application/json"
}

// Build returns the document without encoding it.
func (r *Renderer) Build(f model.Form, opts render.RenderOptions) Document {
	localized := f
	localized.Variables = slices.Clone(f.Variables)
	render.LocalizeForm(&localized, opts)
	labels := render.ResolveLabels(opts)

	ctrl := form.Controller{
		Descriptors:      localized.Variables,
		Values:           opts.Values,
		DefaultMaxLength: opts.DefaultMaxLength,
	}
	views := ctrl.Layout(form.LayoutOptions{OptionalLabel: labels.Optional})
	fields := make([]Field, 0, len(views))
	for _, view := range views {
		field := Field{FieldView: view}
		if !view.Supported() {
			field.Notice = render.UnsupportedNotice(opts, view.Type)
		}
		fields = append(fields, field)
	}

	doc := Document{
		ID:           localized.ID,
		Title:        localized.Title,
		Description:  localized.Description,
		Fields:       fields,
		Labels:       labels,
		Errors:       opts.Errors,
		FormErrors:   opts.FormErrors,
		HiddenFields: render.MergeHiddenFields(opts.HiddenFields),
		Action:       opts.Action,
	}
	if localized.Vision.Enabled {
		attachments := opts.Attachments
		if attachments == nil {
			attachments = []vision.Attachment{}
		}
		doc.Vision = &VisionView{Settings: localized.Vision, Attachments: attachments}
	}
	return doc
}

func (r *Renderer) Render(ctx context.Context, f model.Form, opts render.RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc := r.Build(f, opts)

	var (
		out []byte
		err error
	)
	if r.indent != "" {
		out, err = json.MarshalIndent(doc, "", r.indent)
	} else {
		out, err = json.Marshal(doc)
	}
	if err != nil {
		return nil, fmt.Errorf("jsonview: encode: %w", err)
	}
	return out, nil
}
