package model

import "github.com/goliatone/go-runform/internal/model"

// Builder converts raw configuration into field descriptors.
type Builder interface {
	Build(raw []RawVariable) ([]FieldDescriptor, error)
}

// BuilderOption configures the builder behaviour.
type BuilderOption func(*model.Options)

// WithLabeler overrides the label derived for variables without a name.
func WithLabeler(labeler func(string) string) BuilderOption {
	return func(opts *model.Options) {
		opts.Labeler = labeler
	}
}

// WithAllowUnknownTypes keeps variables whose type is outside the supported
// set instead of failing the build. Renderers show them as unsupported.
func WithAllowUnknownTypes() BuilderOption {
	return func(opts *model.Options) {
		opts.AllowUnknownTypes = true
	}
}

// WithHiddenSuffix changes the legacy key suffix that marks a variable hidden.
func WithHiddenSuffix(suffix string) BuilderOption {
	return func(opts *model.Options) {
		opts.HiddenSuffix = suffix
	}
}

// NewBuilder returns a Builder backed by the internal implementation.
func NewBuilder(options ...BuilderOption) Builder {
	cfg := model.Options{}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	return model.New(cfg)
}
