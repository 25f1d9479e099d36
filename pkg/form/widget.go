package form

import "github.com/goliatone/go-runform/pkg/model"

// DefaultMaxLength caps single-line text inputs whose descriptor does not set
// a max length.
const DefaultMaxLength = 48

// WidgetKind names the rendering strategy for a descriptor.
type WidgetKind string

const (
	KindSelect      WidgetKind = "select"
	KindText        WidgetKind = "text"
	KindParagraph   WidgetKind = "paragraph"
	KindNumber      WidgetKind = "number"
	KindUnsupported WidgetKind = "unsupported"
)

// Widget is a closed sum over the supported input kinds. Only types in this
// package implement it.
type Widget interface {
	Kind() WidgetKind
	// Accept applies the widget's input affordance to a raw value. It returns
	// the value the widget would emit and whether the value is admissible.
	Accept(value string) (string, bool)
	isWidget()
}

// SelectWidget offers a closed choice over Options.
type SelectWidget struct {
	Options []string
}

// TextWidget is a single-line input capped at MaxLength characters.
type TextWidget struct {
	MaxLength int
}

// ParagraphWidget is a multi-line input without a length cap.
type ParagraphWidget struct{}

// NumberWidget is a numeric-oriented input. It performs no numeric validation.
type NumberWidget struct{}

// UnsupportedWidget stands in for descriptors whose type is not recognised.
// Renderers must surface it rather than omit the field.
type UnsupportedWidget struct {
	Type model.FieldType
}

func (SelectWidget) Kind() WidgetKind      { return KindSelect }
func (TextWidget) Kind() WidgetKind        { return KindText }
func (ParagraphWidget) Kind() WidgetKind   { return KindParagraph }
func (NumberWidget) Kind() WidgetKind      { return KindNumber }
func (UnsupportedWidget) Kind() WidgetKind { return KindUnsupported }

func (SelectWidget) isWidget()      {}
func (TextWidget) isWidget()        {}
func (ParagraphWidget) isWidget()   {}
func (NumberWidget) isWidget()      {}
func (UnsupportedWidget) isWidget() {}

// Accept admits the empty string (no choice) or one of the listed options.
func (w SelectWidget) Accept(value string) (string, bool) {
	if value == "" {
		return value, true
	}
	for _, option := range w.Options {
		if option == value {
			return value, true
		}
	}
	return value, false
}

// Accept truncates value to MaxLength runes, as a maxlength input would.
func (w TextWidget) Accept(value string) (string, bool) {
	if w.MaxLength <= 0 {
		return value, true
	}
	runes := []rune(value)
	if len(runes) <= w.MaxLength {
		return value, true
	}
	return string(runes[:w.MaxLength]), true
}

func (ParagraphWidget) Accept(value string) (string, bool)   { return value, true }
func (NumberWidget) Accept(value string) (string, bool)      { return value, true }
func (UnsupportedWidget) Accept(value string) (string, bool) { return value, false }

// Resolve selects the widget for desc. defaultMaxLength applies to text
// inputs without their own limit; values <= 0 fall back to DefaultMaxLength.
func Resolve(desc model.FieldDescriptor, defaultMaxLength int) Widget {
	switch desc.Type {
	case model.FieldTypeSelect:
		return SelectWidget{Options: append([]string(nil), desc.Options...)}
	case model.FieldTypeText:
		limit := desc.MaxLength
		if limit <= 0 {
			limit = defaultMaxLength
		}
		if limit <= 0 {
			limit = DefaultMaxLength
		}
		return TextWidget{MaxLength: limit}
	case model.FieldTypeParagraph:
		return ParagraphWidget{}
	case model.FieldTypeNumber:
		return NumberWidget{}
	default:
		return UnsupportedWidget{Type: desc.Type}
	}
}
