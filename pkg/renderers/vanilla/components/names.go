package components

import "github.com/goliatone/go-runform/pkg/form"

// Built-in component names.
const (
	NameInput       = "input"
	NameTextarea    = "textarea"
	NameSelect      = "select"
	NameNumber      = "number"
	NameHidden      = "hidden"
	NameUnsupported = "unsupported"
)

// defaultBindings is the widget routing installed by NewDefaultRegistry.
var defaultBindings = map[form.WidgetKind]string{
	form.KindSelect:    NameSelect,
	form.KindText:      NameInput,
	form.KindParagraph: NameTextarea,
	form.KindNumber:    NameNumber,
}
