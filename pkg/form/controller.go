package form

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-runform/pkg/model"
)

var (
	ErrUnknownField      = errors.New("form: unknown field")
	ErrUnsupportedWidget = errors.New("form: unsupported field type")
	ErrOptionNotAllowed  = errors.New("form: value is not one of the field options")
)

// Controller binds descriptors and the current value map to the caller's
// callbacks. It is a value type: it never stores the maps it produces, so
// callers pass the latest Values on every use.
type Controller struct {
	Descriptors      []model.FieldDescriptor
	Values           model.Values
	OnValuesChange   func(model.Values)
	OnSubmit         func()
	DefaultMaxLength int
}

// Change applies a widget edit to key and forwards the full replacement map.
// Inputs a widget could not have produced (unknown keys, options outside a
// select, unsupported types) are rejected without invoking OnValuesChange.
func (c Controller) Change(key, value string) error {
	desc, ok := c.descriptor(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}

	widget := Resolve(desc, c.DefaultMaxLength)
	accepted, ok := widget.Accept(value)
	if !ok {
		if widget.Kind() == KindUnsupported {
			return fmt.Errorf("%w %q for %q", ErrUnsupportedWidget, desc.Type, key)
		}
		return fmt.Errorf("%w: %q for %q", ErrOptionNotAllowed, value, key)
	}

	c.emit(Edit(c.Values, key, accepted))
	return nil
}

// Reset forwards a map with every descriptor key cleared. It never submits.
func (c Controller) Reset() {
	c.emit(Reset(c.Descriptors))
}

// Submit triggers OnSubmit. Values are neither transformed nor validated.
func (c Controller) Submit() {
	if c.OnSubmit != nil {
		c.OnSubmit()
	}
}

func (c Controller) emit(next model.Values) {
	if c.OnValuesChange != nil {
		c.OnValuesChange(next)
	}
}

func (c Controller) descriptor(key string) (model.FieldDescriptor, bool) {
	for _, desc := range c.Descriptors {
		if desc.Key == key {
			return desc, true
		}
	}
	return model.FieldDescriptor{}, false
}
