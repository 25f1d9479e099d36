// Package model defines the typed prompt-variable model consumed by the form
// controller and renderers. Builders live in internal/model but return the
// types re-exported here.
//
// A FieldDescriptor carries an explicit Visible flag. Older configurations
// that marked hidden variables with a "_hidden" key suffix are translated by
// the builder; the key itself is never rewritten so values keep flowing under
// the same name.
package model
