// Package form implements the dynamic field form: it resolves each prompt
// variable to a widget, mirrors edits into a caller-owned value map and
// exposes reset and submit actions. The package holds no state beyond what
// the caller passes in; every change is delivered as a complete replacement
// map through OnValuesChange.
package form
