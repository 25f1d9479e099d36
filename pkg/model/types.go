package model

import internalmodel "github.com/goliatone/go-runform/internal/model"

// FieldType re-exports the internal FieldType enumeration.
type FieldType = internalmodel.FieldType

const (
	FieldTypeSelect    = internalmodel.FieldTypeSelect
	FieldTypeText      = internalmodel.FieldTypeText
	FieldTypeParagraph = internalmodel.FieldTypeParagraph
	FieldTypeNumber    = internalmodel.FieldTypeNumber
)

const LegacyHiddenSuffix = internalmodel.LegacyHiddenSuffix

type FieldDescriptor = internalmodel.FieldDescriptor
type Values = internalmodel.Values
type Form = internalmodel.Form
type RawVariable = internalmodel.RawVariable
type InputFormEntry = internalmodel.InputFormEntry

var (
	ErrEmptyKey         = internalmodel.ErrEmptyKey
	ErrDuplicateKey     = internalmodel.ErrDuplicateKey
	ErrUnknownFieldType = internalmodel.ErrUnknownFieldType
)

// NormalizeFieldType resolves configuration aliases onto the closed set.
func NormalizeFieldType(raw string) (FieldType, bool) {
	return internalmodel.NormalizeFieldType(raw)
}

// FlattenInputForm converts keyed user_input_form entries into raw variables.
func FlattenInputForm(entries []InputFormEntry) []RawVariable {
	return internalmodel.FlattenInputForm(entries)
}
