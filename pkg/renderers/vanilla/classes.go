package vanilla

// ChromeClass is a typed identifier for semantic chrome CSS classes.
type ChromeClass string

const (
	ClassForm        ChromeClass = "runform-form"
	ClassHeader      ChromeClass = "runform-header"
	ClassField       ChromeClass = "runform-field"
	ClassLabel       ChromeClass = "runform-label"
	ClassRequired    ChromeClass = "runform-required"
	ClassDescription ChromeClass = "runform-description"
	ClassFieldErrors ChromeClass = "runform-field-errors"
	ClassErrors      ChromeClass = "runform-errors"
	ClassDivider     ChromeClass = "runform-divider"
	ClassActions     ChromeClass = "runform-actions"
	ClassPrimary     ChromeClass = "runform-button-primary"
)

func chromeClasses() map[string]any {
	return map[string]any{
		"form":    string(ClassForm),
		"header":  string(ClassHeader),
		"field":   string(ClassField),
		"label":   string(ClassLabel),
		"errors":  string(ClassErrors),
		"divider": string(ClassDivider),
		"actions": string(ClassActions),
		"primary": string(ClassPrimary),
	}
}
