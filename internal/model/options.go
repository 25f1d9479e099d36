package model

// LegacyHiddenSuffix marks a variable as hidden in older configurations. The
// builder converts it into Visible=false and leaves the key untouched.
const LegacyHiddenSuffix = "_hidden"

// Options configures the behaviour of the Builder. Options are constructed by
// the public adapter in pkg/model and passed into New.
type Options struct {
	Labeler           func(string) string
	AllowUnknownTypes bool
	HiddenSuffix      string
}

func defaultOptions() Options {
	return Options{
		Labeler:      DefaultLabeler,
		HiddenSuffix: LegacyHiddenSuffix,
	}
}
