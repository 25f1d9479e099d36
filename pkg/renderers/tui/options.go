package tui

import "fmt"

// OutputFormat selects how a submitted snapshot is encoded.
type OutputFormat string

const (
	OutputFormatJSON           OutputFormat = "json"
	OutputFormatFormURLEncoded OutputFormat = "form"
	OutputFormatPrettyText     OutputFormat = "pretty"
)

// ParseOutputFormat maps a flag value onto a known format. Blank means JSON.
func ParseOutputFormat(raw string) (OutputFormat, error) {
	switch format := OutputFormat(raw); format {
	case "":
		return OutputFormatJSON, nil
	case OutputFormatJSON, OutputFormatFormURLEncoded, OutputFormatPrettyText:
		return format, nil
	default:
		return "", fmt.Errorf("tui: unknown output format %q", raw)
	}
}

// ContentType is the media type of snapshots encoded as f.
func (f OutputFormat) ContentType() string {
	switch f {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// Theme holds the markers put in front of questions, notes and problems.
// The zero Theme prints messages bare.
type Theme struct {
	PromptPrefix string
	InfoPrefix   string
	ErrorPrefix  string
}

// MarkedTheme tags each line so transcripts stay readable when stdout is
// captured alongside the prompts.
func MarkedTheme() Theme {
	return Theme{PromptPrefix: "> ", InfoPrefix: "- ", ErrorPrefix: "! "}
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithPromptDriver replaces the survey driver. Nil keeps the current one.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Renderer) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithOutputFormat sets the snapshot encoding. New rejects unknown formats.
func WithOutputFormat(format OutputFormat) Option {
	return func(r *Renderer) {
		if format != "" {
			r.outputFormat = format
		}
	}
}

// WithTheme sets the message markers.
func WithTheme(theme Theme) Option {
	return func(r *Renderer) { r.theme = theme }
}
