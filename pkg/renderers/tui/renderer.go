package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-runform/pkg/form"
	"github.com/goliatone/go-runform/pkg/model"
	"github.com/goliatone/go-runform/pkg/render"
	"github.com/goliatone/go-runform/pkg/vision"
)

const (
	noneOption   = "(none)"
	cancelOption = "Cancel"
)

// Submission is the snapshot produced when the user chooses run.
type Submission struct {
	Inputs model.Values        `json:"inputs"`
	Files  []vision.Attachment `json:"files,omitempty"`
}

// Renderer implements render.Renderer for terminal-driven sessions: it
// prompts each visible variable, then offers run, clear, or cancel.
type Renderer struct {
	driver       PromptDriver
	outputFormat OutputFormat
	theme        Theme
}

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		driver:       newSurveyDriver(),
		outputFormat: OutputFormatJSON,
	}

	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}

	format, err := ParseOutputFormat(string(r.outputFormat))
	if err != nil {
		return nil, err
	}
	r.outputFormat = format

	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// ContentType reports the media type Render produces.
func (r *Renderer) ContentType() string {
	return r.outputFormat.ContentType()
}

// Render runs the prompt session and serializes the submitted snapshot.
func (r *Renderer) Render(ctx context.Context, f model.Form, opts render.RenderOptions) ([]byte, error) {
	submission, err := r.Run(ctx, f, opts)
	if err != nil {
		return nil, err
	}
	return r.Encode(submission)
}

// Run prompts every visible variable in order, collects attachments when the
// form enables them, and loops on the action prompt until the user runs or
// cancels. Clear resets every value and prompts again.
func (r *Renderer) Run(ctx context.Context, f model.Form, opts render.RenderOptions) (Submission, error) {
	if ctx == nil {
		return Submission{}, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return Submission{}, err
	}
	if r.driver == nil {
		return Submission{}, ErrNoDriver
	}

	localized := f
	localized.Variables = slices.Clone(f.Variables)
	render.LocalizeForm(&localized, opts)
	labels := render.ResolveLabels(opts)

	submitted := false
	ctrl := form.Controller{
		Descriptors:      localized.Variables,
		Values:           opts.Values.Clone(),
		DefaultMaxLength: opts.DefaultMaxLength,
	}
	ctrl.OnValuesChange = func(next model.Values) { ctrl.Values = next }
	ctrl.OnSubmit = func() { submitted = true }

	attachments := slices.Clone(opts.Attachments)
	uploader := vision.NewUploader(vision.Control{
		Settings:      localized.Vision,
		OnFilesChange: func(next []vision.Attachment) { attachments = next },
	})

	if title := strings.TrimSpace(localized.Title); title != "" {
		if err := r.info(ctx, title); err != nil {
			return Submission{}, err
		}
	}

	for {
		for _, view := range ctrl.Layout(form.LayoutOptions{OptionalLabel: labels.Optional}) {
			if err := r.promptView(ctx, &ctrl, view, opts); err != nil {
				return Submission{}, err
			}
		}
		if err := r.promptAttachments(ctx, localized.Vision, uploader, labels); err != nil {
			return Submission{}, err
		}

		choice, err := r.driver.Select(ctx, SelectConfig{
			Message:      r.theme.PromptPrefix + labels.Run + "?",
			Options:      []string{labels.Run, labels.Clear, cancelOption},
			DefaultIndex: 0,
		})
		if err != nil {
			return Submission{}, err
		}
		switch choice {
		case 0:
			ctrl.Submit()
		case 1:
			ctrl.Reset()
			uploader.Clear()
			continue
		default:
			return Submission{}, ErrAborted
		}
		if submitted {
			break
		}
	}

	return Submission{Inputs: ctrl.Values, Files: attachments}, nil
}

func (r *Renderer) promptView(ctx context.Context, ctrl *form.Controller, view form.FieldView, opts render.RenderOptions) error {
	if !view.Visible {
		return nil
	}
	if !view.Supported() {
		return r.info(ctx, r.theme.ErrorPrefix+view.Label+": "+render.UnsupportedNotice(opts, view.Type))
	}

	message := r.theme.PromptPrefix + view.Placeholder
	if view.Kind == form.KindSelect {
		message = r.theme.PromptPrefix + view.Label
	}
	help := view.Description
	if errs := opts.Errors[view.Key]; len(errs) > 0 {
		help = strings.Join(errs, "; ")
	}

	var (
		value string
		err   error
	)
	switch w := view.Widget.(type) {
	case form.SelectWidget:
		value, err = r.promptSelect(ctx, message, help, view, w)
	case form.TextWidget:
		value, err = r.driver.Input(ctx, InputConfig{
			Message:   message,
			Default:   view.Value,
			Help:      help,
			Validator: maxRunes(w.MaxLength),
		})
	case form.ParagraphWidget:
		value, err = r.driver.TextArea(ctx, TextAreaConfig{
			Message: message,
			Default: view.Value,
			Help:    help,
		})
	case form.NumberWidget:
		value, err = r.driver.Input(ctx, InputConfig{
			Message:   message,
			Default:   view.Value,
			Help:      help,
			Validator: numeric,
		})
	default:
		return nil
	}
	if err != nil {
		return err
	}
	if err := ctrl.Change(view.Key, value); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func (r *Renderer) promptSelect(ctx context.Context, message, help string, view form.FieldView, w form.SelectWidget) (string, error) {
	options := make([]string, 0, len(w.Options)+1)
	options = append(options, noneOption)
	options = append(options, w.Options...)

	defaultIndex := 0
	if idx := indexOf(w.Options, view.Value); idx >= 0 {
		defaultIndex = idx + 1
	}
	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      message,
		Options:      options,
		DefaultIndex: defaultIndex,
		Help:         help,
	})
	if err != nil {
		return "", err
	}
	if idx <= 0 || idx >= len(options) {
		return "", nil
	}
	return options[idx], nil
}

// promptAttachments collects remote image URLs until the user enters a blank
// line or the configured limit is reached. Local files need a browser upload
// and are left to the HTML host.
func (r *Renderer) promptAttachments(ctx context.Context, settings vision.Settings, uploader *vision.Uploader, labels render.Labels) error {
	if !settings.Enabled || !settings.Allows(vision.TransferMethodRemoteURL) {
		return nil
	}
	for {
		raw, err := r.driver.Input(ctx, InputConfig{
			Message: r.theme.PromptPrefix + labels.ImageUpload + " (URL)",
			Help:    "Leave blank to continue",
		})
		if err != nil {
			return err
		}
		link := strings.TrimSpace(raw)
		if link == "" {
			return nil
		}
		if _, err := uploader.Begin(vision.TransferMethodRemoteURL, "", link); err != nil {
			if errors.Is(err, vision.ErrLimitReached) {
				return r.info(ctx, r.theme.ErrorPrefix+err.Error())
			}
			return fmt.Errorf("tui: %w", err)
		}
	}
}

func (r *Renderer) info(ctx context.Context, msg string) error {
	return r.driver.Info(ctx, r.theme.InfoPrefix+msg)
}

// Encode serializes submission in the configured output format.
func (r *Renderer) Encode(submission Submission) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(encodeForm(submission)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(submission)), nil
	default:
		if submission.Inputs == nil {
			submission.Inputs = model.Values{}
		}
		return json.Marshal(submission)
	}
}

func maxRunes(limit int) func(string) error {
	return func(value string) error {
		if limit > 0 && utf8.RuneCountInString(value) > limit {
			return fmt.Errorf("must be at most %d characters", limit)
		}
		return nil
	}
}

func numeric(value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
		return fmt.Errorf("%q is not a number", value)
	}
	return nil
}

func encodeForm(submission Submission) string {
	values := url.Values{}
	for key, value := range submission.Inputs {
		values.Set(key, value)
	}
	for _, file := range submission.Files {
		if file.UploadFileID != "" {
			values.Add("files[]", file.UploadFileID)
			continue
		}
		values.Add("files[]", file.URL)
	}
	return values.Encode()
}

func prettyPrint(submission Submission) string {
	keys := make([]string, 0, len(submission.Inputs))
	for key := range submission.Inputs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "%s=%s\n", key, submission.Inputs[key])
	}
	for idx, file := range submission.Files {
		fmt.Fprintf(&b, "files[%d]=%s %s\n", idx, file.TransferMethod, firstNonEmpty(file.URL, file.UploadFileID))
	}
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
