package vanilla

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-runform/pkg/form"
	"github.com/goliatone/go-runform/pkg/model"
	"github.com/goliatone/go-runform/pkg/render"
	rendertemplate "github.com/goliatone/go-runform/pkg/render/template"
	gotemplate "github.com/goliatone/go-runform/pkg/render/template/gotemplate"
	"github.com/goliatone/go-runform/pkg/renderers/vanilla/components"
	"github.com/goliatone/go-runform/pkg/vision"
)

const (
	formTemplate        = "templates/form.tmpl"
	attachmentsTemplate = "templates/components/attachments.tmpl"
)

// Template engines New can build over the template bundle.
const (
	EnginePongo2     = "pongo2"
	EngineGoTemplate = "go-template"
)

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	engine           string
	registry         *components.Registry
	overrides        map[string]string
	inlineStyles     bool
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithTemplateEngine picks the engine built over the template bundle when no
// renderer is injected. Blank keeps the pongo2 default.
func WithTemplateEngine(name string) Option {
	return func(cfg *config) {
		cfg.engine = strings.ToLower(strings.TrimSpace(name))
	}
}

// WithComponentRegistry replaces the default component registry.
func WithComponentRegistry(registry *components.Registry) Option {
	return func(cfg *config) {
		if registry != nil {
			cfg.registry = registry
		}
	}
}

// WithComponentOverride renders the variable key with a named component
// instead of the one its widget resolves to.
func WithComponentOverride(key, component string) Option {
	return func(cfg *config) {
		key = strings.TrimSpace(key)
		if key == "" || strings.TrimSpace(component) == "" {
			return
		}
		if cfg.overrides == nil {
			cfg.overrides = make(map[string]string)
		}
		cfg.overrides[key] = component
	}
}

// WithInlineStyles embeds the default stylesheet in the rendered form.
func WithInlineStyles(enabled bool) Option {
	return func(cfg *config) {
		cfg.inlineStyles = enabled
	}
}

// Renderer emits a server-rendered HTML form.
type Renderer struct {
	templates    rendertemplate.TemplateRenderer
	registry     *components.Registry
	overrides    map[string]string
	inlineStyles bool
}

// New constructs the vanilla renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}

	renderer := cfg.templateRenderer
	if renderer == nil {
		engine, err := newTemplateEngine(cfg.engine, cfg.templateFS)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}

	registry := cfg.registry
	if registry == nil {
		registry = components.NewDefaultRegistry()
	}

	return &Renderer{
		templates:    renderer,
		registry:     registry,
		overrides:    cfg.overrides,
		inlineStyles: cfg.inlineStyles,
	}, nil
}

func newTemplateEngine(name string, files fs.FS) (rendertemplate.TemplateRenderer, error) {
	options := []gotemplate.Option{
		gotemplate.WithFS(files),
		gotemplate.WithExtension(".tmpl"),
	}
	switch name {
	case "", EnginePongo2:
		return gotemplate.New(options...)
	case EngineGoTemplate:
		return gotemplate.NewGoTemplate(options...)
	default:
		return nil, fmt.Errorf("unknown template engine %q", name)
	}
}

func (r *Renderer) Name() string {
	return "vanilla"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

func (r *Renderer) Render(ctx context.Context, f model.Form, opts render.RenderOptions) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("vanilla renderer: template renderer is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	localized := f
	localized.Variables = slices.Clone(f.Variables)
	render.LocalizeForm(&localized, opts)

	labels := render.ResolveLabels(opts)
	controller := form.Controller{
		Descriptors:      localized.Variables,
		Values:           opts.Values,
		DefaultMaxLength: opts.DefaultMaxLength,
	}
	views := controller.Layout(form.LayoutOptions{OptionalLabel: labels.Optional})

	var partials map[string]string
	if opts.Theme != nil {
		partials = opts.Theme.Partials
	}
	fields := newComponentRenderer(r.templates, r.registry, r.overrides, partials)

	rendered := make([]string, 0, len(views))
	for _, view := range views {
		notice := ""
		if !view.Supported() {
			notice = render.UnsupportedNotice(opts, view.Type)
		}
		markup, err := fields.render(view, opts.Errors[view.Key], notice)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: %w", err)
		}
		rendered = append(rendered, markup)
	}

	attachments, err := r.renderAttachments(localized.Vision, opts.Attachments, labels)
	if err != nil {
		return nil, err
	}

	method := strings.ToLower(strings.TrimSpace(opts.Method))
	if method == "" {
		method = "post"
	}

	hidden := make([]map[string]any, 0, len(opts.HiddenFields))
	for _, field := range render.SortedHiddenFields(opts.HiddenFields) {
		hidden = append(hidden, map[string]any{"name": field.Name, "value": field.Value})
	}

	stylesheet := ""
	if r.inlineStyles {
		stylesheet = defaultStylesheet()
	}

	data := map[string]any{
		"form": map[string]any{
			"id":          localized.ID,
			"title":       localized.Title,
			"description": localized.Description,
		},
		"form_id":        formDOMID(localized.ID),
		"action":         opts.Action,
		"method":         method,
		"vision_enabled": localized.Vision.Enabled,
		"classes":        chromeClasses(),
		"labels": map[string]any{
			"clear": labels.Clear,
			"run":   labels.Run,
		},
		"form_errors":   stringsToAny(opts.FormErrors),
		"hidden_fields": hidden,
		"fields":        stringsToAny(rendered),
		"has_variables": len(views) > 0,
		"attachments":   attachments,
		"theme":         themeContext(opts.Theme),
		"stylesheet":    stylesheet,
		"stylesheets":   stringsToAny(fields.stylesheets()),
		"locale":        opts.Locale,
	}
	for name, fn := range render.TemplateI18nFuncs(opts.Translator, opts.OnMissing) {
		data[name] = fn
	}

	result, err := r.templates.RenderTemplate(formTemplate, data)
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render template: %w", err)
	}
	return []byte(result), nil
}

func (r *Renderer) renderAttachments(settings vision.Settings, current []vision.Attachment, labels render.Labels) (string, error) {
	if !settings.Enabled {
		return "", nil
	}
	files := make([]map[string]any, 0, len(current))
	for _, attachment := range current {
		files = append(files, map[string]any{
			"transfer_method": string(attachment.TransferMethod),
			"url":             attachment.URL,
			"upload_file_id":  attachment.UploadFileID,
		})
	}
	result, err := r.templates.RenderTemplate(attachmentsTemplate, map[string]any{
		"classes":      chromeClasses(),
		"label":        labels.ImageUpload,
		"limit":        settings.NumberLimits,
		"size_limit":   settings.ImageFileSizeLimitMB,
		"multiple":     settings.NumberLimits != 1,
		"allow_local":  settings.Allows(vision.TransferMethodLocalFile),
		"allow_remote": settings.Allows(vision.TransferMethodRemoteURL),
		"files":        files,
	})
	if err != nil {
		return "", fmt.Errorf("vanilla renderer: render attachments: %w", err)
	}
	return strings.TrimSpace(result), nil
}

func themeContext(cfg *theme.RendererConfig) map[string]any {
	if cfg == nil {
		return map[string]any{}
	}
	return map[string]any{
		"name":    cfg.Theme,
		"variant": cfg.Variant,
		"style":   cssVarsStyle(cfg.CSSVars),
	}
}

func cssVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	normalized := make(map[string]string, len(vars))
	for key, value := range vars {
		name := strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			continue
		}
		if !strings.HasPrefix(name, "--") {
			name = "--" + name
		}
		normalized[name] = value
	}
	keys := make([]string, 0, len(normalized))
	for key := range normalized {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+normalized[key]+";")
	}
	return strings.Join(parts, " ")
}

func formDOMID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return "runform"
	}
	return "runform-" + id
}

func stringsToAny(in []string) []any {
	out := make([]any, 0, len(in))
	for _, item := range in {
		out = append(out, item)
	}
	return out
}
