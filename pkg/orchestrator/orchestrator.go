package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/goliatone/go-runform/pkg/config"
	"github.com/goliatone/go-runform/pkg/model"
	"github.com/goliatone/go-runform/pkg/openapi"
	"github.com/goliatone/go-runform/pkg/render"
	"github.com/goliatone/go-runform/pkg/renderers/jsonview"
	"github.com/goliatone/go-runform/pkg/renderers/vanilla"
)

const defaultRendererName = "vanilla"

// ErrNoForm is returned when a request names no form, config id, or operation.
var ErrNoForm = errors.New("orchestrator: request does not identify a form")

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithStore injects the config store used for FormID lookups.
func WithStore(store *config.Store) Option {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithOpenAPILoader injects the loader used for Source requests.
func WithOpenAPILoader(loader *openapi.Loader) Option {
	return func(o *Orchestrator) {
		o.loader = loader
	}
}

// WithOpenAPIOptions forwards parser options to the OpenAPI mapping.
func WithOpenAPIOptions(options ...openapi.Option) Option {
	return func(o *Orchestrator) {
		o.openapiOptions = append(o.openapiOptions, options...)
	}
}

// WithRegistry injects a renderer registry.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithDefaultRenderer overrides the renderer used when a request omits an
// explicit Renderer field.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) {
		o.defaultRenderer = name
	}
}

// WithTransformer registers a Transformer that runs on every resolved form
// before decorators.
func WithTransformer(t Transformer) Option {
	return func(o *Orchestrator) {
		o.transformer = t
	}
}

// WithDecorators registers decorators that run against the resolved form
// before rendering.
func WithDecorators(decorators ...model.Decorator) Option {
	return func(o *Orchestrator) {
		o.decorators = append(o.decorators, decorators...)
	}
}

// WithLogger sets the logger. Nil keeps the no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHTMLOptions configures the default vanilla renderer. It has no effect
// when WithRegistry supplies the renderers.
func WithHTMLOptions(options ...vanilla.Option) Option {
	return func(o *Orchestrator) {
		o.htmlOptions = append(o.htmlOptions, options...)
	}
}

// Orchestrator resolves a form from one of its sources and renders it. It
// applies defaults (empty store, vanilla and json renderers) while remaining
// open to dependency injection.
type Orchestrator struct {
	store           *config.Store
	loader          *openapi.Loader
	openapiOptions  []openapi.Option
	registry        *render.Registry
	htmlOptions     []vanilla.Option
	defaultRenderer string
	transformer     Transformer
	decorators      []model.Decorator
	logger          *zap.Logger
	initialiseErr   error
}

// New constructs an Orchestrator applying any provided options.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultRenderer: defaultRendererName,
		logger:          zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

// Request describes which form to render and how.
type Request struct {
	// Form renders an explicit configuration and takes precedence.
	Form *model.Form

	// FormID looks the form up in the config store.
	FormID string

	// Source and Document select an OpenAPI document; OperationID picks the
	// operation whose request body becomes the form.
	Source      openapi.Source
	Document    []byte
	OperationID string

	// Renderer names the renderer to use. Empty falls back to the default.
	Renderer string

	// RenderOptions carries values, errors, hidden fields and theme data.
	RenderOptions render.RenderOptions
}

// Generate resolves the requested form and renders it.
func (o *Orchestrator) Generate(ctx context.Context, req Request) ([]byte, error) {
	f, err := o.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	renderer, err := o.Renderer(req.Renderer)
	if err != nil {
		return nil, err
	}

	output, err := renderer.Render(ctx, f, req.RenderOptions)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: render output: %w", err)
	}
	o.logger.Debug("form rendered",
		zap.String("form", f.ID),
		zap.String("renderer", renderer.Name()),
		zap.Int("bytes", len(output)),
	)
	return output, nil
}

// Resolve returns the form a request refers to after transformers and
// decorators have run. The returned form never aliases stored state.
func (o *Orchestrator) Resolve(ctx context.Context, req Request) (model.Form, error) {
	if ctx == nil {
		return model.Form{}, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return model.Form{}, err
	}
	if err := o.initialiseErr; err != nil {
		return model.Form{}, err
	}

	f, err := o.resolveForm(ctx, req)
	if err != nil {
		return model.Form{}, err
	}

	if o.transformer != nil {
		if err := o.transformer.Transform(ctx, &f); err != nil {
			return model.Form{}, fmt.Errorf("orchestrator: transform form: %w", err)
		}
	}
	for _, decorator := range o.decorators {
		if decorator == nil {
			continue
		}
		if err := decorator.Decorate(&f); err != nil {
			return model.Form{}, fmt.Errorf("orchestrator: decorate form: %w", err)
		}
	}
	return f, nil
}

func (o *Orchestrator) resolveForm(ctx context.Context, req Request) (model.Form, error) {
	switch {
	case req.Form != nil:
		f := *req.Form
		f.Variables = slices.Clone(req.Form.Variables)
		return f, nil
	case req.FormID != "":
		f, err := o.store.Lookup(req.FormID)
		if err != nil {
			return model.Form{}, fmt.Errorf("orchestrator: %w", err)
		}
		return f, nil
	case req.OperationID != "":
		raw, err := o.document(ctx, req)
		if err != nil {
			return model.Form{}, err
		}
		f, err := openapi.Form(ctx, raw, req.OperationID, o.openapiOptions...)
		if err != nil {
			return model.Form{}, fmt.Errorf("orchestrator: %w", err)
		}
		return f, nil
	default:
		return model.Form{}, ErrNoForm
	}
}

func (o *Orchestrator) document(ctx context.Context, req Request) ([]byte, error) {
	if len(req.Document) > 0 {
		return req.Document, nil
	}
	if req.Source == nil {
		return nil, errors.New("orchestrator: source or document is required")
	}
	raw, err := o.loader.Load(ctx, req.Source)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load document: %w", err)
	}
	o.logger.Debug("openapi document loaded",
		zap.String("source", req.Source.Location()),
		zap.String("kind", string(req.Source.Kind())),
	)
	return raw, nil
}

// Renderer returns the named renderer, the default when name is empty, or the
// first registered renderer when no default is available.
func (o *Orchestrator) Renderer(name string) (render.Renderer, error) {
	if o.registry == nil {
		return nil, errors.New("orchestrator: renderer registry is nil")
	}

	target := name
	if target == "" {
		target = o.defaultRenderer
	}

	if target != "" {
		renderer, err := o.registry.Get(target)
		if err == nil {
			return renderer, nil
		}
		if name != "" {
			return nil, fmt.Errorf("orchestrator: renderer %q: %w", name, err)
		}
	}

	names := o.registry.List()
	if len(names) == 0 {
		return nil, errors.New("orchestrator: no renderers registered")
	}
	return o.registry.Get(names[0])
}

// RendererFor prefers an explicit name, then the renderer negotiated from an
// HTTP Accept header, then the default.
func (o *Orchestrator) RendererFor(name, accept string) (render.Renderer, error) {
	if name == "" && o.registry != nil {
		if renderer, ok := o.registry.Negotiate(accept); ok {
			return renderer, nil
		}
	}
	return o.Renderer(name)
}

// Renderers lists the registered renderer names.
func (o *Orchestrator) Renderers() []string {
	if o.registry == nil {
		return nil
	}
	return o.registry.List()
}

// Forms lists the ids held by the config store.
func (o *Orchestrator) Forms() []string {
	return o.store.IDs()
}

// Store exposes the config store backing FormID lookups.
func (o *Orchestrator) Store() *config.Store {
	return o.store
}

func (o *Orchestrator) applyDefaults() {
	if o.store == nil {
		o.store = config.NewStore()
	}
	if o.loader == nil {
		o.loader = openapi.NewLoader()
	}
	if o.registry == nil {
		o.registry = render.NewRegistry()
		renderer, err := vanilla.New(o.htmlOptions...)
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default renderer: %w", err)
			return
		}
		o.registry.MustRegister(renderer, "html")
		o.registry.MustRegister(jsonview.New())
	}
	if o.defaultRenderer == "" {
		o.defaultRenderer = defaultRendererName
	}
}
