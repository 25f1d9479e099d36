package gotemplate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"reflect"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/flosch/pongo2/v6"
	gotemplatepkg "github.com/goliatone/go-template"

	"github.com/goliatone/go-runform/pkg/render/template"
)

// Option configures an Engine.
type Option func(*config)

type config struct {
	dir     string
	files   fs.FS
	ext     string
	funcs   map[string]any
	globals map[string]any
	native  []gotemplatepkg.Option
}

func newConfig(options []Option) (*config, error) {
	cfg := &config{
		ext:     ".tmpl",
		funcs:   make(map[string]any),
		globals: make(map[string]any),
	}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.dir == "" && cfg.files == nil {
		return nil, errors.New("gotemplate: a template directory or fs.FS is required")
	}
	return cfg, nil
}

// WithBaseDir loads templates from a directory on disk.
func WithBaseDir(dir string) Option {
	return func(cfg *config) { cfg.dir = strings.TrimSpace(dir) }
}

// WithFS loads templates from files. When combined with WithBaseDir the
// directory is searched first.
func WithFS(files fs.FS) Option {
	return func(cfg *config) { cfg.files = files }
}

// WithExtension sets the suffix appended to template names that lack it.
func WithExtension(ext string) Option {
	return func(cfg *config) {
		if ext = strings.TrimSpace(ext); ext != "" {
			cfg.ext = "." + strings.TrimPrefix(ext, ".")
		}
	}
}

// WithTemplateFunc exposes funcs to templates. A pongo2.FilterFunction is
// installed as a filter, any other func becomes a global.
func WithTemplateFunc(funcs map[string]any) Option {
	return func(cfg *config) {
		for name, fn := range funcs {
			cfg.funcs[strings.TrimSpace(name)] = fn
		}
	}
}

// WithGlobalData seeds values visible to every template.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		for key, value := range data {
			cfg.globals[strings.TrimSpace(key)] = value
		}
	}
}

// WithGoTemplateOptions appends raw go-template options. Only NewGoTemplate
// applies them; they follow the options derived from this package's own.
func WithGoTemplateOptions(options ...gotemplatepkg.Option) Option {
	return func(cfg *config) {
		cfg.native = append(cfg.native, options...)
	}
}

// Engine renders pongo2 templates for the HTML renderers. Parsed templates
// are cached by path for the life of the engine.
type Engine struct {
	mu     sync.RWMutex
	set    *pongo2.TemplateSet
	ext    string
	parsed map[string]*pongo2.Template
}

var _ template.TemplateRenderer = (*Engine)(nil)

// New builds an Engine. WithBaseDir or WithFS is required.
func New(options ...Option) (*Engine, error) {
	cfg, err := newConfig(options)
	if err != nil {
		return nil, err
	}

	var loaders []pongo2.TemplateLoader
	if cfg.dir != "" {
		loader, err := pongo2.NewLocalFileSystemLoader(cfg.dir)
		if err != nil {
			return nil, fmt.Errorf("gotemplate: template dir: %w", err)
		}
		loaders = append(loaders, loader)
	}
	if cfg.files != nil {
		loaders = append(loaders, pongo2.NewFSLoader(cfg.files))
	}

	installFilters()
	set := pongo2.NewSet("runform", loaders...)
	set.Globals = pongo2.Context{}

	engine := &Engine{set: set, ext: cfg.ext, parsed: make(map[string]*pongo2.Template)}
	if err := engine.GlobalContext(cfg.globals); err != nil {
		return nil, err
	}
	for name, fn := range cfg.funcs {
		if err := engine.addFunc(name, fn); err != nil {
			return nil, err
		}
	}
	return engine, nil
}

// Render executes name as inline source when it holds template tags and as
// a template path otherwise.
func (e *Engine) Render(name string, data any, out ...io.Writer) (string, error) {
	if strings.Contains(name, "{{") || strings.Contains(name, "{%") {
		return e.RenderString(name, data, out...)
	}
	return e.RenderTemplate(name, data, out...)
}

// RenderTemplate executes the template at name.
func (e *Engine) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	if !strings.HasSuffix(name, e.ext) {
		name += e.ext
	}
	tmpl, err := e.load(name)
	if err != nil {
		return "", err
	}
	return e.execute(tmpl, name, data, out)
}

// RenderString parses and executes source.
func (e *Engine) RenderString(source string, data any, out ...io.Writer) (string, error) {
	tmpl, err := e.set.FromString(source)
	if err != nil {
		return "", fmt.Errorf("gotemplate: parse inline template: %w", err)
	}
	return e.execute(tmpl, "inline template", data, out)
}

// RegisterFilter installs a filter. pongo2 filters are process-wide, so a
// name can only be claimed once.
func (e *Engine) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	if name = strings.TrimSpace(name); name == "" || fn == nil {
		return errors.New("gotemplate: filter needs a name and a function")
	}
	if pongo2.FilterExists(name) {
		return fmt.Errorf("gotemplate: filter %q already registered", name)
	}
	return pongo2.RegisterFilter(name, func(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		var arg any
		if param != nil {
			arg = param.Interface()
		}
		result, err := fn(in.Interface(), arg)
		if err != nil {
			return nil, &pongo2.Error{Sender: "filter:" + name, OrigError: err}
		}
		return pongo2.AsValue(result), nil
	})
}

// GlobalContext merges data into the values every template sees.
func (e *Engine) GlobalContext(data any) error {
	globals, err := toContext(data)
	if err != nil {
		return fmt.Errorf("gotemplate: global data: %w", err)
	}
	e.mu.Lock()
	e.set.Globals.Update(globals)
	e.mu.Unlock()
	return nil
}

func (e *Engine) addFunc(name string, fn any) error {
	if filter, ok := fn.(pongo2.FilterFunction); ok {
		if pongo2.FilterExists(name) {
			return nil
		}
		return pongo2.RegisterFilter(name, filter)
	}
	if fn == nil || reflect.TypeOf(fn).Kind() != reflect.Func {
		return fmt.Errorf("gotemplate: template func %q is %T, not a func", name, fn)
	}
	e.mu.Lock()
	e.set.Globals[name] = fn
	e.mu.Unlock()
	return nil
}

func (e *Engine) load(path string) (*pongo2.Template, error) {
	e.mu.RLock()
	tmpl, ok := e.parsed[path]
	e.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if tmpl, ok := e.parsed[path]; ok {
		return tmpl, nil
	}
	tmpl, err := e.set.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("gotemplate: load %q: %w", path, err)
	}
	e.parsed[path] = tmpl
	return tmpl, nil
}

func (e *Engine) execute(tmpl *pongo2.Template, label string, data any, out []io.Writer) (string, error) {
	ctx, err := toContext(data)
	if err != nil {
		return "", fmt.Errorf("gotemplate: %s data: %w", label, err)
	}

	var buf bytes.Buffer
	e.mu.RLock()
	err = tmpl.ExecuteWriter(ctx, &buf)
	e.mu.RUnlock()
	if err != nil {
		return "", fmt.Errorf("gotemplate: execute %s: %w", label, err)
	}

	for _, w := range out {
		if _, err := w.Write(buf.Bytes()); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// toContext accepts maps as they are. Anything else is decoded through JSON
// so templates address struct fields by their json names.
func toContext(data any) (pongo2.Context, error) {
	switch v := data.(type) {
	case nil:
		return pongo2.Context{}, nil
	case pongo2.Context:
		return v, nil
	case map[string]any:
		return pongo2.Context(v), nil
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var ctx pongo2.Context
	if err := json.Unmarshal(payload, &ctx); err != nil {
		return nil, fmt.Errorf("%T does not encode to an object", data)
	}
	return ctx, nil
}

var filtersOnce sync.Once

// installFilters adds the filters the built-in templates rely on.
func installFilters() {
	filtersOnce.Do(func() {
		filters := map[string]pongo2.FilterFunction{
			"trim":      filterTrim,
			"runecount": filterRuneCount,
			"remaining": filterRemaining,
		}
		for name, fn := range filters {
			if !pongo2.FilterExists(name) {
				_ = pongo2.RegisterFilter(name, fn)
			}
		}
	})
}

func filterTrim(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}

func filterRuneCount(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(utf8.RuneCountInString(in.String())), nil
}

// filterRemaining reports how many characters fit before the limit given as
// the parameter. Limits of zero or less mean unbounded and yield an empty
// string.
func filterRemaining(in, limit *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if limit == nil || limit.Integer() <= 0 {
		return pongo2.AsValue(""), nil
	}
	return pongo2.AsValue(max(limit.Integer()-utf8.RuneCountInString(in.String()), 0)), nil
}
