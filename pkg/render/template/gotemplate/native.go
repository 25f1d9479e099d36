package gotemplate

import (
	"fmt"

	gotemplatepkg "github.com/goliatone/go-template"

	"github.com/goliatone/go-runform/pkg/render/template"
)

// NewGoTemplate builds a renderer on the go-template engine instead of the
// in-package pongo2 set. It takes the same options as New. Both engines share
// pongo2's process-wide filters, so templates that use trim, runecount or
// remaining render the same way on either.
func NewGoTemplate(options ...Option) (template.TemplateRenderer, error) {
	cfg, err := newConfig(options)
	if err != nil {
		return nil, err
	}
	installFilters()

	native := []gotemplatepkg.Option{gotemplatepkg.WithExtension(cfg.ext)}
	if cfg.dir != "" {
		native = append(native, gotemplatepkg.WithBaseDir(cfg.dir))
	}
	if cfg.files != nil {
		native = append(native, gotemplatepkg.WithFS(cfg.files))
	}
	if len(cfg.funcs) > 0 {
		native = append(native, gotemplatepkg.WithTemplateFunc(cfg.funcs))
	}
	if len(cfg.globals) > 0 {
		native = append(native, gotemplatepkg.WithGlobalData(cfg.globals))
	}
	native = append(native, cfg.native...)

	engine, err := gotemplatepkg.NewRenderer(native...)
	if err != nil {
		return nil, fmt.Errorf("gotemplate: go-template engine: %w", err)
	}
	return engine, nil
}
