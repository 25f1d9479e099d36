package gotemplate_test

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-runform/pkg/render/template/gotemplate"
)

func newEngine(t *testing.T, opts ...gotemplate.Option) *gotemplate.Engine {
	t.Helper()
	files := fstest.MapFS{
		"hello.tmpl":      {Data: []byte("Hello {{ name }}!")},
		"use-global.tmpl": {Data: []byte("env={{ settings.env }}")},
		"escape.tmpl":     {Data: []byte("<p>{{ text }}</p>")},
		"count.tmpl":      {Data: []byte("{{ text|runecount }}")},
	}
	engine, err := gotemplate.New(append([]gotemplate.Option{gotemplate.WithFS(files)}, opts...)...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestEngineRenderTemplateWritesToOutputs(t *testing.T) {
	engine := newEngine(t)
	var sink strings.Builder

	got, err := engine.RenderTemplate("hello", map[string]any{"name": "Ada"}, &sink)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "Hello Ada!" || sink.String() != got {
		t.Fatalf("unexpected output %q / %q", got, sink.String())
	}
}

func TestEngineGlobalContext(t *testing.T) {
	engine := newEngine(t, gotemplate.WithGlobalData(map[string]any{
		"settings": map[string]any{"env": "staging"},
	}))
	got, err := engine.RenderTemplate("use-global.tmpl", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "env=staging" {
		t.Fatalf("got %q", got)
	}
}

func TestEngineAutoescapesAndCountsRunes(t *testing.T) {
	engine := newEngine(t)
	got, err := engine.RenderTemplate("escape", map[string]any{"text": "<b>x</b>"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(got, "<b>") {
		t.Fatalf("expected escaped output, got %q", got)
	}

	got, err = engine.RenderTemplate("count", map[string]any{"text": "héllo"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "5" {
		t.Fatalf("expected rune count 5, got %q", got)
	}
}

func TestEngineRenderStringAndStructData(t *testing.T) {
	engine := newEngine(t)
	type payload struct {
		Name string `json:"name"`
	}
	got, err := engine.Render("Hi {{ name }}", payload{Name: "Lin"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "Hi Lin" {
		t.Fatalf("got %q", got)
	}
}

func TestEngineTemplateFuncs(t *testing.T) {
	engine := newEngine(t, gotemplate.WithTemplateFunc(map[string]any{
		"shout": func(s string) string { return strings.ToUpper(s) },
	}))
	got, err := engine.RenderString(`{{ shout("run") }}`, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "RUN" {
		t.Fatalf("got %q", got)
	}
}

func TestEngineRegisterFilter(t *testing.T) {
	engine := newEngine(t)
	if err := engine.RegisterFilter("runform_test_exclaim", func(input any, _ any) (any, error) {
		return strings.TrimSpace(input.(string)) + "!", nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	got, err := engine.RenderString(`{{ "go"|runform_test_exclaim }}`, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "go!" {
		t.Fatalf("got %q", got)
	}
	if err := engine.RegisterFilter("runform_test_exclaim", func(any, any) (any, error) { return nil, errors.New("x") }); err == nil {
		t.Fatalf("expected duplicate filter error")
	}
}

func TestNewRequiresSource(t *testing.T) {
	if _, err := gotemplate.New(); err == nil {
		t.Fatalf("expected error without templates source")
	}
}

func TestEngineRemainingFilter(t *testing.T) {
	engine := newEngine(t)
	cases := []struct {
		value string
		limit int
		want  string
	}{
		{"héllo", 8, "3"},
		{"too long", 4, "0"},
		{"free", 0, ""},
	}
	for _, tc := range cases {
		got, err := engine.RenderString(`{{ value|remaining:limit }}`, map[string]any{"value": tc.value, "limit": tc.limit})
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		if got != tc.want {
			t.Fatalf("remaining(%q, %d) = %q, want %q", tc.value, tc.limit, got, tc.want)
		}
	}
}

func TestEngineRejectsNonFuncTemplateFunc(t *testing.T) {
	_, err := gotemplate.New(
		gotemplate.WithFS(fstest.MapFS{}),
		gotemplate.WithTemplateFunc(map[string]any{"answer": 42}),
	)
	if err == nil {
		t.Fatalf("expected error for non-func template helper")
	}
}

func TestGoTemplateEngineRendersSharedTemplates(t *testing.T) {
	files := fstest.MapFS{
		"hello.tmpl":  {Data: []byte("Hello {{ name }} from {{ settings.env }}")},
		"topic.tmpl":  {Data: []byte(`<input maxlength="{{ limit }}" data-remaining="{{ value|remaining:limit }}">`)},
		"escape.tmpl": {Data: []byte("<p>{{ text }}</p>")},
	}
	engine, err := gotemplate.NewGoTemplate(
		gotemplate.WithFS(files),
		gotemplate.WithGlobalData(map[string]any{"settings": map[string]any{"env": "staging"}}),
	)
	if err != nil {
		t.Fatalf("new go-template engine: %v", err)
	}

	got, err := engine.RenderTemplate("hello", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render hello: %v", err)
	}
	if got != "Hello Ada from staging" {
		t.Fatalf("got %q", got)
	}

	got, err = engine.RenderTemplate("topic.tmpl", map[string]any{"value": "ships", "limit": 20})
	if err != nil {
		t.Fatalf("render topic: %v", err)
	}
	if got != `<input maxlength="20" data-remaining="15">` {
		t.Fatalf("got %q", got)
	}

	got, err = engine.RenderTemplate("escape", map[string]any{"text": "<b>x</b>"})
	if err != nil {
		t.Fatalf("render escape: %v", err)
	}
	if strings.Contains(got, "<b>") {
		t.Fatalf("expected escaped output, got %q", got)
	}
}

func TestGoTemplateEngineRequiresSource(t *testing.T) {
	if _, err := gotemplate.NewGoTemplate(); err == nil {
		t.Fatalf("expected error without templates source")
	}
}
