package render_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-runform/pkg/model"
	"github.com/goliatone/go-runform/pkg/render"
)

type stubRenderer struct {
	name        string
	contentType string
}

func (s stubRenderer) Name() string        { return s.name }
func (s stubRenderer) ContentType() string { return s.contentType }
func (s stubRenderer) Render(context.Context, model.Form, render.RenderOptions) ([]byte, error) {
	return []byte(s.name), nil
}

func newTestRegistry(t *testing.T) *render.Registry {
	t.Helper()
	registry := render.NewRegistry()
	registry.MustRegister(stubRenderer{"vanilla", "text/html; charset=utf-8"}, "html")
	registry.MustRegister(stubRenderer{"json", "application/json"})
	return registry
}

func TestRegistry(t *testing.T) {
	registry := newTestRegistry(t)

	if err := registry.Register(stubRenderer{name: "json"}); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if err := registry.Register(stubRenderer{name: "tui"}, "HTML"); err == nil {
		t.Fatalf("expected alias collision error")
	}
	if registry.Has("tui") {
		t.Fatalf("failed registration must not leave a partial entry")
	}
	if err := registry.Register(stubRenderer{}); err == nil {
		t.Fatalf("expected empty name error")
	}
	if _, err := registry.Get("tui"); !errors.Is(err, render.ErrRendererNotFound) {
		t.Fatalf("expected ErrRendererNotFound, got %v", err)
	}
	if diff := cmp.Diff([]string{"json", "vanilla"}, registry.List()); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistryAliasesIgnoreCase(t *testing.T) {
	registry := newTestRegistry(t)

	for _, name := range []string{"vanilla", "HTML", " Vanilla "} {
		renderer, err := registry.Get(name)
		if err != nil {
			t.Fatalf("Get(%q): %v", name, err)
		}
		if renderer.Name() != "vanilla" {
			t.Fatalf("Get(%q) = %q", name, renderer.Name())
		}
	}
	if !registry.Has("html") {
		t.Fatalf("expected alias to be registered")
	}
}

func TestRegistryNegotiate(t *testing.T) {
	registry := newTestRegistry(t)

	cases := []struct {
		accept string
		want   string
	}{
		{"application/json", "json"},
		{"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8", "vanilla"},
		{"application/json;q=0.5, text/html", "vanilla"},
		{"text/*", "vanilla"},
		{"text/html;q=0, application/json", "json"},
		{"*/*", ""},
		{"", ""},
		{"image/png", ""},
	}
	for _, tc := range cases {
		renderer, ok := registry.Negotiate(tc.accept)
		got := ""
		if ok {
			got = renderer.Name()
		}
		if got != tc.want {
			t.Fatalf("Negotiate(%q) = %q, want %q", tc.accept, got, tc.want)
		}
	}
}
