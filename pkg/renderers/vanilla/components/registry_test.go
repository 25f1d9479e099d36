package components

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-runform/pkg/form"
)

func noopRenderer(*bytes.Buffer, form.FieldView, ComponentData) error { return nil }

func TestRegistryLookupCopiesStylesheets(t *testing.T) {
	reg := New()
	reg.MustRegister(Descriptor{Name: " Rich ", Renderer: noopRenderer, Stylesheets: []string{"/rich.css"}})

	desc, ok := reg.Lookup("rich")
	if !ok {
		t.Fatalf("expected names to be normalised")
	}
	desc.Stylesheets[0] = "/mutated.css"

	again, _ := reg.Lookup("RICH")
	if diff := cmp.Diff([]string{"/rich.css"}, again.Stylesheets); diff != "" {
		t.Fatalf("registry entry mutated (-want +got):\n%s", diff)
	}
}

func TestRegistryRejectsInvalidEntries(t *testing.T) {
	reg := New()
	if err := reg.Register(Descriptor{Name: "  ", Renderer: noopRenderer}); err == nil {
		t.Fatalf("expected error for blank name")
	}
	if err := reg.Register(Descriptor{Name: "input"}); err == nil {
		t.Fatalf("expected error for nil renderer")
	}
	if err := reg.Bind(form.KindText, "input"); !errors.Is(err, ErrUnknownComponent) {
		t.Fatalf("expected ErrUnknownComponent binding a missing component, got %v", err)
	}
}

func TestRegistryStylesheetsDeduplicates(t *testing.T) {
	reg := New()
	reg.MustRegister(Descriptor{Name: "input", Renderer: noopRenderer, Stylesheets: []string{"/shared.css", "/input.css"}})
	reg.MustRegister(Descriptor{Name: "select", Renderer: noopRenderer, Stylesheets: []string{"/shared.css", "", "/select.css"}})

	got := reg.Stylesheets([]string{"input", "select", "missing"})
	want := []string{"/shared.css", "/input.css", "/select.css"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("stylesheets mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultRegistryComponents(t *testing.T) {
	got := NewDefaultRegistry().Components()
	want := []string{NameHidden, NameInput, NameNumber, NameSelect, NameTextarea, NameUnsupported}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("components mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve(t *testing.T) {
	reg := NewDefaultRegistry()
	cases := []struct {
		view     form.FieldView
		override string
		want     string
	}{
		{form.FieldView{Kind: form.KindSelect, Visible: true}, "", NameSelect},
		{form.FieldView{Kind: form.KindText, Visible: true}, "", NameInput},
		{form.FieldView{Kind: form.KindParagraph, Visible: true}, "", NameTextarea},
		{form.FieldView{Kind: form.KindNumber, Visible: true}, "", NameNumber},
		{form.FieldView{Kind: form.KindUnsupported, Visible: true}, "", NameUnsupported},
		{form.FieldView{Kind: form.KindText, Visible: false}, "", NameHidden},
		{form.FieldView{Kind: form.KindText, Visible: true}, " Textarea ", NameTextarea},
		{form.FieldView{Kind: form.KindText, Visible: false}, NameTextarea, NameHidden},
	}
	for _, tc := range cases {
		desc, err := reg.Resolve(tc.view, tc.override)
		if err != nil {
			t.Fatalf("Resolve(%s, visible=%v): %v", tc.view.Kind, tc.view.Visible, err)
		}
		if desc.Name != tc.want {
			t.Errorf("Resolve(%s, visible=%v, %q) = %q, want %q", tc.view.Kind, tc.view.Visible, tc.override, desc.Name, tc.want)
		}
	}

	if _, err := reg.Resolve(form.FieldView{Key: "plot", Kind: form.KindParagraph, Visible: true}, "markdown"); !errors.Is(err, ErrUnknownComponent) {
		t.Fatalf("expected ErrUnknownComponent for unknown override, got %v", err)
	}
}

func TestBindReroutesWidgetKind(t *testing.T) {
	reg := NewDefaultRegistry()
	reg.MustRegister(Descriptor{Name: "markdown", Renderer: noopRenderer})
	if err := reg.Bind(form.KindParagraph, "markdown"); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	desc, err := reg.Resolve(form.FieldView{Kind: form.KindParagraph, Visible: true}, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if desc.Name != "markdown" {
		t.Fatalf("expected paragraph routed to markdown, got %q", desc.Name)
	}
}

func TestFieldContextMarksSelectedOption(t *testing.T) {
	ctx := FieldContext(form.FieldView{
		Key:     "tone",
		Kind:    form.KindSelect,
		Value:   "calm",
		Options: []string{"calm", "loud"},
	}, ComponentData{ControlID: "rf-tone"})

	want := []map[string]any{
		{"value": "calm", "selected": true},
		{"value": "loud", "selected": false},
	}
	if diff := cmp.Diff(want, ctx["options"]); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
	if ctx["id"] != "rf-tone" {
		t.Fatalf("id = %v", ctx["id"])
	}
}
