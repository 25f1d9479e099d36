package render_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-runform/pkg/model"
	"github.com/goliatone/go-runform/pkg/render"
)

func TestMapErrorPayload(t *testing.T) {
	form := model.Form{Variables: []model.FieldDescriptor{{Key: "topic"}, {Key: "tone"}}}

	got := render.MapErrorPayload(form, map[string][]string{
		"topic":          {" required ", "required"},
		"/inputs/tone":   {"invalid option"},
		"inputs.unknown": {"who?"},
		"":               {"upstream failed"},
		"empty":          {"  "},
	})

	want := render.ErrorMapping{
		Fields: map[string][]string{
			"topic": {"required"},
			"tone":  {"invalid option"},
		},
		Form: []string{"upstream failed", "who?"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mapping mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeFormErrors(t *testing.T) {
	got := render.MergeFormErrors([]string{"a", " b "}, "b", "", "c")
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}
