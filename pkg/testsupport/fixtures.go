// Package testsupport holds fixtures shared by package tests.
package testsupport

import (
	"context"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-runform/pkg/config"
	"github.com/goliatone/go-runform/pkg/model"
	"github.com/goliatone/go-runform/pkg/vision"
)

// StoryFormID identifies the fixture returned by StoryForm.
const StoryFormID = "story"

var storyVariables = []model.FieldDescriptor{
	{Key: "tone", Name: "Tone", Type: model.FieldTypeSelect, Required: true, Options: []string{"calm", "loud"}, Visible: true},
	{Key: "topic", Name: "Topic", Type: model.FieldTypeText, MaxLength: 20, Visible: true},
	{Key: "plot", Name: "Plot", Type: model.FieldTypeParagraph, Visible: true},
	{Key: "words", Name: "Words", Type: model.FieldTypeNumber, Default: "300", Visible: true},
	{Key: "user_id", Name: "User", Type: model.FieldTypeText, Visible: false},
}

// StoryForm returns a form exercising every widget, one hidden variable,
// and remote image attachments capped at two.
func StoryForm() model.Form {
	return model.Form{
		ID:        StoryFormID,
		Title:     "Story generator",
		Variables: slices.Clone(storyVariables),
		Vision: vision.Settings{
			Enabled:         true,
			NumberLimits:    2,
			TransferMethods: []vision.TransferMethod{vision.TransferMethodRemoteURL},
		},
	}
}

// MustStore returns a config store holding forms.
func MustStore(t testing.TB, forms ...model.Form) *config.Store {
	t.Helper()

	store := config.NewStore()
	for _, f := range forms {
		if err := store.Add(f, "fixture"); err != nil {
			t.Fatalf("add fixture %q: %v", f.ID, err)
		}
	}
	return store
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
