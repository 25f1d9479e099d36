package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-runform/pkg/config"
	"github.com/goliatone/go-runform/pkg/model"
	"github.com/goliatone/go-runform/pkg/vision"
)

const storyYAML = `
id: story
title: Story generator
prompt_variables:
  - key: tone
    name: Tone
    type: select
    required: true
    options: [calm, loud, calm]
  - key: topic
    name: Topic
    type: string
    max_length: 20
  - key: user_id_hidden
    name: User
    type: text
vision:
  enabled: true
  number_limits: 2
  transfer_methods: [remote_url]
`

const appParamsJSON = `{
  "forms": [
    {
      "id": "summary",
      "user_input_form": [
        {"text-input": {"variable": "title", "label": "Title", "required": true, "max_length": 30}},
        {"paragraph": {"variable": "body", "label": "Body"}},
        {"number": {"variable": "words", "label": "Words", "default": "100"}}
      ],
      "file_upload": {"image": {"enabled": true, "detail": "high"}}
    },
    {"id": "empty"}
  ]
}`

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"forms/story.yaml":   {Data: []byte(storyYAML)},
		"forms/summary.json": {Data: []byte(appParamsJSON)},
		"forms/README.md":    {Data: []byte("ignored")},
		"forms/nested/x.yml": {Data: []byte("id: nested\nprompt_variables: []\n")},
	}

	store, err := config.LoadFS(fsys)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff([]string{"empty", "nested", "story", "summary"}, store.IDs()); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}

	story, ok := store.Form("story")
	if !ok {
		t.Fatalf("story not found")
	}
	wantVars := []model.FieldDescriptor{
		{Key: "tone", Name: "Tone", Type: model.FieldTypeSelect, Required: true, Options: []string{"calm", "loud"}, Visible: true},
		{Key: "topic", Name: "Topic", Type: model.FieldTypeText, MaxLength: 20, Visible: true},
		{Key: "user_id_hidden", Name: "User", Type: model.FieldTypeText, Visible: false},
	}
	if diff := cmp.Diff(wantVars, story.Variables); diff != "" {
		t.Fatalf("story variables mismatch (-want +got):\n%s", diff)
	}
	wantVision := vision.Settings{Enabled: true, NumberLimits: 2, TransferMethods: []vision.TransferMethod{vision.TransferMethodRemoteURL}}
	if diff := cmp.Diff(wantVision, story.Vision); diff != "" {
		t.Fatalf("story vision mismatch (-want +got):\n%s", diff)
	}
	if store.Source("story") != "forms/story.yaml" {
		t.Fatalf("source = %q", store.Source("story"))
	}

	summary, _ := store.Form("summary")
	wantSummary := []model.FieldDescriptor{
		{Key: "title", Name: "Title", Type: model.FieldTypeText, Required: true, MaxLength: 30, Visible: true},
		{Key: "body", Name: "Body", Type: model.FieldTypeParagraph, Visible: true},
		{Key: "words", Name: "Words", Type: model.FieldTypeNumber, Default: "100", Visible: true},
	}
	if diff := cmp.Diff(wantSummary, summary.Variables); diff != "" {
		t.Fatalf("summary variables mismatch (-want +got):\n%s", diff)
	}
	if !summary.Vision.Enabled || summary.Vision.Detail != "high" {
		t.Fatalf("file_upload.image not mapped: %+v", summary.Vision)
	}
}

func TestLoadFSDuplicateIDs(t *testing.T) {
	fsys := fstest.MapFS{
		"a.yaml": {Data: []byte("id: same\n")},
		"b.yaml": {Data: []byte("id: same\n")},
	}
	_, err := config.LoadFS(fsys)
	if err == nil || !strings.Contains(err.Error(), `duplicate form "same"`) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestLoadFSUnknownTypeIsStrictByDefault(t *testing.T) {
	fsys := fstest.MapFS{
		"a.yaml": {Data: []byte("id: a\nprompt_variables:\n  - key: when\n    type: date\n")},
	}
	_, err := config.LoadFS(fsys)
	if !errors.Is(err, model.ErrUnknownFieldType) {
		t.Fatalf("expected ErrUnknownFieldType, got %v", err)
	}

	store, err := config.LoadFS(fsys, config.WithBuilderOptions(model.WithAllowUnknownTypes()))
	if err != nil {
		t.Fatalf("load with unknown types allowed: %v", err)
	}
	f, _ := store.Form("a")
	if f.Variables[0].Type != model.FieldType("date") {
		t.Fatalf("type = %q", f.Variables[0].Type)
	}
}

func TestLoadFSRejectsBadDocuments(t *testing.T) {
	cases := map[string]string{
		"empty":    "   ",
		"no forms": "title: nothing\n",
		"invalid":  "id: [unclosed",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.LoadFS(fstest.MapFS{"x.yaml": {Data: []byte(body)}})
			if err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadFSNil(t *testing.T) {
	store, err := config.LoadFS(nil)
	if err != nil || !store.Empty() {
		t.Fatalf("expected empty store, got %v %v", store, err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story.yaml")
	if err := os.WriteFile(path, []byte(storyYAML), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	store, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if _, err := store.Lookup("story"); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if _, err := store.Lookup("missing"); !errors.Is(err, config.ErrFormNotFound) {
		t.Fatalf("expected ErrFormNotFound, got %v", err)
	}
}

func TestStoreFormReturnsCopy(t *testing.T) {
	store := config.NewStore()
	if err := store.Add(model.Form{ID: "a", Variables: []model.FieldDescriptor{{Key: "k", Name: "K", Type: model.FieldTypeText, Visible: true}}}, "mem"); err != nil {
		t.Fatalf("add: %v", err)
	}
	f, _ := store.Form("a")
	f.Variables[0].Name = "mutated"
	again, _ := store.Form("a")
	if again.Variables[0].Name != "K" {
		t.Fatalf("store mutated through returned form")
	}
}
