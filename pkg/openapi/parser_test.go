package openapi_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-runform/pkg/model"
	"github.com/goliatone/go-runform/pkg/openapi"
	"github.com/goliatone/go-runform/pkg/vision"
)

const petstore = `
openapi: 3.0.3
info:
  title: Story API
  version: "1.0"
paths:
  /stories:
    post:
      operationId: createStory
      summary: Write a story
      x-runform-vision:
        enabled: true
        number_limits: 2
      requestBody:
        content:
          application/json:
            schema:
              type: object
              required: [tone, topic]
              properties:
                topic:
                  type: string
                  title: Topic
                  maxLength: 20
                tone:
                  type: string
                  enum: [calm, loud]
                plot:
                  type: string
                  format: textarea
                outline:
                  type: string
                  maxLength: 500
                words:
                  type: integer
                  default: 300
                user_token:
                  type: string
                  x-runform-hidden: true
                tags:
                  type: array
                  items:
                    type: string
      responses:
        "200":
          description: ok
    get:
      responses:
        "200":
          description: ok
`

func TestDescriptors(t *testing.T) {
	got, err := openapi.Descriptors(context.Background(), []byte(petstore), "createStory")
	if err != nil {
		t.Fatalf("descriptors: %v", err)
	}
	want := []model.FieldDescriptor{
		{Key: "outline", Name: "Outline", Type: model.FieldTypeParagraph, Visible: true},
		{Key: "plot", Name: "Plot", Type: model.FieldTypeParagraph, Visible: true},
		{Key: "tone", Name: "Tone", Type: model.FieldTypeSelect, Required: true, Options: []string{"calm", "loud"}, Visible: true},
		{Key: "topic", Name: "Topic", Type: model.FieldTypeText, Required: true, MaxLength: 20, Visible: true},
		{Key: "user_token", Name: "User Token", Type: model.FieldTypeText, Visible: false},
		{Key: "words", Name: "Words", Type: model.FieldTypeNumber, Default: "300", Visible: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("descriptors mismatch (-want +got):\n%s", diff)
	}
}

func TestDescriptorsAllowUnknownTypes(t *testing.T) {
	got, err := openapi.Descriptors(context.Background(), []byte(petstore), "createStory", openapi.WithAllowUnknownTypes())
	if err != nil {
		t.Fatalf("descriptors: %v", err)
	}
	var tags *model.FieldDescriptor
	for i := range got {
		if got[i].Key == "tags" {
			tags = &got[i]
		}
	}
	if tags == nil || tags.Type != model.FieldType("array") {
		t.Fatalf("expected tags kept as unsupported array, got %+v", tags)
	}
}

func TestFormCarriesSummaryAndVision(t *testing.T) {
	f, err := openapi.Form(context.Background(), []byte(petstore), "createStory")
	if err != nil {
		t.Fatalf("form: %v", err)
	}
	if f.ID != "createStory" || f.Title != "Write a story" {
		t.Fatalf("unexpected form header: %+v", f)
	}
	if diff := cmp.Diff(vision.Settings{Enabled: true, NumberLimits: 2}, f.Vision); diff != "" {
		t.Fatalf("vision mismatch (-want +got):\n%s", diff)
	}
}

func TestFormErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := openapi.Form(ctx, []byte(petstore), "missing"); !errors.Is(err, openapi.ErrOperationNotFound) {
		t.Fatalf("expected ErrOperationNotFound, got %v", err)
	}
	if _, err := openapi.Form(ctx, []byte(petstore), "get:/stories"); !errors.Is(err, openapi.ErrNoRequestBody) {
		t.Fatalf("expected ErrNoRequestBody, got %v", err)
	}
	if _, err := openapi.Form(ctx, nil, "createStory"); err == nil {
		t.Fatalf("expected error for empty document")
	}
}

func TestOperations(t *testing.T) {
	ops, err := openapi.Operations(context.Background(), []byte(petstore))
	if err != nil {
		t.Fatalf("operations: %v", err)
	}
	var ids []string
	for _, op := range ops {
		ids = append(ids, op.ID)
	}
	if diff := cmp.Diff([]string{"createStory", "get:/stories"}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestLoaderSources(t *testing.T) {
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "api.yaml")
	if err := os.WriteFile(path, []byte(petstore), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	src, err := openapi.ParseSource(path)
	if err != nil {
		t.Fatalf("parse source: %v", err)
	}
	if src.Kind() != openapi.SourceKindFile {
		t.Fatalf("kind = %s", src.Kind())
	}
	if _, err := openapi.NewLoader().Load(ctx, src); err != nil {
		t.Fatalf("load file: %v", err)
	}

	loader := openapi.NewLoader(openapi.WithFileSystem(fstest.MapFS{"specs/api.yaml": {Data: []byte(petstore)}}))
	if _, err := loader.Load(ctx, openapi.SourceFromFS("specs/api.yaml")); err != nil {
		t.Fatalf("load fs: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openapi.yaml" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(petstore))
	}))
	defer server.Close()

	remote, err := openapi.ParseSource(server.URL + "/openapi.yaml")
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if _, err := openapi.NewLoader().Load(ctx, remote); err == nil {
		t.Fatalf("expected http to be disabled by default")
	}
	data, err := openapi.NewLoader(openapi.WithHTTPClient(server.Client())).Load(ctx, remote)
	if err != nil {
		t.Fatalf("load url: %v", err)
	}
	if string(data) != petstore {
		t.Fatalf("unexpected body")
	}

	missing, _ := openapi.ParseSource(server.URL + "/nope")
	if _, err := openapi.NewLoader(openapi.WithHTTPClient(server.Client())).Load(ctx, missing); err == nil {
		t.Fatalf("expected status error")
	}
}
