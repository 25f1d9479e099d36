package submit_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-runform/pkg/model"
	"github.com/goliatone/go-runform/pkg/submit"
	"github.com/goliatone/go-runform/pkg/vision"
)

func TestHTTPSubmitterPostsJSON(t *testing.T) {
	var (
		gotAuth string
		gotBody map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"ok"}`))
	}))
	defer server.Close()

	s, err := submit.NewHTTPSubmitter(server.URL, submit.WithToken(" secret "), submit.WithClient(server.Client()))
	if err != nil {
		t.Fatalf("new submitter: %v", err)
	}
	result, err := s.Submit(context.Background(), submit.Payload{
		Inputs: model.Values{"tone": "calm"},
		Files:  []vision.Attachment{{Type: "image", TransferMethod: vision.TransferMethodRemoteURL, URL: "https://example.com/a.png", UploadFileID: "f1"}},
		User:   "u-1",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if gotAuth != "Bearer secret" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	want := map[string]any{
		"inputs":        map[string]any{"tone": "calm"},
		"response_mode": "blocking",
		"user":          "u-1",
		"files": []any{map[string]any{
			"type":            "image",
			"transfer_method": "remote_url",
			"url":             "https://example.com/a.png",
			"upload_file_id":  "f1",
		}},
	}
	if diff := cmp.Diff(want, gotBody); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
	if result.StatusCode != http.StatusOK || string(result.Body) != `{"answer":"ok"}` {
		t.Fatalf("result = %+v", result)
	}
}

func TestHTTPSubmitterEmptyInputsEncodeAsObject(t *testing.T) {
	var raw map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
	}))
	defer server.Close()

	s, _ := submit.NewHTTPSubmitter(server.URL, submit.WithClient(server.Client()), submit.WithResponseMode(submit.ResponseModeStreaming))
	if _, err := s.Submit(context.Background(), submit.Payload{}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if string(raw["inputs"]) != "{}" || string(raw["response_mode"]) != `"streaming"` {
		t.Fatalf("raw = %v", raw)
	}
	if _, ok := raw["files"]; ok {
		t.Fatalf("files should be omitted when empty")
	}
}

func TestHTTPSubmitterStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	s, _ := submit.NewHTTPSubmitter(server.URL, submit.WithClient(server.Client()))
	result, err := s.Submit(context.Background(), submit.Payload{})
	if !errors.Is(err, submit.ErrUnexpectedStatus) {
		t.Fatalf("expected ErrUnexpectedStatus, got %v", err)
	}
	if result.StatusCode != http.StatusBadGateway || string(result.Body) != `"nope\n"` {
		t.Fatalf("result = %+v body=%s", result, result.Body)
	}

	if _, err := submit.NewHTTPSubmitter("  "); err == nil {
		t.Fatalf("expected error for empty endpoint")
	}
}

func TestRecorderCopiesPayloads(t *testing.T) {
	rec := submit.NewRecorder(submit.Result{StatusCode: 202})
	inputs := model.Values{"a": "1"}

	result, err := rec.Submit(context.Background(), submit.Payload{Inputs: inputs})
	if err != nil || result.StatusCode != 202 {
		t.Fatalf("submit: %+v %v", result, err)
	}
	inputs["a"] = "mutated"

	got := rec.Payloads()
	if len(got) != 1 || got[0].Inputs.Get("a") != "1" {
		t.Fatalf("payloads = %+v", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := rec.Submit(ctx, submit.Payload{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestHTTPSubmitterRejectsOversizedReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"answer":"`+strings.Repeat("x", 4<<20)+`"}`)
	}))
	defer server.Close()

	s, _ := submit.NewHTTPSubmitter(server.URL, submit.WithClient(server.Client()))
	result, err := s.Submit(context.Background(), submit.Payload{})
	if !errors.Is(err, submit.ErrResponseTooLarge) {
		t.Fatalf("expected ErrResponseTooLarge, got %v", err)
	}
	if result.StatusCode != http.StatusOK || result.Body != nil {
		t.Fatalf("truncated reply must not be returned: status=%d body=%d bytes", result.StatusCode, len(result.Body))
	}
}

func TestHTTPUploaderSendsMultipart(t *testing.T) {
	var (
		gotAuth, gotUser, gotName, gotType, gotBody string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		gotUser = r.FormValue("user")
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotName, gotType, gotBody = header.Filename, header.Header.Get("Content-Type"), string(data)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"up-1","name":"cat.png","size":3}`)
	}))
	defer server.Close()

	u, err := submit.NewHTTPUploader(server.URL, submit.WithToken("secret"), submit.WithClient(server.Client()))
	if err != nil {
		t.Fatalf("new uploader: %v", err)
	}
	got, err := u.Upload(context.Background(), submit.File{
		Name:        "cat.png",
		ContentType: "image/png",
		Body:        strings.NewReader("png"),
		User:        "u-1",
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if diff := cmp.Diff(submit.UploadedFile{ID: "up-1"}, got); diff != "" {
		t.Fatalf("uploaded mismatch (-want +got):\n%s", diff)
	}
	want := []string{"Bearer secret", "u-1", "cat.png", "image/png", "png"}
	if diff := cmp.Diff(want, []string{gotAuth, gotUser, gotName, gotType, gotBody}); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTPUploaderErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"status", http.StatusRequestEntityTooLarge, `{"code":"file_too_large"}`, submit.ErrUnexpectedStatus},
		{"no id", http.StatusOK, `{"name":"cat.png"}`, submit.ErrNoFileID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.Copy(io.Discard, r.Body)
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer server.Close()

			u, _ := submit.NewHTTPUploader(server.URL, submit.WithClient(server.Client()))
			_, err := u.Upload(context.Background(), submit.File{Name: "cat.png", Body: strings.NewReader("png")})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, err := submit.NewHTTPUploader(" "); err == nil {
		t.Fatalf("expected error for empty endpoint")
	}
}
