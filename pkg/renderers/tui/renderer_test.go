package tui

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-runform/pkg/model"
	"github.com/goliatone/go-runform/pkg/render"
	"github.com/goliatone/go-runform/pkg/vision"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	textAreas    []string
	infoMessages []string
	inputCfgs    []InputConfig
	selectCfgs   []SelectConfig
	inputPos     int
	selectPos    int
	textPos      int
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.inputCfgs = append(s.inputCfgs, cfg)
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	s.selectCfgs = append(s.selectCfgs, cfg)
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, _ TextAreaConfig) (string, error) {
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted")
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func storyForm() model.Form {
	return model.Form{
		ID: "story",
		Variables: []model.FieldDescriptor{
			{Key: "tone", Name: "Tone", Type: model.FieldTypeSelect, Required: true, Options: []string{"calm", "loud"}, Visible: true},
			{Key: "topic", Name: "Topic", Type: model.FieldTypeText, MaxLength: 5, Visible: true},
			{Key: "notes", Name: "Notes", Type: model.FieldTypeParagraph, Visible: true},
			{Key: "count", Name: "Count", Type: model.FieldTypeNumber, Required: true, Visible: true},
			{Key: "token", Name: "Token", Type: model.FieldTypeText, Visible: false},
		},
	}
}

func TestRunPromptsVisibleFieldsAndSubmits(t *testing.T) {
	driver := &stubDriver{
		selectIdx: []int{2, 0},
		inputs:    []string{"boats and ships", "3"},
		textAreas: []string{"line one\nline two"},
	}
	r, err := New(WithPromptDriver(driver))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	got, err := r.Run(context.Background(), storyForm(), render.RenderOptions{
		Values: model.Values{"token": "t-1"},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := Submission{Inputs: model.Values{
		"tone":  "loud",
		"topic": "boats",
		"notes": "line one\nline two",
		"count": "3",
		"token": "t-1",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("submission mismatch (-want +got):\n%s", diff)
	}

	if driver.inputCfgs[0].Message != "Topic(optional)" {
		t.Fatalf("text prompt message = %q", driver.inputCfgs[0].Message)
	}
	if driver.inputCfgs[1].Message != "Count" {
		t.Fatalf("number prompt message = %q", driver.inputCfgs[1].Message)
	}
	if diff := cmp.Diff([]string{noneOption, "calm", "loud"}, driver.selectCfgs[0].Options); diff != "" {
		t.Fatalf("select options mismatch (-want +got):\n%s", diff)
	}
}

func TestRunDoesNotMutateCallerValues(t *testing.T) {
	driver := &stubDriver{
		selectIdx: []int{1, 0},
		inputs:    []string{"x", "1"},
		textAreas: []string{""},
	}
	r, _ := New(WithPromptDriver(driver))
	caller := model.Values{"topic": "before"}
	if _, err := r.Run(context.Background(), storyForm(), render.RenderOptions{Values: caller}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if diff := cmp.Diff(model.Values{"topic": "before"}, caller); diff != "" {
		t.Fatalf("caller map mutated (-want +got):\n%s", diff)
	}
}

func TestRunClearResetsAndPromptsAgain(t *testing.T) {
	driver := &stubDriver{
		// tone, action=clear, tone, action=run
		selectIdx: []int{1, 1, 2, 0},
		inputs:    []string{"abc", "1", "", "2"},
		textAreas: []string{"first", ""},
	}
	r, _ := New(WithPromptDriver(driver))
	got, err := r.Run(context.Background(), storyForm(), render.RenderOptions{
		Values: model.Values{"token": "t-1"},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := model.Values{"tone": "loud", "topic": "", "notes": "", "count": "2", "token": ""}
	if diff := cmp.Diff(want, got.Inputs); diff != "" {
		t.Fatalf("inputs mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCancel(t *testing.T) {
	driver := &stubDriver{
		selectIdx: []int{0, 2},
		inputs:    []string{"", ""},
		textAreas: []string{""},
	}
	r, _ := New(WithPromptDriver(driver))
	_, err := r.Run(context.Background(), storyForm(), render.RenderOptions{})
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}

func TestRunUnsupportedFieldShowsNotice(t *testing.T) {
	driver := &stubDriver{selectIdx: []int{0}}
	r, _ := New(WithPromptDriver(driver))
	f := model.Form{Variables: []model.FieldDescriptor{
		{Key: "when", Name: "When", Type: model.FieldType("date"), Visible: true},
	}}
	got, err := r.Run(context.Background(), f, render.RenderOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(driver.infoMessages) != 1 || !strings.Contains(driver.infoMessages[0], `Unsupported field type "date"`) {
		t.Fatalf("info messages = %v", driver.infoMessages)
	}
	if diff := cmp.Diff(model.Values{}, got.Inputs); diff != "" {
		t.Fatalf("inputs mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCollectsRemoteAttachments(t *testing.T) {
	driver := &stubDriver{
		selectIdx: []int{0},
		inputs:    []string{"https://img.example/a.png", "https://img.example/b.png"},
	}
	r, _ := New(WithPromptDriver(driver))
	f := model.Form{Vision: vision.Settings{Enabled: true, NumberLimits: 1}}

	got, err := r.Run(context.Background(), f, render.RenderOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []vision.Attachment{{
		Type:           vision.AttachmentKind,
		TransferMethod: vision.TransferMethodRemoteURL,
		URL:            "https://img.example/a.png",
	}}
	if diff := cmp.Diff(want, got.Files, cmpopts.IgnoreFields(vision.Attachment{}, "UploadFileID")); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}
	if got.Files[0].UploadFileID == "" {
		t.Fatalf("expected upload id to be assigned")
	}
	if len(driver.infoMessages) != 1 {
		t.Fatalf("expected limit notice, got %v", driver.infoMessages)
	}
}

func TestRenderOutputFormats(t *testing.T) {
	f := model.Form{Variables: []model.FieldDescriptor{
		{Key: "b", Name: "B", Type: model.FieldTypeText, Visible: true},
		{Key: "a", Name: "A", Type: model.FieldTypeText, Visible: true},
	}}

	cases := []struct {
		format OutputFormat
		want   string
	}{
		{OutputFormatJSON, `{"inputs":{"a":"1","b":"2"}}`},
		{OutputFormatFormURLEncoded, "a=1&b=2"},
		{OutputFormatPrettyText, "a=1\nb=2\n"},
	}
	for _, tc := range cases {
		t.Run(string(tc.format), func(t *testing.T) {
			driver := &stubDriver{inputs: []string{"2", "1"}, selectIdx: []int{0}}
			r, err := New(WithPromptDriver(driver), WithOutputFormat(tc.format))
			if err != nil {
				t.Fatalf("new renderer: %v", err)
			}
			out, err := r.Render(context.Background(), f, render.RenderOptions{})
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if tc.format == OutputFormatJSON {
				var decoded, expected any
				_ = json.Unmarshal(out, &decoded)
				_ = json.Unmarshal([]byte(tc.want), &expected)
				if diff := cmp.Diff(expected, decoded); diff != "" {
					t.Fatalf("json mismatch (-want +got):\n%s", diff)
				}
				return
			}
			if string(out) != tc.want {
				t.Fatalf("output = %q, want %q", out, tc.want)
			}
		})
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(WithOutputFormat("xml")); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestParseOutputFormat(t *testing.T) {
	cases := map[string]string{
		"":       "application/json",
		"json":   "application/json",
		"form":   "application/x-www-form-urlencoded",
		"pretty": "text/plain; charset=utf-8",
	}
	for raw, contentType := range cases {
		format, err := ParseOutputFormat(raw)
		if err != nil {
			t.Fatalf("ParseOutputFormat(%q): %v", raw, err)
		}
		if format.ContentType() != contentType {
			t.Fatalf("%q content type = %q, want %q", raw, format.ContentType(), contentType)
		}
	}
	if _, err := ParseOutputFormat("yaml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestThemePrefixesPrompts(t *testing.T) {
	driver := &stubDriver{
		selectIdx: []int{1, 0},
		inputs:    []string{"x", "1"},
		textAreas: []string{""},
	}
	r, _ := New(WithPromptDriver(driver), WithTheme(MarkedTheme()))
	if _, err := r.Run(context.Background(), storyForm(), render.RenderOptions{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := driver.inputCfgs[0].Message; got != "> Topic(optional)" {
		t.Fatalf("text prompt message = %q", got)
	}
}

func TestValidators(t *testing.T) {
	if err := maxRunes(3)("héll"); err == nil {
		t.Fatalf("expected rune limit error")
	}
	if err := maxRunes(3)("hél"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := numeric("4.5"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := numeric(""); err != nil {
		t.Fatalf("blank should be allowed: %v", err)
	}
	if err := numeric("four"); err == nil {
		t.Fatalf("expected numeric error")
	}
}
