package session_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-runform/pkg/form"
	"github.com/goliatone/go-runform/pkg/model"
	"github.com/goliatone/go-runform/pkg/session"
	"github.com/goliatone/go-runform/pkg/testsupport"
	"github.com/goliatone/go-runform/pkg/vision"
)

func TestNewSeedsDefaultsAndValues(t *testing.T) {
	s := session.New(testsupport.StoryForm(), session.WithID("fixed"), session.WithValues(model.Values{"topic": "dragons"}))

	if s.ID() != "fixed" {
		t.Fatalf("id = %q", s.ID())
	}
	want := model.Values{"tone": "", "topic": "dragons", "plot": "", "words": "300", "user_id": ""}
	if diff := cmp.Diff(want, s.Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if session.New(testsupport.StoryForm()).ID() == "" {
		t.Fatalf("expected generated id")
	}
}

func TestChangeReplacesValueMap(t *testing.T) {
	s := session.New(testsupport.StoryForm())
	before := s.Values()

	if err := s.Change("tone", "loud"); err != nil {
		t.Fatalf("change: %v", err)
	}
	if err := s.Change("topic", "a very long topic that will be clamped"); err != nil {
		t.Fatalf("change topic: %v", err)
	}
	if before.Get("tone") != "" {
		t.Fatalf("earlier snapshot mutated")
	}
	got := s.Values()
	if got.Get("tone") != "loud" || got.Get("topic") != "a very long topic th" {
		t.Fatalf("values = %+v", got)
	}

	if err := s.Change("tone", "wild"); !errors.Is(err, form.ErrOptionNotAllowed) {
		t.Fatalf("expected ErrOptionNotAllowed, got %v", err)
	}
	if err := s.Change("nope", "x"); !errors.Is(err, form.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestChangeAllStopsAtFirstRejection(t *testing.T) {
	s := session.New(testsupport.StoryForm())
	err := s.ChangeAll(map[string]string{"plot": "a plot", "tone": "wild", "words": "10"})
	if !errors.Is(err, form.ErrOptionNotAllowed) {
		t.Fatalf("expected rejection, got %v", err)
	}
	got := s.Values()
	if got.Get("plot") != "a plot" || got.Get("words") != "300" {
		t.Fatalf("edits before the rejection apply, later ones do not: %+v", got)
	}
}

func TestResetClearsValuesAndUploads(t *testing.T) {
	s := session.New(testsupport.StoryForm(), session.WithValues(model.Values{"extra": "x"}))
	if _, err := s.Uploader().Begin(vision.TransferMethodRemoteURL, "", "https://example.com/a.png"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	s.Reset()

	snap := s.Snapshot()
	want := model.Values{"tone": "", "topic": "", "plot": "", "words": "", "user_id": ""}
	if diff := cmp.Diff(want, snap.Values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if len(snap.Files) != 0 || len(snap.Uploads) != 0 {
		t.Fatalf("uploads not cleared: %+v", snap)
	}
	if snap.Runs != 0 {
		t.Fatalf("reset must not submit")
	}
}

func TestSubmitForwardsSnapshotUnvalidated(t *testing.T) {
	var got []session.Snapshot
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := session.New(testsupport.StoryForm(),
		session.WithClock(func() time.Time { return now }),
		session.WithOnSubmit(func(snap session.Snapshot) { got = append(got, snap) }),
	)
	uploader := s.Uploader()
	ok, _ := uploader.Begin(vision.TransferMethodRemoteURL, "", "https://example.com/a.png")
	bad, _ := uploader.Begin(vision.TransferMethodRemoteURL, "", "https://example.com/b.png")
	if err := uploader.Fail(bad); err != nil {
		t.Fatalf("fail: %v", err)
	}

	snap := s.Submit()
	if len(got) != 1 {
		t.Fatalf("expected one submit callback, got %d", len(got))
	}
	if diff := cmp.Diff(snap, got[0]); diff != "" {
		t.Fatalf("returned snapshot differs from callback (-want +got):\n%s", diff)
	}
	if snap.Runs != 1 || snap.FormID != "story" || !snap.UpdatedAt.Equal(now) {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Values.Get("tone") != "" {
		t.Fatalf("required tone left blank must still submit")
	}
	wantFiles := []vision.Attachment{{
		Type:           vision.AttachmentKind,
		TransferMethod: vision.TransferMethodRemoteURL,
		URL:            "https://example.com/a.png",
		UploadFileID:   ok,
	}}
	if diff := cmp.Diff(wantFiles, snap.Files); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}
	if len(snap.Uploads) != 2 {
		t.Fatalf("raw uploads keep the failed record: %+v", snap.Uploads)
	}
}

func TestDisabledVisionNeverEmitsFiles(t *testing.T) {
	f := testsupport.StoryForm()
	f.Vision = vision.Settings{}
	s := session.New(f)
	if _, err := s.Uploader().Begin(vision.TransferMethodRemoteURL, "", "https://example.com/a.png"); !errors.Is(err, vision.ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	if files := s.Snapshot().Files; files != nil {
		t.Fatalf("files = %+v", files)
	}
}

func TestConcurrentChangesAreNotLost(t *testing.T) {
	f := model.Form{ID: "many"}
	keys := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, key := range keys {
		f.Variables = append(f.Variables, model.FieldDescriptor{Key: key, Name: key, Type: model.FieldTypeParagraph, Visible: true})
	}
	s := session.New(f)

	var wg sync.WaitGroup
	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			if err := s.Change(key, "set-"+key); err != nil {
				t.Errorf("change %s: %v", key, err)
			}
		}(key)
	}
	wg.Wait()

	got := s.Values()
	for _, key := range keys {
		if got.Get(key) != "set-"+key {
			t.Fatalf("edit to %s lost: %+v", key, got)
		}
	}
}
