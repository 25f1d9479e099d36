package vision

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrDisabled is returned when uploads are attempted on a disabled control.
	ErrDisabled = errors.New("vision: attachments are disabled")
	// ErrLimitReached is returned when NumberLimits would be exceeded.
	ErrLimitReached = errors.New("vision: attachment limit reached")
	// ErrTransferMethodNotAllowed is returned for methods outside Settings.
	ErrTransferMethodNotAllowed = errors.New("vision: transfer method not allowed")
	// ErrUnknownUpload is returned when an id does not match a tracked upload.
	ErrUnknownUpload = errors.New("vision: unknown upload")
)

// Uploader tracks upload records for one form session and pushes the full set
// to the attached Control after every change. It is safe for concurrent use
// since progress notifications may arrive from transfer goroutines.
//
// Changes are applied and delivered one at a time, so the last list the
// Control sees always matches the current records. OnFilesChange may read
// Records but must not change the upload set.
type Uploader struct {
	// emit is held from a change until its delivery returns.
	emit    sync.Mutex
	mu      sync.Mutex
	control Control
	records []UploadRecord
	newID   func() string
}

// NewUploader binds an uploader to control.
func NewUploader(control Control) *Uploader {
	return &Uploader{
		control: control,
		newID:   uuid.NewString,
	}
}

// Begin registers a new upload and returns its file id. Remote URLs start as
// complete since nothing needs transferring.
func (u *Uploader) Begin(method TransferMethod, name, url string) (string, error) {
	if !u.control.Settings.Enabled {
		return "", ErrDisabled
	}
	if !u.control.Settings.Allows(method) {
		return "", fmt.Errorf("%w: %s", ErrTransferMethodNotAllowed, method)
	}

	u.emit.Lock()
	defer u.emit.Unlock()

	u.mu.Lock()
	if limit := u.control.Settings.NumberLimits; limit > 0 && u.liveCountLocked() >= limit {
		u.mu.Unlock()
		return "", ErrLimitReached
	}
	record := UploadRecord{
		FileID:         u.newID(),
		TransferMethod: method,
		URL:            strings.TrimSpace(url),
		Name:           strings.TrimSpace(name),
	}
	if method == TransferMethodRemoteURL {
		record.Progress = ProgressComplete
	}
	u.records = append(u.records, record)
	snapshot := u.snapshotLocked()
	u.mu.Unlock()

	u.control.Update(snapshot)
	return record.FileID, nil
}

// Progress updates the completion percentage for id, clamped to [0,100).
func (u *Uploader) Progress(id string, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent >= ProgressComplete {
		percent = ProgressComplete - 1
	}
	return u.mutate(id, func(r *UploadRecord) { r.Progress = percent })
}

// Complete marks id as uploaded and records the URL the backend returned.
func (u *Uploader) Complete(id, url string) error {
	return u.mutate(id, func(r *UploadRecord) {
		r.Progress = ProgressComplete
		if trimmed := strings.TrimSpace(url); trimmed != "" {
			r.URL = trimmed
		}
	})
}

// CompleteAs marks id as uploaded under the file id the backend issued. The
// record is re-keyed, so later calls must use fileID.
func (u *Uploader) CompleteAs(id, fileID, url string) error {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return errors.New("vision: backend file id is required")
	}

	u.emit.Lock()
	defer u.emit.Unlock()

	u.mu.Lock()
	idx := u.indexLocked(id)
	if idx < 0 {
		u.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownUpload, id)
	}
	if other := u.indexLocked(fileID); other >= 0 && other != idx {
		u.mu.Unlock()
		return fmt.Errorf("vision: file id %s already tracked", fileID)
	}
	record := &u.records[idx]
	record.FileID = fileID
	record.Progress = ProgressComplete
	if trimmed := strings.TrimSpace(url); trimmed != "" {
		record.URL = trimmed
	}
	snapshot := u.snapshotLocked()
	u.mu.Unlock()

	u.control.Update(snapshot)
	return nil
}

// Fail stamps the failure sentinel on id.
func (u *Uploader) Fail(id string) error {
	return u.mutate(id, func(r *UploadRecord) { r.Progress = ProgressFailed })
}

// Remove drops id from the tracked set.
func (u *Uploader) Remove(id string) error {
	u.emit.Lock()
	defer u.emit.Unlock()

	u.mu.Lock()
	idx := u.indexLocked(id)
	if idx < 0 {
		u.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownUpload, id)
	}
	u.records = append(u.records[:idx], u.records[idx+1:]...)
	snapshot := u.snapshotLocked()
	u.mu.Unlock()

	u.control.Update(snapshot)
	return nil
}

// Clear drops every tracked upload.
func (u *Uploader) Clear() {
	u.emit.Lock()
	defer u.emit.Unlock()

	u.mu.Lock()
	u.records = nil
	u.mu.Unlock()
	u.control.Update(nil)
}

// Records returns a copy of the tracked upload records.
func (u *Uploader) Records() []UploadRecord {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.snapshotLocked()
}

func (u *Uploader) mutate(id string, fn func(*UploadRecord)) error {
	u.emit.Lock()
	defer u.emit.Unlock()

	u.mu.Lock()
	idx := u.indexLocked(id)
	if idx < 0 {
		u.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownUpload, id)
	}
	fn(&u.records[idx])
	snapshot := u.snapshotLocked()
	u.mu.Unlock()

	u.control.Update(snapshot)
	return nil
}

func (u *Uploader) indexLocked(id string) int {
	for i, record := range u.records {
		if record.FileID == id {
			return i
		}
	}
	return -1
}

func (u *Uploader) liveCountLocked() int {
	count := 0
	for _, record := range u.records {
		if !record.Failed() {
			count++
		}
	}
	return count
}

func (u *Uploader) snapshotLocked() []UploadRecord {
	if len(u.records) == 0 {
		return nil
	}
	out := make([]UploadRecord, len(u.records))
	copy(out, u.records)
	return out
}
