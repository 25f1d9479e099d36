// Package submit hands a completed form snapshot to the backend that runs it.
package submit

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"github.com/goliatone/go-runform/pkg/model"
	"github.com/goliatone/go-runform/pkg/vision"
)

// Response modes understood by run backends.
const (
	ResponseModeBlocking  = "blocking"
	ResponseModeStreaming = "streaming"
)

// Payload is the body posted to the run endpoint.
type Payload struct {
	Inputs       model.Values        `json:"inputs"`
	Files        []vision.Attachment `json:"files,omitempty"`
	ResponseMode string              `json:"response_mode"`
	User         string              `json:"user,omitempty"`
}

// Result carries the backend reply.
type Result struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body,omitempty"`
}

// Submitter delivers payloads.
type Submitter interface {
	Submit(ctx context.Context, payload Payload) (Result, error)
}

// SubmitterFunc adapts a function into a Submitter.
type SubmitterFunc func(ctx context.Context, payload Payload) (Result, error)

// Submit calls fn.
func (fn SubmitterFunc) Submit(ctx context.Context, payload Payload) (Result, error) {
	return fn(ctx, payload)
}

// Recorder keeps every payload in memory. It backs dry runs and tests.
type Recorder struct {
	mu       sync.Mutex
	payloads []Payload
	result   Result
}

// NewRecorder returns a recorder replying with result.
func NewRecorder(result Result) *Recorder {
	return &Recorder{result: result}
}

// Submit records payload.
func (r *Recorder) Submit(ctx context.Context, payload Payload) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	payload.Inputs = payload.Inputs.Clone()
	payload.Files = slices.Clone(payload.Files)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
	return r.result, nil
}

// Payloads returns the recorded payloads in submission order.
func (r *Recorder) Payloads() []Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.payloads)
}
