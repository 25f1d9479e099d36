// Package runform renders run-once input forms from prompt variable
// configurations or OpenAPI request bodies.
package runform

import (
	"context"

	"github.com/goliatone/go-runform/pkg/model"
	"github.com/goliatone/go-runform/pkg/openapi"
	"github.com/goliatone/go-runform/pkg/orchestrator"
	"github.com/goliatone/go-runform/pkg/render"
)

// Form is a resolved form configuration.
type Form = model.Form

// FieldDescriptor describes one prompt variable.
type FieldDescriptor = model.FieldDescriptor

// Values maps variable keys to their current string value.
type Values = model.Values

// RenderOptions describes per-request values, errors, and labels.
type RenderOptions = render.RenderOptions

// Request selects the form to render.
type Request = orchestrator.Request

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// GenerateHTML renders a configured form with the vanilla renderer.
func GenerateHTML(ctx context.Context, formID string, opts RenderOptions, options ...orchestrator.Option) ([]byte, error) {
	return orchestrator.New(options...).Generate(ctx, orchestrator.Request{
		FormID:        formID,
		Renderer:      "vanilla",
		RenderOptions: opts,
	})
}

// GenerateHTMLFromDocument renders the request body of operationID from an
// OpenAPI document already in memory.
func GenerateHTMLFromDocument(ctx context.Context, doc []byte, operationID string, opts RenderOptions, options ...orchestrator.Option) ([]byte, error) {
	return orchestrator.New(options...).Generate(ctx, orchestrator.Request{
		Document:      doc,
		OperationID:   operationID,
		Renderer:      "vanilla",
		RenderOptions: opts,
	})
}

// GenerateHTMLFromSource loads an OpenAPI document from source first.
func GenerateHTMLFromSource(ctx context.Context, source openapi.Source, operationID string, opts RenderOptions, options ...orchestrator.Option) ([]byte, error) {
	return orchestrator.New(options...).Generate(ctx, orchestrator.Request{
		Source:        source,
		OperationID:   operationID,
		Renderer:      "vanilla",
		RenderOptions: opts,
	})
}
