package render

import (
	"context"

	"github.com/goliatone/go-runform/pkg/model"
)

// Renderer converts a Form plus the current values into a byte representation
// (HTML, JSON, a terminal session transcript, ...).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, form model.Form, options RenderOptions) ([]byte, error)
}
