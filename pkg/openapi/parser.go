package openapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-runform/pkg/form"
	"github.com/goliatone/go-runform/pkg/model"
	"github.com/goliatone/go-runform/pkg/vision"
)

const (
	// ExtensionHidden marks a request property as a hidden variable.
	ExtensionHidden = "x-runform-hidden"
	// ExtensionVision carries attachment settings on an operation.
	ExtensionVision = "x-runform-vision"
	// FormatTextarea forces a string property onto the paragraph widget.
	FormatTextarea = "textarea"
)

var (
	// ErrOperationNotFound is returned when the operation id is unknown.
	ErrOperationNotFound = errors.New("openapi: operation not found")
	// ErrNoRequestBody is returned when the operation has no JSON object body.
	ErrNoRequestBody = errors.New("openapi: operation has no JSON object request body")
)

// Operation summarises one operation of a loaded document.
type Operation struct {
	ID      string
	Method  string
	Path    string
	Summary string
}

// Option configures the parser.
type Option func(*parser)

type parser struct {
	validate         bool
	allowUnknown     bool
	defaultMaxLength int
	labeler          func(string) string
}

// WithValidation validates the document before mapping.
func WithValidation(enabled bool) Option {
	return func(p *parser) {
		p.validate = enabled
	}
}

// WithAllowUnknownTypes keeps properties whose type has no widget (arrays,
// objects, booleans) as unsupported variables instead of skipping them.
func WithAllowUnknownTypes() Option {
	return func(p *parser) {
		p.allowUnknown = true
	}
}

// WithDefaultMaxLength sets the threshold above which a string property's
// maxLength turns it into a paragraph.
func WithDefaultMaxLength(n int) Option {
	return func(p *parser) {
		if n > 0 {
			p.defaultMaxLength = n
		}
	}
}

// WithLabeler overrides labels for properties without a title.
func WithLabeler(labeler func(string) string) Option {
	return func(p *parser) {
		if labeler != nil {
			p.labeler = labeler
		}
	}
}

func newParser(options []Option) *parser {
	p := &parser{defaultMaxLength: form.DefaultMaxLength}
	for _, opt := range options {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Operations lists the document's operations sorted by id.
func Operations(ctx context.Context, raw []byte, options ...Option) ([]Operation, error) {
	doc, err := newParser(options).load(ctx, raw)
	if err != nil {
		return nil, err
	}
	var out []Operation
	for path, item := range doc.Paths.Map() {
		for method, op := range item.Operations() {
			out = append(out, Operation{
				ID:      operationID(method, path, op),
				Method:  method,
				Path:    path,
				Summary: op.Summary,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Descriptors maps the JSON request body of operationID onto variables.
func Descriptors(ctx context.Context, raw []byte, operationID string, options ...Option) ([]model.FieldDescriptor, error) {
	f, err := Form(ctx, raw, operationID, options...)
	if err != nil {
		return nil, err
	}
	return f.Variables, nil
}

// Form builds a complete form for operationID: variables from the request
// body, title from the summary, and attachment settings from the
// x-runform-vision extension.
func Form(ctx context.Context, raw []byte, operationID string, options ...Option) (model.Form, error) {
	p := newParser(options)
	doc, err := p.load(ctx, raw)
	if err != nil {
		return model.Form{}, err
	}

	op, err := findOperation(doc, operationID)
	if err != nil {
		return model.Form{}, err
	}
	schema := requestSchema(op)
	if schema == nil {
		return model.Form{}, fmt.Errorf("%w: %s", ErrNoRequestBody, operationID)
	}

	variables, err := p.variables(schema)
	if err != nil {
		return model.Form{}, fmt.Errorf("openapi: operation %s: %w", operationID, err)
	}

	f := model.Form{
		ID:          operationID,
		Title:       strings.TrimSpace(op.Summary),
		Description: strings.TrimSpace(op.Description),
		Variables:   variables,
	}
	if settings, ok, err := visionExtension(op.Extensions); err != nil {
		return model.Form{}, fmt.Errorf("openapi: operation %s: %w", operationID, err)
	} else if ok {
		f.Vision = settings
	}
	return f, nil
}

func (p *parser) load(ctx context.Context, raw []byte) (*openapi3.T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if p.validate {
		if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("openapi: validate: %w", err)
		}
	}
	if doc.Paths == nil || doc.Paths.Len() == 0 {
		return nil, errors.New("openapi: document does not contain any paths")
	}
	return doc, nil
}

func (p *parser) variables(schema *openapi3.Schema) ([]model.FieldDescriptor, error) {
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	required := make(map[string]struct{}, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = struct{}{}
	}

	raw := make([]model.RawVariable, 0, len(names))
	for _, name := range names {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		prop := ref.Value
		fieldType, ok := p.fieldType(prop)
		if !ok && !p.allowUnknown {
			continue
		}

		variable := model.RawVariable{
			Key:         name,
			Name:        strings.TrimSpace(prop.Title),
			Type:        fieldType,
			Options:     enumOptions(prop.Enum),
			Default:     defaultString(prop.Default),
			Description: prop.Description,
		}
		if _, ok := required[name]; ok {
			variable.Required = true
		}
		if prop.MaxLength != nil && fieldType == string(model.FieldTypeText) {
			variable.MaxLength = int(*prop.MaxLength)
		}
		if hidden, ok := prop.Extensions[ExtensionHidden].(bool); ok {
			variable.Hidden = &hidden
		}
		raw = append(raw, variable)
	}

	var builderOptions []model.BuilderOption
	if p.labeler != nil {
		builderOptions = append(builderOptions, model.WithLabeler(p.labeler))
	}
	if p.allowUnknown {
		builderOptions = append(builderOptions, model.WithAllowUnknownTypes())
	}
	return model.NewBuilder(builderOptions...).Build(raw)
}

// fieldType maps a property schema onto a widget type name. Unsupported
// schemas return their OpenAPI type with ok=false.
func (p *parser) fieldType(prop *openapi3.Schema) (string, bool) {
	switch {
	case hasType(prop, openapi3.TypeString):
		if len(prop.Enum) > 0 {
			return string(model.FieldTypeSelect), true
		}
		if strings.EqualFold(prop.Format, FormatTextarea) {
			return string(model.FieldTypeParagraph), true
		}
		if prop.MaxLength != nil && int(*prop.MaxLength) > p.defaultMaxLength {
			return string(model.FieldTypeParagraph), true
		}
		return string(model.FieldTypeText), true
	case hasType(prop, openapi3.TypeNumber), hasType(prop, openapi3.TypeInteger):
		return string(model.FieldTypeNumber), true
	case prop.Type != nil && len(*prop.Type) > 0:
		return (*prop.Type)[0], false
	default:
		return "unknown", false
	}
}

func hasType(schema *openapi3.Schema, name string) bool {
	if schema == nil || schema.Type == nil {
		return false
	}
	for _, candidate := range *schema.Type {
		if candidate == name {
			return true
		}
	}
	return false
}

func findOperation(doc *openapi3.T, id string) (*openapi3.Operation, error) {
	for path, item := range doc.Paths.Map() {
		for method, op := range item.Operations() {
			if operationID(method, path, op) == id {
				return op, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrOperationNotFound, id)
}

func operationID(method, path string, op *openapi3.Operation) string {
	if id := strings.TrimSpace(op.OperationID); id != "" {
		return id
	}
	return strings.ToLower(method) + ":" + path
}

func requestSchema(op *openapi3.Operation) *openapi3.Schema {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	media := op.RequestBody.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil
	}
	schema := media.Schema.Value
	if !hasType(schema, openapi3.TypeObject) && len(schema.Properties) == 0 {
		return nil
	}
	return schema
}

func enumOptions(values []any) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		out = append(out, fmt.Sprint(value))
	}
	return out
}

func defaultString(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}

func visionExtension(extensions map[string]any) (vision.Settings, bool, error) {
	value, ok := extensions[ExtensionVision]
	if !ok || value == nil {
		return vision.Settings{}, false, nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return vision.Settings{}, false, fmt.Errorf("encode %s: %w", ExtensionVision, err)
	}
	var settings vision.Settings
	if err := json.Unmarshal(payload, &settings); err != nil {
		return vision.Settings{}, false, fmt.Errorf("decode %s: %w", ExtensionVision, err)
	}
	return settings, true, nil
}
