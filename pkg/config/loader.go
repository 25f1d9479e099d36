package config

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-runform/pkg/model"
	"github.com/goliatone/go-runform/pkg/vision"
)

// Option configures loading.
type Option func(*loader)

type loader struct {
	builder model.Builder
}

// WithBuilder replaces the default strict builder.
func WithBuilder(builder model.Builder) Option {
	return func(l *loader) {
		if builder != nil {
			l.builder = builder
		}
	}
}

// WithBuilderOptions configures the default builder.
func WithBuilderOptions(options ...model.BuilderOption) Option {
	return func(l *loader) {
		l.builder = model.NewBuilder(options...)
	}
}

func newLoader(options []Option) *loader {
	l := &loader{builder: model.NewBuilder()}
	for _, opt := range options {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// LoadFS walks fsys and parses every JSON/YAML file into the returned store.
// A nil fsys yields an empty store.
func LoadFS(fsys fs.FS, options ...Option) (*Store, error) {
	store := NewStore()
	if fsys == nil {
		return store, nil
	}
	l := newLoader(options)

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isConfigFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
		forms, err := l.parse(data, path)
		if err != nil {
			return err
		}
		for _, f := range forms {
			if err := store.Add(f, path); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// LoadFile parses a single document from disk.
func LoadFile(path string, options ...Option) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	forms, err := newLoader(options).parse(data, path)
	if err != nil {
		return nil, err
	}
	store := NewStore()
	for _, f := range forms {
		if err := store.Add(f, path); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// Parse decodes one document already in memory.
func Parse(data []byte, source string, options ...Option) ([]model.Form, error) {
	return newLoader(options).parse(data, source)
}

type documentFile struct {
	formFile `yaml:",inline"`
	Forms    []formFile `json:"forms" yaml:"forms"`
}

type formFile struct {
	ID              string                 `json:"id" yaml:"id"`
	Title           string                 `json:"title" yaml:"title"`
	Description     string                 `json:"description" yaml:"description"`
	PromptVariables []model.RawVariable    `json:"prompt_variables" yaml:"prompt_variables"`
	UserInputForm   []model.InputFormEntry `json:"user_input_form" yaml:"user_input_form"`
	Vision          *vision.Settings       `json:"vision" yaml:"vision"`
	FileUpload      *fileUploadFile        `json:"file_upload" yaml:"file_upload"`
	Metadata        map[string]string      `json:"metadata" yaml:"metadata"`
}

// fileUploadFile mirrors the application-parameters shape where image
// settings live under file_upload.image.
type fileUploadFile struct {
	Image *vision.Settings `json:"image" yaml:"image"`
}

func (l *loader) parse(data []byte, source string) ([]model.Form, error) {
	doc, err := parseDocument(data, source)
	if err != nil {
		return nil, err
	}

	var files []formFile
	if strings.TrimSpace(doc.ID) != "" {
		files = append(files, doc.formFile)
	}
	files = append(files, doc.Forms...)
	if len(files) == 0 {
		return nil, fmt.Errorf("config: file %s defines no forms", source)
	}

	forms := make([]model.Form, 0, len(files))
	for idx, file := range files {
		f, err := l.normalise(file)
		if err != nil {
			return nil, fmt.Errorf("config: file %s form %d (%s): %w", source, idx, file.ID, err)
		}
		forms = append(forms, f)
	}
	return forms, nil
}

func (l *loader) normalise(file formFile) (model.Form, error) {
	raw := make([]model.RawVariable, 0, len(file.PromptVariables)+len(file.UserInputForm))
	raw = append(raw, file.PromptVariables...)
	raw = append(raw, model.FlattenInputForm(file.UserInputForm)...)

	variables, err := l.builder.Build(raw)
	if err != nil {
		return model.Form{}, err
	}

	f := model.Form{
		ID:          strings.TrimSpace(file.ID),
		Title:       strings.TrimSpace(file.Title),
		Description: strings.TrimSpace(file.Description),
		Variables:   variables,
		Metadata:    file.Metadata,
	}
	switch {
	case file.Vision != nil:
		f.Vision = *file.Vision
	case file.FileUpload != nil && file.FileUpload.Image != nil:
		f.Vision = *file.FileUpload.Image
	}
	return f, nil
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("config: file %s is empty", source)
	}

	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}

	doc = documentFile{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return documentFile{}, fmt.Errorf("config: parse %s: invalid JSON or YAML: %w", source, err)
	}
	return doc, nil
}

func isConfigFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
