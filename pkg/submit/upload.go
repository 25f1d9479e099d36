package submit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNoFileID is returned when an upload reply names no file id.
var ErrNoFileID = errors.New("submit: upload reply has no file id")

// File is one local image forwarded to the backend's upload endpoint.
type File struct {
	Name        string
	ContentType string
	Body        io.Reader
	User        string
}

// UploadedFile is the backend's record of a stored file. ID is what run
// payloads reference as upload_file_id.
type UploadedFile struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}

// FileUploader stores local files with the backend before a run.
type FileUploader interface {
	Upload(ctx context.Context, file File) (UploadedFile, error)
}

// FileUploaderFunc adapts a function into a FileUploader.
type FileUploaderFunc func(ctx context.Context, file File) (UploadedFile, error)

// Upload calls fn.
func (fn FileUploaderFunc) Upload(ctx context.Context, file File) (UploadedFile, error) {
	return fn(ctx, file)
}

// HTTPUploader posts files as multipart/form-data, with the bytes in a
// "file" part and the run user in a "user" field.
type HTTPUploader struct {
	httpSettings
	endpoint string
}

// NewHTTPUploader targets endpoint.
func NewHTTPUploader(endpoint string, options ...HTTPOption) (*HTTPUploader, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("submit: upload endpoint is required")
	}
	return &HTTPUploader{httpSettings: newHTTPSettings(options), endpoint: endpoint}, nil
}

// Upload streams file to the endpoint and returns the id the backend issued.
func (u *HTTPUploader) Upload(ctx context.Context, file File) (UploadedFile, error) {
	if file.Body == nil {
		return UploadedFile{}, errors.New("submit: upload body is required")
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(form, file))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return UploadedFile{}, fmt.Errorf("submit: build upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	started := time.Now()
	status, data, err := u.do(req)
	_ = pr.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		return UploadedFile{}, fmt.Errorf("submit: upload %s: %w", u.endpoint, err)
	}
	if status < 200 || status >= 300 {
		return UploadedFile{}, fmt.Errorf("%w %d from %s", ErrUnexpectedStatus, status, u.endpoint)
	}

	var uploaded UploadedFile
	if err := json.Unmarshal(data, &uploaded); err != nil {
		return UploadedFile{}, fmt.Errorf("submit: decode upload reply: %w", err)
	}
	if uploaded.ID = strings.TrimSpace(uploaded.ID); uploaded.ID == "" {
		return UploadedFile{}, ErrNoFileID
	}

	u.logger.Info("file uploaded",
		zap.String("endpoint", u.endpoint),
		zap.String("name", file.Name),
		zap.String("file_id", uploaded.ID),
		zap.Duration("elapsed", time.Since(started)),
	)
	return uploaded, nil
}

func writeUploadForm(form *multipart.Writer, file File) error {
	if file.User != "" {
		if err := form.WriteField("user", file.User); err != nil {
			return err
		}
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := form.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file.Body); err != nil {
		return err
	}
	return form.Close()
}
