package vision

// TransferMethod identifies how an attachment reaches the backend.
type TransferMethod string

const (
	TransferMethodLocalFile TransferMethod = "local_file"
	TransferMethodRemoteURL TransferMethod = "remote_url"
)

// AttachmentKind is the fixed kind stamped on every projected attachment.
const AttachmentKind = "image"

const (
	// ProgressFailed marks an upload attempt that failed.
	ProgressFailed = -1
	// ProgressComplete marks a finished upload.
	ProgressComplete = 100
)

// Settings toggles and constrains the attachment control.
type Settings struct {
	Enabled              bool             `json:"enabled" yaml:"enabled"`
	NumberLimits         int              `json:"number_limits,omitempty" yaml:"number_limits,omitempty"`
	Detail               string           `json:"detail,omitempty" yaml:"detail,omitempty"`
	TransferMethods      []TransferMethod `json:"transfer_methods,omitempty" yaml:"transfer_methods,omitempty"`
	ImageFileSizeLimitMB int              `json:"image_file_size_limit,omitempty" yaml:"image_file_size_limit,omitempty"`
}

// Allows reports whether method is permitted. An empty list permits both
// methods.
func (s Settings) Allows(method TransferMethod) bool {
	if len(s.TransferMethods) == 0 {
		return method == TransferMethodLocalFile || method == TransferMethodRemoteURL
	}
	for _, candidate := range s.TransferMethods {
		if candidate == method {
			return true
		}
	}
	return false
}

// UploadRecord is the raw progress report for one file.
type UploadRecord struct {
	FileID         string         `json:"file_id"`
	TransferMethod TransferMethod `json:"type"`
	URL            string         `json:"url"`
	Progress       int            `json:"progress"`
	Name           string         `json:"name,omitempty"`
}

// Failed reports whether the record carries the failure sentinel.
func (r UploadRecord) Failed() bool {
	return r.Progress == ProgressFailed
}

// Attachment is the normalised record forwarded with a submission.
type Attachment struct {
	Type           string         `json:"type"`
	TransferMethod TransferMethod `json:"transfer_method"`
	URL            string         `json:"url"`
	UploadFileID   string         `json:"upload_file_id"`
}
