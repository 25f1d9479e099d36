package vision

// Project filters failed uploads out of records and converts the remainder,
// in their original order, into attachments. Records still in progress are
// retained.
func Project(records []UploadRecord) []Attachment {
	out := make([]Attachment, 0, len(records))
	for _, record := range records {
		if record.Failed() {
			continue
		}
		out = append(out, Attachment{
			Type:           AttachmentKind,
			TransferMethod: record.TransferMethod,
			URL:            record.URL,
			UploadFileID:   record.FileID,
		})
	}
	return out
}

// Control forwards projected attachments to OnFilesChange whenever the
// underlying upload set changes. A disabled control never calls back.
type Control struct {
	Settings      Settings
	OnFilesChange func([]Attachment)
}

// Active reports whether the control should be rendered at all.
func (c Control) Active() bool {
	return c.Settings.Enabled
}

// Update receives the full current upload set and emits the full projected
// list (never a delta).
func (c Control) Update(records []UploadRecord) {
	if !c.Active() || c.OnFilesChange == nil {
		return
	}
	c.OnFilesChange(Project(records))
}
