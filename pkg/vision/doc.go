// Package vision holds the image attachment side of a run form: the settings
// that switch the control on, the raw upload records reported by an upload
// widget, and the projection of those records into the attachment list sent
// along with a submission.
//
// Failed uploads are signalled through the ProgressFailed sentinel and are
// dropped from the projected list; in-flight uploads are kept.
package vision
