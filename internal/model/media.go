package model

// MediaKind distinguishes image and video attachments.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// UploadState is the media pipeline state.
type UploadState string

const (
	UploadPending   UploadState = "pending"
	UploadUploading UploadState = "uploading"
	UploadUploaded  UploadState = "uploaded"
	UploadFailed    UploadState = "failed"
)

// MediaLocation is the resolved remote location of an attachment: either an
// inline-encoded payload or a blob-storage URL plus its object path (the path
// is kept for deletion).
type MediaLocation struct {
	Inline string // base64 payload, images under the ceilings only
	URL    string // blob-storage fetch URL
	Path   string // blob-storage object path
}

// IsInline reports whether the location is an inline encoding.
func (l *MediaLocation) IsInline() bool { return l != nil && l.Inline != "" }

// MediaAttachment is one photo or video owned by exactly one training or run
// record. Invariants: State==uploaded implies Remote != nil; State==failed
// implies UploadErr != nil and Progress == nil.
type MediaAttachment struct {
	ID   string
	Kind MediaKind

	Data  []byte // raw payload, owned locally until uploaded
	Thumb []byte // video thumbnail payload

	State     UploadState
	Remote    *MediaLocation
	ThumbURL  string
	ThumbPath string
	Progress  *float64 // 0..1 while uploading, cleared on terminal states
	UploadErr *string
}

// Uploaded reports whether the attachment already has a remote location.
func (m *MediaAttachment) Uploaded() bool {
	return m.State == UploadUploaded && m.Remote != nil
}

// MarkUploading resets error/progress for a fresh attempt.
func (m *MediaAttachment) MarkUploading() {
	m.State = UploadUploading
	m.UploadErr = nil
	p := 0.0
	m.Progress = &p
}

// MarkUploaded records the terminal success state.
func (m *MediaAttachment) MarkUploaded(loc *MediaLocation) {
	m.State = UploadUploaded
	m.Remote = loc
	m.UploadErr = nil
	p := 1.0
	m.Progress = &p
}

// MarkFailed records the terminal failure state.
func (m *MediaAttachment) MarkFailed(msg string) {
	m.State = UploadFailed
	m.UploadErr = &msg
	m.Progress = nil
}
