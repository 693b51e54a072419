package models

// Note is a single note. Sync chunks carry only note metadata; Content and
// resource data are present once the full note has been downloaded.
type Note struct {
	SyncMeta `yaml:",inline"`

	Title           string            `json:"title"`
	Content         string            `json:"content,omitempty"`
	ContentHash     []byte            `json:"contentHash,omitempty"`
	ContentLength   int32             `json:"contentLength,omitempty"`
	Created         int64             `json:"created,omitempty"`
	Updated         int64             `json:"updated,omitempty"`
	Deleted         int64             `json:"deleted,omitempty"`
	Active          bool              `json:"active"`
	NotebookGuid    string            `json:"notebookGuid,omitempty"`
	NotebookLocalID string            `json:"-"`
	TagGuids        []string          `json:"tagGuids,omitempty"`
	Resources       []Resource        `json:"resources,omitempty"`
	Attributes      NoteAttributes    `json:"attributes,omitempty"`
	SharedNotes     []SharedNote      `json:"sharedNotes,omitempty"`
	AppData         map[string]string `json:"applicationData,omitempty"`
	Thumbnail       []byte            `json:"-"`
}

func (n Note) EntityName() string {
	return n.Title
}

// HasContent reports whether the full note body has been downloaded.
func (n Note) HasContent() bool {
	return n.Content != ""
}

// NoteAttributes holds optional note attributes that are synced verbatim.
type NoteAttributes struct {
	SubjectDate  int64   `json:"subjectDate,omitempty"`
	Latitude     float64 `json:"latitude,omitempty"`
	Longitude    float64 `json:"longitude,omitempty"`
	Author       string  `json:"author,omitempty"`
	Source       string  `json:"source,omitempty"`
	SourceURL    string  `json:"sourceURL,omitempty"`
	ReminderTime int64   `json:"reminderTime,omitempty"`
	ContentClass string  `json:"contentClass,omitempty"`
}

// SharedNote describes a share of a note with another user.
type SharedNote struct {
	SharerUserID   int32  `json:"sharerUserID,omitempty"`
	RecipientEmail string `json:"recipientEmail,omitempty"`
	Privilege      int8   `json:"privilege,omitempty"`
	ServiceCreated int64  `json:"serviceCreated,omitempty"`
	ServiceUpdated int64  `json:"serviceUpdated,omitempty"`
}

// Resource is a binary attachment of a note.
type Resource struct {
	SyncMeta `yaml:",inline"`

	NoteGuid      string `json:"noteGuid,omitempty"`
	NoteLocalID   string `json:"-"`
	Mime          string `json:"mime,omitempty"`
	Width         int16  `json:"width,omitempty"`
	Height        int16  `json:"height,omitempty"`
	Data          []byte `json:"data,omitempty"`
	DataHash      []byte `json:"dataHash,omitempty"`
	DataSize      int32  `json:"dataSize,omitempty"`
	Recognition   []byte `json:"recognition,omitempty"`
	AlternateData []byte `json:"alternateData,omitempty"`
	Filename      string `json:"fileName,omitempty"`
}

func (r Resource) EntityName() string {
	return r.Filename
}

// IsImage reports whether the resource holds an image or an ink note.
func (r Resource) IsImage() bool {
	return len(r.Mime) > 6 && r.Mime[:6] == "image/" || r.Mime == InkNoteMime
}

// InkNoteMime is the mime type of ink note resources.
const InkNoteMime = "application/vnd.evernote.ink"
