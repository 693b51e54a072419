package models

// Notebook is a container of notes.
type Notebook struct {
	SyncMeta `yaml:",inline"`

	Name            string `json:"name"`
	Stack           string `json:"stack,omitempty"`
	DefaultNotebook bool   `json:"defaultNotebook,omitempty"`
	Published       bool   `json:"published,omitempty"`
	ServiceCreated  int64  `json:"serviceCreated,omitempty"`
	ServiceUpdated  int64  `json:"serviceUpdated,omitempty"`
}

func (n Notebook) EntityName() string {
	return n.Name
}

// LinkedNotebook is a reference to a notebook shared from another account.
// Its content lives on a different shard and requires its own auth token.
type LinkedNotebook struct {
	SyncMeta `yaml:",inline"`

	ShareName              string `json:"shareName,omitempty"`
	Username               string `json:"username,omitempty"`
	ShardID                string `json:"shardId,omitempty"`
	SharedNotebookGlobalID string `json:"sharedNotebookGlobalId,omitempty"`
	URI                    string `json:"uri,omitempty"`
	NoteStoreURL           string `json:"noteStoreUrl,omitempty"`
	WebAPIURLPrefix        string `json:"webApiUrlPrefix,omitempty"`
	Stack                  string `json:"stack,omitempty"`
	BusinessID             int32  `json:"businessId,omitempty"`
}

func (l LinkedNotebook) EntityName() string {
	return l.ShareName
}
