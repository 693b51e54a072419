package models

// Tag labels notes. Tags may form a hierarchy through ParentGuid.
type Tag struct {
	SyncMeta `yaml:",inline"`

	Name          string `json:"name"`
	ParentGuid    string `json:"parentGuid,omitempty"`
	ParentLocalID string `json:"-"`
}

func (t Tag) EntityName() string {
	return t.Name
}

// SavedSearch is a named search query stored in the account.
type SavedSearch struct {
	SyncMeta `yaml:",inline"`

	Name   string `json:"name"`
	Query  string `json:"query"`
	Format int8   `json:"format,omitempty"`

	IncludeAccount        bool `json:"includeAccount,omitempty"`
	IncludePersonalLinked bool `json:"includePersonalLinkedNotebooks,omitempty"`
	IncludeBusinessLinked bool `json:"includeBusinessLinkedNotebooks,omitempty"`
}

func (s SavedSearch) EntityName() string {
	return s.Name
}
