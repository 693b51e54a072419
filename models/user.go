package models

// User is the remote account owning the synchronized content.
type User struct {
	ID           int32  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email,omitempty"`
	Name         string `json:"name,omitempty"`
	Timezone     string `json:"timezone,omitempty"`
	ServiceLevel int32  `json:"serviceLevel,omitempty"`
	Created      int64  `json:"created,omitempty"`
	Updated      int64  `json:"updated,omitempty"`
	Active       bool   `json:"active"`
	ShardID      string `json:"shardId,omitempty"`
}

// AccountLimits are the quota numbers of the user's service level.
type AccountLimits struct {
	UserMailLimitDaily    int32 `json:"userMailLimitDaily,omitempty" yaml:"user_mail_limit_daily,omitempty"`
	NoteSizeMax           int64 `json:"noteSizeMax,omitempty" yaml:"note_size_max,omitempty"`
	ResourceSizeMax       int64 `json:"resourceSizeMax,omitempty" yaml:"resource_size_max,omitempty"`
	UserLinkedNotebookMax int32 `json:"userLinkedNotebookMax,omitempty" yaml:"user_linked_notebook_max,omitempty"`
	UploadLimit           int64 `json:"uploadLimit,omitempty" yaml:"upload_limit,omitempty"`
	UserNoteCountMax      int32 `json:"userNoteCountMax,omitempty" yaml:"user_note_count_max,omitempty"`
	UserNotebookCountMax  int32 `json:"userNotebookCountMax,omitempty" yaml:"user_notebook_count_max,omitempty"`
	UserTagCountMax       int32 `json:"userTagCountMax,omitempty" yaml:"user_tag_count_max,omitempty"`
	NoteTagCountMax       int32 `json:"noteTagCountMax,omitempty" yaml:"note_tag_count_max,omitempty"`
	UserSavedSearchesMax  int32 `json:"userSavedSearchesMax,omitempty" yaml:"user_saved_searches_max,omitempty"`
	NoteResourceCountMax  int32 `json:"noteResourceCountMax,omitempty" yaml:"note_resource_count_max,omitempty"`
}
