package models

import "time"

// AuthData is the result of authenticating the user against the remote
// service, whether obtained through OAuth or restored from storage.
type AuthData struct {
	UserID          int32
	AuthToken       string
	ShardID         string
	NoteStoreURL    string
	WebAPIURLPrefix string
	// Expiration is the token expiration time in milliseconds since epoch.
	Expiration int64
}

// ExpiresWithin reports whether the token expires within d of now.
func (a AuthData) ExpiresWithin(now time.Time, d time.Duration) bool {
	return time.UnixMilli(a.Expiration).Sub(now) < d
}

// LinkedNotebookAuth is the auth token and shard of one linked notebook.
type LinkedNotebookAuth struct {
	Guid       string
	AuthToken  string
	ShardID    string
	Expiration int64
}

// ExpiresWithin reports whether the token expires within d of now.
func (a LinkedNotebookAuth) ExpiresWithin(now time.Time, d time.Duration) bool {
	return time.UnixMilli(a.Expiration).Sub(now) < d
}
