// Package settings persists per-account synchronization state: the sync
// checkpoint, non-secret auth metadata and cached account limits.
//
// Everything is kept in one YAML document grouped by account. Secrets never
// go here; see package credentials.
package settings

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/MKhiriev/go-note-keeper/models"
)

//go:generate mockgen -source=settings.go -destination=../mock/settings_store_mock.go -package=mock

// Store reads and updates the settings of one account at a time.
type Store interface {
	// Load returns the settings of account. An unknown account yields zero
	// settings.
	Load(ctx context.Context, account Account) (AccountSettings, error)
	// Update applies fn to the settings of account and persists the result.
	// Nothing is written when fn returns an error.
	Update(ctx context.Context, account Account, fn func(*AccountSettings) error) error
}

// Account identifies the settings group of a user on a host.
type Account struct {
	Host   string
	UserID int32
}

// HostAccount is the group shared by every account on host.
func HostAccount(host string) Account {
	return Account{Host: host}
}

func (a Account) String() string {
	return fmt.Sprintf("%s/%d", a.Host, a.UserID)
}

// AccountSettings is everything stored for one account.
type AccountSettings struct {
	LastSyncParams LastSyncParams `yaml:"last_sync_params"`
	Auth           AuthSettings   `yaml:"auth"`
	AccountLimits  *LimitsRecord  `yaml:"account_limits,omitempty"`
	// LastUserID is the last account authenticated on the host. Only the
	// [HostAccount] group carries it.
	LastUserID int32 `yaml:"last_user_id,omitempty"`
}

// LastSyncParams is the persisted sync checkpoint.
type LastSyncParams struct {
	UpdateCount     int32                      `yaml:"last_sync_update_count"`
	SyncTime        int64                      `yaml:"last_sync_time"`
	LinkedNotebooks []LinkedNotebookSyncParams `yaml:"last_sync_linked_notebooks_params,omitempty"`
}

type LinkedNotebookSyncParams struct {
	Guid                            string `yaml:"linked_notebook_guid"`
	models.LinkedNotebookCheckpoint `yaml:",inline"`
}

// AuthSettings is the non-secret part of the auth data.
type AuthSettings struct {
	ExpirationTimestamp int64  `yaml:"ExpirationTimestamp,omitempty"`
	NoteStoreURL        string `yaml:"NoteStoreUrl,omitempty"`
	WebAPIURLPrefix     string `yaml:"WebApiUrlPrefix,omitempty"`
	// LinkedNotebookExpirations maps linked notebook guid to the expiration
	// of its auth token.
	LinkedNotebookExpirations map[string]int64 `yaml:"LinkedNotebookExpirationTimestamps,omitempty"`
}

// LimitsRecord is the cached account limits and the time they were fetched.
type LimitsRecord struct {
	models.AccountLimits `yaml:",inline"`
	FetchedAt            time.Time `yaml:"fetched_at"`
}

// Checkpoint converts the stored params into a [models.SyncCheckpoint].
func (s AccountSettings) Checkpoint() models.SyncCheckpoint {
	cp := models.SyncCheckpoint{
		LastUpdateCount: s.LastSyncParams.UpdateCount,
		LastSyncTime:    s.LastSyncParams.SyncTime,
		LinkedNotebooks: make(map[string]models.LinkedNotebookCheckpoint, len(s.LastSyncParams.LinkedNotebooks)),
	}
	for _, ln := range s.LastSyncParams.LinkedNotebooks {
		cp.LinkedNotebooks[ln.Guid] = ln.LinkedNotebookCheckpoint
	}
	return cp
}

// SetCheckpoint replaces the stored params with cp. Linked notebooks are
// written in guid order.
func (s *AccountSettings) SetCheckpoint(cp models.SyncCheckpoint) {
	params := LastSyncParams{
		UpdateCount: cp.LastUpdateCount,
		SyncTime:    cp.LastSyncTime,
	}
	for guid, ln := range cp.LinkedNotebooks {
		params.LinkedNotebooks = append(params.LinkedNotebooks, LinkedNotebookSyncParams{Guid: guid, LinkedNotebookCheckpoint: ln})
	}
	sort.Slice(params.LinkedNotebooks, func(i, j int) bool {
		return params.LinkedNotebooks[i].Guid < params.LinkedNotebooks[j].Guid
	})
	s.LastSyncParams = params
}

// Limits returns the cached account limits when they are younger than maxAge.
func (s AccountSettings) Limits(now time.Time, maxAge time.Duration) (models.AccountLimits, bool) {
	if s.AccountLimits == nil || now.Sub(s.AccountLimits.FetchedAt) > maxAge {
		return models.AccountLimits{}, false
	}
	return s.AccountLimits.AccountLimits, true
}
