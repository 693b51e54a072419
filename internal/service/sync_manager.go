// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MKhiriev/go-note-keeper/internal/adapter"
	"github.com/MKhiriev/go-note-keeper/internal/credentials"
	"github.com/MKhiriev/go-note-keeper/internal/logger"
	"github.com/MKhiriev/go-note-keeper/internal/settings"
	"github.com/MKhiriev/go-note-keeper/internal/store"
	"github.com/MKhiriev/go-note-keeper/models"
)

const (
	// DefaultAuthExpiryThreshold is how close to expiration a cached token
	// may be and still be used.
	DefaultAuthExpiryThreshold = 6 * time.Hour
	// DefaultMaxSyncRounds bounds the download/upload rounds of one
	// Synchronize call.
	DefaultMaxSyncRounds = 5
)

// Authenticator obtains fresh credentials for the user, e.g. through OAuth.
type Authenticator interface {
	Authenticate(ctx context.Context) (models.AuthData, error)
}

// SyncManagerConfig configures a [SyncManager].
type SyncManagerConfig struct {
	// App and Host name the secret store entries and settings groups.
	App  string
	Host string
	// UserID is the account used last time. Zero means no account is known
	// yet and the first Synchronize has to authenticate.
	UserID int32

	AuthExpiryThreshold time.Duration
	MaxSyncRounds       int
	CachePageSize       int

	RemoteToLocal RemoteToLocalConfig
}

type activeManager int

const (
	activeNone activeManager = iota
	activeRemoteToLocal
	activeSendLocalChanges
)

// SyncManager runs whole synchronizations: it authenticates, downloads
// remote changes, persists the checkpoint, sends local changes and repeats
// the download when the upload found the service ahead. It also hands out
// linked notebook credentials to both managers.
type SyncManager struct {
	cfg           SyncManagerConfig
	e             *engine
	secrets       credentials.SecretStore
	settings      settings.Store
	authenticator Authenticator
	now           func() time.Time

	r2l    *RemoteToLocalManager
	sender *SendLocalChangesManager

	mu             sync.Mutex
	running        bool
	authenticating bool
	active         activeManager
	paused         activeManager
	stopRequested  bool
	// stop cancels the context of the running Synchronize with ErrStopped.
	stop    context.CancelCauseFunc
	userID  int32
	auth    models.AuthData
	hasAuth bool
	// authExpired makes the next authentication skip every cached token.
	authExpired bool
	linkedAuth  map[string]models.LinkedNotebookAuth
}

// NewSyncManager wires both managers to the given collaborators.
// thumbnails may be nil.
func NewSyncManager(
	remote adapter.NoteService,
	storage *store.AsyncStorage,
	secrets credentials.SecretStore,
	settingsStore settings.Store,
	authenticator Authenticator,
	thumbnails ThumbnailSink,
	cfg SyncManagerConfig,
	log *logger.Logger,
) *SyncManager {
	if cfg.AuthExpiryThreshold <= 0 {
		cfg.AuthExpiryThreshold = DefaultAuthExpiryThreshold
	}
	if cfg.MaxSyncRounds <= 0 {
		cfg.MaxSyncRounds = DefaultMaxSyncRounds
	}
	if cfg.RemoteToLocal.Host == "" {
		cfg.RemoteToLocal.Host = cfg.Host
	}
	if cfg.RemoteToLocal.CachePageSize == 0 {
		cfg.RemoteToLocal.CachePageSize = cfg.CachePageSize
	}

	s := &SyncManager{
		cfg:           cfg,
		e:             newEngine(ComponentSyncManager, remote, storage, log),
		secrets:       secrets,
		settings:      settingsStore,
		authenticator: authenticator,
		now:           time.Now,
		userID:        cfg.UserID,
		linkedAuth:    make(map[string]models.LinkedNotebookAuth),
	}
	s.r2l = NewRemoteToLocalManager(remote, storage, settingsStore, s, thumbnails, cfg.RemoteToLocal, log)
	s.sender = NewSendLocalChangesManager(remote, storage, s, cfg.CachePageSize, log)

	s.r2l.Subscribe(s.e.emit)
	s.sender.Subscribe(s.e.emit)
	return s
}

// Subscribe registers fn for the events of the coordinator and both
// managers.
func (s *SyncManager) Subscribe(fn func(Event)) (unsubscribe func()) {
	return s.e.events.Subscribe(fn)
}

// UserID is the account synchronized, zero until known.
func (s *SyncManager) UserID() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Synchronize authenticates if needed and runs download and upload rounds
// until neither side has anything left. It returns the checkpoint reached.
func (s *SyncManager) Synchronize(ctx context.Context) (models.SyncCheckpoint, error) {
	ctx, err := s.start(ctx)
	if err != nil {
		return models.SyncCheckpoint{}, err
	}
	defer s.finish()

	auth, err := s.authenticate(ctx)
	s.mu.Lock()
	s.authenticating = false
	s.mu.Unlock()
	if err != nil {
		return models.SyncCheckpoint{}, s.fail(stopCause(ctx, err))
	}

	cp, err := s.synchronize(ctx, auth)
	if err != nil {
		return cp, s.fail(stopCause(ctx, err))
	}

	s.e.logger.Info().
		Int32("user_id", auth.UserID).
		Int32("update_count", cp.LastUpdateCount).
		Msg("synchronization finished")
	s.e.emit(SyncFinished{Checkpoint: cp})
	return cp, nil
}

// start claims the manager for one Synchronize call. Stop cancels the
// returned context, so a manager that has not begun its pass yet sees the
// stop as well.
func (s *SyncManager) start(ctx context.Context) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running || s.authenticating {
		return nil, ErrAlreadyRunning
	}
	s.running = true
	s.authenticating = true
	s.stopRequested = false
	ctx, s.stop = context.WithCancelCause(ctx)
	return ctx, nil
}

func (s *SyncManager) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stop(nil)
	s.stop = nil
	s.running = false
	s.authenticating = false
	s.active = activeNone
	s.paused = activeNone
}

// stopCause reports a cancellation made by Stop as [ErrStopped].
func stopCause(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) && errors.Is(context.Cause(ctx), ErrStopped) {
		return ErrStopped
	}
	return err
}

func (s *SyncManager) synchronize(ctx context.Context, auth models.AuthData) (models.SyncCheckpoint, error) {
	account := s.account(auth.UserID)
	stored, err := s.settings.Load(ctx, account)
	if err != nil {
		return models.SyncCheckpoint{}, fmt.Errorf("load sync checkpoint: %w", err)
	}
	cp := stored.Checkpoint()

	s.r2l.SetAuthData(auth)
	s.sender.SetAuthData(auth)

	for round := 1; ; round++ {
		if round > s.cfg.MaxSyncRounds {
			return cp, ErrTooManySyncRounds
		}

		if err := s.setActive(activeRemoteToLocal); err != nil {
			return cp, err
		}
		s.r2l.SetCheckpoint(cp)
		downloaded, err := s.r2l.Run(ctx, cp.LastUpdateCount)
		if err != nil {
			return cp, reportedError{err}
		}
		cp = cp.Advance(downloaded)
		if err = s.persistCheckpoint(ctx, account, cp); err != nil {
			return cp, err
		}

		if err = s.setActive(activeSendLocalChanges); err != nil {
			return cp, err
		}
		res, err := s.sender.Run(ctx, cp)
		if err != nil {
			return cp, reportedError{err}
		}
		cp = cp.Advance(res.Checkpoint)
		if err = s.persistCheckpoint(ctx, account, cp); err != nil {
			return cp, err
		}

		if !res.Conflict && !res.RepeatIncrementalSync {
			return cp, nil
		}
		s.e.logger.Info().
			Int("round", round).
			Bool("conflict", res.Conflict).
			Bool("repeat_incremental_sync", res.RepeatIncrementalSync).
			Msg("service is ahead, repeating incremental sync")
	}
}

func (s *SyncManager) persistCheckpoint(ctx context.Context, account settings.Account, cp models.SyncCheckpoint) error {
	err := s.settings.Update(ctx, account, func(st *settings.AccountSettings) error {
		st.SetCheckpoint(st.Checkpoint().Advance(cp))
		return nil
	})
	if err != nil {
		return fmt.Errorf("persist sync checkpoint: %w", err)
	}
	return nil
}

// reportedError marks a failure a manager has already emitted.
type reportedError struct {
	error
}

func (e reportedError) Unwrap() error {
	return e.error
}

// fail reports err unless a manager already did. Expired auth drops every
// cached token so that the next Synchronize authenticates again.
func (s *SyncManager) fail(err error) error {
	var re reportedError
	reported := errors.As(err, &re)
	if reported {
		err = re.error
	}

	if errors.Is(err, adapter.ErrAuthExpired) {
		s.mu.Lock()
		s.hasAuth = false
		s.authExpired = true
		clear(s.linkedAuth)
		s.mu.Unlock()
		s.e.logger.Warn().Err(err).Msg("authentication expired, next synchronization authenticates again")
	}

	if !reported && !errors.Is(err, ErrStopped) && !errors.Is(err, context.Canceled) {
		s.e.logger.Err(err).Msg("synchronization failed")
		s.e.emit(Failure{Component: ComponentSyncManager, Err: err})
	}
	return err
}

// Authenticate makes sure valid credentials of the user are available,
// reusing stored ones unless they expire within the threshold.
func (s *SyncManager) Authenticate(ctx context.Context) (models.AuthData, error) {
	s.mu.Lock()
	if s.authenticating {
		s.mu.Unlock()
		return models.AuthData{}, ErrAlreadyRunning
	}
	s.authenticating = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.authenticating = false
		s.mu.Unlock()
	}()
	return s.authenticate(ctx)
}

func (s *SyncManager) authenticate(ctx context.Context) (models.AuthData, error) {
	s.mu.Lock()
	auth, hasAuth, userID, force := s.auth, s.hasAuth, s.userID, s.authExpired
	s.mu.Unlock()

	now := s.now()
	if hasAuth && !force && !auth.ExpiresWithin(now, s.cfg.AuthExpiryThreshold) {
		return auth, nil
	}

	if userID == 0 && !force {
		last, err := s.settings.Load(ctx, settings.HostAccount(s.cfg.Host))
		if err != nil {
			return models.AuthData{}, fmt.Errorf("load last account: %w", err)
		}
		userID = last.LastUserID
	}
	if userID != 0 && !force {
		restored, ok, err := s.restoreAuth(ctx, userID)
		if err != nil {
			return models.AuthData{}, err
		}
		if ok && !restored.ExpiresWithin(now, s.cfg.AuthExpiryThreshold) {
			s.setAuth(restored)
			s.e.logger.Debug().Int32("user_id", userID).Msg("using stored auth token")
			return restored, nil
		}
	}

	if s.authenticator == nil {
		return models.AuthData{}, ErrNoAuthenticator
	}
	fresh, err := s.authenticator.Authenticate(ctx)
	if err != nil {
		return models.AuthData{}, fmt.Errorf("authenticate: %w", err)
	}
	if err = s.storeAuth(ctx, fresh); err != nil {
		return models.AuthData{}, err
	}

	s.setAuth(fresh)
	s.mu.Lock()
	s.authExpired = false
	s.mu.Unlock()

	s.e.logger.Info().Int32("user_id", fresh.UserID).Msg("authenticated")
	s.e.emit(AuthenticationFinished{UserID: fresh.UserID})
	return fresh, nil
}

func (s *SyncManager) setAuth(auth models.AuthData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = auth
	s.hasAuth = true
	s.userID = auth.UserID
}

// restoreAuth reads the token and shard id from the secret store and the
// rest from settings. A missing entry is not an error.
func (s *SyncManager) restoreAuth(ctx context.Context, userID int32) (models.AuthData, bool, error) {
	keys := s.keys(userID)

	token, err := s.readSecret(ctx, keys.AuthToken())
	if err != nil || token == "" {
		return models.AuthData{}, false, err
	}
	shard, err := s.readSecret(ctx, keys.ShardID())
	if err != nil || shard == "" {
		return models.AuthData{}, false, err
	}

	stored, err := s.settings.Load(ctx, s.account(userID))
	if err != nil {
		return models.AuthData{}, false, fmt.Errorf("load auth settings: %w", err)
	}
	if stored.Auth.ExpirationTimestamp == 0 {
		return models.AuthData{}, false, nil
	}

	return models.AuthData{
		UserID:          userID,
		AuthToken:       token,
		ShardID:         shard,
		NoteStoreURL:    stored.Auth.NoteStoreURL,
		WebAPIURLPrefix: stored.Auth.WebAPIURLPrefix,
		Expiration:      stored.Auth.ExpirationTimestamp,
	}, true, nil
}

func (s *SyncManager) storeAuth(ctx context.Context, auth models.AuthData) error {
	keys := s.keys(auth.UserID)
	if err := s.writeSecret(ctx, keys.AuthToken(), auth.AuthToken); err != nil {
		return err
	}
	if err := s.writeSecret(ctx, keys.ShardID(), auth.ShardID); err != nil {
		return err
	}

	err := s.settings.Update(ctx, s.account(auth.UserID), func(st *settings.AccountSettings) error {
		st.Auth.ExpirationTimestamp = auth.Expiration
		st.Auth.NoteStoreURL = auth.NoteStoreURL
		st.Auth.WebAPIURLPrefix = auth.WebAPIURLPrefix
		return nil
	})
	if err != nil {
		return fmt.Errorf("store auth settings: %w", err)
	}

	err = s.settings.Update(ctx, settings.HostAccount(s.cfg.Host), func(st *settings.AccountSettings) error {
		st.LastUserID = auth.UserID
		return nil
	})
	if err != nil {
		return fmt.Errorf("store last account: %w", err)
	}
	return nil
}

// RevokeAuthentication forgets the stored credentials of userID. Entries
// that do not exist count as deleted.
func (s *SyncManager) RevokeAuthentication(ctx context.Context, userID int32) error {
	keys := s.keys(userID)

	var errs []error
	for _, entry := range []credentials.Entry{keys.AuthToken(), keys.ShardID()} {
		err := s.secrets.DeletePassword(ctx, entry.Service, entry.Key)
		if err != nil && !errors.Is(err, credentials.ErrSecretNotFound) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		err := fmt.Errorf("%w: %w", ErrCredentialStore, errors.Join(errs...))
		s.e.logger.Err(err).Int32("user_id", userID).Msg("failed to revoke authentication")
		return err
	}

	s.mu.Lock()
	if s.userID == userID {
		s.auth = models.AuthData{}
		s.hasAuth = false
		clear(s.linkedAuth)
	}
	s.mu.Unlock()

	err := s.settings.Update(ctx, s.account(userID), func(st *settings.AccountSettings) error {
		st.Auth = settings.AuthSettings{}
		return nil
	})
	if err != nil {
		s.e.logger.Warn().Err(err).Int32("user_id", userID).Msg("failed to clear auth settings")
	}
	err = s.settings.Update(ctx, settings.HostAccount(s.cfg.Host), func(st *settings.AccountSettings) error {
		if st.LastUserID == userID {
			st.LastUserID = 0
		}
		return nil
	})
	if err != nil {
		s.e.logger.Warn().Err(err).Int32("user_id", userID).Msg("failed to clear last account")
	}

	s.e.logger.Info().Int32("user_id", userID).Msg("authentication revoked")
	s.e.emit(AuthenticationRevoked{UserID: userID})
	return nil
}

// LinkedNotebookAuth returns credentials for a linked notebook from, in
// order, memory, the secret store or the service. Tokens expiring within
// the threshold are fetched again.
func (s *SyncManager) LinkedNotebookAuth(ctx context.Context, ln models.LinkedNotebook) (models.LinkedNotebookAuth, error) {
	if ln.Guid == "" {
		return models.LinkedNotebookAuth{}, ErrNoLinkedNotebookKey
	}

	s.mu.Lock()
	cached, ok := s.linkedAuth[ln.Guid]
	own, userID, force := s.auth, s.userID, s.authExpired
	s.mu.Unlock()

	now := s.now()
	if ok && !cached.ExpiresWithin(now, s.cfg.AuthExpiryThreshold) {
		return cached, nil
	}

	if !force {
		restored, found, err := s.restoreLinkedAuth(ctx, userID, ln)
		if err != nil {
			return models.LinkedNotebookAuth{}, err
		}
		if found && !restored.ExpiresWithin(now, s.cfg.AuthExpiryThreshold) {
			s.rememberLinkedAuth(restored)
			return restored, nil
		}
	}

	fresh, err := s.authenticateToLinkedNotebook(ctx, own, ln)
	if err != nil {
		return models.LinkedNotebookAuth{}, err
	}
	if err = s.storeLinkedAuth(ctx, userID, fresh); err != nil {
		return models.LinkedNotebookAuth{}, err
	}
	s.rememberLinkedAuth(fresh)
	return fresh, nil
}

// authenticateToLinkedNotebook asks the shard of the notebook owner for a
// token. A notebook without a share key is public and readable with the
// user's own token.
func (s *SyncManager) authenticateToLinkedNotebook(ctx context.Context, own models.AuthData, ln models.LinkedNotebook) (models.LinkedNotebookAuth, error) {
	shareKey := ln.SharedNotebookGlobalID
	if shareKey == "" {
		return models.LinkedNotebookAuth{
			Guid:       ln.Guid,
			AuthToken:  own.AuthToken,
			ShardID:    ln.ShardID,
			Expiration: own.Expiration,
		}, nil
	}

	creds := adapter.Credentials{AuthToken: own.AuthToken, ShardID: ln.ShardID}
	auth, err := callRemote(ctx, s.e, "authenticate_to_shared_notebook", func(ctx context.Context) (models.LinkedNotebookAuth, error) {
		return s.e.remote.AuthenticateToSharedNotebook(ctx, creds, shareKey)
	})
	if err != nil {
		return models.LinkedNotebookAuth{}, fmt.Errorf("authenticate to shared notebook %s: %w", ln.Guid, err)
	}
	auth.Guid = ln.Guid
	if auth.ShardID == "" {
		auth.ShardID = ln.ShardID
	}

	s.e.logger.Info().Str("linked_notebook", ln.Guid).Msg("authenticated to linked notebook")
	return auth, nil
}

func (s *SyncManager) restoreLinkedAuth(ctx context.Context, userID int32, ln models.LinkedNotebook) (models.LinkedNotebookAuth, bool, error) {
	keys := s.keys(userID)

	token, err := s.readSecret(ctx, keys.LinkedNotebookAuthToken(ln.Guid))
	if err != nil || token == "" {
		return models.LinkedNotebookAuth{}, false, err
	}
	shard, err := s.readSecret(ctx, keys.LinkedNotebookShardID(ln.Guid))
	if err != nil || shard == "" {
		return models.LinkedNotebookAuth{}, false, err
	}

	stored, err := s.settings.Load(ctx, s.account(userID))
	if err != nil {
		return models.LinkedNotebookAuth{}, false, fmt.Errorf("load auth settings: %w", err)
	}
	expiration, ok := stored.Auth.LinkedNotebookExpirations[ln.Guid]
	if !ok {
		return models.LinkedNotebookAuth{}, false, nil
	}

	return models.LinkedNotebookAuth{
		Guid:       ln.Guid,
		AuthToken:  token,
		ShardID:    shard,
		Expiration: expiration,
	}, true, nil
}

func (s *SyncManager) storeLinkedAuth(ctx context.Context, userID int32, auth models.LinkedNotebookAuth) error {
	keys := s.keys(userID)
	if err := s.writeSecret(ctx, keys.LinkedNotebookAuthToken(auth.Guid), auth.AuthToken); err != nil {
		return err
	}
	if err := s.writeSecret(ctx, keys.LinkedNotebookShardID(auth.Guid), auth.ShardID); err != nil {
		return err
	}

	err := s.settings.Update(ctx, s.account(userID), func(st *settings.AccountSettings) error {
		if st.Auth.LinkedNotebookExpirations == nil {
			st.Auth.LinkedNotebookExpirations = make(map[string]int64)
		}
		st.Auth.LinkedNotebookExpirations[auth.Guid] = auth.Expiration
		return nil
	})
	if err != nil {
		return fmt.Errorf("store linked notebook auth settings: %w", err)
	}
	return nil
}

func (s *SyncManager) rememberLinkedAuth(auth models.LinkedNotebookAuth) {
	s.mu.Lock()
	s.linkedAuth[auth.Guid] = auth
	s.mu.Unlock()
}

func (s *SyncManager) readSecret(ctx context.Context, entry credentials.Entry) (string, error) {
	value, err := s.secrets.ReadPassword(ctx, entry.Service, entry.Key)
	if errors.Is(err, credentials.ErrSecretNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", ErrCredentialStore, entry, err)
	}
	return value, nil
}

func (s *SyncManager) writeSecret(ctx context.Context, entry credentials.Entry, value string) error {
	if err := s.secrets.WritePassword(ctx, entry.Service, entry.Key, value); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrCredentialStore, entry, err)
	}
	return nil
}

func (s *SyncManager) keys(userID int32) credentials.Keys {
	return credentials.Keys{App: s.cfg.App, Host: s.cfg.Host, UserID: userID}
}

func (s *SyncManager) account(userID int32) settings.Account {
	return settings.Account{Host: s.cfg.Host, UserID: userID}
}

// setActive records the manager about to run, unless a stop came in
// between two passes.
func (s *SyncManager) setActive(a activeManager) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopRequested {
		return ErrStopped
	}
	s.active = a
	return nil
}

// Pause pauses whichever manager is running and remembers it for Resume.
func (s *SyncManager) Pause() {
	s.mu.Lock()
	active := s.active
	s.paused = active
	s.mu.Unlock()

	switch active {
	case activeRemoteToLocal:
		s.r2l.Pause()
	case activeSendLocalChanges:
		s.sender.Pause()
	}
}

func (s *SyncManager) Resume() {
	s.mu.Lock()
	paused := s.paused
	s.paused = activeNone
	s.mu.Unlock()

	switch paused {
	case activeRemoteToLocal:
		s.r2l.Resume()
	case activeSendLocalChanges:
		s.sender.Resume()
	}
}

// Stop stops the running manager; Synchronize then returns [ErrStopped].
// A stop between two passes keeps the next one from starting.
func (s *SyncManager) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.stopRequested = true
	s.stop(ErrStopped)
}
