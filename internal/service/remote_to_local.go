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
	"github.com/MKhiriev/go-note-keeper/internal/logger"
	"github.com/MKhiriev/go-note-keeper/internal/settings"
	"github.com/MKhiriev/go-note-keeper/internal/store"
	"github.com/MKhiriev/go-note-keeper/models"
)

// Protocol version this client speaks.
const (
	ProtocolVersionMajor int16 = 1
	ProtocolVersionMinor int16 = 28
)

// RemoteToLocalState is the step a download pass is at.
type RemoteToLocalState int

const (
	StateIdle RemoteToLocalState = iota
	StateCheckingProtocolVersion
	StateSyncingUser
	StateSyncingAccountLimits
	StateDownloadingChunks
	StateReconcilingTags
	StateReconcilingSavedSearches
	StateReconcilingLinkedNotebooks
	StateReconcilingNotebooks
	StateReconcilingNotes
	StateDownloadingNoteContent
	StateReconcilingResources
	StateExpunging
	StateFinished
	StateFailed
	StateStopped
)

func (s RemoteToLocalState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCheckingProtocolVersion:
		return "checking_protocol_version"
	case StateSyncingUser:
		return "syncing_user"
	case StateSyncingAccountLimits:
		return "syncing_account_limits"
	case StateDownloadingChunks:
		return "downloading_chunks"
	case StateReconcilingTags:
		return "reconciling_tags"
	case StateReconcilingSavedSearches:
		return "reconciling_saved_searches"
	case StateReconcilingLinkedNotebooks:
		return "reconciling_linked_notebooks"
	case StateReconcilingNotebooks:
		return "reconciling_notebooks"
	case StateReconcilingNotes:
		return "reconciling_notes"
	case StateDownloadingNoteContent:
		return "downloading_note_content"
	case StateReconcilingResources:
		return "reconciling_resources"
	case StateExpunging:
		return "expunging"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// LinkedNotebookAuthProvider hands out the credentials of a linked notebook.
type LinkedNotebookAuthProvider interface {
	LinkedNotebookAuth(ctx context.Context, linkedNotebook models.LinkedNotebook) (models.LinkedNotebookAuth, error)
}

// RemoteToLocalConfig tunes a [RemoteToLocalManager].
type RemoteToLocalConfig struct {
	// ClientName is sent with the protocol version check.
	ClientName string
	// Host scopes the cached account limits in the settings store.
	Host            string
	MaxChunkEntries int32
	CachePageSize   int

	DownloadThumbnails bool
	ThumbnailSize      int

	// AccountLimitsRefresh is how long cached account limits stay valid.
	AccountLimitsRefresh time.Duration
}

// RemoteToLocalManager downloads everything that changed on the service
// since a checkpoint and applies it to local storage: the user's own
// content first, then every linked notebook.
type RemoteToLocalManager struct {
	e          *engine
	cfg        RemoteToLocalConfig
	settings   settings.Store
	linkedAuth LinkedNotebookAuthProvider
	thumbnails ThumbnailSink
	now        func() time.Time
	ctl        control

	tags      *SyncCache[models.Tag]
	searches  *SyncCache[models.SavedSearch]
	notebooks *SyncCache[models.Notebook]

	mu         sync.Mutex
	state      RemoteToLocalState
	auth       models.AuthData
	checkpoint models.SyncCheckpoint
	user       models.User
	limits     models.AccountLimits
}

// NewRemoteToLocalManager builds an idle manager. settings, linkedAuth and
// thumbnails may be nil.
func NewRemoteToLocalManager(
	remote adapter.NoteService,
	storage *store.AsyncStorage,
	settingsStore settings.Store,
	linkedAuth LinkedNotebookAuthProvider,
	thumbnails ThumbnailSink,
	cfg RemoteToLocalConfig,
	log *logger.Logger,
) *RemoteToLocalManager {
	if cfg.MaxChunkEntries <= 0 {
		cfg.MaxChunkEntries = 50
	}
	if cfg.CachePageSize <= 0 {
		cfg.CachePageSize = DefaultCachePageSize
	}
	if cfg.ThumbnailSize <= 0 {
		cfg.ThumbnailSize = DefaultThumbnailSize
	}

	return &RemoteToLocalManager{
		e:          newEngine(ComponentRemoteToLocal, remote, storage, log),
		cfg:        cfg,
		settings:   settingsStore,
		linkedAuth: linkedAuth,
		thumbnails: thumbnails,
		now:        time.Now,
		tags:       NewSyncCache[models.Tag](storage, models.EntityTag, cfg.CachePageSize),
		searches:   NewSyncCache[models.SavedSearch](storage, models.EntitySavedSearch, cfg.CachePageSize),
		notebooks:  NewSyncCache[models.Notebook](storage, models.EntityNotebook, cfg.CachePageSize),
	}
}

// Subscribe registers fn for every event of the manager.
func (m *RemoteToLocalManager) Subscribe(fn func(Event)) (unsubscribe func()) {
	return m.e.events.Subscribe(fn)
}

// SetAuthData sets the credentials of the user's own content.
func (m *RemoteToLocalManager) SetAuthData(auth models.AuthData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auth = auth
}

// SetCheckpoint sets what the last pass reached. Linked notebooks resume
// from their part of it.
func (m *RemoteToLocalManager) SetCheckpoint(cp models.SyncCheckpoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoint = cp
}

func (m *RemoteToLocalManager) State() RemoteToLocalState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *RemoteToLocalManager) User() models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

func (m *RemoteToLocalManager) AccountLimits() models.AccountLimits {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.limits
}

func (m *RemoteToLocalManager) Active() bool {
	return m.ctl.isActive()
}

func (m *RemoteToLocalManager) Paused() bool {
	return m.ctl.isPaused()
}

// Start launches a pass in the background. afterUSN 0 means a full sync.
// The outcome is reported through events.
func (m *RemoteToLocalManager) Start(ctx context.Context, afterUSN int32) error {
	passCtx, err := m.ctl.begin(ctx)
	if err != nil {
		return err
	}
	go func() {
		defer m.ctl.end()
		_, _ = m.pass(ctx, passCtx, afterUSN)
	}()
	return nil
}

// Run performs one pass and returns the checkpoint it reached.
func (m *RemoteToLocalManager) Run(ctx context.Context, afterUSN int32) (models.SyncCheckpoint, error) {
	passCtx, err := m.ctl.begin(ctx)
	if err != nil {
		return models.SyncCheckpoint{}, err
	}
	defer m.ctl.end()
	return m.pass(ctx, passCtx, afterUSN)
}

// Pause withholds the next step of the running pass.
func (m *RemoteToLocalManager) Pause() {
	if m.ctl.pause() {
		m.e.logger.Info().Str("component", string(ComponentRemoteToLocal)).Msg("pause requested")
	}
}

func (m *RemoteToLocalManager) Resume() {
	if m.ctl.unpause() {
		m.e.emit(Resumed{Component: ComponentRemoteToLocal})
	}
}

// Stop abandons the running pass. Writes already made stay.
func (m *RemoteToLocalManager) Stop() {
	m.ctl.stop()
}

func (m *RemoteToLocalManager) pass(parent, ctx context.Context, afterUSN int32) (models.SyncCheckpoint, error) {
	m.e.logger.Info().
		Str("component", string(ComponentRemoteToLocal)).
		Int32("after_usn", afterUSN).
		Msg("remote to local sync started")

	cp, err := m.run(ctx, afterUSN)
	if err != nil {
		return models.SyncCheckpoint{}, m.abort(parent, err)
	}

	m.setState(StateFinished)
	m.e.logger.Info().
		Str("component", string(ComponentRemoteToLocal)).
		Int32("update_count", cp.LastUpdateCount).
		Int("linked_notebooks", len(cp.LinkedNotebooks)).
		Msg("remote to local sync finished")
	m.e.emit(RemoteToLocalFinished{Checkpoint: cp})
	return cp, nil
}

// abort ends a pass that failed or was stopped. Pending requests are
// dropped so late completions are ignored.
func (m *RemoteToLocalManager) abort(parent context.Context, err error) error {
	m.e.disp.reset()

	if m.ctl.wasStopped() || parent.Err() != nil {
		m.setState(StateStopped)
		m.e.logger.Info().Str("component", string(ComponentRemoteToLocal)).Msg("remote to local sync stopped")
		m.e.emit(Stopped{Component: ComponentRemoteToLocal})
		if parent.Err() != nil {
			return context.Cause(parent)
		}
		return ErrStopped
	}

	m.setState(StateFailed)
	m.e.logger.Err(err).Str("component", string(ComponentRemoteToLocal)).Msg("remote to local sync failed")
	m.e.emit(Failure{Component: ComponentRemoteToLocal, Err: err})
	return err
}

func (m *RemoteToLocalManager) run(ctx context.Context, afterUSN int32) (models.SyncCheckpoint, error) {
	m.mu.Lock()
	auth, prev := m.auth, m.checkpoint
	m.mu.Unlock()

	own := contentSource{creds: adapter.Credentials{AuthToken: auth.AuthToken, ShardID: auth.ShardID}}

	if err := m.enter(ctx, StateCheckingProtocolVersion); err != nil {
		return models.SyncCheckpoint{}, err
	}
	if err := m.checkProtocolVersion(ctx); err != nil {
		return models.SyncCheckpoint{}, err
	}

	if err := m.enter(ctx, StateSyncingUser); err != nil {
		return models.SyncCheckpoint{}, err
	}
	user, err := m.syncUser(ctx, own)
	if err != nil {
		return models.SyncCheckpoint{}, err
	}

	if err = m.enter(ctx, StateSyncingAccountLimits); err != nil {
		return models.SyncCheckpoint{}, err
	}
	if err = m.syncAccountLimits(ctx, own, user); err != nil {
		return models.SyncCheckpoint{}, err
	}

	cp := models.SyncCheckpoint{LinkedNotebooks: make(map[string]models.LinkedNotebookCheckpoint)}
	cp.LastUpdateCount, cp.LastSyncTime, err = m.syncSource(ctx, own, afterUSN, prev.LastSyncTime)
	if err != nil {
		return models.SyncCheckpoint{}, err
	}

	linked, err := listAll[models.LinkedNotebook](ctx, m.e, models.EntityLinkedNotebook, store.ListOptions{}, m.cfg.CachePageSize)
	if err != nil {
		return models.SyncCheckpoint{}, fmt.Errorf("list linked notebooks: %w", err)
	}
	for _, ln := range linked {
		if ln.Guid == "" || ln.Local {
			continue
		}
		src, err := m.linkedSource(ctx, ln)
		if err != nil {
			return models.SyncCheckpoint{}, err
		}

		var lnPrev models.LinkedNotebookCheckpoint
		if afterUSN > 0 {
			lnPrev = prev.LinkedNotebooks[ln.Guid]
		}
		updateCount, syncTime, err := m.syncSource(ctx, src, lnPrev.UpdateCount, lnPrev.SyncTime)
		if err != nil {
			return models.SyncCheckpoint{}, fmt.Errorf("linked notebook %s: %w", ln.Guid, err)
		}
		cp.LinkedNotebooks[ln.Guid] = models.LinkedNotebookCheckpoint{UpdateCount: updateCount, SyncTime: syncTime}
	}

	return cp, nil
}

func (m *RemoteToLocalManager) checkProtocolVersion(ctx context.Context) error {
	ok, err := callRemote(ctx, m.e, "check_version", func(ctx context.Context) (bool, error) {
		return m.e.remote.CheckVersion(ctx, m.cfg.ClientName, ProtocolVersionMajor, ProtocolVersionMinor)
	})
	if err != nil {
		return fmt.Errorf("check protocol version: %w", err)
	}
	if !ok {
		return fmt.Errorf("%d.%d: %w", ProtocolVersionMajor, ProtocolVersionMinor, ErrProtocolVersion)
	}
	return nil
}

func (m *RemoteToLocalManager) syncUser(ctx context.Context, own contentSource) (models.User, error) {
	user, err := callRemote(ctx, m.e, "get_user", func(ctx context.Context) (models.User, error) {
		return m.e.remote.GetUser(ctx, own.creds)
	})
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	if _, err = m.e.do(ctx, store.Request{Op: store.OpPutUser, EntityType: models.EntityUser, Entity: user}); err != nil {
		return models.User{}, fmt.Errorf("store user: %w", err)
	}

	m.mu.Lock()
	m.user = user
	m.mu.Unlock()
	return user, nil
}

// syncAccountLimits uses the limits cached in settings while they are
// fresh. Settings failures only cost a remote call.
func (m *RemoteToLocalManager) syncAccountLimits(ctx context.Context, own contentSource, user models.User) error {
	account := settings.Account{Host: m.cfg.Host, UserID: user.ID}
	if m.settings != nil {
		s, err := m.settings.Load(ctx, account)
		if err != nil {
			m.e.logger.Warn().Err(err).Str("account", account.String()).Msg("failed to load cached account limits")
		} else if limits, fresh := s.Limits(m.now(), m.cfg.AccountLimitsRefresh); fresh {
			m.setLimits(limits)
			return nil
		}
	}

	limits, err := callRemote(ctx, m.e, "get_account_limits", func(ctx context.Context) (models.AccountLimits, error) {
		return m.e.remote.GetAccountLimits(ctx, own.creds, user.ServiceLevel)
	})
	if err != nil {
		return fmt.Errorf("get account limits: %w", err)
	}
	m.setLimits(limits)

	if m.settings != nil {
		fetchedAt := m.now()
		err = m.settings.Update(ctx, account, func(s *settings.AccountSettings) error {
			s.AccountLimits = &settings.LimitsRecord{AccountLimits: limits, FetchedAt: fetchedAt}
			return nil
		})
		if err != nil {
			m.e.logger.Warn().Err(err).Str("account", account.String()).Msg("failed to cache account limits")
		}
	}
	return nil
}

func (m *RemoteToLocalManager) linkedSource(ctx context.Context, ln models.LinkedNotebook) (contentSource, error) {
	if m.linkedAuth == nil {
		return contentSource{}, fmt.Errorf("linked notebook %s: %w", ln.Guid, ErrNoAuthenticator)
	}
	auth, err := m.linkedAuth.LinkedNotebookAuth(ctx, ln)
	if err != nil {
		return contentSource{}, fmt.Errorf("authenticate to linked notebook %s: %w", ln.Guid, err)
	}
	shard := auth.ShardID
	if shard == "" {
		shard = ln.ShardID
	}
	return contentSource{
		linkedNotebookGuid: ln.Guid,
		linkedNotebook:     ln,
		creds:              adapter.Credentials{AuthToken: auth.AuthToken, ShardID: shard},
	}, nil
}

// syncSource downloads and applies the changes of one source since
// afterUSN, and returns the update count and sync time it reached.
func (m *RemoteToLocalManager) syncSource(ctx context.Context, src contentSource, afterUSN int32, lastSyncTime int64) (int32, int64, error) {
	if err := m.enter(ctx, StateDownloadingChunks); err != nil {
		return 0, 0, err
	}

	state, err := m.syncState(ctx, src)
	if err != nil {
		return 0, 0, fmt.Errorf("get sync state: %w", err)
	}
	if afterUSN > 0 && state.FullSyncBefore > lastSyncTime {
		m.e.logger.Info().
			Str("linked_notebook", src.linkedNotebookGuid).
			Int64("full_sync_before", state.FullSyncBefore).
			Int64("last_sync_time", lastSyncTime).
			Msg("service requires a full sync")
		afterUSN = 0
	}
	if afterUSN > 0 && state.UpdateCount <= afterUSN {
		m.e.logger.Debug().
			Str("linked_notebook", src.linkedNotebookGuid).
			Int32("update_count", state.UpdateCount).
			Msg("nothing changed on the service")
		return afterUSN, state.CurrentTime, nil
	}

	chunks, updateCount, syncTime, err := m.downloadChunks(ctx, src, afterUSN)
	if err != nil {
		return 0, 0, err
	}
	m.e.emit(SyncChunksDownloaded{LinkedNotebookGuid: src.linkedNotebookGuid})

	if err = m.apply(ctx, src, chunks); err != nil {
		return 0, 0, err
	}
	return updateCount, syncTime, nil
}

func (m *RemoteToLocalManager) syncState(ctx context.Context, src contentSource) (models.SyncState, error) {
	return callRemote(ctx, m.e, "get_sync_state", func(ctx context.Context) (models.SyncState, error) {
		if src.isLinked() {
			return m.e.remote.GetLinkedNotebookSyncState(ctx, src.creds, src.linkedNotebook)
		}
		return m.e.remote.GetSyncState(ctx, src.creds)
	})
}

// downloadChunks requests chunks until one reaches the update count of the
// service.
func (m *RemoteToLocalManager) downloadChunks(ctx context.Context, src contentSource, afterUSN int32) ([]models.SyncChunk, int32, int64, error) {
	fullSync := afterUSN == 0

	var (
		chunks      []models.SyncChunk
		updateCount = afterUSN
		syncTime    int64
		after       = afterUSN
	)
	for {
		if err := m.safePoint(ctx); err != nil {
			return nil, 0, 0, err
		}

		chunk, err := callRemote(ctx, m.e, "get_sync_chunk", func(ctx context.Context) (models.SyncChunk, error) {
			if src.isLinked() {
				return m.e.remote.GetLinkedNotebookSyncChunk(ctx, src.creds, src.linkedNotebook, after, m.cfg.MaxChunkEntries, fullSync)
			}
			return m.e.remote.GetFilteredSyncChunk(ctx, src.creds, after, m.cfg.MaxChunkEntries, models.FullSyncChunkFilter(!fullSync))
		})
		if err != nil {
			return nil, 0, 0, fmt.Errorf("download sync chunk after usn %d: %w", after, err)
		}

		syncTime = chunk.CurrentTime
		if chunk.UpdateCount > updateCount {
			updateCount = chunk.UpdateCount
		}
		if !chunk.HasHighUSN() {
			break
		}
		if chunk.ChunkHighUSN <= after {
			return nil, 0, 0, fmt.Errorf("sync chunk high usn %d after usn %d: %w", chunk.ChunkHighUSN, after, adapter.ErrInvalidResponse)
		}

		chunks = append(chunks, chunk)
		after = chunk.ChunkHighUSN
		m.e.logger.Debug().
			Str("linked_notebook", src.linkedNotebookGuid).
			Int32("chunk_high_usn", chunk.ChunkHighUSN).
			Int32("update_count", chunk.UpdateCount).
			Msg("sync chunk downloaded")

		if chunk.ChunkHighUSN >= chunk.UpdateCount {
			break
		}
	}
	return chunks, updateCount, syncTime, nil
}

// apply reconciles the downloaded chunks in dependency order: tags, saved
// searches, linked notebooks, notebooks, notes, resources, then expunges.
func (m *RemoteToLocalManager) apply(ctx context.Context, src contentSource, chunks []models.SyncChunk) error {
	tags := tagKind(m.tags)
	searches := savedSearchKind(m.searches)
	linkedNotebooks := linkedNotebookKind()
	notebooks := notebookKind(m.notebooks)
	notes := noteKind()
	resources := resourceKind()

	if err := m.enter(ctx, StateReconcilingTags); err != nil {
		return err
	}
	if err := m.tags.Fill(ctx); err != nil {
		return err
	}
	sortedTags := sortTagsByParent(collect[models.Tag](tags, chunks, src))
	if err := reconcile(ctx, m, tags, sortedTags, addNewWith(m.e, tags), resolveWith(m.e, tags)); err != nil {
		return err
	}

	if !src.isLinked() {
		if err := m.enter(ctx, StateReconcilingSavedSearches); err != nil {
			return err
		}
		if err := m.searches.Fill(ctx); err != nil {
			return err
		}
		items := collect[models.SavedSearch](searches, chunks, src)
		if err := reconcile(ctx, m, searches, items, addNewWith(m.e, searches), resolveWith(m.e, searches)); err != nil {
			return err
		}

		if err := m.enter(ctx, StateReconcilingLinkedNotebooks); err != nil {
			return err
		}
		lns := collect[models.LinkedNotebook](linkedNotebooks, chunks, src)
		if err := reconcile(ctx, m, linkedNotebooks, lns, addNewWith(m.e, linkedNotebooks), resolveWith(m.e, linkedNotebooks)); err != nil {
			return err
		}
	}

	if err := m.enter(ctx, StateReconcilingNotebooks); err != nil {
		return err
	}
	if err := m.notebooks.Fill(ctx); err != nil {
		return err
	}
	nbs := collect[models.Notebook](notebooks, chunks, src)
	if err := reconcile(ctx, m, notebooks, nbs, addNewWith(m.e, notebooks), resolveWith(m.e, notebooks)); err != nil {
		return err
	}

	if err := m.enter(ctx, StateReconcilingNotes); err != nil {
		return err
	}
	var pending []models.Note
	queue := func(ctx context.Context, n models.Note) error {
		if !n.HasContent() {
			pending = append(pending, n)
			return nil
		}
		stored, err := addRemote[models.Note](ctx, m.e, notes, n)
		if err != nil {
			return err
		}
		return m.downloadThumbnail(ctx, src, stored)
	}
	resolveNote := func(ctx context.Context, remote, local models.Note) error {
		stored, err := newNoteConflictResolver(m.e, src, remote, local).Resolve(ctx)
		if err != nil {
			return err
		}
		return m.downloadThumbnail(ctx, src, stored)
	}
	if err := reconcile(ctx, m, notes, collect[models.Note](notes, chunks, src), queue, resolveNote); err != nil {
		return err
	}

	if err := m.enter(ctx, StateDownloadingNoteContent); err != nil {
		return err
	}
	if err := m.downloadNotes(ctx, src, pending); err != nil {
		return err
	}

	if err := m.enter(ctx, StateReconcilingResources); err != nil {
		return err
	}
	addResource := func(ctx context.Context, r models.Resource) error {
		return m.addResource(ctx, src, r)
	}
	resolveResource := func(ctx context.Context, remote, local models.Resource) error {
		r := newConflictResolver[models.Resource](m.e, resources, remote, local)
		r.download = func(ctx context.Context, res models.Resource) (models.Resource, error) {
			return m.downloadResource(ctx, src, res)
		}
		_, err := r.Resolve(ctx)
		return err
	}
	if err := reconcile(ctx, m, resources, collect[models.Resource](resources, chunks, src), addResource, resolveResource); err != nil {
		return err
	}

	if err := m.enter(ctx, StateExpunging); err != nil {
		return err
	}
	return m.expunge(ctx, src, chunks)
}

// addNewWith stores unknown remote entities, moving same-named local ones
// out of the way.
func addNewWith[T any, P models.Syncable[T]](e *engine, k syncKind[T]) func(context.Context, T) error {
	return func(ctx context.Context, item T) error {
		_, err := addRemote[T, P](ctx, e, k, item)
		return err
	}
}

func resolveWith[T any, P models.Syncable[T]](e *engine, k syncKind[T]) func(context.Context, T, T) error {
	return func(ctx context.Context, remote, local T) error {
		_, err := newConflictResolver[T, P](e, k, remote, local).Resolve(ctx)
		return err
	}
}

// downloadNotes fetches the full content of notes that are new locally.
// A note deleted on the service in the meantime is skipped.
func (m *RemoteToLocalManager) downloadNotes(ctx context.Context, src contentSource, notes []models.Note) error {
	for i, n := range notes {
		if err := m.safePoint(ctx); err != nil {
			return err
		}

		full, err := downloadNote(ctx, m.e, src, n)
		if errors.Is(err, adapter.ErrNotFound) {
			m.e.logger.Warn().Str("guid", n.Guid).Msg("note disappeared from the service before download")
			continue
		}
		if err != nil {
			return m.entityError(models.EntityNote, n.Guid, n.Title, err)
		}

		stored, err := addRemote[models.Note](ctx, m.e, noteKind(), full)
		if err != nil {
			return m.entityError(models.EntityNote, n.Guid, n.Title, err)
		}
		if err = m.downloadThumbnail(ctx, src, stored); err != nil {
			return err
		}

		m.e.emit(NotesDownloadProgress{
			LinkedNotebookGuid: src.linkedNotebookGuid,
			Downloaded:         i + 1,
			Total:              len(notes),
		})
	}
	return nil
}

// addResource stores a resource that changed without its note. Resources of
// notes that are not stored locally arrive with the note itself.
func (m *RemoteToLocalManager) addResource(ctx context.Context, src contentSource, r models.Resource) error {
	_, found, err := findByGuid[models.Note](ctx, m.e, models.EntityNote, r.NoteGuid)
	if err != nil {
		return err
	}
	if !found {
		m.e.logger.Debug().
			Str("guid", r.Guid).
			Str("note_guid", r.NoteGuid).
			Msg("skipping resource of a note that is not stored locally")
		return nil
	}

	full, err := m.downloadResource(ctx, src, r)
	if err != nil {
		return err
	}
	_, err = addRemote[models.Resource](ctx, m.e, resourceKind(), full)
	return err
}

func (m *RemoteToLocalManager) downloadResource(ctx context.Context, src contentSource, r models.Resource) (models.Resource, error) {
	full, err := callRemote(ctx, m.e, "get_resource", func(ctx context.Context) (models.Resource, error) {
		return m.e.remote.GetResource(ctx, src.creds, r.Guid, adapter.ResourceFetchOptions{
			WithData:          true,
			WithRecognition:   true,
			WithAttributes:    true,
			WithAlternateData: true,
		})
	})
	if err != nil {
		return r, err
	}
	full.LocalID = ""
	full.NoteLocalID = ""
	full.LinkedNotebookGuid = src.linkedNotebookGuid
	return full, nil
}

// downloadThumbnail fetches the thumbnail of a note with image resources.
// Only cancellation and expired auth are passed on; other failures are
// logged.
func (m *RemoteToLocalManager) downloadThumbnail(ctx context.Context, src contentSource, n models.Note) error {
	if !m.cfg.DownloadThumbnails || m.thumbnails == nil || !hasImageResource(n) {
		return nil
	}

	png, err := callRemote(ctx, m.e, "get_note_thumbnail", func(ctx context.Context) ([]byte, error) {
		return m.e.remote.GetNoteThumbnail(ctx, src.creds, n.Guid, m.cfg.ThumbnailSize)
	})
	if err == nil {
		err = m.thumbnails.PutThumbnail(ctx, n.Guid, png)
	}
	if err != nil {
		if isAbort(err) {
			return err
		}
		m.e.logger.Warn().Err(err).Str("guid", n.Guid).Msg("failed to download note thumbnail")
	}
	return nil
}

func hasImageResource(n models.Note) bool {
	for _, r := range n.Resources {
		if r.IsImage() {
			return true
		}
	}
	return false
}

type expungeStep struct {
	et    models.EntityType
	guids []string
}

// expunge removes what the service expunged. Notes go first so that a
// notebook cascade never races a note expunge.
func (m *RemoteToLocalManager) expunge(ctx context.Context, src contentSource, chunks []models.SyncChunk) error {
	steps := []expungeStep{
		{models.EntityNote, collectExpunged(noteKind(), chunks)},
		{models.EntityNotebook, collectExpunged(notebookKind(nil), chunks)},
		{models.EntityTag, collectExpunged(tagKind(nil), chunks)},
	}
	if !src.isLinked() {
		steps = append(steps,
			expungeStep{models.EntitySavedSearch, collectExpunged(savedSearchKind(nil), chunks)},
			expungeStep{models.EntityLinkedNotebook, collectExpunged(linkedNotebookKind(), chunks)},
		)
	}

	total := 0
	for _, step := range steps {
		n, err := expungeAll(ctx, m, step.et, step.guids)
		total += n
		if err != nil {
			return err
		}
	}
	if total > 0 {
		m.e.logger.Info().
			Str("linked_notebook", src.linkedNotebookGuid).
			Int("expunged", total).
			Msg("expunged entities removed locally")
		m.e.emit(ExpungedFromServerToClient{LinkedNotebookGuid: src.linkedNotebookGuid})
	}
	return nil
}

func (m *RemoteToLocalManager) enter(ctx context.Context, s RemoteToLocalState) error {
	if err := m.safePoint(ctx); err != nil {
		return err
	}
	m.setState(s)
	m.e.logger.Debug().Str("component", string(ComponentRemoteToLocal)).Str("state", s.String()).Msg("state changed")
	return nil
}

func (m *RemoteToLocalManager) setState(s RemoteToLocalState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *RemoteToLocalManager) setLimits(limits models.AccountLimits) {
	m.mu.Lock()
	m.limits = limits
	m.mu.Unlock()
}

// safePoint is where a pause takes effect.
func (m *RemoteToLocalManager) safePoint(ctx context.Context) error {
	return m.ctl.checkpoint(ctx, func() {
		m.e.logger.Info().Str("component", string(ComponentRemoteToLocal)).Msg("paused")
		m.e.emit(Paused{Component: ComponentRemoteToLocal})
	})
}

// entityError scopes err to one entity and reports it, unless it ends the
// pass for another reason.
func (m *RemoteToLocalManager) entityError(et models.EntityType, guid, name string, err error) error {
	if isAbort(err) {
		return err
	}
	var ee *EntityError
	if !errors.As(err, &ee) {
		ee = &EntityError{EntityType: et, Guid: guid, Name: name, Err: err}
		err = ee
	}
	m.entityFailed(ee)
	return err
}

func (m *RemoteToLocalManager) entityFailed(ee *EntityError) {
	m.e.logger.Error().
		Err(ee.Err).
		Str("entity", ee.EntityType.String()).
		Str("guid", ee.Guid).
		Str("name", ee.Name).
		Msg("failed to apply remote entity")
	m.e.emit(EntityFailure{EntityType: ee.EntityType, Guid: ee.Guid, Err: ee.Err})
}
