package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MKhiriev/go-note-keeper/internal/adapter"
	"github.com/MKhiriev/go-note-keeper/internal/logger"
	"github.com/MKhiriev/go-note-keeper/internal/store"
	"github.com/MKhiriev/go-note-keeper/models"
)

// SendState is the step an upload pass is at.
type SendState int

const (
	SendIdle SendState = iota
	SendingTags
	SendingSavedSearches
	SendingNotebooks
	SendingNotes
	SendFinished
	SendFailed
	SendStopped
)

func (s SendState) String() string {
	switch s {
	case SendIdle:
		return "idle"
	case SendingTags:
		return "sending_tags"
	case SendingSavedSearches:
		return "sending_saved_searches"
	case SendingNotebooks:
		return "sending_notebooks"
	case SendingNotes:
		return "sending_notes"
	case SendFinished:
		return "finished"
	case SendFailed:
		return "failed"
	case SendStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// SendResult is the outcome of an upload pass.
type SendResult struct {
	// Checkpoint is the input checkpoint advanced over the USNs this pass
	// produced, for the sources no other client touched meanwhile.
	Checkpoint models.SyncCheckpoint
	Sent       int
	// RepeatIncrementalSync means the service has changes this client has
	// not downloaded yet.
	RepeatIncrementalSync bool
	// Conflict means an upload was rejected as stale and the pass stopped.
	Conflict bool
}

// errConflict stops a pass after the service rejected a stale upload.
var errConflict = errors.New("upload conflicts with remote changes")

// usnChain follows the USNs returned by uploads. Each upload must take
// exactly the next USN; a gap means another client changed the account.
type usnChain struct {
	last int32
	gap  bool
}

func (c *usnChain) observe(usn int32) {
	if usn != c.last+1 {
		c.gap = true
	}
	if usn > c.last {
		c.last = usn
	}
}

// SendLocalChangesManager uploads locally modified tags, saved searches,
// notebooks and notes, for the user's own content and linked notebooks.
type SendLocalChangesManager struct {
	e          *engine
	linkedAuth LinkedNotebookAuthProvider
	pageSize   int
	ctl        control

	mu    sync.Mutex
	state SendState
	auth  models.AuthData
}

// NewSendLocalChangesManager builds an idle manager. linkedAuth may be nil
// when linked notebooks are not used.
func NewSendLocalChangesManager(
	remote adapter.NoteService,
	storage *store.AsyncStorage,
	linkedAuth LinkedNotebookAuthProvider,
	pageSize int,
	log *logger.Logger,
) *SendLocalChangesManager {
	if pageSize <= 0 {
		pageSize = DefaultCachePageSize
	}
	return &SendLocalChangesManager{
		e:          newEngine(ComponentSendLocalChanges, remote, storage, log),
		linkedAuth: linkedAuth,
		pageSize:   pageSize,
	}
}

func (m *SendLocalChangesManager) Subscribe(fn func(Event)) (unsubscribe func()) {
	return m.e.events.Subscribe(fn)
}

func (m *SendLocalChangesManager) SetAuthData(auth models.AuthData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auth = auth
}

func (m *SendLocalChangesManager) State() SendState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *SendLocalChangesManager) Active() bool {
	return m.ctl.isActive()
}

func (m *SendLocalChangesManager) Paused() bool {
	return m.ctl.isPaused()
}

func (m *SendLocalChangesManager) Pause() {
	if m.ctl.pause() {
		m.e.logger.Info().Str("component", string(ComponentSendLocalChanges)).Msg("pause requested")
	}
}

func (m *SendLocalChangesManager) Resume() {
	if m.ctl.unpause() {
		m.e.emit(Resumed{Component: ComponentSendLocalChanges})
	}
}

func (m *SendLocalChangesManager) Stop() {
	m.ctl.stop()
}

// Run uploads every dirty entity. cp is the checkpoint of the last download
// pass; uploads continue the USN sequence from it.
func (m *SendLocalChangesManager) Run(ctx context.Context, cp models.SyncCheckpoint) (SendResult, error) {
	passCtx, err := m.ctl.begin(ctx)
	if err != nil {
		return SendResult{}, err
	}
	defer m.ctl.end()

	m.e.logger.Info().
		Str("component", string(ComponentSendLocalChanges)).
		Int32("update_count", cp.LastUpdateCount).
		Msg("sending local changes")

	res, err := m.run(passCtx, cp)
	if errors.Is(err, errConflict) {
		m.e.disp.reset()
		m.setState(SendStopped)
		res.Conflict = true
		res.Checkpoint = cp
		return res, nil
	}
	if err != nil {
		return SendResult{}, m.abort(ctx, err)
	}

	m.setState(SendFinished)
	if res.RepeatIncrementalSync {
		m.e.emit(ShouldRepeatIncrementalSync{})
	}
	m.e.logger.Info().
		Str("component", string(ComponentSendLocalChanges)).
		Int("sent", res.Sent).
		Bool("repeat_incremental_sync", res.RepeatIncrementalSync).
		Msg("local changes sent")
	m.e.emit(ChangesSent{Checkpoint: res.Checkpoint, Sent: res.Sent})
	return res, nil
}

func (m *SendLocalChangesManager) abort(parent context.Context, err error) error {
	m.e.disp.reset()

	if m.ctl.wasStopped() || parent.Err() != nil {
		m.setState(SendStopped)
		m.e.emit(Stopped{Component: ComponentSendLocalChanges})
		if parent.Err() != nil {
			return context.Cause(parent)
		}
		return ErrStopped
	}

	m.setState(SendFailed)
	m.e.logger.Err(err).Str("component", string(ComponentSendLocalChanges)).Msg("sending local changes failed")
	m.e.emit(Failure{Component: ComponentSendLocalChanges, Err: err})
	return err
}

func (m *SendLocalChangesManager) run(ctx context.Context, cp models.SyncCheckpoint) (SendResult, error) {
	m.mu.Lock()
	auth := m.auth
	m.mu.Unlock()

	res := SendResult{Checkpoint: cp.Advance(models.SyncCheckpoint{})}

	own := contentSource{creds: adapter.Credentials{AuthToken: auth.AuthToken, ShardID: auth.ShardID}}
	chain := &usnChain{last: cp.LastUpdateCount}
	sent, err := m.sendSource(ctx, own, chain)
	res.Sent += sent
	if err != nil {
		return res, err
	}
	if chain.gap {
		res.RepeatIncrementalSync = true
	} else {
		res.Checkpoint.LastUpdateCount = chain.last
	}

	linked, err := listAll[models.LinkedNotebook](ctx, m.e, models.EntityLinkedNotebook, store.ListOptions{}, m.pageSize)
	if err != nil {
		return res, fmt.Errorf("list linked notebooks: %w", err)
	}
	for _, ln := range linked {
		if ln.Guid == "" || ln.Local {
			continue
		}
		lnCP := cp.LinkedNotebooks[ln.Guid]
		chain = &usnChain{last: lnCP.UpdateCount}

		sent, err = m.sendLinkedNotebook(ctx, ln, chain)
		res.Sent += sent
		if err != nil {
			return res, fmt.Errorf("linked notebook %s: %w", ln.Guid, err)
		}
		if sent == 0 {
			continue
		}
		if chain.gap {
			res.RepeatIncrementalSync = true
			continue
		}
		lnCP.UpdateCount = chain.last
		res.Checkpoint.LinkedNotebooks[ln.Guid] = lnCP
	}

	return res, nil
}

func (m *SendLocalChangesManager) sendSource(ctx context.Context, src contentSource, chain *usnChain) (int, error) {
	total := 0
	scope := store.OwnContent()

	if err := m.enter(ctx, SendingTags); err != nil {
		return total, err
	}
	n, err := sendDirty(ctx, m, src, chain, models.EntityTag, scope, tagUploader(m.e.remote))
	total += n
	if err != nil {
		return total, err
	}

	if err = m.enter(ctx, SendingSavedSearches); err != nil {
		return total, err
	}
	n, err = sendDirty(ctx, m, src, chain, models.EntitySavedSearch, scope, searchUploader(m.e.remote))
	total += n
	if err != nil {
		return total, err
	}

	if err = m.enter(ctx, SendingNotebooks); err != nil {
		return total, err
	}
	n, err = sendDirty(ctx, m, src, chain, models.EntityNotebook, scope, notebookUploader(m.e.remote))
	total += n
	if err != nil {
		return total, err
	}

	if err = m.enter(ctx, SendingNotes); err != nil {
		return total, err
	}
	n, err = sendDirty(ctx, m, src, chain, models.EntityNote, scope, m.noteUploader())
	total += n
	return total, err
}

// sendLinkedNotebook uploads the dirty tags and notes of one linked
// notebook. Credentials are only requested when there is something to send.
func (m *SendLocalChangesManager) sendLinkedNotebook(ctx context.Context, ln models.LinkedNotebook, chain *usnChain) (int, error) {
	scope := store.InLinkedNotebook(ln.Guid)
	tags, err := listAll[models.Tag](ctx, m.e, models.EntityTag, store.ListOptions{OnlyDirty: true, LinkedNotebookGuid: scope}, m.pageSize)
	if err != nil {
		return 0, err
	}
	notes, err := listAll[models.Note](ctx, m.e, models.EntityNote, store.ListOptions{OnlyDirty: true, LinkedNotebookGuid: scope}, m.pageSize)
	if err != nil {
		return 0, err
	}
	if len(tags) == 0 && len(notes) == 0 {
		return 0, nil
	}

	if m.linkedAuth == nil {
		return 0, ErrNoAuthenticator
	}
	auth, err := m.linkedAuth.LinkedNotebookAuth(ctx, ln)
	if err != nil {
		return 0, fmt.Errorf("authenticate to linked notebook: %w", err)
	}
	shard := auth.ShardID
	if shard == "" {
		shard = ln.ShardID
	}
	src := contentSource{
		linkedNotebookGuid: ln.Guid,
		linkedNotebook:     ln,
		creds:              adapter.Credentials{AuthToken: auth.AuthToken, ShardID: shard},
	}

	if err = m.enter(ctx, SendingTags); err != nil {
		return 0, err
	}
	sent, err := upload(ctx, m, src, chain, models.EntityTag, tags, tagUploader(m.e.remote))
	if err != nil {
		return sent, err
	}

	if err = m.enter(ctx, SendingNotes); err != nil {
		return sent, err
	}
	n, err := upload(ctx, m, src, chain, models.EntityNote, notes, m.noteUploader())
	return sent + n, err
}

// uploader sends one entity and returns the service's view of it.
type uploader[T any] struct {
	create func(ctx context.Context, creds adapter.Credentials, item T) (T, error)
	update func(ctx context.Context, creds adapter.Credentials, item T) (T, error)
	// prepare runs before the upload, e.g. to resolve references.
	prepare func(ctx context.Context, item T) (T, error)
	// absorb copies what the service assigned into the local record.
	absorb func(local *T, echo T)
}

func tagUploader(remote adapter.NoteService) uploader[models.Tag] {
	return uploader[models.Tag]{
		create: remote.CreateTag,
		update: func(ctx context.Context, creds adapter.Credentials, t models.Tag) (models.Tag, error) {
			usn, err := remote.UpdateTag(ctx, creds, t)
			t.USN = usn
			return t, err
		},
	}
}

func searchUploader(remote adapter.NoteService) uploader[models.SavedSearch] {
	return uploader[models.SavedSearch]{
		create: remote.CreateSearch,
		update: func(ctx context.Context, creds adapter.Credentials, s models.SavedSearch) (models.SavedSearch, error) {
			usn, err := remote.UpdateSearch(ctx, creds, s)
			s.USN = usn
			return s, err
		},
	}
}

func notebookUploader(remote adapter.NoteService) uploader[models.Notebook] {
	return uploader[models.Notebook]{
		create: remote.CreateNotebook,
		update: func(ctx context.Context, creds adapter.Credentials, n models.Notebook) (models.Notebook, error) {
			usn, err := remote.UpdateNotebook(ctx, creds, n)
			n.USN = usn
			return n, err
		},
	}
}

func (m *SendLocalChangesManager) noteUploader() uploader[models.Note] {
	return uploader[models.Note]{
		create:  m.e.remote.CreateNote,
		update:  m.e.remote.UpdateNote,
		prepare: m.resolveNotebookGuid,
		absorb:  absorbNoteResources,
	}
}

// resolveNotebookGuid fills in the guid of the note's notebook, which was
// uploaded earlier in the pass when it was new.
func (m *SendLocalChangesManager) resolveNotebookGuid(ctx context.Context, n models.Note) (models.Note, error) {
	if n.NotebookLocalID == "" {
		if n.NotebookGuid == "" {
			return n, fmt.Errorf("note has no notebook: %w", ErrMissingGuid)
		}
		return n, nil
	}
	nb, found, err := findByLocalID[models.Notebook](ctx, m.e, models.EntityNotebook, n.NotebookLocalID)
	if err != nil {
		return n, err
	}
	if !found || nb.Guid == "" {
		return n, fmt.Errorf("notebook %s of note: %w", n.NotebookLocalID, ErrMissingGuid)
	}
	n.NotebookGuid = nb.Guid
	return n, nil
}

// absorbNoteResources copies the guids the service gave to resources,
// matching them by data hash.
func absorbNoteResources(local *models.Note, echo models.Note) {
	if local.Resources == nil {
		return
	}
	for i := range local.Resources {
		res := &local.Resources[i]
		for _, remote := range echo.Resources {
			if len(res.DataHash) > 0 && bytes.Equal(res.DataHash, remote.DataHash) {
				res.Guid = remote.Guid
				res.USN = remote.USN
				break
			}
		}
		res.Dirty = false
	}
}

func sendDirty[T any, P models.Syncable[T]](ctx context.Context, m *SendLocalChangesManager, src contentSource, chain *usnChain, et models.EntityType, scope *string, up uploader[T]) (int, error) {
	items, err := listAll[T](ctx, m.e, et, store.ListOptions{OnlyDirty: true, LinkedNotebookGuid: scope}, m.pageSize)
	if err != nil {
		return 0, fmt.Errorf("list dirty %s: %w", et, err)
	}
	return upload[T, P](ctx, m, src, chain, et, items, up)
}

// upload sends items one by one. A new item is created and gets its guid;
// a known one is updated. Either way the returned USN is stored and the
// dirty flag cleared.
func upload[T any, P models.Syncable[T]](ctx context.Context, m *SendLocalChangesManager, src contentSource, chain *usnChain, et models.EntityType, items []T, up uploader[T]) (int, error) {
	sent := 0
	for _, item := range items {
		if err := m.ctl.checkpoint(ctx, m.onPause); err != nil {
			return sent, err
		}

		meta := P(&item).Meta()
		if meta.Local || !meta.Dirty {
			continue
		}
		name := P(&item).EntityName()

		outgoing := item
		if up.prepare != nil {
			var err error
			if outgoing, err = up.prepare(ctx, item); err != nil {
				return sent, &EntityError{EntityType: et, Guid: meta.Guid, Name: name, Err: err}
			}
		}

		call, send := "create_"+et.String(), up.create
		if meta.HasGuid() {
			call, send = "update_"+et.String(), up.update
		}
		echo, err := callRemote(ctx, m.e, call, func(ctx context.Context) (T, error) {
			return send(ctx, src.creds, outgoing)
		})
		if errors.Is(err, adapter.ErrDataConflict) {
			m.e.logger.Warn().Str("entity", et.String()).Str("guid", meta.Guid).Msg("upload conflicts with remote changes")
			m.e.emit(ConflictDetected{EntityType: et, Guid: meta.Guid})
			return sent, errConflict
		}
		if err != nil {
			if isAbort(err) {
				return sent, err
			}
			ee := &EntityError{EntityType: et, Guid: meta.Guid, Name: name, Err: err}
			m.e.emit(EntityFailure{EntityType: et, Guid: meta.Guid, Err: err})
			return sent, ee
		}

		stored := outgoing
		echoMeta := P(&echo).Meta()
		storedMeta := P(&stored).Meta()
		if !storedMeta.HasGuid() {
			storedMeta.Guid = echoMeta.Guid
		}
		storedMeta.USN = echoMeta.USN
		storedMeta.Dirty = false
		if up.absorb != nil {
			up.absorb(&stored, echo)
		}
		if !storedMeta.HasGuid() || !storedMeta.HasUSN() {
			return sent, &EntityError{EntityType: et, Name: name, Err: ErrMissingUSN}
		}

		if _, err = storageUpdate(ctx, m.e, et, stored); err != nil {
			return sent, &EntityError{EntityType: et, Guid: storedMeta.Guid, Name: name, Err: err}
		}
		chain.observe(storedMeta.USN)
		sent++

		m.e.logger.Debug().
			Str("entity", et.String()).
			Str("guid", storedMeta.Guid).
			Int32("usn", storedMeta.USN).
			Str("linked_notebook", src.linkedNotebookGuid).
			Msg("local change sent")
	}
	return sent, nil
}

func (m *SendLocalChangesManager) enter(ctx context.Context, s SendState) error {
	if err := m.ctl.checkpoint(ctx, m.onPause); err != nil {
		return err
	}
	m.setState(s)
	return nil
}

func (m *SendLocalChangesManager) onPause() {
	m.e.logger.Info().Str("component", string(ComponentSendLocalChanges)).Msg("paused")
	m.e.emit(Paused{Component: ComponentSendLocalChanges})
}

func (m *SendLocalChangesManager) setState(s SendState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
