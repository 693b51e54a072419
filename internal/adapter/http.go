package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/MKhiriev/go-note-keeper/internal/config"
	"github.com/MKhiriev/go-note-keeper/internal/logger"
	"github.com/MKhiriev/go-note-keeper/internal/utils"
	"github.com/MKhiriev/go-note-keeper/models"
)

type httpNoteService struct {
	client  *utils.HTTPClient
	limiter *rate.Limiter

	logger *logger.Logger
}

// NewHTTPNoteService constructs the JSON-over-HTTP implementation of
// [NoteService]. Every call is a POST of a JSON object carrying the auth token
// and the call parameters; note store calls go to
// /shard/{shardId}/notestore/{method}, user store calls to
// /edam/user/{method}. Outgoing calls are throttled to
// adapterCfg.RequestsPerSecond.
//
// Returns an error if adapterCfg.Host cannot be parsed as a valid URL.
func NewHTTPNoteService(adapterCfg config.ClientAdapter, logger *logger.Logger) (NoteService, error) {
	baseURL, err := normalizeBaseURL(adapterCfg.Host)
	if err != nil {
		return nil, fmt.Errorf("invalid adapter host: %w", err)
	}

	client := utils.NewHTTPClient(utils.HTTPClientOptions{
		BaseURL: baseURL,
		Timeout: adapterCfg.RequestTimeout,
	})

	limit := rate.Inf
	if adapterCfg.RequestsPerSecond > 0 {
		limit = rate.Limit(adapterCfg.RequestsPerSecond)
	}
	burst := adapterCfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &httpNoteService{
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

func (h *httpNoteService) CheckVersion(ctx context.Context, clientName string, major, minor int16) (bool, error) {
	var ok bool
	err := h.userStore(ctx, "", "checkVersion", map[string]any{
		"clientName":       clientName,
		"edamVersionMajor": major,
		"edamVersionMinor": minor,
	}, &ok)
	return ok, err
}

func (h *httpNoteService) GetUser(ctx context.Context, creds Credentials) (models.User, error) {
	var user models.User
	err := h.userStore(ctx, creds.AuthToken, "getUser", nil, &user)
	return user, err
}

func (h *httpNoteService) GetAccountLimits(ctx context.Context, creds Credentials, serviceLevel int32) (models.AccountLimits, error) {
	var limits models.AccountLimits
	err := h.userStore(ctx, creds.AuthToken, "getAccountLimits", map[string]any{"serviceLevel": serviceLevel}, &limits)
	return limits, err
}

func (h *httpNoteService) GetSyncState(ctx context.Context, creds Credentials) (models.SyncState, error) {
	var state models.SyncState
	err := h.noteStore(ctx, creds, "getSyncState", nil, &state)
	return state, err
}

func (h *httpNoteService) GetFilteredSyncChunk(ctx context.Context, creds Credentials, afterUSN, maxEntries int32, filter models.SyncChunkFilter) (models.SyncChunk, error) {
	var chunk models.SyncChunk
	err := h.noteStore(ctx, creds, "getFilteredSyncChunk", map[string]any{
		"afterUSN":   afterUSN,
		"maxEntries": maxEntries,
		"filter":     filter,
	}, &chunk)
	return chunk, err
}

func (h *httpNoteService) GetLinkedNotebookSyncState(ctx context.Context, creds Credentials, linkedNotebook models.LinkedNotebook) (models.SyncState, error) {
	var state models.SyncState
	err := h.noteStore(ctx, creds, "getLinkedNotebookSyncState", map[string]any{
		"linkedNotebook": linkedNotebook,
	}, &state)
	return state, err
}

func (h *httpNoteService) GetLinkedNotebookSyncChunk(ctx context.Context, creds Credentials, linkedNotebook models.LinkedNotebook, afterUSN, maxEntries int32, fullSyncOnly bool) (models.SyncChunk, error) {
	var chunk models.SyncChunk
	err := h.noteStore(ctx, creds, "getLinkedNotebookSyncChunk", map[string]any{
		"linkedNotebook": linkedNotebook,
		"afterUSN":       afterUSN,
		"maxEntries":     maxEntries,
		"fullSyncOnly":   fullSyncOnly,
	}, &chunk)
	return chunk, err
}

func (h *httpNoteService) GetNote(ctx context.Context, creds Credentials, guid string, opts NoteFetchOptions) (models.Note, error) {
	var note models.Note
	err := h.noteStore(ctx, creds, "getNoteWithResultSpec", map[string]any{
		"guid":       guid,
		"resultSpec": opts,
	}, &note)
	return note, err
}

func (h *httpNoteService) GetResource(ctx context.Context, creds Credentials, guid string, opts ResourceFetchOptions) (models.Resource, error) {
	var resource models.Resource
	err := h.noteStore(ctx, creds, "getResource", map[string]any{
		"guid":              guid,
		"withData":          opts.WithData,
		"withRecognition":   opts.WithRecognition,
		"withAttributes":    opts.WithAttributes,
		"withAlternateData": opts.WithAlternateData,
	}, &resource)
	return resource, err
}

// GetNoteThumbnail returns the PNG thumbnail of a note. Thumbnails are served
// outside of the note store API, so the raw body is returned.
func (h *httpNoteService) GetNoteThumbnail(ctx context.Context, creds Credentials, noteGuid string, size int) ([]byte, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("throttle thumbnail: %w", err)
	}

	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Accept", "image/png").
		SetFormData(map[string]string{
			"auth": creds.AuthToken,
			"size": fmt.Sprint(size),
		}).
		Post("/shard/" + url.PathEscape(creds.ShardID) + "/thm/note/" + url.PathEscape(noteGuid) + ".png")
	if err != nil {
		return nil, fmt.Errorf("thumbnail request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

func (h *httpNoteService) AuthenticateToSharedNotebook(ctx context.Context, creds Credentials, sharedNotebookGlobalID string) (models.LinkedNotebookAuth, error) {
	var result struct {
		AuthenticationToken string `json:"authenticationToken"`
		Expiration          int64  `json:"expiration"`
		ShardID             string `json:"shardId"`
	}
	err := h.noteStore(ctx, creds, "authenticateToSharedNotebook", map[string]any{
		"shareKeyOrGlobalId": sharedNotebookGlobalID,
	}, &result)
	if err != nil {
		return models.LinkedNotebookAuth{}, err
	}
	return models.LinkedNotebookAuth{
		AuthToken:  result.AuthenticationToken,
		ShardID:    result.ShardID,
		Expiration: result.Expiration,
	}, nil
}

func (h *httpNoteService) CreateNotebook(ctx context.Context, creds Credentials, notebook models.Notebook) (models.Notebook, error) {
	var created models.Notebook
	err := h.noteStore(ctx, creds, "createNotebook", map[string]any{"notebook": notebook}, &created)
	return created, err
}

func (h *httpNoteService) UpdateNotebook(ctx context.Context, creds Credentials, notebook models.Notebook) (int32, error) {
	var usn int32
	err := h.noteStore(ctx, creds, "updateNotebook", map[string]any{"notebook": notebook}, &usn)
	return usn, err
}

func (h *httpNoteService) CreateTag(ctx context.Context, creds Credentials, tag models.Tag) (models.Tag, error) {
	var created models.Tag
	err := h.noteStore(ctx, creds, "createTag", map[string]any{"tag": tag}, &created)
	return created, err
}

func (h *httpNoteService) UpdateTag(ctx context.Context, creds Credentials, tag models.Tag) (int32, error) {
	var usn int32
	err := h.noteStore(ctx, creds, "updateTag", map[string]any{"tag": tag}, &usn)
	return usn, err
}

func (h *httpNoteService) CreateSearch(ctx context.Context, creds Credentials, search models.SavedSearch) (models.SavedSearch, error) {
	var created models.SavedSearch
	err := h.noteStore(ctx, creds, "createSearch", map[string]any{"search": search}, &created)
	return created, err
}

func (h *httpNoteService) UpdateSearch(ctx context.Context, creds Credentials, search models.SavedSearch) (int32, error) {
	var usn int32
	err := h.noteStore(ctx, creds, "updateSearch", map[string]any{"search": search}, &usn)
	return usn, err
}

func (h *httpNoteService) CreateNote(ctx context.Context, creds Credentials, note models.Note) (models.Note, error) {
	var created models.Note
	err := h.noteStore(ctx, creds, "createNote", map[string]any{"note": note}, &created)
	return created, err
}

func (h *httpNoteService) UpdateNote(ctx context.Context, creds Credentials, note models.Note) (models.Note, error) {
	var updated models.Note
	err := h.noteStore(ctx, creds, "updateNote", map[string]any{"note": note}, &updated)
	return updated, err
}

func (h *httpNoteService) noteStore(ctx context.Context, creds Credentials, method string, params map[string]any, result any) error {
	if creds.ShardID == "" {
		return fmt.Errorf("%s: empty shard id: %w", method, ErrAuthExpired)
	}
	return h.call(ctx, "/shard/"+url.PathEscape(creds.ShardID)+"/notestore/"+method, creds.AuthToken, method, params, result)
}

func (h *httpNoteService) userStore(ctx context.Context, token, method string, params map[string]any, result any) error {
	return h.call(ctx, "/edam/user/"+method, token, method, params, result)
}

func (h *httpNoteService) call(ctx context.Context, path, token, method string, params map[string]any, result any) error {
	if err := h.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("throttle %s: %w", method, err)
	}

	body := make(map[string]any, len(params)+1)
	for k, v := range params {
		body[k] = v
	}
	if token != "" {
		body["authenticationToken"] = token
	}

	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(path)
	if err != nil {
		return fmt.Errorf("%s request: %w", method, err)
	}
	if err = mapHTTPError(resp); err != nil {
		h.logger.Debug().Err(err).Str("func", "httpNoteService.call").Str("method", method).Int("status", resp.StatusCode()).Msg("note service call failed")
		return err
	}

	if result == nil {
		return nil
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err = json.Unmarshal(resp.Body(), &envelope); err != nil || len(envelope.Result) == 0 {
		return fmt.Errorf("%s: %w", method, errors.Join(ErrInvalidResponse, err))
	}
	if err = json.Unmarshal(envelope.Result, result); err != nil {
		return fmt.Errorf("%s decode result: %w", method, errors.Join(ErrInvalidResponse, err))
	}
	return nil
}
