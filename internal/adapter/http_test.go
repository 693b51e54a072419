// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-note-keeper/internal/config"
	"github.com/MKhiriev/go-note-keeper/internal/logger"
	"github.com/MKhiriev/go-note-keeper/models"
)

var testCreds = Credentials{AuthToken: "S=s1:U=1:token", ShardID: "s1"}

// newTestService creates an httpNoteService pointed at the test server.
func newTestService(t *testing.T, serverURL string) *httpNoteService {
	t.Helper()
	svc, err := NewHTTPNoteService(config.ClientAdapter{Host: serverURL, RequestTimeout: 5 * time.Second}, logger.Nop())
	require.NoError(t, err)
	return svc.(*httpNoteService)
}

func writeResult(t *testing.T, w http.ResponseWriter, result any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"result": result}))
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

// ── Sync chunks ─────────────────────────────────────────────────────────────

func TestGetFilteredSyncChunk_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/shard/s1/notestore/getFilteredSyncChunk", r.URL.Path)

		body := decodeBody(t, r)
		assert.Equal(t, testCreds.AuthToken, body["authenticationToken"])
		assert.EqualValues(t, 10, body["afterUSN"])
		assert.EqualValues(t, 50, body["maxEntries"])

		writeResult(t, w, models.SyncChunk{
			ChunkHighUSN: 12,
			UpdateCount:  40,
			Notebooks: []models.Notebook{
				{SyncMeta: models.SyncMeta{Guid: "nb-1", USN: 11}, Name: "Inbox"},
			},
			ExpungedTags: []string{"tag-1"},
		})
	}))
	defer srv.Close()

	svc := newTestService(t, srv.URL)
	chunk, err := svc.GetFilteredSyncChunk(context.Background(), testCreds, 10, 50, models.FullSyncChunkFilter(true))

	require.NoError(t, err)
	assert.EqualValues(t, 12, chunk.ChunkHighUSN)
	assert.EqualValues(t, 40, chunk.UpdateCount)
	require.Len(t, chunk.Notebooks, 1)
	assert.Equal(t, "nb-1", chunk.Notebooks[0].Guid)
	assert.Equal(t, "Inbox", chunk.Notebooks[0].Name)
	assert.Equal(t, []string{"tag-1"}, chunk.ExpungedTags)
}

func TestGetSyncState_EmptyShard(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1")

	_, err := svc.GetSyncState(context.Background(), Credentials{AuthToken: "t"})
	assert.ErrorIs(t, err, ErrAuthExpired)
}

func TestGetUser_UserStorePath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/edam/user/getUser", r.URL.Path)
		writeResult(t, w, models.User{ID: 7, Username: "alice", ShardID: "s1"})
	}))
	defer srv.Close()

	user, err := newTestService(t, srv.URL).GetUser(context.Background(), testCreds)

	require.NoError(t, err)
	assert.EqualValues(t, 7, user.ID)
	assert.Equal(t, "s1", user.ShardID)
}

func TestUpdateTag_ReturnsUSN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shard/s1/notestore/updateTag", r.URL.Path)
		body := decodeBody(t, r)
		tag, ok := body["tag"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "work", tag["name"])
		writeResult(t, w, 77)
	}))
	defer srv.Close()

	usn, err := newTestService(t, srv.URL).UpdateTag(context.Background(), testCreds, models.Tag{
		SyncMeta: models.SyncMeta{Guid: "tag-1", USN: 3},
		Name:     "work",
	})

	require.NoError(t, err)
	assert.EqualValues(t, 77, usn)
}

func TestAuthenticateToSharedNotebook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "global-1", body["shareKeyOrGlobalId"])
		writeResult(t, w, map[string]any{
			"authenticationToken": "shared-token",
			"expiration":          1700000000000,
			"shardId":             "s9",
		})
	}))
	defer srv.Close()

	auth, err := newTestService(t, srv.URL).AuthenticateToSharedNotebook(context.Background(), testCreds, "global-1")

	require.NoError(t, err)
	assert.Equal(t, "shared-token", auth.AuthToken)
	assert.Equal(t, "s9", auth.ShardID)
	assert.EqualValues(t, 1700000000000, auth.Expiration)
}

func TestGetNoteThumbnail_RawBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shard/s1/thm/note/note-1.png", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, testCreds.AuthToken, r.PostForm.Get("auth"))
		assert.Equal(t, "300", r.PostForm.Get("size"))
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	defer srv.Close()

	data, err := newTestService(t, srv.URL).GetNoteThumbnail(context.Background(), testCreds, "note-1", 300)

	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)
}

// ── Error mapping ───────────────────────────────────────────────────────────

func TestCall_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header map[string]string
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "rate limit from body",
			status: http.StatusBadRequest,
			body:   `{"errorCode":19,"rateLimitDuration":30}`,
			check: func(t *testing.T, err error) {
				d, ok := AsRateLimit(err)
				require.True(t, ok)
				assert.Equal(t, 30*time.Second, d)
			},
		},
		{
			name:   "rate limit from retry-after",
			status: http.StatusTooManyRequests,
			header: map[string]string{"Retry-After": "5"},
			check: func(t *testing.T, err error) {
				d, ok := AsRateLimit(err)
				require.True(t, ok)
				assert.Equal(t, 5*time.Second, d)
			},
		},
		{
			name:   "rate limit without a wait",
			status: http.StatusTooManyRequests,
			check: func(t *testing.T, err error) {
				d, ok := AsRateLimit(err)
				require.True(t, ok)
				assert.Zero(t, d)
			},
		},
		{
			name:   "auth expired",
			status: http.StatusBadRequest,
			body:   `{"errorCode":9,"message":"token expired"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrAuthExpired)
			},
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrAuthExpired)
			},
		},
		{
			name:   "data conflict",
			status: http.StatusBadRequest,
			body:   `{"errorCode":10,"parameter":"Note.updateSequenceNum"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrDataConflict)
			},
		},
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `{"identifier":"Note.guid","message":"note-1"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNotFound)
			},
		},
		{
			name:   "other service error",
			status: http.StatusBadRequest,
			body:   `{"errorCode":7,"parameter":"Accounting.uploadLimit"}`,
			check: func(t *testing.T, err error) {
				var edam *EDAMError
				require.True(t, errors.As(err, &edam))
				assert.Equal(t, CodeQuotaReached, edam.Code)
				assert.Equal(t, "Accounting.uploadLimit", edam.Parameter)
			},
		},
		{
			name:   "plain server error",
			status: http.StatusInternalServerError,
			body:   "boom",
			check: func(t *testing.T, err error) {
				var edam *EDAMError
				require.True(t, errors.As(err, &edam))
				assert.Equal(t, CodeUnknown, edam.Code)
				assert.Contains(t, edam.Message, "boom")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestService(t, srv.URL).GetSyncState(context.Background(), testCreds)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestCall_InvalidEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected":true}`))
	}))
	defer srv.Close()

	_, err := newTestService(t, srv.URL).GetSyncState(context.Background(), testCreds)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestCall_ThrottleHonoursContext(t *testing.T) {
	svc, err := NewHTTPNoteService(config.ClientAdapter{
		Host:              "http://127.0.0.1:1",
		RequestsPerSecond: 0.001,
		Burst:             1,
	}, logger.Nop())
	require.NoError(t, err)
	hs := svc.(*httpNoteService)
	require.True(t, hs.limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = hs.GetSyncState(ctx, testCreds)
	assert.Error(t, err)
}

// ── normalizeBaseURL ────────────────────────────────────────────────────────

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "www.example.com", want: "https://www.example.com"},
		{in: "http://localhost:8080/", want: "http://localhost:8080"},
		{in: "  https://sandbox.example.com  ", want: "https://sandbox.example.com"},
		{in: "", wantErr: true},
		{in: "http://", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := normalizeBaseURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "seconds", value: "120", want: 2 * time.Minute},
		{name: "http date", value: now.Add(90 * time.Second).Format(http.TimeFormat), want: 90 * time.Second},
		{name: "date in the past", value: now.Add(-time.Minute).Format(http.TimeFormat), want: -time.Minute},
		{name: "empty", value: "", want: 0},
		{name: "garbage", value: "soon", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryAfter(tt.value, now))
		})
	}
}
