package client

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-note-keeper/internal/config"
	"github.com/MKhiriev/go-note-keeper/internal/credentials"
	"github.com/MKhiriev/go-note-keeper/internal/logger"
	"github.com/MKhiriev/go-note-keeper/internal/service"
	"github.com/MKhiriev/go-note-keeper/internal/settings"
	"github.com/MKhiriev/go-note-keeper/models"
)

type fakeSynchronizer struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSynchronizer) Synchronize(ctx context.Context) (models.SyncCheckpoint, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return models.SyncCheckpoint{}, err
	}
	return models.SyncCheckpoint{LastUpdateCount: 5}, f.err
}

func TestApp_RunOnce(t *testing.T) {
	s := &fakeSynchronizer{}
	app := newApp(&config.ClientConfig{}, s, nil, logger.Nop())

	require.NoError(t, app.Run(context.Background()))
	assert.Equal(t, int32(1), s.calls.Load())
	assert.NoError(t, app.Close())
}

func TestApp_RunOnce_Failure(t *testing.T) {
	s := &fakeSynchronizer{err: service.ErrTooManySyncRounds}
	app := newApp(&config.ClientConfig{}, s, nil, logger.Nop())

	err := app.Run(context.Background())

	assert.ErrorIs(t, err, service.ErrTooManySyncRounds)
}

func TestApp_RunOnce_Interrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	app := newApp(&config.ClientConfig{}, &fakeSynchronizer{}, nil, logger.Nop())

	assert.NoError(t, app.Run(ctx))
}

func TestApp_RunPeriodic(t *testing.T) {
	s := &fakeSynchronizer{}
	cfg := &config.ClientConfig{Sync: config.ClientSync{Interval: 10 * time.Millisecond}}
	app := newApp(cfg, s, nil, logger.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()

	require.NoError(t, app.Run(ctx))
	assert.GreaterOrEqual(t, s.calls.Load(), int32(2))

	calls := s.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, s.calls.Load(), "no sessions after Run returns")
}

func TestNewLocalStorage_Memory(t *testing.T) {
	for _, dsn := range []string{":memory:", filepath.Join(t.TempDir(), "notes.json")} {
		t.Run(dsn, func(t *testing.T) {
			ls, err := newLocalStorage(context.Background(), config.ClientDB{DSN: dsn}, logger.Nop())
			require.NoError(t, err)
			assert.NoError(t, ls.Close())
		})
	}
}

func TestHostKey(t *testing.T) {
	assert.Equal(t, "www.evernote.com", hostKey("https://www.evernote.com/"))
	assert.Equal(t, "sandbox.evernote.com:8080", hostKey("http://sandbox.evernote.com:8080"))
	assert.Equal(t, "localhost", hostKey("localhost"))
}

func TestEventLogger_HandlesEveryEvent(t *testing.T) {
	log := eventLogger(logger.Nop())
	for _, ev := range []service.Event{
		service.Failure{Err: errors.New("boom")},
		service.EntityFailure{EntityType: models.EntityNote, Err: errors.New("bad")},
		service.RateLimitExceeded{Wait: time.Second},
		service.NotesDownloadProgress{Downloaded: 1, Total: 2},
		service.ConflictDetected{EntityType: models.EntityTag},
		service.ChangesSent{},
		service.AuthenticationFinished{UserID: 1},
		service.SyncFinished{},
		service.Paused{},
	} {
		assert.NotPanics(t, func() { log(ev) })
	}
}

func newTestClientConfig(dir, token string) *config.ClientConfig {
	return &config.ClientConfig{
		App: config.ClientApp{
			Name:           "go-note-keeper",
			ClientName:     "go-note-keeper/test",
			DeveloperToken: token,
		},
		Adapter: config.ClientAdapter{
			Host:           "https://sandbox.example.com/",
			RequestTimeout: time.Second,
		},
		Storage: config.ClientStorage{
			DB:           config.ClientDB{DSN: ":memory:"},
			SettingsPath: filepath.Join(dir, "settings.yaml"),
			Secrets: config.ClientSecrets{
				Backend:    config.SecretsBackendFile,
				FilePath:   filepath.Join(dir, "secrets.bin"),
				Passphrase: "correct horse",
			},
		},
	}
}

func TestNewApp_RestoresLastAccountAfterRestart(t *testing.T) {
	dir := t.TempDir()
	// user 0x9c9d, expires in 2100
	token := "S=s1:U=9c9d:E=3bb2cc3d800:C=0:P=1:A=test:V=2:H=0"

	first, err := NewApp(context.Background(), newTestClientConfig(dir, token), logger.Nop())
	require.NoError(t, err)
	auth, err := first.sync.(*service.SyncManager).Authenticate(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(0x9c9d), auth.UserID)
	require.NoError(t, first.Close())

	// no developer token: the stored one must be reused
	second, err := NewApp(context.Background(), newTestClientConfig(dir, ""), logger.Nop())
	require.NoError(t, err)
	defer second.Close()

	manager := second.sync.(*service.SyncManager)
	restored, err := manager.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, restored.AuthToken)
	assert.Equal(t, "s1", restored.ShardID)
	assert.Equal(t, int32(0x9c9d), manager.UserID())

	host, err := settings.NewFileStore(filepath.Join(dir, "settings.yaml"))
	require.NoError(t, err)
	stored, err := host.Load(context.Background(), settings.HostAccount("sandbox.example.com"))
	require.NoError(t, err)
	assert.Equal(t, int32(0x9c9d), stored.LastUserID)

	secrets, err := credentials.NewSecretStore(newTestClientConfig(dir, "").Storage.Secrets)
	require.NoError(t, err)
	keys := credentials.Keys{App: "go-note-keeper", Host: "sandbox.example.com", UserID: 0x9c9d}
	value, err := secrets.ReadPassword(context.Background(), keys.AuthToken().Service, keys.AuthToken().Key)
	require.NoError(t, err)
	assert.Equal(t, token, value)
}

func TestNewApp_NoStoredAccountNoToken(t *testing.T) {
	app, err := NewApp(context.Background(), newTestClientConfig(t.TempDir(), ""), logger.Nop())
	require.NoError(t, err)
	defer app.Close()

	_, err = app.sync.(*service.SyncManager).Authenticate(context.Background())
	assert.ErrorIs(t, err, service.ErrNoAuthenticator)
}
