package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MKhiriev/go-note-keeper/internal/logger"
	"github.com/MKhiriev/go-note-keeper/models"
)

// DefaultSyncInterval is used when SyncJob.Start gets a non-positive interval.
const DefaultSyncInterval = 5 * time.Minute

// Synchronizer runs one synchronization session.
type Synchronizer interface {
	Synchronize(ctx context.Context) (models.SyncCheckpoint, error)
}

// SyncJob runs Synchronize once immediately and then on a ticker until
// stopped. Sessions never overlap: a tick that arrives while a session is
// running is dropped by the ticker.
type SyncJob struct {
	sync   Synchronizer
	logger *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSyncJob(s Synchronizer, log *logger.Logger) *SyncJob {
	return &SyncJob{sync: s, logger: log}
}

// Start stops any previously running job and launches a new one.
func (j *SyncJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}

	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()

		j.runOnce(jobCtx)
		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				j.runOnce(jobCtx)
			}
		}
	}()
}

func (j *SyncJob) runOnce(ctx context.Context) {
	cp, err := j.sync.Synchronize(ctx)
	switch {
	case err == nil:
		j.logger.Info().
			Int32("update_count", cp.LastUpdateCount).
			Msg("sync session finished")
	case errors.Is(err, context.Canceled), errors.Is(err, ErrStopped), errors.Is(err, ErrAlreadyRunning):
		j.logger.Debug().Err(err).Msg("sync session skipped")
	default:
		j.logger.Err(err).Msg("sync session failed")
	}
}

// Stop cancels the job and waits for the running session to return. It is a
// no-op when the job is not running.
func (j *SyncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}
