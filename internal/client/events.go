package client

import (
	"github.com/MKhiriev/go-note-keeper/internal/logger"
	"github.com/MKhiriev/go-note-keeper/internal/service"
)

// eventLogger writes sync engine events to the client log.
func eventLogger(log *logger.Logger) func(service.Event) {
	return func(ev service.Event) {
		switch e := ev.(type) {
		case service.Failure:
			log.Err(e.Err).Str("component", string(e.Component)).Msg("sync failure")
		case service.EntityFailure:
			log.Warn().Err(e.Err).Str("entity_type", e.EntityType.String()).Str("guid", e.Guid).Msg("entity failed to sync")
		case service.RateLimitExceeded:
			log.Warn().Str("component", string(e.Component)).Dur("wait", e.Wait).Msg("rate limit exceeded")
		case service.NotesDownloadProgress:
			log.Debug().
				Str("linked_notebook", e.LinkedNotebookGuid).
				Int("downloaded", e.Downloaded).
				Int("total", e.Total).
				Msg("downloading notes")
		case service.ConflictDetected:
			log.Info().Str("entity_type", e.EntityType.String()).Str("guid", e.Guid).Msg("conflict detected")
		case service.ChangesSent:
			log.Info().Int("sent", e.Sent).Int32("update_count", e.Checkpoint.LastUpdateCount).Msg("local changes sent")
		case service.AuthenticationFinished:
			log.Info().Int32("user_id", e.UserID).Msg("authenticated")
		case service.SyncFinished:
			log.Info().Int32("update_count", e.Checkpoint.LastUpdateCount).Msg("sync finished")
		}
	}
}
