package service

import (
	"errors"
	"fmt"

	"github.com/MKhiriev/go-note-keeper/models"
)

var (
	ErrAlreadyRunning      = errors.New("synchronization is already running")
	ErrNotRunning          = errors.New("synchronization is not running")
	ErrStopped             = errors.New("synchronization was stopped")
	ErrProtocolVersion     = errors.New("protocol version is not supported by the service")
	ErrResolverStarted     = errors.New("conflict resolver was already started")
	ErrMissingGuid         = errors.New("entity has no guid")
	ErrMissingUSN          = errors.New("entity has no update sequence number")
	ErrGuidMismatch        = errors.New("entities do not conflict by guid")
	ErrInvalidRateLimit    = errors.New("rate limit without a valid wait duration")
	ErrNoAuthenticator     = errors.New("no authenticator configured")
	ErrCredentialStore     = errors.New("credential store failure")
	ErrTooManySyncRounds   = errors.New("local changes kept conflicting with remote changes")
	ErrNoLinkedNotebookKey = errors.New("linked notebook has neither a guid nor a shared notebook id")
)

// EntityError scopes a failure to one entity.
type EntityError struct {
	EntityType models.EntityType
	Guid       string
	Name       string
	Err        error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s %q (guid %q): %v", e.EntityType, e.Name, e.Guid, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}
