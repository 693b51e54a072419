package credentials

import (
	"fmt"

	"github.com/MKhiriev/go-note-keeper/internal/config"
	"github.com/MKhiriev/go-note-keeper/internal/crypto"
)

// NewSecretStore builds the [SecretStore] selected by cfg.Backend.
func NewSecretStore(cfg config.ClientSecrets) (SecretStore, error) {
	switch cfg.Backend {
	case config.SecretsBackendKeyring, "":
		return NewKeyringStore(), nil
	case config.SecretsBackendFile:
		return NewEncryptedFileStore(cfg.FilePath, cfg.Passphrase, crypto.NewSealer())
	default:
		return nil, fmt.Errorf("unknown secrets backend %q", cfg.Backend)
	}
}
