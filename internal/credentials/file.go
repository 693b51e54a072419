package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/MKhiriev/go-note-keeper/internal/crypto"
)

// sealedFile is the on-disk layout of the encrypted store.
type sealedFile struct {
	Salt []byte `json:"salt"`
	Data []byte `json:"data"`
}

type encryptedFileStore struct {
	path       string
	passphrase string
	sealer     crypto.Sealer

	mu   sync.Mutex
	salt []byte
	key  []byte
}

// NewEncryptedFileStore returns a [SecretStore] keeping every entry in a
// single file sealed with a key derived from passphrase. The file is created
// on first write.
func NewEncryptedFileStore(path, passphrase string, sealer crypto.Sealer) (SecretStore, error) {
	if path == "" {
		return nil, fmt.Errorf("secrets file path cannot be empty")
	}
	if passphrase == "" {
		return nil, fmt.Errorf("secrets passphrase cannot be empty")
	}
	return &encryptedFileStore{path: path, passphrase: passphrase, sealer: sealer}, nil
}

func (s *encryptedFileStore) ReadPassword(ctx context.Context, service, key string) (string, error) {
	if err := validate(ctx, service, key); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return "", err
	}
	password, ok := entries[service][key]
	if !ok {
		return "", fmt.Errorf("secrets file %q: %w", key, ErrSecretNotFound)
	}
	return password, nil
}

func (s *encryptedFileStore) WritePassword(ctx context.Context, service, key, password string) error {
	if err := validate(ctx, service, key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	if entries[service] == nil {
		entries[service] = make(map[string]string)
	}
	entries[service][key] = password
	return s.save(entries)
}

func (s *encryptedFileStore) DeletePassword(ctx context.Context, service, key string) error {
	if err := validate(ctx, service, key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := entries[service][key]; !ok {
		return fmt.Errorf("secrets file %q: %w", key, ErrSecretNotFound)
	}
	delete(entries[service], key)
	return s.save(entries)
}

func (s *encryptedFileStore) load() (map[string]map[string]string, error) {
	entries := make(map[string]map[string]string)

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read secrets file: %w", err)
	}

	var file sealedFile
	if err = json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode secrets file: %w", err)
	}

	plaintext, err := s.sealer.Open(file.Data, s.deriveKey(file.Salt))
	if err != nil {
		return nil, fmt.Errorf("open secrets file: %w", err)
	}
	if err = json.Unmarshal(plaintext, &entries); err != nil {
		return nil, fmt.Errorf("decode secrets: %w", err)
	}
	return entries, nil
}

func (s *encryptedFileStore) save(entries map[string]map[string]string) error {
	if s.salt == nil {
		salt, err := s.sealer.GenerateSalt()
		if err != nil {
			return fmt.Errorf("generate salt: %w", err)
		}
		s.deriveKey(salt)
	}

	plaintext, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode secrets: %w", err)
	}
	sealed, err := s.sealer.Seal(plaintext, s.key)
	if err != nil {
		return fmt.Errorf("seal secrets: %w", err)
	}
	raw, err := json.Marshal(sealedFile{Salt: s.salt, Data: sealed})
	if err != nil {
		return fmt.Errorf("encode secrets file: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create secrets dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err = os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write secrets file: %w", err)
	}
	if err = os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace secrets file: %w", err)
	}
	return nil
}

// deriveKey caches the key of the current salt; Argon2id is expensive.
func (s *encryptedFileStore) deriveKey(salt []byte) []byte {
	if s.key != nil && string(s.salt) == string(salt) {
		return s.key
	}
	s.salt = salt
	s.key = s.sealer.DeriveKey(s.passphrase, salt)
	return s.key
}
