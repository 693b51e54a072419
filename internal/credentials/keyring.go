package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

type keyringStore struct{}

// NewKeyringStore returns a [SecretStore] backed by the OS keychain.
func NewKeyringStore() SecretStore {
	return &keyringStore{}
}

func (s *keyringStore) ReadPassword(ctx context.Context, service, key string) (string, error) {
	if err := validate(ctx, service, key); err != nil {
		return "", err
	}

	password, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("keyring %q: %w", key, ErrSecretNotFound)
		}
		return "", fmt.Errorf("failed to read from keyring: %w", err)
	}
	return password, nil
}

func (s *keyringStore) WritePassword(ctx context.Context, service, key, password string) error {
	if err := validate(ctx, service, key); err != nil {
		return err
	}

	if err := keyring.Set(service, key, password); err != nil {
		return fmt.Errorf("failed to write to keyring: %w", err)
	}
	return nil
}

func (s *keyringStore) DeletePassword(ctx context.Context, service, key string) error {
	if err := validate(ctx, service, key); err != nil {
		return err
	}

	if err := keyring.Delete(service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("keyring %q: %w", key, ErrSecretNotFound)
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

func validate(ctx context.Context, service, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if service == "" {
		return fmt.Errorf("service cannot be empty")
	}
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	return nil
}
