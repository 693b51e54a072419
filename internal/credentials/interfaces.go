// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package credentials stores auth tokens and shard ids outside of the
// settings file.
//
// [SecretStore] is the port the sync engine talks to. Two implementations
// are provided: the OS keychain ([NewKeyringStore]) and a passphrase
// protected file ([NewEncryptedFileStore]) for hosts without a keychain.
// [Keys] builds the entry names used for an account.
package credentials

import (
	"context"
	"errors"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/secret_store_mock.go -package=mock

// ErrSecretNotFound is returned when no secret is stored under the key.
var ErrSecretNotFound = errors.New("secret not found")

// SecretStore keeps passwords addressed by service and key.
type SecretStore interface {
	ReadPassword(ctx context.Context, service, key string) (string, error)
	WritePassword(ctx context.Context, service, key, password string) error
	// DeletePassword removes the entry. Deleting a missing entry returns
	// [ErrSecretNotFound].
	DeletePassword(ctx context.Context, service, key string) error
}
