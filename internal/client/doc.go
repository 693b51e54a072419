// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client implements the sync client runtime.
//
// It wires the local storage, the remote note service, the secret store and
// the settings file into a [service.SyncManager] and runs synchronization
// either once or periodically until the process is interrupted.
package client
