// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

type document struct {
	Accounts map[string]AccountSettings `yaml:"accounts"`
}

type fileStore struct {
	path string

	mu  sync.Mutex
	doc *document
}

// NewFileStore returns a [Store] persisted as YAML at path. An empty path
// keeps the settings in memory only.
func NewFileStore(path string) (Store, error) {
	s := &fileStore{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *fileStore) Load(ctx context.Context, account Account) (AccountSettings, error) {
	if err := ctx.Err(); err != nil {
		return AccountSettings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return clone(s.doc.Accounts[account.String()])
}

func (s *fileStore) Update(ctx context.Context, account Account, fn func(*AccountSettings) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := clone(s.doc.Accounts[account.String()])
	if err != nil {
		return err
	}
	if err = fn(&current); err != nil {
		return err
	}

	prev, existed := s.doc.Accounts[account.String()]
	s.doc.Accounts[account.String()] = current
	if err = s.persist(); err != nil {
		if existed {
			s.doc.Accounts[account.String()] = prev
		} else {
			delete(s.doc.Accounts, account.String())
		}
		return err
	}
	return nil
}

func (s *fileStore) load() error {
	s.doc = &document{Accounts: make(map[string]AccountSettings)}
	if s.path == "" {
		return nil
	}

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}
	if err = yaml.Unmarshal(raw, s.doc); err != nil {
		return fmt.Errorf("decode settings %s: %w", s.path, err)
	}
	if s.doc.Accounts == nil {
		s.doc.Accounts = make(map[string]AccountSettings)
	}
	return nil
}

func (s *fileStore) persist() error {
	if s.path == "" {
		return nil
	}

	raw, err := yaml.Marshal(s.doc)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err = os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err = os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// clone deep-copies settings through YAML so callers never share maps or
// slices with the document.
func clone(in AccountSettings) (AccountSettings, error) {
	raw, err := yaml.Marshal(in)
	if err != nil {
		return AccountSettings{}, fmt.Errorf("encode settings: %w", err)
	}
	var out AccountSettings
	if err = yaml.Unmarshal(raw, &out); err != nil {
		return AccountSettings{}, fmt.Errorf("decode settings: %w", err)
	}
	return out, nil
}
