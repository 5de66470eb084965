package config

import (
	"errors"
	"fmt"
	"strings"
)

type SessionStorageType string

const (
	SessionStorageBolt SessionStorageType = "bolt" // single bbolt database file
	SessionStorageFile SessionStorageType = "file" // one JSON file per key inside a directory
)

// DefaultSessionKey is the fixed key under which the serialized session is persisted.
const DefaultSessionKey = "votingAppUser"

// SessionConfig controls where the logged-in identity is persisted between program runs.
type SessionConfig struct {
	// Storage selects the storage backend, either "bolt" or "file".
	Storage SessionStorageType `yaml:"storage"`
	// Path is the database file for bolt storage, or the base directory for file storage.
	Path string `yaml:"path"`
	// Key is the storage key of the persisted session.
	Key string `yaml:"key"`
}

func (s *SessionConfig) Sanitize() {
	s.Storage = SessionStorageType(strings.ToLower(strings.TrimSpace(string(s.Storage))))
	if s.Storage == "" {
		s.Storage = SessionStorageBolt
	}
	if strings.TrimSpace(s.Key) == "" {
		s.Key = DefaultSessionKey
	}
}

// Validate checks the session configuration for errors.
func (s *SessionConfig) Validate() error {
	switch s.Storage {
	case SessionStorageBolt, SessionStorageFile:
	default:
		return fmt.Errorf("unsupported session storage %q", s.Storage)
	}
	if s.Path == "" {
		return errors.New("missing session storage path")
	}

	return nil
}
