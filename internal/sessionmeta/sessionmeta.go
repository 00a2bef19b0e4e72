// Package sessionmeta persists per-session background-export progress
// to boothy.session.json, read and written the same atomic-rename way
// preset sidecar documents are.
package sessionmeta

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SchemaVersion is the current on-disk schema.
const SchemaVersion = 1

// FileName is the metadata file's name within a session directory.
const FileName = "boothy.session.json"

// LastError is the last background-export failure recorded for a photo,
// mirroring original_source's SessionExportError{code,message,context}.
type LastError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Context map[string]string `json:"context,omitempty"`
}

// PhotoEntry tracks one raw photo's background-export progress.
type PhotoEntry struct {
	RawFilename               string     `json:"rawFilename"`
	BackgroundExportCompleted bool       `json:"backgroundExportCompleted"`
	BackgroundExportTimestamp *time.Time `json:"backgroundExportTimestamp,omitempty"`
	AttemptCount              int        `json:"attemptCount"`
	LastAttemptAt             *time.Time `json:"lastAttemptAt,omitempty"`
	LastError                 *LastError `json:"lastError,omitempty"`
}

// Metadata is the on-disk document.
type Metadata struct {
	SchemaVersion int          `json:"schemaVersion"`
	Photos        []PhotoEntry `json:"photos"`
}

// Store guards reads and writes of one session directory's metadata
// file with a mutex, the way preset.Store guards its single record;
// every exportqueue worker for a given session shares one Store.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New returns a Store for the session directory dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path() string {
	return filepath.Join(s.dir, FileName)
}

// Load reads the metadata file, tolerating a missing or corrupt file
// by returning a fresh empty document.
func (s *Store) Load() Metadata {
	data, err := os.ReadFile(s.path())
	if err != nil {
		return Metadata{SchemaVersion: SchemaVersion}
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{SchemaVersion: SchemaVersion}
	}
	if m.SchemaVersion == 0 {
		m.SchemaVersion = SchemaVersion
	}
	return m
}

func (s *Store) save(m Metadata) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, fmt.Sprintf(".%s.*.tmp", FileName))
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.path())
}

func findEntry(m *Metadata, rawFilename string) *PhotoEntry {
	for i := range m.Photos {
		if m.Photos[i].RawFilename == rawFilename {
			return &m.Photos[i]
		}
	}
	return nil
}

// IsBackgroundExportCompleted reports whether rawFilename has already
// completed a background export, per the current metadata on disk.
func (s *Store) IsBackgroundExportCompleted(rawFilename string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.Load()
	if e := findEntry(&m, rawFilename); e != nil {
		return e.BackgroundExportCompleted
	}
	return false
}

// RecordAttempt increments the attempt counter and timestamp for
// rawFilename before a develop/export pipeline run starts, creating
// the entry if it does not yet exist.
func (s *Store) RecordAttempt(rawFilename string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.Load()
	e := findEntry(&m, rawFilename)
	if e == nil {
		m.Photos = append(m.Photos, PhotoEntry{RawFilename: rawFilename})
		e = &m.Photos[len(m.Photos)-1]
	}
	e.AttemptCount++
	atCopy := at
	e.LastAttemptAt = &atCopy
	e.LastError = nil
	return s.save(m)
}

// MarkSuccess records a completed background export.
func (s *Store) MarkSuccess(rawFilename string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.Load()
	e := findEntry(&m, rawFilename)
	if e == nil {
		m.Photos = append(m.Photos, PhotoEntry{RawFilename: rawFilename})
		e = &m.Photos[len(m.Photos)-1]
	}
	e.BackgroundExportCompleted = true
	atCopy := at
	e.BackgroundExportTimestamp = &atCopy
	e.LastError = nil
	return s.save(m)
}

// MarkFailure records a failed attempt without marking the photo
// complete, leaving it eligible for a later retry or CatchUp pass.
func (s *Store) MarkFailure(rawFilename string, le LastError) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.Load()
	e := findEntry(&m, rawFilename)
	if e == nil {
		m.Photos = append(m.Photos, PhotoEntry{RawFilename: rawFilename})
		e = &m.Photos[len(m.Photos)-1]
	}
	e.LastError = &le
	return s.save(m)
}
