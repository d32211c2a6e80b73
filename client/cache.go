// Package client is the Go consumer of the mindgarden API: an HTTP client
// covering the full surface plus the device-local session cache the mobile
// app keeps of its user record.
package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sakif/mindgarden/internal/model"
)

// Snapshot is the device-local mirror of the server-side user record, plus
// the handful of settings the app keeps only on-device.
//
// The mirror is non-authoritative BY DESIGN: many unrelated screens patch it
// independently and the last writer wins, so it can sit stale between a
// server-side mutation and the next explicit Refresh. The server record is
// the single source of truth; this file is just the copy the UI reads.
type Snapshot struct {
	User      model.User `json:"user"`
	Language  string     `json:"language,omitempty"`
	VoiceType string     `json:"voice_type,omitempty"`
	// SavedAt is when this snapshot was last written locally. Diagnostic
	// only — freshness is never inferred from it.
	SavedAt time.Time `json:"saved_at"`
}

// SessionCache is a durable single-document store for the Snapshot. All
// access goes through one mutex, so concurrent read-modify-writes from
// different goroutines serialize; across processes the contract stays
// last-writer-wins.
type SessionCache struct {
	mu   sync.Mutex
	path string
}

// NewSessionCache stores the snapshot at path (parent directories are created
// on first write).
func NewSessionCache(path string) *SessionCache {
	return &SessionCache{path: path}
}

// Load reads the current snapshot. Returns (nil, nil) when none exists —
// a signed-out device, not an error.
func (c *SessionCache) Load() (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load()
}

func (c *SessionCache) load() (*Snapshot, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("client: reading session cache: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("client: decoding session cache: %w", err)
	}
	return &snap, nil
}

// Put overwrites the cached user record wholesale, preserving device-only
// fields. Every mutating API call that returns a user record funnels through
// here.
func (c *SessionCache) Put(user *model.User) error {
	return c.Patch(func(snap *Snapshot) {
		snap.User = *user
	})
}

// Patch performs a read-modify-write under the cache lock: load (or start
// empty), let fn mutate, persist. Independent subsystems — points after a
// task, a settings change, a language switch — each patch their own fields
// without a central coordinator.
func (c *SessionCache) Patch(fn func(*Snapshot)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.load()
	if err != nil {
		return err
	}
	if snap == nil {
		snap = &Snapshot{}
	}

	fn(snap)
	snap.SavedAt = time.Now()

	return c.save(snap)
}

// save writes atomically: temp file in the same directory, then rename, so a
// crash mid-write never leaves a torn snapshot.
func (c *SessionCache) save(snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("client: encoding session cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("client: creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("client: writing session cache: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("client: writing session cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("client: writing session cache: %w", err)
	}

	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("client: writing session cache: %w", err)
	}
	return nil
}

// Clear deletes the snapshot. Logout is purely client-side — the server
// record is untouched.
func (c *SessionCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("client: clearing session cache: %w", err)
	}
	return nil
}
