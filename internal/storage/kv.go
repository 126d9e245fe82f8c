// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides durable key-value persistence for rigchat.
package storage

import (
	"errors"
	"log"
	"sync"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrKeyNotFound is returned when a key does not exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrStoreClosed is returned when an operation runs on a closed store.
	ErrStoreClosed = errors.New("store closed")
)

// =============================================================================
// KV INTERFACE
// =============================================================================

// KV is a flat key-value store. Implementations must be safe for
// concurrent use.
type KV interface {
	// Get returns the value for a key, or ErrKeyNotFound.
	Get(key string) ([]byte, error)

	// Set stores a value under a key, replacing any existing value.
	Set(key string, value []byte) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(key string) error

	// Keys returns all keys with the given prefix, sorted ascending.
	// An empty prefix returns every key.
	Keys(prefix string) ([]string, error)

	// Close releases the underlying resources.
	Close() error
}

// =============================================================================
// OPEN WITH DEGRADE
// =============================================================================

// Open returns the durable SQLite store at path, wrapped in a TieredKV
// so that runtime failures of the durable tier degrade to memory
// instead of surfacing. The memory tier snapshots to <path>.fallback.json,
// so data written while degraded still survives a restart on a
// best-effort basis. When the durable store cannot even be opened the
// failure is logged and the snapshot-backed memory store is returned
// directly.
func Open(path string) KV {
	fallback := NewMemoryKVWithSnapshot(FallbackSnapshotPath(path))
	kv, err := OpenSQLite(path)
	if err != nil {
		log.Printf("STORAGE_DEGRADED | path=%s error=%v fallback=memory", path, err)
		return fallback
	}
	return NewTieredKV(kv, fallback)
}

// FallbackSnapshotPath returns where the memory tier for the database
// at path keeps its snapshot.
func FallbackSnapshotPath(dbPath string) string {
	return dbPath + ".fallback.json"
}

// =============================================================================
// TIERED STORE
// =============================================================================

// TieredKV serves from a primary store and permanently fails over to a
// fallback when the primary errors at runtime (disk full, database file
// deleted mid-session). Key lookups that merely miss do not trigger
// failover. Once degraded it never switches back; previously stored
// primary data is not migrated.
type TieredKV struct {
	primary  KV
	fallback KV

	mu       sync.Mutex
	degraded bool
}

// NewTieredKV creates a tiered store over primary with fallback.
func NewTieredKV(primary, fallback KV) *TieredKV {
	return &TieredKV{primary: primary, fallback: fallback}
}

// Degraded reports whether the store has failed over to the fallback.
func (t *TieredKV) Degraded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.degraded
}

// active returns the store currently serving requests.
func (t *TieredKV) active() KV {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.degraded {
		return t.fallback
	}
	return t.primary
}

// degrade switches to the fallback tier after a primary failure.
// Returns false when another goroutine already degraded the store.
func (t *TieredKV) degrade(op string, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.degraded {
		return false
	}
	t.degraded = true
	log.Printf("STORAGE_DEGRADED | op=%s error=%v fallback=memory", op, err)
	return true
}

func (t *TieredKV) Get(key string) ([]byte, error) {
	store := t.active()
	value, err := store.Get(key)
	if err != nil && !errors.Is(err, ErrKeyNotFound) && store == t.primary {
		t.degrade("get", err)
		return t.fallback.Get(key)
	}
	return value, err
}

func (t *TieredKV) Set(key string, value []byte) error {
	store := t.active()
	err := store.Set(key, value)
	if err != nil && store == t.primary {
		t.degrade("set", err)
		return t.fallback.Set(key, value)
	}
	return err
}

func (t *TieredKV) Delete(key string) error {
	store := t.active()
	err := store.Delete(key)
	if err != nil && store == t.primary {
		t.degrade("delete", err)
		return t.fallback.Delete(key)
	}
	return err
}

func (t *TieredKV) Keys(prefix string) ([]string, error) {
	store := t.active()
	keys, err := store.Keys(prefix)
	if err != nil && store == t.primary {
		t.degrade("keys", err)
		return t.fallback.Keys(prefix)
	}
	return keys, err
}

// Close closes both tiers, returning the first error.
func (t *TieredKV) Close() error {
	primaryErr := t.primary.Close()
	fallbackErr := t.fallback.Close()
	if primaryErr != nil {
		return primaryErr
	}
	return fallbackErr
}
