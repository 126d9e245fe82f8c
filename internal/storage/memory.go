// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"log"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// MEMORY KV
// =============================================================================

// MemoryKV is an in-memory KV. It backs the degraded mode when the
// durable store is unavailable and doubles as the test store. An
// optional snapshot file makes it survive restarts on a best-effort
// basis.
type MemoryKV struct {
	mu       sync.RWMutex
	data     map[string][]byte
	snapshot string
	closed   bool
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

// NewMemoryKVWithSnapshot creates an in-memory store that loads from and
// persists to a JSON snapshot file. A missing or unreadable snapshot
// starts empty. Persistence is best-effort: the store backs degraded
// mode, so snapshot trouble is logged, never surfaced as an operation
// failure.
func NewMemoryKVWithSnapshot(path string) *MemoryKV {
	kv := NewMemoryKV()
	kv.snapshot = path

	data, err := os.ReadFile(path)
	if err != nil {
		return kv
	}
	var stored map[string][]byte
	if err := json.Unmarshal(data, &stored); err != nil {
		return kv
	}
	kv.data = stored
	return kv
}

// Get returns the value for a key, or ErrKeyNotFound.
func (m *MemoryKV) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	value, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set stores a value under a key, replacing any existing value.
func (m *MemoryKV) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
	m.persistLocked()
	return nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.data, key)
	m.persistLocked()
	return nil
}

// Keys returns all keys with the given prefix, sorted ascending.
func (m *MemoryKV) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	var keys []string
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close marks the store closed and writes a final snapshot if configured.
func (m *MemoryKV) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.persistLocked()
	m.closed = true
	return nil
}

// persistLocked writes the snapshot file on a best-effort basis.
// Callers hold the write lock.
func (m *MemoryKV) persistLocked() {
	if m.snapshot == "" {
		return
	}
	data, err := json.MarshalIndent(m.data, "", "  ")
	if err != nil {
		log.Printf("SNAPSHOT_WRITE_FAILED | path=%s error=%v", m.snapshot, err)
		return
	}
	// Atomic write so a crash cannot leave a torn snapshot.
	if err := util.AtomicWriteFile(m.snapshot, data, 0644); err != nil {
		log.Printf("SNAPSHOT_WRITE_FAILED | path=%s error=%v", m.snapshot, err)
	}
}
