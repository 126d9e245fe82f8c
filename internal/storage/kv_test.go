// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// openStores returns one of each KV implementation backed by a temp dir.
func openStores(t *testing.T) map[string]KV {
	t.Helper()

	dir := t.TempDir()
	sqlite, err := OpenSQLite(filepath.Join(dir, "kv.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	memory := NewMemoryKV()
	t.Cleanup(func() { memory.Close() })

	return map[string]KV{
		"sqlite": sqlite,
		"memory": memory,
	}
}

func TestKV_SetGetDelete(t *testing.T) {
	for name, kv := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := kv.Get("missing"); !errors.Is(err, ErrKeyNotFound) {
				t.Errorf("Get(missing) error = %v, want ErrKeyNotFound", err)
			}

			if err := kv.Set("k", []byte("v1")); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			got, err := kv.Get("k")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if string(got) != "v1" {
				t.Errorf("Get = %q, want v1", got)
			}

			// Overwrite.
			if err := kv.Set("k", []byte("v2")); err != nil {
				t.Fatalf("Set overwrite failed: %v", err)
			}
			got, _ = kv.Get("k")
			if string(got) != "v2" {
				t.Errorf("Get after overwrite = %q, want v2", got)
			}

			if err := kv.Delete("k"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, err := kv.Get("k"); !errors.Is(err, ErrKeyNotFound) {
				t.Errorf("Get after delete error = %v, want ErrKeyNotFound", err)
			}

			// Deleting again is not an error.
			if err := kv.Delete("k"); err != nil {
				t.Errorf("Delete of missing key failed: %v", err)
			}
		})
	}
}

func TestKV_KeysPrefix(t *testing.T) {
	for name, kv := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"conv:b", "conv:a", "cfg:x"} {
				if err := kv.Set(key, []byte("x")); err != nil {
					t.Fatalf("Set %s failed: %v", key, err)
				}
			}

			keys, err := kv.Keys("conv:")
			if err != nil {
				t.Fatalf("Keys failed: %v", err)
			}
			if want := []string{"conv:a", "conv:b"}; !reflect.DeepEqual(keys, want) {
				t.Errorf("Keys(conv:) = %v, want %v", keys, want)
			}

			all, err := kv.Keys("")
			if err != nil {
				t.Fatalf("Keys(\"\") failed: %v", err)
			}
			if len(all) != 3 {
				t.Errorf("Keys(\"\") returned %d keys, want 3", len(all))
			}
		})
	}
}

func TestSQLiteKV_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")

	kv, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	if err := kv.Set("persist", []byte("yes")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := kv.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	kv, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer kv.Close()

	got, err := kv.Get("persist")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(got) != "yes" {
		t.Errorf("Get after reopen = %q, want yes", got)
	}
}

func TestMemoryKV_SnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")

	kv := NewMemoryKVWithSnapshot(path)
	if err := kv.Set("a", []byte("1")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := kv.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	restored := NewMemoryKVWithSnapshot(path)
	defer restored.Close()

	got, err := restored.Get("a")
	if err != nil {
		t.Fatalf("Get after restore failed: %v", err)
	}
	if string(got) != "1" {
		t.Errorf("restored value = %q, want 1", got)
	}
}

func TestMemoryKV_ClosedStore(t *testing.T) {
	kv := NewMemoryKV()
	kv.Close()

	if err := kv.Set("k", []byte("v")); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Set on closed store error = %v, want ErrStoreClosed", err)
	}
	if _, err := kv.Get("k"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Get on closed store error = %v, want ErrStoreClosed", err)
	}
}

func TestOpen_DegradesToMemory(t *testing.T) {
	// A path whose parent cannot be created forces the degrade path.
	kv := Open(filepath.Join("/dev/null", "impossible", "kv.db"))
	defer kv.Close()

	if _, ok := kv.(*MemoryKV); !ok {
		t.Fatalf("Open should degrade to MemoryKV, got %T", kv)
	}

	// The degraded store still works for the session.
	if err := kv.Set("k", []byte("v")); err != nil {
		t.Errorf("degraded store Set failed: %v", err)
	}
}

func TestOpen_HealthyStoreIsTiered(t *testing.T) {
	kv := Open(filepath.Join(t.TempDir(), "kv.db"))
	defer kv.Close()

	tiered, ok := kv.(*TieredKV)
	if !ok {
		t.Fatalf("Open should return a TieredKV, got %T", kv)
	}
	if tiered.Degraded() {
		t.Error("fresh store should not be degraded")
	}
}

// failingKV errors on everything, standing in for a broken durable tier.
type failingKV struct{}

func (failingKV) Get(string) ([]byte, error)    { return nil, errors.New("disk gone") }
func (failingKV) Set(string, []byte) error      { return errors.New("disk gone") }
func (failingKV) Delete(string) error           { return errors.New("disk gone") }
func (failingKV) Keys(string) ([]string, error) { return nil, errors.New("disk gone") }
func (failingKV) Close() error                  { return nil }

func TestTieredKV_FailsOverOnPrimaryError(t *testing.T) {
	tiered := NewTieredKV(failingKV{}, NewMemoryKV())
	defer tiered.Close()

	if err := tiered.Set("k", []byte("v")); err != nil {
		t.Fatalf("Set should succeed via fallback: %v", err)
	}
	if !tiered.Degraded() {
		t.Error("store should report degraded after primary failure")
	}

	// Subsequent operations hit the fallback directly.
	got, err := tiered.Get("k")
	if err != nil {
		t.Fatalf("Get after failover failed: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get = %q, want v", got)
	}
}

func TestTieredKV_MissDoesNotFailOver(t *testing.T) {
	tiered := NewTieredKV(NewMemoryKV(), NewMemoryKV())
	defer tiered.Close()

	if _, err := tiered.Get("missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrKeyNotFound", err)
	}
	if tiered.Degraded() {
		t.Error("a key miss must not trigger failover")
	}
}

func TestOpen_DegradedStoreSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "kv.db")

	// A directory where the database file should be makes the sqlite
	// open fail while its parent stays writable for the snapshot.
	if err := os.Mkdir(dbPath, 0755); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}

	kv := Open(dbPath)
	if _, ok := kv.(*MemoryKV); !ok {
		t.Fatalf("Open should degrade to MemoryKV, got %T", kv)
	}
	if err := kv.Set("conv:x", []byte("payload")); err != nil {
		t.Fatalf("Set on degraded store failed: %v", err)
	}
	if err := kv.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// A new process opening the same path finds the snapshot.
	reopened := Open(dbPath)
	defer reopened.Close()

	got, err := reopened.Get("conv:x")
	if err != nil {
		t.Fatalf("Get after restart failed: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("Get after restart = %q, want payload", got)
	}
}

func TestTieredKV_FailoverWritesSurviveRestart(t *testing.T) {
	snapshot := filepath.Join(t.TempDir(), "kv.db.fallback.json")

	tiered := NewTieredKV(failingKV{}, NewMemoryKVWithSnapshot(snapshot))
	if err := tiered.Set("conv:y", []byte("kept")); err != nil {
		t.Fatalf("Set should succeed via fallback: %v", err)
	}
	if err := tiered.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	restored := NewMemoryKVWithSnapshot(snapshot)
	defer restored.Close()

	got, err := restored.Get("conv:y")
	if err != nil {
		t.Fatalf("Get after restart failed: %v", err)
	}
	if string(got) != "kept" {
		t.Errorf("Get after restart = %q, want kept", got)
	}
}

func TestMemoryKV_SnapshotWriteFailureIsNotFatal(t *testing.T) {
	// An unwritable snapshot path must not take down the store.
	kv := NewMemoryKVWithSnapshot(filepath.Join("/dev/null", "nope", "snap.json"))
	defer kv.Close()

	if err := kv.Set("k", []byte("v")); err != nil {
		t.Fatalf("Set with broken snapshot path failed: %v", err)
	}
	got, err := kv.Get("k")
	if err != nil || string(got) != "v" {
		t.Errorf("Get = %q, %v, want v", got, err)
	}
}

func TestSQLiteKV_SetMaintainsUpdatedAt(t *testing.T) {
	kv, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer kv.Close()

	if err := kv.Set("k", []byte("v1")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var first string
	if err := kv.db.QueryRow("SELECT updated_at FROM kv WHERE key = 'k'").Scan(&first); err != nil {
		t.Fatalf("reading updated_at failed: %v", err)
	}
	if _, err := time.Parse(time.RFC3339, first); err != nil {
		t.Errorf("updated_at %q is not RFC 3339: %v", first, err)
	}

	time.Sleep(10 * time.Millisecond)
	if err := kv.Set("k", []byte("v2")); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	var second string
	if err := kv.db.QueryRow("SELECT updated_at FROM kv WHERE key = 'k'").Scan(&second); err != nil {
		t.Fatalf("reading updated_at failed: %v", err)
	}
	if !(second > first) {
		t.Errorf("updated_at did not advance: %q then %q", first, second)
	}
}
