// Package cache stores a per-source build fingerprint on disk so `pebble
// build` can report "up to date" without re-lowering unchanged sources.
// Like vovakirdan-surge's internal/driver.DiskCache, it is deliberately a
// stub around future richer payloads (a full serialized mir.Mir) rather
// than a complete artifact cache: Mir's RValue/Operand/Terminator/Constant
// variants are Go interfaces with no msgpack codec, and giving each one a
// hand-written tagged encoding is future work, not something a fingerprint
// cache needs in order to be useful today.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const schemaVersion uint16 = 1

// Digest is a source file's content hash.
type Digest [sha256.Size]byte

// HashSource fingerprints src for use as a cache key.
func HashSource(src string) Digest { return sha256.Sum256([]byte(src)) }

// DiskCache maps a source Digest to its last-known build outcome.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// Payload is the cached outcome of building one source file.
type Payload struct {
	Schema        uint16
	SourcePath    string
	Bodies        int
	HasMain       bool
	NumIntrinsics int
	Broken        bool
}

// Open initializes a disk cache under $XDG_CACHE_HOME/app (or
// ~/.cache/app), creating it if necessary.
func Open(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "builds", hex.EncodeToString(key[:])+".mp")
}

// Put serializes and atomically writes payload under key.
func (c *DiskCache) Put(key Digest, payload *Payload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	payload.Schema = schemaVersion
	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads and deserializes the payload stored under key, if any.
func (c *DiskCache) Get(key Digest, out *Payload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	if out.Schema != schemaVersion {
		return false, nil
	}
	return true, nil
}

// DropAll invalidates every cached entry, useful after a schema change.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		return err
	}
	return os.RemoveAll(old)
}
