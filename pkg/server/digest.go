package server

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/glorpus-work/pindex/pkg/catalog"
	"github.com/glorpus-work/pindex/pkg/logger"
	"github.com/glorpus-work/pindex/pkg/model"
	"github.com/glorpus-work/pindex/pkg/store"
)

// digestCache memoizes sha256 digests per file. Entries are keyed by
// filename and invalidated when the modification time changes, so an
// overwritten upload gets a fresh digest on the next request.
type digestCache struct {
	mu         sync.Mutex
	generation uint64
	entries    map[string]digestEntry
}

type digestEntry struct {
	modTime time.Time
	sum     string
}

func newDigestCache() *digestCache {
	return &digestCache{entries: make(map[string]digestEntry)}
}

// prune drops entries for files the snapshot no longer lists. It runs at
// most once per catalog generation, so remove/re-add cycles cannot grow
// the cache without bound.
func (c *digestCache) prune(snap *catalog.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if snap.Generation() == c.generation {
		return
	}
	c.generation = snap.Generation()
	for filename := range c.entries {
		if _, ok := snap.Lookup(filename); !ok {
			delete(c.entries, filename)
		}
	}
}

// get returns the hex sha256 of the record's file, computing and caching
// it on first use. An empty string means the digest could not be computed;
// callers omit the hash rather than fail the whole listing.
func (c *digestCache) get(storage *store.Dir, rec *model.PackageRecord) string {
	c.mu.Lock()
	if entry, ok := c.entries[rec.RawFilename]; ok && entry.modTime.Equal(rec.LastModified) {
		c.mu.Unlock()
		return entry.sum
	}
	c.mu.Unlock()

	f, _, err := storage.Open(rec.StoragePath)
	if err != nil {
		logger.Warn("failed to open file for digest", logrus.Fields{"filename": rec.RawFilename, "error": err})
		return ""
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		logger.Warn("failed to hash file", logrus.Fields{"filename": rec.RawFilename, "error": err})
		return ""
	}
	sum := hex.EncodeToString(h.Sum(nil))

	c.mu.Lock()
	c.entries[rec.RawFilename] = digestEntry{modTime: rec.LastModified, sum: sum}
	c.mu.Unlock()
	return sum
}
