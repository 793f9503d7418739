// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache persists per-file rewrite results in BadgerDB.
//
// An entry is keyed by the engine option fingerprint, the file path and
// the hash of the file content. Entries that consulted other modules for
// default export names also record the hash of every module they read;
// a lookup only hits when all of those modules still hash the same.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/jsdocclosure/services/jsdoc/jsfile"
	"github.com/AleutianAI/jsdocclosure/services/jsdoc/textedit"
)

const keyPrefix = "jsdoc/v1/"

// Key identifies one cached result.
type Key struct {
	// Options is the engine option fingerprint.
	Options string

	// Path is the processed file.
	Path string

	// ContentHash is the hex SHA-256 of the file content.
	ContentHash string
}

func (k Key) bytes() []byte {
	h := sha256.New()
	h.Write([]byte(k.Options))
	h.Write([]byte{0})
	h.Write([]byte(k.Path))
	h.Write([]byte{0})
	h.Write([]byte(k.ContentHash))
	return []byte(keyPrefix + hex.EncodeToString(h.Sum(nil)))
}

// Entry is the stored form of a jsfile.Result.
type Entry struct {
	Output       []byte              `json:"output"`
	Changed      bool                `json:"changed"`
	Edits        []textedit.Edit     `json:"edits,omitempty"`
	Imports      []string            `json:"imports,omitempty"`
	Exports      []string            `json:"exports,omitempty"`
	Comments     int                 `json:"comments"`
	Rewritten    int                 `json:"rewritten"`
	Typedefs     int                 `json:"typedefs"`
	Strategies   map[string]int      `json:"strategies,omitempty"`
	Diagnostics  []jsfile.Diagnostic `json:"diagnostics,omitempty"`
	Dependencies map[string]string   `json:"dependencies,omitempty"`
	StoredAt     time.Time           `json:"stored_at"`
}

// NewEntry captures a result for storage.
func NewEntry(res *jsfile.Result) Entry {
	return Entry{
		Output:       res.Output,
		Changed:      res.Changed,
		Edits:        res.Edits,
		Imports:      res.Imports,
		Exports:      res.Exports,
		Comments:     res.Comments,
		Rewritten:    res.Rewritten,
		Typedefs:     res.Typedefs,
		Strategies:   res.Strategies,
		Diagnostics:  res.Diagnostics,
		Dependencies: res.Dependencies,
		StoredAt:     time.Now().UTC(),
	}
}

// Result rebuilds the jsfile.Result for path.
func (e Entry) Result(path, hash string) *jsfile.Result {
	return &jsfile.Result{
		Path:         path,
		Hash:         hash,
		Output:       e.Output,
		Changed:      e.Changed,
		Edits:        e.Edits,
		Imports:      e.Imports,
		Exports:      e.Exports,
		Comments:     e.Comments,
		Rewritten:    e.Rewritten,
		Typedefs:     e.Typedefs,
		Strategies:   e.Strategies,
		Diagnostics:  e.Diagnostics,
		Dependencies: e.Dependencies,
	}
}

// Fingerprinter reports the current hash of the file a module base path
// resolves to. *jsfile.ExportIndex implements it.
type Fingerprinter interface {
	Fingerprint(base string) string
}

// Stats counts cache traffic.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Stale  int64 `json:"stale"`
	Writes int64 `json:"writes"`
}

// Cache stores rewrite results.
//
// Thread Safety: Safe for concurrent use.
type Cache struct {
	db       *badger.DB
	gc       *gcLoop
	ttl      time.Duration
	inMemory bool
	logger   *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
	stale  atomic.Int64
	writes atomic.Int64
}

// Open opens the cache described by cfg.
//
// Description:
//
//	Opens (creating if needed) the badger database and, for persistent
//	caches with a GC interval, starts value log garbage collection.
//
// Outputs:
//
//	*Cache - The cache. Call Close when done.
//	error - ErrNoDirectory, or a badger error.
func Open(cfg Config) (*Cache, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{db: db, ttl: cfg.TTL, inMemory: cfg.InMemory, logger: logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		c.gc = startGC(db, cfg.GCInterval, cfg.GCDiscardRatio, logger)
	}
	return c, nil
}

// OpenInMemory opens a cache that lives only as long as the process.
func OpenInMemory() (*Cache, error) {
	return Open(InMemoryConfig())
}

// Close stops garbage collection and closes the database.
func (c *Cache) Close() error {
	if c.gc != nil {
		c.gc.halt()
	}
	return c.db.Close()
}

// Get returns the entry for key if it is present and every module it
// depends on still hashes the same under fp. A nil fp skips dependency
// checks.
//
// Outputs:
//
//	Entry - The cached entry, valid only when the bool is true.
//	bool - True on a valid hit.
//	error - Context errors, badger errors, or ErrCorruptEntry.
func (c *Cache) Get(ctx context.Context, key Key, fp Fingerprinter) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, fmt.Errorf("cache get: %w", err)
	}

	var entry Entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key.bytes())
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &entry); err != nil {
				return fmt.Errorf("%w: %v", ErrCorruptEntry, err)
			}
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		c.misses.Add(1)
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	if fp != nil {
		for base, hash := range entry.Dependencies {
			if fp.Fingerprint(base) != hash {
				c.stale.Add(1)
				c.logger.Debug("cache entry stale",
					slog.String("file", key.Path),
					slog.String("dependency", base),
				)
				return Entry{}, false, nil
			}
		}
	}
	c.hits.Add(1)
	return entry, true, nil
}

// Put stores entry under key.
func (c *Cache) Put(ctx context.Context, key Key, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	val, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key.bytes(), val)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	c.writes.Add(1)
	return nil
}

// Purge removes every entry.
func (c *Cache) Purge() error {
	return c.db.DropPrefix([]byte(keyPrefix))
}

// Stats returns the traffic counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Stale:  c.stale.Load(),
		Writes: c.writes.Load(),
	}
}

// Sync flushes pending writes. A no-op for in-memory caches.
func (c *Cache) Sync() error {
	if c.inMemory {
		return nil
	}
	return c.db.Sync()
}
