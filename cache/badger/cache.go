// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package badger provides a BadgerDB-backed query cache with an LRU
// recency index. Entry keys carry the query hash; a secondary index
// orders entries by last use so eviction can walk oldest-first.
package badger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/queryroute/cache"
	"github.com/poiesic/queryroute/core"
)

const (
	// defaultCapacity bounds the number of live cache entries.
	defaultCapacity = 1024

	// maxConflictRetries bounds optimistic-concurrency retries when two
	// readers race to bump the same entry's hit count.
	maxConflictRetries = 5
)

// Cache implements cache.QueryCache on top of a BadgerDB backend.
type Cache struct {
	backend  *Backend
	capacity int
	clock    func() time.Time
	logger   *slog.Logger
}

var _ cache.QueryCache = (*Cache)(nil)

// Option configures a Cache.
type Option func(*Cache)

// WithCapacity sets the maximum number of live entries before
// least-recently-used eviction kicks in.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(clock func() time.Time) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewCache creates a query cache over an open backend. Callers supply the
// catalog version per operation; it is folded into every key.
func NewCache(backend *Backend, opts ...Option) (*Cache, error) {
	if backend == nil {
		return nil, cache.ErrBackendRequired
	}

	c := &Cache{
		backend:  backend,
		capacity: defaultCapacity,
		clock:    time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get looks up the entry for a query under the given scope, incrementing
// its hit count and refreshing its recency position. Concurrent gets of
// the same entry serialize through conflict retries, so no increment is
// lost.
func (c *Cache) Get(ctx context.Context, text string, scope core.ScopeContext, version uint64) (*core.CachedQuery, error) {
	if c.backend.IsClosed() {
		return nil, cache.ErrCacheClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash := core.HashQuery(text, scope, version)
	entryKey := makeEntryKey(hash)

	var entry *core.CachedQuery
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err := c.backend.WithTx(func(tx *badger.Txn) error {
			item, err := tx.Get(entryKey)
			if errors.Is(err, badger.ErrKeyNotFound) {
				return cache.ErrNotFound
			}
			if err != nil {
				return err
			}

			err = item.Value(func(val []byte) error {
				var err error
				entry, err = cache.UnmarshalCachedQuery(val)
				return err
			})
			if err != nil {
				return err
			}

			if err := tx.Delete(makeAccessKey(entry.LastUsedAt, hash)); err != nil {
				return err
			}
			entry.HitCount++
			entry.LastUsedAt = c.clock().UTC()
			if err := tx.Set(entryKey, cache.MarshalCachedQuery(entry)); err != nil {
				return err
			}
			if err := tx.Set(makeAccessKey(entry.LastUsedAt, hash), nil); err != nil {
				return err
			}
			return tx.Commit()
		}, true)
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return entry, nil
	}
	return nil, badger.ErrConflict
}

// Put stores the analysis for a query, overwriting any existing entry for
// the same key and evicting least-recently-used entries beyond capacity.
func (c *Cache) Put(ctx context.Context, text string, scope core.ScopeContext, version uint64, analysis core.QueryAnalysis, usedRefinement bool) (*core.CachedQuery, error) {
	if c.backend.IsClosed() {
		return nil, cache.ErrCacheClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash := core.HashQuery(text, scope, version)
	entryKey := makeEntryKey(hash)

	now := c.clock().UTC()
	entry := &core.CachedQuery{
		QueryHash:      hash,
		OriginalText:   text,
		Analysis:       analysis,
		HitCount:       1,
		UsedRefinement: usedRefinement,
		InsertedAt:     now,
		LastUsedAt:     now,
	}

	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err := c.backend.WithTx(func(tx *badger.Txn) error {
			// Drop the old recency position if the entry already exists.
			item, err := tx.Get(entryKey)
			if err == nil {
				var old *core.CachedQuery
				err = item.Value(func(val []byte) error {
					var err error
					old, err = cache.UnmarshalCachedQuery(val)
					return err
				})
				if err != nil {
					return err
				}
				if err := tx.Delete(makeAccessKey(old.LastUsedAt, hash)); err != nil {
					return err
				}
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			if err := tx.Set(entryKey, cache.MarshalCachedQuery(entry)); err != nil {
				return err
			}
			if err := tx.Set(makeAccessKey(entry.LastUsedAt, hash), nil); err != nil {
				return err
			}

			if err := c.evictOldest(tx, hash); err != nil {
				return err
			}
			return tx.Commit()
		}, true)
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return entry, nil
	}
	return nil, badger.ErrConflict
}

// evictOldest walks the recency index oldest-first and deletes entries
// until the cache is back within capacity. The entry being written is
// never evicted.
func (c *Cache) evictOldest(tx *badger.Txn, keep string) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(queryAccessPrefix + ":")
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var accessKeys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		key := iter.Item().KeyCopy(nil)
		accessKeys = append(accessKeys, key)
	}

	excess := len(accessKeys) - c.capacity
	for _, key := range accessKeys {
		if excess <= 0 {
			break
		}
		hash := hashFromAccessKey(key)
		if hash == keep {
			continue
		}
		if err := tx.Delete(makeEntryKey(hash)); err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		c.logger.Debug("evicted cache entry", "hash", hash)
		excess--
	}
	return nil
}

// Len returns the number of live entries.
func (c *Cache) Len(ctx context.Context) (int, error) {
	if c.backend.IsClosed() {
		return 0, cache.ErrCacheClosed
	}

	var count int
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(queryEntryPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Close closes the underlying backend.
func (c *Cache) Close() error {
	if c.backend.IsClosed() {
		return nil
	}
	return c.backend.Close()
}
