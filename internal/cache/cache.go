// Package cache mirrors a subset of the remote store into Redis for
// offline-tolerant reads. The mirror is never authoritative: reads fall
// back to the store on a miss and backfill, and Refresh repopulates the
// mirrored collections wholesale.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rasaeats/api/internal/enum"
	"github.com/rasaeats/api/internal/store"
	"github.com/sirupsen/logrus"
)

// Mirrored collections, refreshed as a unit.
var mirrored = []string{
	enum.ColMenu,
	enum.ColCategories,
	enum.ColSauces,
	enum.ColAddOns,
	enum.ColDrinks,
	enum.ColProfiles,
}

// Cache is a read-through Redis mirror over the document store.
type Cache struct {
	rdb   *redis.Client
	store store.Store
	ttl   time.Duration
}

// New creates a Cache. ttl bounds staleness of mirrored documents.
func New(rdb *redis.Client, s store.Store, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, store: s, ttl: ttl}
}

func key(collection, id string) string {
	return "doc:" + collection + ":" + id
}

// Get reads a document from the mirror, falling back to the store and
// backfilling on a miss. Redis being down degrades to plain store reads.
func (c *Cache) Get(ctx context.Context, collection, id string, v any) error {
	raw, err := c.rdb.Get(ctx, key(collection, id)).Bytes()
	if err == nil {
		return json.Unmarshal(raw, v)
	}
	if !errors.Is(err, redis.Nil) {
		logrus.WithError(err).Debug("cache read failed, falling back to store")
	}

	if err := c.store.Get(ctx, collection, id, v); err != nil {
		return err
	}
	c.backfill(ctx, collection, id, v)
	return nil
}

// Invalidate drops one mirrored document.
func (c *Cache) Invalidate(ctx context.Context, collection, id string) {
	if err := c.rdb.Del(ctx, key(collection, id)).Err(); err != nil {
		logrus.WithError(err).Debug("cache invalidate failed")
	}
}

// Refresh pulls every mirrored collection from the store into Redis. Called
// on startup and whenever the client asks for a full sync.
func (c *Cache) Refresh(ctx context.Context) error {
	for _, collection := range mirrored {
		var docs []map[string]any
		if err := c.store.Query(ctx, collection, nil, &docs); err != nil {
			return fmt.Errorf("refresh %s: %w", collection, err)
		}
		for _, doc := range docs {
			id := docID(doc)
			if id == "" {
				continue
			}
			raw, err := json.Marshal(doc)
			if err != nil {
				return fmt.Errorf("refresh %s/%s: %w", collection, id, err)
			}
			if err := c.rdb.Set(ctx, key(collection, id), raw, c.ttl).Err(); err != nil {
				return fmt.Errorf("refresh %s/%s: %w", collection, id, err)
			}
		}
	}
	return nil
}

func (c *Cache) backfill(ctx context.Context, collection, id string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key(collection, id), raw, c.ttl).Err(); err != nil {
		logrus.WithError(err).Debug("cache backfill failed")
	}
}

// docID finds the document key: catalog documents carry "id", profiles
// carry "uid".
func docID(doc map[string]any) string {
	if id, ok := doc["id"].(string); ok {
		return id
	}
	if uid, ok := doc["uid"].(string); ok {
		return uid
	}
	return ""
}
