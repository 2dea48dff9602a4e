package poolindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"shiftpool-service/internal/model"
	"shiftpool-service/internal/store"
	"shiftpool-service/prometheus"
)

const (
	keyPrefix       = "pool:shift:"
	defaultEntryTTL = 24 * time.Hour
)

// Redis is a write-through pool index. The shift lifecycle upserts an
// entry when a public shift is published and removes it when the shift
// leaves the pool; the TTL is a safety net against missed removals, so a
// stale entry ages out instead of lingering forever.
type Redis struct {
	client *redis.Client
	store  store.SchedulingStore
	ttl    time.Duration
}

func NewRedis(client *redis.Client, st store.SchedulingStore, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultEntryTTL
	}
	return &Redis{client: client, store: st, ttl: ttl}
}

func (r *Redis) Upsert(ctx context.Context, shift *model.PublicShift) error {
	data, err := json.Marshal(shift)
	if err != nil {
		return fmt.Errorf("marshal pool entry: %w", err)
	}
	return r.client.Set(ctx, keyPrefix+shift.ID, data, r.ttl).Err()
}

func (r *Redis) Remove(ctx context.Context, shiftID string) error {
	return r.client.Del(ctx, keyPrefix+shiftID).Err()
}

// FindPublic returns the cached entry, falling back to a store read on a
// miss so an expired key does not hide a still-published shift.
func (r *Redis) FindPublic(ctx context.Context, shiftID string) (*model.PublicShift, error) {
	prometheus.RecordPoolQuery("redis")

	data, err := r.client.Get(ctx, keyPrefix+shiftID).Bytes()
	if errors.Is(err, redis.Nil) {
		entry, err := findInStore(ctx, r.store, shiftID)
		if err != nil || entry == nil {
			return entry, err
		}
		// Re-prime the cache, best effort.
		if data, err := json.Marshal(entry); err == nil {
			r.client.Set(ctx, keyPrefix+entry.ID, data, r.ttl)
		}
		return entry, nil
	}
	if err != nil {
		return nil, err
	}
	var entry model.PublicShift
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal pool entry %s: %w", shiftID, err)
	}
	return &entry, nil
}

// ListPublic scans the pool keyspace and filters the entries in memory.
// The pool is small by nature; a full scan per listing is fine.
func (r *Redis) ListPublic(ctx context.Context, filter store.PoolFilter) ([]model.PublicShift, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	prometheus.RecordPoolQuery("redis")
	if len(keys) == 0 {
		return nil, nil
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var result []model.PublicShift
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Expired between the scan and the fetch.
			continue
		}
		var entry model.PublicShift
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		if !filter.Match(&entry.Shift) {
			continue
		}
		result = append(result, entry)
	}
	sortPublicShifts(result)
	return result, nil
}
