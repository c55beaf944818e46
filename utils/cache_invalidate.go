package utils

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Key layout shared with middlewares.ResponseCache. Cached entries live under
// the generation current when their request started; a purge bumps it.
const (
	CacheEventsGenKey     = "cache:events:gen"
	CacheEventsListPrefix = "cache:events:list:"
	CacheEventsItemPrefix = "cache:events:item:"
)

type CacheInvalidator struct{ rdb *redis.Client }

func NewCacheInvalidator(rdb *redis.Client) *CacheInvalidator { return &CacheInvalidator{rdb} }

// CacheGeneration reads the current event cache generation ("0" before the
// first purge).
func CacheGeneration(ctx context.Context, rdb *redis.Client) (string, error) {
	gen, err := rdb.Get(ctx, CacheEventsGenKey).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return gen, err
}

// PurgeEventsList drops every cached event listing.
func (ci *CacheInvalidator) PurgeEventsList(ctx context.Context) {
	ci.purge(ctx, CacheEventsListPrefix+"*")
}

// PurgeEventItem drops the cached detail view of one event in any generation.
func (ci *CacheInvalidator) PurgeEventItem(ctx context.Context, id string) {
	ci.purge(ctx, CacheEventsItemPrefix+"*:"+id)
}

// PurgeEvent drops everything that can show the event's attendee set. The
// generation bump also orphans entries still being written by reads that
// started before the mutation committed.
func (ci *CacheInvalidator) PurgeEvent(ctx context.Context, id string) {
	if ci == nil {
		return
	}
	_ = ci.rdb.Incr(ctx, CacheEventsGenKey).Err()
	ci.PurgeEventsList(ctx)
	ci.PurgeEventItem(ctx, id)
}

func (ci *CacheInvalidator) purge(ctx context.Context, pattern string) {
	iter := ci.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		_ = ci.rdb.Del(ctx, iter.Val()).Err()
	}
}
