package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	likeCntTTL       = 24 * time.Hour
	lockTTL          = 300 * time.Millisecond
	likeCntKeyPrefix = "like:cnt:post"
	lockKeyPrefix    = "lock:like:post"
)

// LikeCacheRepository caches per-post like counts. Writers invalidate, the
// read side rebuilds behind a short lock so a hot post does not stampede
// the database. Access decisions never go through here.
type LikeCacheRepository struct {
	cntTTL time.Duration
}

func NewLikeCacheRepository() *LikeCacheRepository {
	return &LikeCacheRepository{cntTTL: likeCntTTL}
}

func (r *LikeCacheRepository) cntKey(postID uint64) string {
	return fmt.Sprintf("%s:%d", likeCntKeyPrefix, postID)
}

func (r *LikeCacheRepository) GetCount(ctx context.Context, postID uint64) (int64, bool, error) {
	val, err := Client.Get(ctx, r.cntKey(postID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	return val, true, err
}

func (r *LikeCacheRepository) SetCount(ctx context.Context, postID uint64, cnt int64) error {
	return Client.Set(ctx, r.cntKey(postID), cnt, r.cntTTL).Err()
}

// Invalidate drops the count key after a write; the next read rebuilds it.
func (r *LikeCacheRepository) Invalidate(ctx context.Context, postID uint64) error {
	if err := Client.Del(ctx, r.cntKey(postID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

type DistLock struct{}

func (l *DistLock) Acquire(ctx context.Context, postID uint64, token string) (bool, error) {
	key := fmt.Sprintf("%s:%d", lockKeyPrefix, postID)
	return Client.SetNX(ctx, key, token, lockTTL).Result()
}

// Release is token-checked via lua so only the holder deletes the lock.
func (l *DistLock) Release(ctx context.Context, postID uint64, token string) error {
	key := fmt.Sprintf("%s:%d", lockKeyPrefix, postID)
	_, err := redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`).Run(ctx, Client, []string{key}, token).Result()
	return err
}
