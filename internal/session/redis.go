package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/rcliao/frontdesk/internal/model"
)

// RedisStore keeps each session as a JSON string under prefix+key. Appends
// use WATCH/MULTI so concurrent writers across processes never drop turns;
// writers within one process queue on a per-key lock instead of retrying.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	locks  keyLocks
}

// NewRedisStore connects using a redis:// URL, falling back to treating the
// value as a plain address.
func NewRedisStore(redisURL, prefix string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}
	return NewRedisStoreFromClient(redis.NewClient(opt), prefix), nil
}

func NewRedisStoreFromClient(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "frontdesk:session:"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

// Ping checks connectivity.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *RedisStore) Load(ctx context.Context, key string) ([]model.SessionTurn, error) {
	data, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []model.SessionTurn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return decodeTurns(key, data)
}

func (r *RedisStore) Append(ctx context.Context, key string, turn model.SessionTurn) error {
	unlock := r.locks.lock(key)
	defer unlock()

	rk := r.prefix + key
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, rk).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		data, err := appendTo(key, current, turn)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, rk, data, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := r.rdb.Watch(ctx, txf, rk)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("append session: %w", err)
		}
		return nil
	}
	return fmt.Errorf("append %s: %w", key, ErrConflict)
}

func (r *RedisStore) Reset(ctx context.Context, key string) error {
	if err := r.rdb.Set(ctx, r.prefix+key, "[]", 0).Err(); err != nil {
		return fmt.Errorf("reset session: %w", err)
	}
	return nil
}

func (r *RedisStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := r.rdb.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}
