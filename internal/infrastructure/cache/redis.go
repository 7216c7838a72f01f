package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

func OpenRedis(addr string, db int) (*redis.Client, error) {
	r := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return r, nil
}

// SetJSON stores obj as JSON under key; exp 0 means no expiry.
func SetJSON(ctx context.Context, rdb *redis.Client, key string, obj any, exp time.Duration) error {
	b, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, b, exp).Err()
}

// GetJSON decodes key into dest. found is false when the key does not exist.
func GetJSON(ctx context.Context, rdb *redis.Client, key string, dest any) (found bool, err error) {
	v, err := rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(v, dest); err != nil {
		return false, err
	}
	return true, nil
}
