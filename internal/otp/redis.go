package otp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "otp:"

// compareAndDelete deletes KEYS[1] only while it still holds ARGV[1].
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore shares codes between instances. Keys expire with the code.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// DialRedis parses url (redis://host:port/db), connects and pings.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func key(phone string) string { return redisKeyPrefix + phone }

// encode keeps the value byte-exact so the compare-and-delete script can match it.
func encode(e Entry) string {
	return e.CodeHash + "|" + strconv.FormatInt(e.ExpiresAt.UnixNano(), 10)
}

func decode(v string) (Entry, error) {
	i := strings.LastIndexByte(v, '|')
	if i < 0 {
		return Entry{}, errors.New("otp: malformed redis value")
	}
	ns, err := strconv.ParseInt(v[i+1:], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("otp: malformed expiry: %w", err)
	}
	return Entry{CodeHash: v[:i], ExpiresAt: time.Unix(0, ns)}, nil
}

func (s *RedisStore) Put(ctx context.Context, phone string, e Entry) error {
	ttl := time.Until(e.ExpiresAt)
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	return s.rdb.Set(ctx, key(phone), encode(e), ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, phone string) (Entry, bool, error) {
	v, err := s.rdb.Get(ctx, key(phone)).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	e, err := decode(v)
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (s *RedisStore) CompareAndDelete(ctx context.Context, phone string, e Entry) (bool, error) {
	n, err := compareAndDelete.Run(ctx, s.rdb, []string{key(phone)}, encode(e)).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
