package draft

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/debemdeboas/postly/internal/util/compression"
)

// RedisStore keeps compressed drafts under "<prefix>:<key>". A zero TTL
// keeps them until cleared.
type RedisStore struct {
	client     redis.UniversalClient
	prefix     string
	ttl        time.Duration
	compressor compression.Compressor
}

func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration, c compression.Compressor) *RedisStore {
	if prefix == "" {
		prefix = "drafts"
	}
	if c == nil {
		c = compression.ZstdCompressor{}
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl, compressor: c}
}

// DialRedis connects to addr and checks the connection with a ping.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		draftLogger.Error().Err(err).Str("address", addr).Int("database", db).Msg("Failed to connect to Redis")
		client.Close()
		return nil, err
	}
	return client, nil
}

func (r *RedisStore) key(key string) string { return r.prefix + ":" + key }

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.compressor.Decompress(payload)
}

func (r *RedisStore) Set(ctx context.Context, key string, data []byte) error {
	payload, err := r.compressor.Compress(data)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(key), payload, r.ttl).Err()
}

func (r *RedisStore) Clear(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}
