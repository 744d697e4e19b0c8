package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"reelsync/internal/model"
)

// RedisStore keeps snapshots in Redis, for deployments where instances
// are ephemeral but a shared cache survives them.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisStoreOptions configures a RedisStore.
type RedisStoreOptions struct {
	// URL is the Redis connection URL (e.g. redis://localhost:6379/0).
	URL string
	// Prefix is prepended to all keys (e.g. "reelsync:").
	Prefix string
	// ConnectTimeout bounds the initial ping. Defaults to 5s.
	ConnectTimeout time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(opts RedisStoreOptions) (*RedisStore, error) {
	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	client := redis.NewClient(redisOpts)
	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisStore{client: client, prefix: opts.Prefix}, nil
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) (*model.Snapshot, error) {
	data, err := s.client.Get(ctx, s.prefix+"snapshot").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}

// Save implements Store. Snapshots do not expire; the next run
// overwrites them.
func (s *RedisStore) Save(ctx context.Context, snap *model.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return s.client.Set(ctx, s.prefix+"snapshot", data, 0).Err()
}

// SaveArtifact implements Store.
func (s *RedisStore) SaveArtifact(ctx context.Context, name string, data []byte) error {
	return s.client.Set(ctx, s.prefix+"artifact:"+name, data, 0).Err()
}

// LoadArtifact implements Store.
func (s *RedisStore) LoadArtifact(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+"artifact:"+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading artifact %s: %w", name, err)
	}
	return data, nil
}

// AcquireLease implements Store, using SET NX with a TTL so Redis
// expires abandoned leases on its own.
func (s *RedisStore) AcquireLease(ctx context.Context, token string, ttl time.Duration) error {
	key := s.prefix + "lease"

	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return fmt.Errorf("acquiring lease: %w", err)
	}
	if ok {
		return nil
	}

	holder, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SetNX and Get; one retry.
		ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil || !ok {
			return ErrLeaseHeld
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking lease holder: %w", err)
	}
	if holder == token {
		return s.client.Expire(ctx, key, ttl).Err()
	}
	return ErrLeaseHeld
}

// ReleaseLease implements Store.
func (s *RedisStore) ReleaseLease(ctx context.Context, token string) error {
	key := s.prefix + "lease"
	holder, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	if holder != token {
		return nil
	}
	return s.client.Del(ctx, key).Err()
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
