package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists sessions between turns. Load returns a fresh session when
// none exists; Save replaces the stored session wholesale.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
}

// LeaseStore persists the per-taskmap enrichment lease. GetLease returns a
// NONE lease when none exists.
type LeaseStore interface {
	GetLease(ctx context.Context, taskmapID string) (*StagedOutput, error)
	PutLease(ctx context.Context, taskmapID string, out *StagedOutput) error
}

const (
	sessionKeyPrefix = "taskbot:session:"
	leaseKeyPrefix   = "taskbot:lease:"
)

// RedisStore implements Store and LeaseStore on a Redis connection with
// JSON-encoded values.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisConfig holds connection settings for the session store.
type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	TTL      time.Duration `koanf:"ttl"`
}

// NewRedisStore connects to Redis and verifies the connection. A zero TTL
// keeps sessions forever.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return &RedisStore{client: client, ttl: cfg.TTL}, nil
}

// Load fetches the session with the given id, or returns a fresh session if
// none is stored.
func (r *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	raw, err := r.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return New(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return &s, nil
}

// Save replaces the stored session.
func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", s.ID, err)
	}
	if err := r.client.Set(ctx, sessionKeyPrefix+s.ID, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("saving session %s: %w", s.ID, err)
	}
	return nil
}

// GetLease fetches the enrichment lease for a taskmap, defaulting to NONE.
func (r *RedisStore) GetLease(ctx context.Context, taskmapID string) (*StagedOutput, error) {
	raw, err := r.client.Get(ctx, leaseKeyPrefix+taskmapID).Bytes()
	if errors.Is(err, redis.Nil) {
		return &StagedOutput{State: StageNone}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading lease %s: %w", taskmapID, err)
	}
	var out StagedOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding lease %s: %w", taskmapID, err)
	}
	return &out, nil
}

// PutLease replaces the enrichment lease for a taskmap.
func (r *RedisStore) PutLease(ctx context.Context, taskmapID string, out *StagedOutput) error {
	raw, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encoding lease %s: %w", taskmapID, err)
	}
	if err := r.client.Set(ctx, leaseKeyPrefix+taskmapID, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("saving lease %s: %w", taskmapID, err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
