package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"progresskit/core"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Store implements the engine.Storage interface using Redis as the backend.
// Data structure:
// - learner:{id}:progress -> JSON blob of the aggregate snapshot
// - learner:{id}:txs      -> list of JSON transaction records, append order
//
// The aggregate is a single-writer structure; callers must serialize
// load-mutate-save cycles per learner.
type Store struct {
	client *redis.Client
}

// New creates a new Redis-backed storage with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// progressKey generates the Redis key for a learner's aggregate snapshot
func progressKey(learner core.LearnerID) string {
	return fmt.Sprintf("learner:%s:progress", learner)
}

// txsKey generates the Redis key for a learner's transaction log
func txsKey(learner core.LearnerID) string {
	return fmt.Sprintf("learner:%s:txs", learner)
}

// LoadProgress fetches the aggregate snapshot, or a zero-valued one for a
// learner with no persisted record.
func (s *Store) LoadProgress(ctx context.Context, learner core.LearnerID) (*core.Progress, error) {
	data, err := s.client.Get(ctx, progressKey(learner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.NewProgress(learner), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	var p core.Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode progress: %w", err)
	}
	return &p, nil
}

// SaveProgress overwrites the aggregate snapshot.
func (s *Store) SaveProgress(ctx context.Context, p *core.Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}
	if err := s.client.Set(ctx, progressKey(p.Learner), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// AppendTransaction pushes the transaction onto the learner's log.
func (s *Store) AppendTransaction(ctx context.Context, tx core.Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to encode transaction: %w", err)
	}
	if err := s.client.RPush(ctx, txsKey(tx.Learner), data).Err(); err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// Transactions returns the learner's transaction log in append order.
func (s *Store) Transactions(ctx context.Context, learner core.LearnerID) ([]core.Transaction, error) {
	raw, err := s.client.LRange(ctx, txsKey(learner), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(raw))
	for _, item := range raw {
		var tx core.Transaction
		if err := json.Unmarshal([]byte(item), &tx); err != nil {
			continue // Skip invalid entries
		}
		out = append(out, tx)
	}
	return out, nil
}
