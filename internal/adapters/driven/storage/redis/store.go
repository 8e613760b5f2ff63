// Package redis provides a Redis implementation of driven.SessionStore for
// deployments where several processes share sessions.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.SessionStore = (*Store)(nil)

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "specforge:"

// connectTimeout bounds the initial ping.
const connectTimeout = 5 * time.Second

// Store keeps each session as one JSON value, plus a sorted index by
// UpdatedAt and a hash of listing rows so List never loads full sessions.
type Store struct {
	client *goredis.Client
	prefix string
}

// NewStore connects to redisURL (redis://[user:pass@]host:port/db).
func NewStore(redisURL string) (*Store, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewStoreWithClient(client, DefaultPrefix), nil
}

// NewStoreWithClient creates a store from an existing client.
func NewStoreWithClient(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) sessionKey(id string) string { return s.prefix + "session:" + id }
func (s *Store) indexKey() string            { return s.prefix + "sessions" }
func (s *Store) summaryKey() string          { return s.prefix + "summaries" }

// List returns summaries, most recently updated first.
func (s *Store) List(ctx context.Context) ([]domain.SessionSummary, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	raw, err := s.client.HMGet(ctx, s.summaryKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("load summaries: %w", err)
	}

	out := make([]domain.SessionSummary, 0, len(ids))
	for i, v := range raw {
		str, ok := v.(string)
		if !ok {
			// Index and hash drifted apart; skip the orphan.
			continue
		}
		var sum domain.SessionSummary
		if err := json.Unmarshal([]byte(str), &sum); err != nil {
			return nil, fmt.Errorf("unmarshal summary %s: %w", ids[i], err)
		}
		out = append(out, sum)
	}
	return out, nil
}

// Get loads a session. Returns domain.ErrNotFound if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, s.sessionKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if session.Documents == nil {
		session.Documents = make(map[string]string)
	}
	return &session, nil
}

// Save writes the session and its index entries atomically.
func (s *Store) Save(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	summary, err := json.Marshal(session.Summary())
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, s.sessionKey(session.ID), data, 0)
		pipe.ZAdd(ctx, s.indexKey(), goredis.Z{
			Score:  float64(session.UpdatedAt.UnixMilli()),
			Member: session.ID,
		})
		pipe.HSet(ctx, s.summaryKey(), session.ID, summary)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, s.sessionKey(id))
		pipe.ZRem(ctx, s.indexKey(), id)
		pipe.HDel(ctx, s.summaryKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Ping checks if Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
