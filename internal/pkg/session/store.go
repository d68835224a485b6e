package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/qs3c/fit_go_server/internal/pkg/token"
)

const (
	sessionKeyPrefix     = "session:"
	userSessionKeyPrefix = "user_sessions:"
)

var ErrNotFound = errors.New("session not found")

// Store Redis 会话存储，访问时滑动续期
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func userSessionsKey(userID int64) string {
	return fmt.Sprintf("%s%d", userSessionKeyPrefix, userID)
}

// TTL 会话有效期
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create 保存新会话并返回会话 ID
func (s *Store) Create(ctx context.Context, state State) (string, error) {
	if err := state.Validate(); err != nil {
		return "", err
	}

	id, err := token.Generate()
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(id), data, s.ttl)
		if state.Principal != nil {
			key := userSessionsKey(state.Principal.UserID)
			pipe.SAdd(ctx, key, id)
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	return id, nil
}

// Get 读取会话并续期
func (s *Store) Get(ctx context.Context, id string) (*State, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	data, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	s.rdb.Expire(ctx, sessionKey(id), s.ttl)
	return &state, nil
}

// Save 覆盖已有会话，会话不存在时返回 ErrNotFound
func (s *Store) Save(ctx context.Context, id string, state State) error {
	if err := state.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ok, err := s.rdb.SetXX(ctx, sessionKey(id), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if !ok {
		return ErrNotFound
	}

	if state.Principal != nil {
		key := userSessionsKey(state.Principal.UserID)
		if err := s.rdb.SAdd(ctx, key, id).Err(); err != nil {
			return fmt.Errorf("failed to index session: %w", err)
		}
		s.rdb.Expire(ctx, key, s.ttl)
	}
	return nil
}

// Destroy 删除单个会话
func (s *Store) Destroy(ctx context.Context, id string) error {
	state, err := s.Get(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(id))
		if state != nil && state.Principal != nil {
			pipe.SRem(ctx, userSessionsKey(state.Principal.UserID), id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// DestroyUser 删除用户的全部会话，返回删除数量
func (s *Store) DestroyUser(ctx context.Context, userID int64) (int, error) {
	key := userSessionsKey(userID)
	ids, err := s.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list user sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, key)

	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("failed to destroy user sessions: %w", err)
	}
	return len(ids), nil
}
