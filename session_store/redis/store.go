package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	sessionstore "github.com/w-h-a/chatter/session_store"
)

type redisStore struct {
	options sessionstore.Options
	client  redis.UniversalClient
}

func (s *redisStore) metaKey(id string) string {
	return s.options.KeyPrefix + id + ":meta"
}

func (s *redisStore) logKey(id string) string {
	return s.options.KeyPrefix + id + ":log"
}

func (s *redisStore) Create(ctx context.Context, id string) (*sessionstore.Session, error) {
	now := time.Now().UTC()

	session := &sessionstore.Session{
		ID:           id,
		CreatedAt:    now,
		LastActivity: now,
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}

	created, err := s.client.SetNX(ctx, s.metaKey(id), data, s.options.TTL).Result()
	if err != nil {
		return nil, err
	}

	if !created {
		return s.Get(ctx, id)
	}

	return session, nil
}

func (s *redisStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, s.metaKey(id)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *redisStore) Get(ctx context.Context, id string) (*sessionstore.Session, error) {
	data, err := s.client.Get(ctx, s.metaKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, sessionstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var session sessionstore.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}

	// the live log length is authoritative
	count, err := s.client.LLen(ctx, s.logKey(id)).Result()
	if err != nil {
		return nil, err
	}
	session.MessageCount = int(count)

	return &session, nil
}

func (s *redisStore) Touch(ctx context.Context, id string) error {
	session, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	session.LastActivity = time.Now().UTC()

	return s.saveMeta(ctx, session)
}

func (s *redisStore) AppendMessage(ctx context.Context, id string, msg sessionstore.Message) error {
	session, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.logKey(id), data)
	pipe.LTrim(ctx, s.logKey(id), 0, int64(s.options.MaxMessages-1))
	count := pipe.LLen(ctx, s.logKey(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	// recompute from the trimmed log, never an independent counter
	session.MessageCount = int(count.Val())
	session.LastActivity = time.Now().UTC()

	return s.saveMeta(ctx, session)
}

func (s *redisStore) History(ctx context.Context, id string, limit int) ([]sessionstore.Message, error) {
	if exists, err := s.Exists(ctx, id); err != nil {
		return nil, err
	} else if !exists {
		return nil, sessionstore.ErrNotFound
	}

	if limit <= 0 {
		return []sessionstore.Message{}, nil
	}

	// the log is newest-first; take the head and flip to oldest-first
	raw, err := s.client.LRange(ctx, s.logKey(id), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]sessionstore.Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var msg sessionstore.Message
		if err := json.Unmarshal([]byte(raw[i]), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

func (s *redisStore) MessageCount(ctx context.Context, id string) (int, error) {
	if exists, err := s.Exists(ctx, id); err != nil {
		return 0, err
	} else if !exists {
		return 0, sessionstore.ErrNotFound
	}

	count, err := s.client.LLen(ctx, s.logKey(id)).Result()
	if err != nil {
		return 0, err
	}

	return int(count), nil
}

func (s *redisStore) Clear(ctx context.Context, id string) error {
	session, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.client.Del(ctx, s.logKey(id)).Err(); err != nil {
		return err
	}

	session.MessageCount = 0
	session.LastActivity = time.Now().UTC()

	return s.saveMeta(ctx, session)
}

func (s *redisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.metaKey(id), s.logKey(id)).Err()
}

func (s *redisStore) ListActive(ctx context.Context) ([]sessionstore.Session, error) {
	sessions, err := s.scanSessions(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastActivity.After(sessions[j].LastActivity)
	})

	return sessions, nil
}

func (s *redisStore) Stats(ctx context.Context) (sessionstore.Stats, error) {
	sessions, err := s.scanSessions(ctx)
	if err != nil {
		return sessionstore.Stats{}, err
	}

	now := time.Now().UTC()

	stats := sessionstore.Stats{
		TotalSessions: len(sessions),
	}

	for _, session := range sessions {
		if now.Sub(session.LastActivity) <= time.Hour {
			stats.ActiveLastHour++
		}
		if now.Sub(session.LastActivity) <= 24*time.Hour {
			stats.ActiveLastDay++
		}
		stats.TotalMessages += session.MessageCount
	}

	if stats.TotalSessions > 0 {
		stats.AverageMessagesPerSession = float64(stats.TotalMessages) / float64(stats.TotalSessions)
	}

	return stats, nil
}

func (s *redisStore) Search(ctx context.Context, query string) (map[string][]sessionstore.Message, error) {
	sessions, err := s.scanSessions(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	results := map[string][]sessionstore.Message{}

	for _, session := range sessions {
		history, err := s.History(ctx, session.ID, s.options.MaxMessages)
		if err != nil {
			continue
		}

		var matches []sessionstore.Message
		for _, msg := range history {
			if strings.Contains(strings.ToLower(msg.Content), needle) {
				matches = append(matches, msg)
			}
		}

		if len(matches) > 0 {
			results[session.ID] = matches
		}
	}

	return results, nil
}

func (s *redisStore) saveMeta(ctx context.Context, session *sessionstore.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.metaKey(session.ID), data, s.options.TTL)
	pipe.Expire(ctx, s.logKey(session.ID), s.options.TTL)
	_, err = pipe.Exec(ctx)

	return err
}

func (s *redisStore) scanSessions(ctx context.Context) ([]sessionstore.Session, error) {
	var (
		sessions []sessionstore.Session
		cursor   uint64
	)

	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.options.KeyPrefix+"*:meta", 100).Result()
		if err != nil {
			return nil, err
		}

		for _, key := range keys {
			id := strings.TrimSuffix(strings.TrimPrefix(key, s.options.KeyPrefix), ":meta")
			session, err := s.Get(ctx, id)
			if err != nil {
				continue
			}
			sessions = append(sessions, *session)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return sessions, nil
}

func NewStore(client redis.UniversalClient, opts ...sessionstore.Option) sessionstore.Store {
	options := sessionstore.NewOptions(opts...)

	if client == nil {
		panic("missing redis client for session store")
	}

	return &redisStore{
		options: options,
		client:  client,
	}
}
