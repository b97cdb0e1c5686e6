package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	sessionstore "github.com/w-h-a/chatter/session_store"
)

type entry struct {
	session   sessionstore.Session
	log       []sessionstore.Message // newest first
	expiresAt time.Time
}

type memoryStore struct {
	options  sessionstore.Options
	sessions map[string]*entry
	mtx      sync.RWMutex
}

func (s *memoryStore) Create(ctx context.Context, id string) (*sessionstore.Session, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if e, ok := s.live(id); ok {
		session := e.session
		session.MessageCount = len(e.log)
		return &session, nil
	}

	now := time.Now().UTC()

	e := &entry{
		session: sessionstore.Session{
			ID:           id,
			CreatedAt:    now,
			LastActivity: now,
		},
		expiresAt: now.Add(s.options.TTL),
	}

	s.sessions[id] = e

	session := e.session
	return &session, nil
}

func (s *memoryStore) Exists(ctx context.Context, id string) (bool, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	_, ok := s.live(id)
	return ok, nil
}

func (s *memoryStore) Get(ctx context.Context, id string) (*sessionstore.Session, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	e, ok := s.live(id)
	if !ok {
		return nil, sessionstore.ErrNotFound
	}

	session := e.session
	session.MessageCount = len(e.log)

	return &session, nil
}

func (s *memoryStore) Touch(ctx context.Context, id string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	e, ok := s.live(id)
	if !ok {
		return sessionstore.ErrNotFound
	}

	s.refresh(e)

	return nil
}

func (s *memoryStore) AppendMessage(ctx context.Context, id string, msg sessionstore.Message) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	e, ok := s.live(id)
	if !ok {
		return sessionstore.ErrNotFound
	}

	e.log = append([]sessionstore.Message{msg}, e.log...)
	if len(e.log) > s.options.MaxMessages {
		e.log = e.log[:s.options.MaxMessages]
	}

	e.session.MessageCount = len(e.log)

	s.refresh(e)

	return nil
}

func (s *memoryStore) History(ctx context.Context, id string, limit int) ([]sessionstore.Message, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	e, ok := s.live(id)
	if !ok {
		return nil, sessionstore.ErrNotFound
	}

	if limit <= 0 {
		return []sessionstore.Message{}, nil
	}

	n := limit
	if n > len(e.log) {
		n = len(e.log)
	}

	messages := make([]sessionstore.Message, 0, n)
	for i := n - 1; i >= 0; i-- {
		messages = append(messages, e.log[i])
	}

	return messages, nil
}

func (s *memoryStore) MessageCount(ctx context.Context, id string) (int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	e, ok := s.live(id)
	if !ok {
		return 0, sessionstore.ErrNotFound
	}

	return len(e.log), nil
}

func (s *memoryStore) Clear(ctx context.Context, id string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	e, ok := s.live(id)
	if !ok {
		return sessionstore.ErrNotFound
	}

	e.log = nil
	e.session.MessageCount = 0

	s.refresh(e)

	return nil
}

func (s *memoryStore) Delete(ctx context.Context, id string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *memoryStore) ListActive(ctx context.Context) ([]sessionstore.Session, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	sessions := make([]sessionstore.Session, 0, len(s.sessions))
	for id := range s.sessions {
		if e, ok := s.live(id); ok {
			session := e.session
			session.MessageCount = len(e.log)
			sessions = append(sessions, session)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastActivity.After(sessions[j].LastActivity)
	})

	return sessions, nil
}

func (s *memoryStore) Stats(ctx context.Context) (sessionstore.Stats, error) {
	sessions, err := s.ListActive(ctx)
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

func (s *memoryStore) Search(ctx context.Context, query string) (map[string][]sessionstore.Message, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	needle := strings.ToLower(query)
	results := map[string][]sessionstore.Message{}

	for id := range s.sessions {
		e, ok := s.live(id)
		if !ok {
			continue
		}

		var matches []sessionstore.Message
		for i := len(e.log) - 1; i >= 0; i-- {
			msg := e.log[i]
			if strings.Contains(strings.ToLower(msg.Content), needle) {
				matches = append(matches, msg)
			}
		}

		if len(matches) > 0 {
			results[id] = matches
		}
	}

	return results, nil
}

// live must be called with at least a read lock held. Expired entries are
// treated as missing.
func (s *memoryStore) live(id string) (*entry, bool) {
	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if time.Now().UTC().After(e.expiresAt) {
		return nil, false
	}
	return e, true
}

func (s *memoryStore) refresh(e *entry) {
	now := time.Now().UTC()
	e.session.LastActivity = now
	e.expiresAt = now.Add(s.options.TTL)
}

func NewStore(opts ...sessionstore.Option) sessionstore.Store {
	options := sessionstore.NewOptions(opts...)

	return &memoryStore{
		options:  options,
		sessions: map[string]*entry{},
	}
}
