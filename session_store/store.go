package sessionstore

import (
	"context"
	"errors"
	"time"
)

const (
	MessageTypeUser = "user"
	MessageTypeBot  = "bot"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
}

type Source struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}

type Message struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Content       string    `json:"content"`
	Timestamp     time.Time `json:"timestamp"`
	Sources       []Source  `json:"sources,omitempty"`
	RetrievedDocs int       `json:"retrieved_docs"`
	IsError       bool      `json:"is_error,omitempty"`
}

type Stats struct {
	TotalSessions             int     `json:"total_sessions"`
	ActiveLastHour            int     `json:"active_last_hour"`
	ActiveLastDay             int     `json:"active_last_day"`
	TotalMessages             int     `json:"total_messages"`
	AverageMessagesPerSession float64 `json:"average_messages_per_session"`
}

// Store is the durable, TTL-bound conversation state. The message log is a
// bounded ring: newest entries first in storage, returned to callers
// oldest-first. Every mutation refreshes the session's TTL.
type Store interface {
	Create(ctx context.Context, id string) (*Session, error)
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (*Session, error)
	Touch(ctx context.Context, id string) error
	AppendMessage(ctx context.Context, id string, msg Message) error
	History(ctx context.Context, id string, limit int) ([]Message, error)
	MessageCount(ctx context.Context, id string) (int, error)
	Clear(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	ListActive(ctx context.Context) ([]Session, error)
	Stats(ctx context.Context) (Stats, error)
	Search(ctx context.Context, query string) (map[string][]Message, error)
}
