package websocket

import (
	"time"

	sessionstore "github.com/w-h-a/chatter/session_store"
)

const (
	eventJoinSession    = "join_session"
	eventChatMessage    = "chat_message"
	eventClearSession   = "clear_session"
	eventGetSessionInfo = "get_session_info"

	eventSessionJoined   = "session_joined"
	eventMessageReceived = "message_received"
	eventMessageStream   = "message_stream"
	eventBotTyping       = "bot_typing"
	eventSessionCleared  = "session_cleared"
	eventSessionInfo     = "session_info"
	eventError           = "error"
)

type inboundEvent struct {
	Type      string `json:"type"`
	SessionId string `json:"session_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

type outboundEvent struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type joinedData struct {
	SessionId string                 `json:"session_id"`
	History   []sessionstore.Message `json:"history"`
}

type streamData struct {
	Id            string                `json:"id"`
	Content       string                `json:"content"`
	IsComplete    bool                  `json:"is_complete"`
	Sources       []sessionstore.Source `json:"sources,omitempty"`
	RetrievedDocs int                   `json:"retrieved_docs,omitempty"`
}

type typingData struct {
	IsTyping bool `json:"is_typing"`
}

type clearedData struct {
	SessionId string `json:"session_id"`
}

type infoData struct {
	SessionId    string    `json:"session_id"`
	MessageCount int       `json:"message_count"`
	ConnectedAt  time.Time `json:"connected_at"`
}

type errorData struct {
	Message string `json:"message"`
}
