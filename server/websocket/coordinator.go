package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/w-h-a/chatter/responder"
	sessionstore "github.com/w-h-a/chatter/session_store"
	"github.com/w-h-a/chatter/util/safe"
	"github.com/w-h-a/chatter/util/text"
)

type Responder interface {
	Respond(ctx context.Context, query string, sessionId string) responder.Response
}

// Coordinator tracks live connections, joins them to sessions, and streams
// generated answers back with ordering and idempotency guarantees. The
// registry is scoped to this instance; the session store remains the only
// cross-instance source of truth.
type Coordinator struct {
	options     Options
	store       sessionstore.Store
	responder   Responder
	upgrader    websocket.Upgrader
	connections map[string]*connection
	mtx         sync.RWMutex
	done        chan struct{}
	stopOnce    sync.Once
}

func (c *Coordinator) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := c.upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", slog.String("error", err.Error()))
			return
		}

		conn := &connection{
			id:          uuid.NewString(),
			connectedAt: time.Now().UTC(),
			ws:          ws,
			send:        make(chan outboundEvent, 64),
		}

		c.mtx.Lock()
		c.connections[conn.id] = conn
		c.mtx.Unlock()

		go safe.Run("websocket.writePump", func() {
			c.writePump(conn)
		})

		c.readPump(conn)
	}
}

// Start launches the background sweep that reclaims sessions behind stale
// connections.
func (c *Coordinator) Start() {
	go safe.Run("websocket.sweep", func() {
		ticker := time.NewTicker(c.options.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-c.done:
				return
			case <-ticker.C:
				c.sweepOnce()
			}
		}
	})
}

func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
}

func (c *Coordinator) readPump(conn *connection) {
	defer c.drop(conn)

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			return
		}

		var evt inboundEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			c.push(conn, errorEvent("malformed event"))
			continue
		}

		switch evt.Type {
		case eventJoinSession:
			c.handleJoin(conn, evt.SessionId)
		case eventChatMessage:
			c.handleChat(conn, evt.Message)
		case eventClearSession:
			c.handleClear(conn)
		case eventGetSessionInfo:
			c.handleInfo(conn)
		default:
			c.push(conn, errorEvent("unknown event type"))
		}
	}
}

func (c *Coordinator) writePump(conn *connection) {
	for evt := range conn.send {
		if err := conn.ws.WriteJSON(evt); err != nil {
			return
		}
	}

	conn.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (c *Coordinator) handleJoin(conn *connection, sessionId string) {
	ctx := context.Background()

	id := sessionId

	known := false
	if _, err := uuid.Parse(id); err == nil {
		exists, err := c.store.Exists(ctx, id)
		if err != nil {
			c.push(conn, errorEvent("failed to resolve session"))
			return
		}
		known = exists
	}

	if !known {
		id = uuid.NewString()
		if _, err := c.store.Create(ctx, id); err != nil {
			c.push(conn, errorEvent("failed to create session"))
			return
		}
	}

	c.mtx.Lock()
	conn.sessionId = id
	c.mtx.Unlock()

	history, err := c.store.History(ctx, id, c.options.HistoryLimit)
	if err != nil {
		c.push(conn, errorEvent("failed to load history"))
		return
	}

	c.push(conn, outboundEvent{
		Type: eventSessionJoined,
		Data: joinedData{SessionId: id, History: history},
	})
}

func (c *Coordinator) handleChat(conn *connection, message string) {
	sessionId := c.sessionOf(conn)
	if len(sessionId) == 0 {
		c.push(conn, errorEvent("join a session first"))
		return
	}

	if text.Blank(message) || utf8.RuneCountInString(message) > c.options.MaxMessageLen {
		c.push(conn, errorEvent("message must be between 1 and 1000 characters"))
		return
	}

	ctx := context.Background()

	userMsg := sessionstore.Message{
		ID:        uuid.NewString(),
		Type:      sessionstore.MessageTypeUser,
		Content:   message,
		Timestamp: time.Now().UTC(),
	}

	// the user message is persisted and broadcast before any bot work starts
	if err := c.store.AppendMessage(ctx, sessionId, userMsg); err != nil {
		slog.Error("failed to persist user message",
			slog.String("session_id", sessionId),
			slog.String("error", err.Error()),
		)
		c.push(conn, errorEvent("failed to store message"))
		return
	}

	c.broadcast(sessionId, outboundEvent{Type: eventMessageReceived, Data: userMsg})
	c.broadcast(sessionId, outboundEvent{Type: eventBotTyping, Data: typingData{IsTyping: true}})

	rsp := c.responder.Respond(ctx, message, sessionId)

	botMsg := sessionstore.Message{
		ID:            uuid.NewString(),
		Type:          sessionstore.MessageTypeBot,
		Content:       rsp.Text,
		Timestamp:     time.Now().UTC(),
		Sources:       rsp.Sources,
		RetrievedDocs: rsp.RetrievedDocs,
		IsError:       rsp.Outcome == responder.OutcomeFailure,
	}

	if err := c.store.AppendMessage(ctx, sessionId, botMsg); err != nil {
		slog.Error("failed to persist bot message",
			slog.String("session_id", sessionId),
			slog.String("error", err.Error()),
		)
		c.broadcast(sessionId, outboundEvent{Type: eventBotTyping, Data: typingData{IsTyping: false}})
		c.push(conn, errorEvent("failed to store response"))
		return
	}

	c.broadcast(sessionId, outboundEvent{Type: eventBotTyping, Data: typingData{IsTyping: false}})

	c.deliver(sessionId, botMsg)
}

// deliver emits the bot message exactly once: short answers as a single
// event, long answers as cumulative word chunks with one final chunk
// carrying the completion flag and sources. Never both paths.
func (c *Coordinator) deliver(sessionId string, msg sessionstore.Message) {
	if utf8.RuneCountInString(msg.Content) <= c.options.ShortAnswerLimit {
		c.broadcast(sessionId, outboundEvent{Type: eventMessageReceived, Data: msg})
		return
	}

	words := strings.Fields(msg.Content)

	for start := 0; start < len(words); start += c.options.ChunkWords {
		end := start + c.options.ChunkWords
		if end > len(words) {
			end = len(words)
		}

		final := end == len(words)

		data := streamData{
			Id:         msg.ID,
			Content:    strings.Join(words[:end], " "),
			IsComplete: final,
		}

		if final {
			data.Sources = msg.Sources
			data.RetrievedDocs = msg.RetrievedDocs
		}

		c.broadcast(sessionId, outboundEvent{Type: eventMessageStream, Data: data})

		if !final {
			time.Sleep(c.options.ChunkDelay)
		}
	}
}

func (c *Coordinator) handleClear(conn *connection) {
	sessionId := c.sessionOf(conn)
	if len(sessionId) == 0 {
		c.push(conn, errorEvent("join a session first"))
		return
	}

	if err := c.store.Clear(context.Background(), sessionId); err != nil {
		c.push(conn, errorEvent("failed to clear session"))
		return
	}

	c.broadcast(sessionId, outboundEvent{
		Type: eventSessionCleared,
		Data: clearedData{SessionId: sessionId},
	})
}

func (c *Coordinator) handleInfo(conn *connection) {
	sessionId := c.sessionOf(conn)
	if len(sessionId) == 0 {
		c.push(conn, errorEvent("join a session first"))
		return
	}

	count, err := c.store.MessageCount(context.Background(), sessionId)
	if err != nil {
		c.push(conn, errorEvent("failed to fetch session info"))
		return
	}

	c.push(conn, outboundEvent{
		Type: eventSessionInfo,
		Data: infoData{
			SessionId:    sessionId,
			MessageCount: count,
			ConnectedAt:  conn.connectedAt,
		},
	})
}

func (c *Coordinator) broadcast(sessionId string, evt outboundEvent) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	for _, conn := range c.connections {
		if conn.sessionId == sessionId {
			c.pushLocked(conn, evt)
		}
	}
}

func (c *Coordinator) push(conn *connection, evt outboundEvent) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	c.pushLocked(conn, evt)
}

func (c *Coordinator) pushLocked(conn *connection, evt outboundEvent) {
	if conn.closed {
		return
	}

	select {
	case conn.send <- evt:
	default:
		slog.Warn("dropping event for slow connection",
			slog.String("connection_id", conn.id),
			slog.String("event", evt.Type),
		)
	}
}

func (c *Coordinator) sessionOf(conn *connection) string {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return conn.sessionId
}

func (c *Coordinator) drop(conn *connection) {
	c.mtx.Lock()
	if _, ok := c.connections[conn.id]; !ok {
		c.mtx.Unlock()
		return
	}
	delete(c.connections, conn.id)
	conn.closed = true
	c.mtx.Unlock()

	// session state stays in the store; only the connection record goes away
	close(conn.send)
	conn.ws.Close()
}

func (c *Coordinator) sweepOnce() {
	cutoff := time.Now().UTC().Add(-c.options.SweepThreshold)

	c.mtx.RLock()
	var stale []*connection
	for _, conn := range c.connections {
		if conn.connectedAt.Before(cutoff) {
			stale = append(stale, conn)
		}
	}
	c.mtx.RUnlock()

	for _, conn := range stale {
		sessionId := c.sessionOf(conn)
		if len(sessionId) > 0 {
			if err := c.store.Delete(context.Background(), sessionId); err != nil {
				slog.Error("failed to delete stale session",
					slog.String("session_id", sessionId),
					slog.String("error", err.Error()),
				)
			}
		}
		c.drop(conn)
	}

	if len(stale) > 0 {
		slog.Info("swept stale connections", slog.Int("count", len(stale)))
	}
}

// ConnectionCount is exposed for observability and tests.
func (c *Coordinator) ConnectionCount() int {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return len(c.connections)
}

func errorEvent(message string) outboundEvent {
	return outboundEvent{
		Type: eventError,
		Data: errorData{Message: message},
	}
}

func New(store sessionstore.Store, re Responder, opts ...Option) *Coordinator {
	options := NewOptions(opts...)

	if store == nil {
		panic("session store is required")
	}

	if re == nil {
		panic("responder is required")
	}

	return &Coordinator{
		options:   options,
		store:     store,
		responder: re,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		connections: map[string]*connection{},
		done:        make(chan struct{}),
	}
}
