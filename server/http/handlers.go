package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/w-h-a/chatter/ingestor"
	"github.com/w-h-a/chatter/responder"
	sessionstore "github.com/w-h-a/chatter/session_store"
	"github.com/w-h-a/chatter/util/text"
)

const maxMessageLen = 1000

type chatRequest struct {
	Message   string `json:"message"`
	SessionId string `json:"session_id"`
}

type chatResponse struct {
	UserMessage sessionstore.Message `json:"user_message"`
	BotMessage  sessionstore.Message `json:"bot_message"`
}

type exportResponse struct {
	Session  *sessionstore.Session  `json:"session"`
	Messages []sessionstore.Message `json:"messages"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.Create(r.Context(), uuid.NewString())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeJson(w, http.StatusCreated, session)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionId(w, r)
	if !ok {
		return
	}

	session, err := s.store.Get(r.Context(), id)
	if err != nil {
		notFoundOrInternal(w, err)
		return
	}

	writeJson(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionId(w, r)
	if !ok {
		return
	}

	if err := s.store.Delete(r.Context(), id); err != nil {
		notFoundOrInternal(w, err)
		return
	}

	writeJson(w, http.StatusOK, map[string]any{"session_id": id, "deleted": true})
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionId(w, r)
	if !ok {
		return
	}

	if err := s.store.Clear(r.Context(), id); err != nil {
		notFoundOrInternal(w, err)
		return
	}

	writeJson(w, http.StatusOK, map[string]any{"session_id": id, "cleared": true})
}

func (s *Server) handleExportSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionId(w, r)
	if !ok {
		return
	}

	session, err := s.store.Get(r.Context(), id)
	if err != nil {
		notFoundOrInternal(w, err)
		return
	}

	messages, err := s.store.History(r.Context(), id, session.MessageCount)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	writeJson(w, http.StatusOK, exportResponse{Session: session, Messages: messages})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionId(w, r)
	if !ok {
		return
	}

	limit := s.options.HistoryLimit
	if raw := r.URL.Query().Get("limit"); len(raw) > 0 {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	exists, err := s.store.Exists(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve session")
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	messages, err := s.store.History(r.Context(), id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	writeJson(w, http.StatusOK, map[string]any{
		"session_id": id,
		"messages":   messages,
		"count":      len(messages),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if _, err := uuid.Parse(req.SessionId); err != nil {
		writeError(w, http.StatusBadRequest, "session_id must be a valid uuid")
		return
	}

	if text.Blank(req.Message) || utf8.RuneCountInString(req.Message) > maxMessageLen {
		writeError(w, http.StatusBadRequest, "message must be between 1 and 1000 characters")
		return
	}

	exists, err := s.store.Exists(r.Context(), req.SessionId)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve session")
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	userMsg := sessionstore.Message{
		ID:        uuid.NewString(),
		Type:      sessionstore.MessageTypeUser,
		Content:   req.Message,
		Timestamp: time.Now().UTC(),
	}

	if err := s.store.AppendMessage(r.Context(), req.SessionId, userMsg); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store message")
		return
	}

	rsp := s.responder.Respond(r.Context(), req.Message, req.SessionId)

	botMsg := sessionstore.Message{
		ID:            uuid.NewString(),
		Type:          sessionstore.MessageTypeBot,
		Content:       rsp.Text,
		Timestamp:     time.Now().UTC(),
		Sources:       rsp.Sources,
		RetrievedDocs: rsp.RetrievedDocs,
		IsError:       rsp.Outcome == responder.OutcomeFailure,
	}

	if err := s.store.AppendMessage(r.Context(), req.SessionId, botMsg); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store response")
		return
	}

	writeJson(w, http.StatusOK, chatResponse{UserMessage: userMsg, BotMessage: botMsg})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	if text.Blank(query) || utf8.RuneCountInString(query) > 100 {
		writeError(w, http.StatusBadRequest, "q must be between 1 and 100 characters")
		return
	}

	results, err := s.store.Search(r.Context(), query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	writeJson(w, http.StatusOK, map[string]any{
		"query":    query,
		"results":  results,
		"sessions": len(results),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	body := map[string]any{"sessions": stats}

	if info, err := s.storer.Info(r.Context()); err == nil {
		body["index"] = map[string]any{
			"points":    info.Points,
			"dimension": info.Dimension,
			"distance":  info.Distance,
		}
	}

	writeJson(w, http.StatusOK, body)
}

func (s *Server) handleStoreDocument(w http.ResponseWriter, r *http.Request) {
	var doc ingestor.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if text.Blank(doc.ID) {
		doc.ID = uuid.NewString()
	}

	if text.Blank(doc.Content) {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	if err := s.ingestor.Store(r.Context(), doc); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store document")
		return
	}

	writeJson(w, http.StatusCreated, map[string]any{"document_id": doc.ID, "status": "stored"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info, err := s.storer.Info(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "vector index unavailable")
		return
	}

	writeJson(w, http.StatusOK, map[string]any{
		"status": "ok",
		"points": info.Points,
	})
}

func sessionId(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := mux.Vars(r)["id"]

	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "session id must be a valid uuid")
		return "", false
	}

	return id, true
}

func notFoundOrInternal(w http.ResponseWriter, err error) {
	if errors.Is(err, sessionstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeError(w, http.StatusInternalServerError, "session store failure")
}
