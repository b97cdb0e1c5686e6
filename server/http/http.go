package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/w-h-a/chatter/ingestor"
	"github.com/w-h-a/chatter/responder"
	sessionstore "github.com/w-h-a/chatter/session_store"
	"github.com/w-h-a/chatter/storer"
)

type Responder interface {
	Respond(ctx context.Context, query string, sessionId string) responder.Response
}

type Ingestor interface {
	Store(ctx context.Context, doc ingestor.Document) error
}

// Server exposes the REST surface: session lifecycle, non-streaming chat,
// similarity search, document ingestion, and stats. Streaming chat lives on
// the websocket coordinator, which is mounted here as a plain handler.
type Server struct {
	options   Options
	store     sessionstore.Store
	responder Responder
	ingestor  Ingestor
	storer    storer.Storer
	srv       *http.Server
}

func (s *Server) Run() error {
	slog.Info("http server listening", slog.String("address", s.options.Address))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) router(ws http.Handler) *mux.Router {
	r := mux.NewRouter()

	for _, mw := range s.options.Middleware {
		r.Use(mw)
	}

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	if ws != nil {
		r.Handle("/ws", ws)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/clear", s.handleClearSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/export", s.handleExportSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/messages", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
	api.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/documents", s.handleStoreDocument).Methods(http.MethodPost)

	return r
}

func writeJson(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJson(w, status, map[string]string{"error": message})
}

// LoggingMiddleware records method, path, and latency for every request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

func NewServer(
	store sessionstore.Store,
	re Responder,
	in Ingestor,
	st storer.Storer,
	ws http.Handler,
	opts ...Option,
) *Server {
	options := NewOptions(opts...)

	if store == nil {
		panic("session store is required")
	}

	if re == nil {
		panic("responder is required")
	}

	if in == nil {
		panic("ingestor is required")
	}

	if st == nil {
		panic("storer is required")
	}

	s := &Server{
		options:   options,
		store:     store,
		responder: re,
		ingestor:  in,
		storer:    st,
	}

	s.srv = &http.Server{
		Addr:    options.Address,
		Handler: s.router(ws),
	}

	return s
}
