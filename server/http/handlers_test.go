package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/chatter/ingestor"
	"github.com/w-h-a/chatter/responder"
	sessionstore "github.com/w-h-a/chatter/session_store"
	memorysession "github.com/w-h-a/chatter/session_store/memory"
	memorystorer "github.com/w-h-a/chatter/storer/memory"
)

type fakeResponder struct {
	response responder.Response
	calls    int
}

func (f *fakeResponder) Respond(ctx context.Context, query string, sessionId string) responder.Response {
	f.calls++
	return f.response
}

type fakeIngestor struct {
	docs []ingestor.Document
	err  error
}

func (f *fakeIngestor) Store(ctx context.Context, doc ingestor.Document) error {
	if f.err != nil {
		return f.err
	}
	f.docs = append(f.docs, doc)
	return nil
}

type fixture struct {
	store     sessionstore.Store
	responder *fakeResponder
	ingestor  *fakeIngestor
	ts        *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store: memorysession.NewStore(),
		responder: &fakeResponder{response: responder.Response{
			Text:    "An answer.",
			Sources: []sessionstore.Source{},
			Outcome: responder.OutcomeOK,
		}},
		ingestor: &fakeIngestor{},
	}

	srv := NewServer(f.store, f.responder, f.ingestor, memorystorer.NewStorer(), nil)
	f.ts = httptest.NewServer(srv.srv.Handler)
	t.Cleanup(f.ts.Close)

	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, f.ts.URL+path, reader)
	require.NoError(t, err)

	rsp, err := f.ts.Client().Do(req)
	require.NoError(t, err)
	defer rsp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(rsp.Body).Decode(&decoded))

	return rsp, decoded
}

func (f *fixture) createSession(t *testing.T) string {
	t.Helper()

	rsp, body := f.do(t, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, rsp.StatusCode)

	id, _ := body["id"].(string)
	require.NotEmpty(t, id)

	return id
}

func TestCreateSessionMintsUuid(t *testing.T) {
	f := newFixture(t)

	id := f.createSession(t)

	_, err := uuid.Parse(id)
	assert.NoError(t, err)
}

func TestGetSessionValidation(t *testing.T) {
	f := newFixture(t)

	rsp, body := f.do(t, http.MethodGet, "/api/v1/sessions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rsp.StatusCode)
	assert.NotEmpty(t, body["error"])

	rsp, body = f.do(t, http.MethodGet, "/api/v1/sessions/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rsp.StatusCode)
	assert.NotEmpty(t, body["error"])

	id := f.createSession(t)
	rsp, body = f.do(t, http.MethodGet, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusOK, rsp.StatusCode)
	assert.Equal(t, id, body["id"])
}

func TestClearSessionResetsMessages(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)

	require.NoError(t, f.store.AppendMessage(context.Background(), id, sessionstore.Message{
		ID: "m1", Type: sessionstore.MessageTypeUser, Content: "hello",
	}))

	rsp, body := f.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/clear", nil)
	require.Equal(t, http.StatusOK, rsp.StatusCode)
	assert.Equal(t, true, body["cleared"])

	count, err := f.store.MessageCount(context.Background(), id)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestHistoryLimits(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, f.store.AppendMessage(context.Background(), id, sessionstore.Message{
			ID: fmt.Sprintf("m%d", i), Type: sessionstore.MessageTypeUser, Content: "hello",
		}))
	}

	rsp, body := f.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/messages?limit=3", nil)
	require.Equal(t, http.StatusOK, rsp.StatusCode)
	assert.Len(t, body["messages"], 3)
	assert.Equal(t, float64(3), body["count"])

	rsp, body = f.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/messages?limit=0", nil)
	require.Equal(t, http.StatusOK, rsp.StatusCode)
	assert.Empty(t, body["messages"])

	rsp, _ = f.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/messages?limit=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rsp.StatusCode)

	rsp, _ = f.do(t, http.MethodGet, "/api/v1/sessions/"+uuid.NewString()+"/messages", nil)
	assert.Equal(t, http.StatusNotFound, rsp.StatusCode)
}

func TestChatValidation(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)

	rsp, _ := f.do(t, http.MethodPost, "/api/v1/chat", map[string]any{
		"message": "hello", "session_id": "nope",
	})
	assert.Equal(t, http.StatusBadRequest, rsp.StatusCode)

	rsp, _ = f.do(t, http.MethodPost, "/api/v1/chat", map[string]any{
		"message": "hello", "session_id": uuid.NewString(),
	})
	assert.Equal(t, http.StatusNotFound, rsp.StatusCode)

	rsp, _ = f.do(t, http.MethodPost, "/api/v1/chat", map[string]any{
		"message": "   ", "session_id": id,
	})
	assert.Equal(t, http.StatusBadRequest, rsp.StatusCode)

	rsp, _ = f.do(t, http.MethodPost, "/api/v1/chat", map[string]any{
		"message": strings.Repeat("x", 1001), "session_id": id,
	})
	assert.Equal(t, http.StatusBadRequest, rsp.StatusCode)

	assert.Zero(t, f.responder.calls)
}

func TestChatPersistsBothMessages(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)

	rsp, body := f.do(t, http.MethodPost, "/api/v1/chat", map[string]any{
		"message": "what happened?", "session_id": id,
	})
	require.Equal(t, http.StatusOK, rsp.StatusCode)

	user, _ := body["user_message"].(map[string]any)
	bot, _ := body["bot_message"].(map[string]any)
	require.NotNil(t, user)
	require.NotNil(t, bot)
	assert.Equal(t, "what happened?", user["content"])
	assert.Equal(t, "An answer.", bot["content"])

	history, err := f.store.History(context.Background(), id, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, sessionstore.MessageTypeUser, history[0].Type)
	assert.Equal(t, sessionstore.MessageTypeBot, history[1].Type)
}

func TestChatFailureOutcomeFlagsBotMessage(t *testing.T) {
	f := newFixture(t)
	f.responder.response = responder.Response{
		Text:    responder.FailureText,
		Outcome: responder.OutcomeFailure,
	}
	id := f.createSession(t)

	rsp, body := f.do(t, http.MethodPost, "/api/v1/chat", map[string]any{
		"message": "trigger failure", "session_id": id,
	})
	require.Equal(t, http.StatusOK, rsp.StatusCode)

	bot, _ := body["bot_message"].(map[string]any)
	require.NotNil(t, bot)
	assert.Equal(t, true, bot["is_error"])
}

func TestSearchValidationAndGrouping(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)

	require.NoError(t, f.store.AppendMessage(context.Background(), id, sessionstore.Message{
		ID: "m1", Type: sessionstore.MessageTypeUser, Content: "news about the Budget vote",
	}))

	rsp, _ := f.do(t, http.MethodGet, "/api/v1/search", nil)
	assert.Equal(t, http.StatusBadRequest, rsp.StatusCode)

	rsp, _ = f.do(t, http.MethodGet, "/api/v1/search?q="+strings.Repeat("x", 101), nil)
	assert.Equal(t, http.StatusBadRequest, rsp.StatusCode)

	rsp, body := f.do(t, http.MethodGet, "/api/v1/search?q=budget", nil)
	require.Equal(t, http.StatusOK, rsp.StatusCode)
	assert.Equal(t, float64(1), body["sessions"])

	results, _ := body["results"].(map[string]any)
	require.NotNil(t, results)
	assert.Contains(t, results, id)
}

func TestStatsIncludesSessionAggregates(t *testing.T) {
	f := newFixture(t)
	f.createSession(t)

	rsp, body := f.do(t, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, rsp.StatusCode)

	sessions, _ := body["sessions"].(map[string]any)
	require.NotNil(t, sessions)
	assert.Equal(t, float64(1), sessions["total_sessions"])
}

func TestStoreDocument(t *testing.T) {
	f := newFixture(t)

	rsp, _ := f.do(t, http.MethodPost, "/api/v1/documents", map[string]any{
		"title": "No content",
	})
	assert.Equal(t, http.StatusBadRequest, rsp.StatusCode)

	rsp, body := f.do(t, http.MethodPost, "/api/v1/documents", map[string]any{
		"id":      "doc-1",
		"title":   "Budget vote",
		"content": strings.Repeat("The assembly passed the budget. ", 5),
	})
	require.Equal(t, http.StatusCreated, rsp.StatusCode)
	assert.Equal(t, "doc-1", body["document_id"])
	require.Len(t, f.ingestor.docs, 1)
	assert.Equal(t, "Budget vote", f.ingestor.docs[0].Title)
}

func TestStoreDocumentFailure(t *testing.T) {
	f := newFixture(t)
	f.ingestor.err = errors.New("index down")

	rsp, _ := f.do(t, http.MethodPost, "/api/v1/documents", map[string]any{
		"content": strings.Repeat("Some content here. ", 5),
	})
	assert.Equal(t, http.StatusInternalServerError, rsp.StatusCode)
}

func TestExportBundlesSessionAndMessages(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)

	require.NoError(t, f.store.AppendMessage(context.Background(), id, sessionstore.Message{
		ID: "m1", Type: sessionstore.MessageTypeUser, Content: "hello",
	}))

	rsp, body := f.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/export", nil)
	require.Equal(t, http.StatusOK, rsp.StatusCode)

	session, _ := body["session"].(map[string]any)
	require.NotNil(t, session)
	assert.Equal(t, id, session["id"])
	assert.Len(t, body["messages"], 1)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	rsp, body := f.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rsp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}
