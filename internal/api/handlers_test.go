package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"logbook.app/backend/internal/core"
	"logbook.app/backend/internal/store"
)

var testSecret = []byte("test-secret")

type stubCompleter struct {
	calls    int
	response string
	err      error
}

func (s *stubCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	s.calls++
	return s.response, s.err
}

func newTestServer(t *testing.T, llm core.Completer) *httptest.Server {
	t.Helper()

	dbStore, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbStore.Close() })

	logger := zap.NewNop()
	resolver := core.NewDateResolver(llm)
	logService := core.NewLogService(dbStore)
	chatService := core.NewChatService(dbStore)
	agentService := core.NewAgentService(dbStore, resolver, chatService, llm, logger)

	handler := NewAPIHandler(dbStore, logService, chatService, agentService, testSecret, logger)
	srv := httptest.NewServer(NewRouter(handler, logger))
	t.Cleanup(srv.Close)
	return srv
}

func tokenFor(t *testing.T, subject string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      subject,
		"username": subject,
		"email":    subject + "@example.com",
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString(testSecret)
	require.NoError(t, err)
	return tok
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &stubCompleter{})

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t, &stubCompleter{})

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/chats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/chats", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChatLifecycle(t *testing.T) {
	srv := newTestServer(t, &stubCompleter{})
	token := tokenFor(t, "ext-1")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/chats", token, map[string]string{"title": "my chat"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	chat := decodeBody[store.Chat](t, resp)
	assert.Equal(t, "my chat", chat.Title)
	assert.False(t, chat.Pinned)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/chats", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "title is required")

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/chats/"+chat.ID+"/pin", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pinned := decodeBody[store.Chat](t, resp)
	assert.True(t, pinned.Pinned)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/chats/"+chat.ID+"/messages", token,
		map[string]string{"sender": "user", "content": "hello there"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/chats/"+chat.ID+"/messages", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	msgs := decodeBody[[]store.Message](t, resp)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello there", msgs[0].Content)

	// Another user cannot see or delete this chat.
	otherToken := tokenFor(t, "ext-2")
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/chats/"+chat.ID+"/messages", otherToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/chats/"+chat.ID, otherToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/chats/"+chat.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAppendMessage_RejectsBadSender(t *testing.T) {
	srv := newTestServer(t, &stubCompleter{})
	token := tokenFor(t, "ext-1")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/chats", token, map[string]string{"title": "c"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	chat := decodeBody[store.Chat](t, resp)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/chats/"+chat.ID+"/messages", token,
		map[string]string{"sender": "robot", "content": "hi"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogsAndAnalyze(t *testing.T) {
	stub := &stubCompleter{response: "A calm, productive day."}
	srv := newTestServer(t, stub)
	token := tokenFor(t, "ext-1")

	today := time.Now().Format("2006-01-02")
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/logs", token,
		map[string]string{"text": "wrote some Go", "date": today})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	logDoc := decodeBody[store.Log](t, resp)
	assert.Equal(t, today, logDoc.Date)
	require.Len(t, logDoc.Thoughts, 1)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/logs?date="+today, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	logs := decodeBody[[]store.Log](t, resp)
	require.Len(t, logs, 1)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/agent/analyze", token,
		map[string]string{"prompt": "summarize today"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	analysis := decodeBody[core.Analysis](t, resp)
	assert.Equal(t, "A calm, productive day.", analysis.Text)
	assert.Equal(t, today, analysis.Date)
	assert.Equal(t, 1, stub.calls, "deterministic date plus one summary call")
}

func TestAnalyze_NoLogsMessage(t *testing.T) {
	stub := &stubCompleter{}
	srv := newTestServer(t, stub)
	token := tokenFor(t, "ext-1")

	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/agent/analyze", token,
		map[string]string{"prompt": "what happened yesterday?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	analysis := decodeBody[core.Analysis](t, resp)
	assert.Equal(t, fmt.Sprintf("No logs found for %s. Try writing some thoughts first.", yesterday), analysis.Text)
	assert.Zero(t, stub.calls)
}

func TestAnalyze_InvalidExtractionIsClientError(t *testing.T) {
	stub := &stubCompleter{response: "sometime soon"}
	srv := newTestServer(t, stub)
	token := tokenFor(t, "ext-1")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/agent/analyze", token,
		map[string]string{"prompt": "summarize my journal"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCurrentUser_SyncedFromToken(t *testing.T) {
	srv := newTestServer(t, &stubCompleter{})
	token := tokenFor(t, "ext-1")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	user := decodeBody[store.User](t, resp)
	assert.Equal(t, "ext-1", user.ExternalUserID)
	assert.Equal(t, "ext-1", user.Username)
	assert.Equal(t, "ext-1@example.com", user.Email)
	assert.NotEmpty(t, user.Device)
}
