package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/handlers"
	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/messaging"
	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/store"
)

type testServer struct {
	*httptest.Server
	store *store.SQLiteStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(s.Close)

	_, err = s.DB().Exec(`
		INSERT INTO clients (id, first_name, last_name, email, auth_uid) VALUES (10, 'Yassine', 'Benali', 'yassine@example.com', 'uid-client-10');
		INSERT INTO agents (id, name, email, auth_uid, role) VALUES (5, 'Nadia Amrani', 'nadia@sunshine.ma', 'uid-agent-5', 'agent');
	`)
	require.NoError(t, err)

	logger := zerolog.Nop()
	svc := messaging.NewService(s, nil, logger)
	h := handlers.NewHandler(svc, s, nil, logger)
	srv := httptest.NewServer(NewRouter(logger, h, Options{CORSAllowedOrigins: []string{"http://localhost:3000"}}))
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, store: s}
}

func (ts *testServer) get(t *testing.T, path string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (ts *testServer) post(t *testing.T, path, body string, out interface{}) int {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestMessagingFlow(t *testing.T) {
	ts := newTestServer(t)

	var sent messaging.SentMessage
	status := ts.post(t, "/messages", `{
		"sender_kind": "client", "sender_id": 10,
		"receiver_kind": "admin", "receiver_id": "nadia@sunshine.ma",
		"content": "Bonjour", "property_id": 3
	}`, &sent)
	require.Equal(t, http.StatusCreated, status)
	assert.NotZero(t, sent.ID)
	assert.Equal(t, "Yassine Benali", sent.SenderName)
	assert.Equal(t, int64(5), sent.Receiver.ID)

	var unread handlers.UnreadCountResponse
	require.Equal(t, http.StatusOK, ts.get(t, "/messages/unread?user_kind=agent&user_id=5", &unread))
	assert.Equal(t, int64(1), unread.UnreadCount)

	var inbox handlers.ConversationListResponse
	require.Equal(t, http.StatusOK, ts.get(t, "/conversations?user_kind=agent&user_id=5", &inbox))
	require.Len(t, inbox.Conversations, 1)
	conv := inbox.Conversations[0]
	assert.Equal(t, "Yassine Benali", conv.OtherParticipant.Name)
	assert.Equal(t, int64(1), conv.UnreadCount)
	assert.Equal(t, "Bonjour", conv.LastMessage)

	var thread handlers.MessageListResponse
	path := fmt.Sprintf("/messages?conversation_id=%d&user_kind=agent&user_id=5", conv.ID)
	require.Equal(t, http.StatusOK, ts.get(t, path, &thread))
	require.Len(t, thread.Messages, 1)
	require.NotNil(t, thread.Messages[0].PropertyID)
	assert.Equal(t, int64(3), *thread.Messages[0].PropertyID)

	require.Equal(t, http.StatusOK, ts.get(t, "/messages/unread?user_kind=agent&user_id=5", &unread))
	assert.Zero(t, unread.UnreadCount)

	require.Equal(t, http.StatusOK, ts.get(t, "/messages?user_kind=client&user_id=10&other_kind=agent&other_id=5", &thread))
	assert.Len(t, thread.Messages, 1)
}

func TestTypingEndpoints(t *testing.T) {
	ts := newTestServer(t)

	var typing handlers.TypingResponse
	status := ts.post(t, "/typing", `{"user_kind":"client","user_id":"10","other_kind":"agent","other_id":5,"is_typing":true}`, &typing)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, typing.IsTyping)

	require.Equal(t, http.StatusOK, ts.get(t, "/typing?user_kind=agent&user_id=5&other_kind=client&other_id=10", &typing))
	assert.True(t, typing.IsTyping)

	require.Equal(t, http.StatusOK, ts.get(t, "/typing?user_kind=client&user_id=10&other_kind=agent&other_id=5", &typing))
	assert.False(t, typing.IsTyping)
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"blank content", http.MethodPost, "/messages", `{"sender_kind":"client","sender_id":10,"receiver_kind":"agent","receiver_id":5,"content":"  "}`, http.StatusBadRequest, "validation_failed"},
		{"bad kind", http.MethodPost, "/messages", `{"sender_kind":"owner","sender_id":10,"receiver_kind":"agent","receiver_id":5,"content":"hi"}`, http.StatusBadRequest, "validation_failed"},
		{"self send", http.MethodPost, "/messages", `{"sender_kind":"client","sender_id":10,"receiver_kind":"client","receiver_id":"uid-client-10","content":"hi"}`, http.StatusBadRequest, "validation_failed"},
		{"malformed body", http.MethodPost, "/messages", `{"sender_kind":`, http.StatusBadRequest, "validation_failed"},
		{"unknown email", http.MethodPost, "/messages", `{"sender_kind":"client","sender_id":10,"receiver_kind":"agent","receiver_id":"ghost@sunshine.ma","content":"hi"}`, http.StatusNotFound, "identity_not_found"},
		{"unknown conversation", http.MethodGet, "/messages?conversation_id=999", "", http.StatusNotFound, "conversation_not_found"},
		{"zero conversation", http.MethodGet, "/messages?conversation_id=0", "", http.StatusBadRequest, "validation_failed"},
		{"missing counterpart", http.MethodGet, "/messages?user_kind=client&user_id=10", "", http.StatusBadRequest, "validation_failed"},
		{"missing caller", http.MethodGet, "/conversations", "", http.StatusBadRequest, "validation_failed"},
		{"negative id", http.MethodGet, "/messages/unread?user_kind=client&user_id=-4", "", http.StatusBadRequest, "validation_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body handlers.ErrorResponse
			var status int
			if tt.method == http.MethodPost {
				status = ts.post(t, tt.path, tt.body, &body)
			} else {
				status = ts.get(t, tt.path, &body)
			}
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestStorageFailureReturnsReference(t *testing.T) {
	ts := newTestServer(t)
	ts.store.Close()

	var body handlers.ErrorResponse
	status := ts.get(t, "/conversations?user_kind=client&user_id=10", &body)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", body.Error)
	_, err := uuid.Parse(body.Ref)
	assert.NoError(t, err)

	var health handlers.HealthResponse
	assert.Equal(t, http.StatusServiceUnavailable, ts.get(t, "/health", &health))
	assert.Equal(t, "fail", health.Checks["database"].Status)
	assert.Equal(t, "skip", health.Checks["redis"].Status)
}

func TestStreamedBodyOverLimitIsRejected(t *testing.T) {
	ts := newTestServer(t)

	// MultiReader hides the length, so the body goes out chunked and only
	// the streaming limit can catch it.
	body := io.MultiReader(
		strings.NewReader(`{"sender_kind":"client","sender_id":10,"receiver_kind":"agent","receiver_id":5,"content":"`),
		strings.NewReader(strings.Repeat("a", maxBodyBytes+1)),
		strings.NewReader(`"}`),
	)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/messages", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	var errBody handlers.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
	assert.Equal(t, "request body too large", errBody.Error)

	var n int
	require.NoError(t, ts.store.DB().QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n))
	assert.Zero(t, n)
}

func TestHealthAndRoot(t *testing.T) {
	ts := newTestServer(t)

	var health handlers.HealthResponse
	require.Equal(t, http.StatusOK, ts.get(t, "/health", &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "pass", health.Checks["database"].Status)

	var root handlers.RootResponse
	require.Equal(t, http.StatusOK, ts.get(t, "/api", &root))
	assert.Equal(t, "5s", root.TypingWindow)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
