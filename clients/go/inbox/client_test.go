package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	me    = Participant{Kind: "client", ID: "10"}
	agent = Participant{Kind: "agent", ID: "nadia@sunshine.ma"}
)

// fakeAPI serves canned responses and counts hits per path.
type fakeAPI struct {
	mu       sync.Mutex
	hits     map[string]int
	messages []Message
	typing   atomic.Bool
}

func newFakeAPI(t *testing.T) (*fakeAPI, *Client) {
	t.Helper()
	api := &fakeAPI{hits: make(map[string]int)}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return api, NewClient(srv.URL)
}

func (f *fakeAPI) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeAPI) addMessage(m Message) {
	f.mu.Lock()
	f.messages = append(f.messages, m)
	f.mu.Unlock()
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.URL.Path]++
	msgs := append([]Message(nil), f.messages...)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	q := r.URL.Query()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/conversations":
		json.NewEncoder(w).Encode(map[string]interface{}{
			"conversations": []Conversation{{ID: 1, LastMessage: "Bonjour", UnreadCount: 2}},
		})
	case r.Method == http.MethodGet && r.URL.Path == "/messages/unread":
		json.NewEncoder(w).Encode(map[string]int64{"unread_count": 2})
	case r.Method == http.MethodGet && r.URL.Path == "/messages":
		if q.Get("conversation_id") == "404" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"conversation not found","code":"conversation_not_found"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"messages": msgs})
	case r.Method == http.MethodPost && r.URL.Path == "/messages":
		var req SendRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Content == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"content is required","code":"validation_failed","field":"content"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Message{ID: 7, Content: req.Content, SenderName: "Yassine Benali"})
	case r.URL.Path == "/typing":
		if r.Method == http.MethodPost {
			var body typingBody
			json.NewDecoder(r.Body).Decode(&body)
			f.typing.Store(body.IsTyping)
		}
		json.NewEncoder(w).Encode(typingResponse{IsTyping: f.typing.Load()})
	default:
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal error","ref":"3f1c"}`))
	}
}

func TestClientCalls(t *testing.T) {
	api, c := newFakeAPI(t)
	ctx := context.Background()

	msg, err := c.SendMessage(ctx, NewSendRequest(me, agent, "Bonjour"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), msg.ID)
	assert.Equal(t, "Yassine Benali", msg.SenderName)

	convs, err := c.ListConversations(ctx, me)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, int64(2), convs[0].UnreadCount)

	n, err := c.UnreadCount(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, c.SetTyping(ctx, me, agent, true))
	typing, err := c.IsTyping(ctx, agent, me)
	require.NoError(t, err)
	assert.True(t, typing)

	assert.Equal(t, 2, api.count("/typing"))
}

func TestClientErrors(t *testing.T) {
	_, c := newFakeAPI(t)
	ctx := context.Background()

	_, err := c.SendMessage(ctx, NewSendRequest(me, agent, ""))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "validation_failed", apiErr.Code)
	assert.Equal(t, "content", apiErr.Field)

	_, err = c.ListConversationMessages(ctx, 404, nil)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "conversation_not_found", apiErr.Code)

	_, err = c.Health(ctx)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "3f1c", apiErr.Ref)
	assert.Contains(t, err.Error(), "ref 3f1c")
}

func TestWatcherPollsAndReportsChanges(t *testing.T) {
	api, c := newFakeAPI(t)
	api.addMessage(Message{ID: 1, Content: "Bonjour"})

	w := NewWatcher(c, me)
	w.Other = &agent
	w.InboxInterval = 20 * time.Millisecond
	w.ThreadInterval = 5 * time.Millisecond
	w.TypingInterval = 5 * time.Millisecond

	var (
		mu          sync.Mutex
		inboxCalls  int
		threadSizes []int
		typingSeen  []bool
	)
	w.OnInbox = func(convs []Conversation, unread int64) {
		mu.Lock()
		inboxCalls++
		mu.Unlock()
	}
	w.OnThread = func(msgs []Message) {
		mu.Lock()
		threadSizes = append(threadSizes, len(msgs))
		mu.Unlock()
	}
	w.OnTyping = func(typing bool) {
		mu.Lock()
		typingSeen = append(typingSeen, typing)
		mu.Unlock()
	}
	w.OnError = func(err error) { t.Errorf("unexpected error: %v", err) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return api.count("/messages") >= 3 }, time.Second, time.Millisecond)
	api.addMessage(Message{ID: 2, Content: "Encore moi"})
	api.typing.Store(true)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(threadSizes) == 2 && len(typingSeen) == 2
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool { return api.count("/conversations") >= 2 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2}, threadSizes, "unchanged polls are not reported")
	assert.Equal(t, []bool{false, true}, typingSeen)
	assert.GreaterOrEqual(t, inboxCalls, 2)
}

func TestWatcherWithoutThreadOnlyPollsInbox(t *testing.T) {
	api, c := newFakeAPI(t)
	w := NewWatcher(c, me)
	w.InboxInterval = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.Run(ctx), context.DeadlineExceeded)

	assert.Positive(t, api.count("/conversations"))
	assert.Zero(t, api.count("/messages"))
	assert.Zero(t, api.count("/typing"))
}
