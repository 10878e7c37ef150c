// Package inbox provides a client for the Sunshine Properties messaging API.
package inbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Participant identifies a caller or counterpart. ID may be a numeric id,
// an email or an auth uid; Kind is "client", "agent" or "admin".
type Participant struct {
	Kind string
	ID   string
}

// Client is a messaging API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string `json:"error"`
	Code    string `json:"code"`
	Field   string `json:"field"`
	Ref     string `json:"ref"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("messaging error %d: %s", e.Status, e.Message)
	if e.Ref != "" {
		msg += " (ref " + e.Ref + ")"
	}
	return msg
}

// doRequest performs an HTTP request and decodes a JSON response into out.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		json.Unmarshal(respBody, apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

func participantQuery(q url.Values, prefix string, p Participant) url.Values {
	if q == nil {
		q = url.Values{}
	}
	q.Set(prefix+"_kind", p.Kind)
	q.Set(prefix+"_id", p.ID)
	return q
}

// Ref is a resolved participant as returned by the server.
type Ref struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
}

// Message is one entry in a thread.
type Message struct {
	ID            int64      `json:"id"`
	Sender        Ref        `json:"sender"`
	Receiver      Ref        `json:"receiver"`
	Content       string     `json:"content"`
	Subject       *string    `json:"subject,omitempty"`
	PropertyID    *int64     `json:"property_id,omitempty"`
	AppointmentID *int64     `json:"appointment_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	IsRead        bool       `json:"is_read"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
	SenderName    string     `json:"sender_name,omitempty"`
}

// SendRequest is the request body for sending a message.
type SendRequest struct {
	SenderKind    string  `json:"sender_kind"`
	SenderID      string  `json:"sender_id"`
	ReceiverKind  string  `json:"receiver_kind"`
	ReceiverID    string  `json:"receiver_id"`
	Content       string  `json:"content"`
	Subject       *string `json:"subject,omitempty"`
	PropertyID    *int64  `json:"property_id,omitempty"`
	AppointmentID *int64  `json:"appointment_id,omitempty"`
}

// NewSendRequest builds a request from two participants.
func NewSendRequest(from, to Participant, content string) SendRequest {
	return SendRequest{
		SenderKind:   from.Kind,
		SenderID:     from.ID,
		ReceiverKind: to.Kind,
		ReceiverID:   to.ID,
		Content:      content,
	}
}

// SendMessage sends a message and returns it as stored.
func (c *Client) SendMessage(ctx context.Context, req SendRequest) (*Message, error) {
	var msg Message
	if err := c.doRequest(ctx, http.MethodPost, "/messages", nil, req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Contact is the other side of a conversation.
type Contact struct {
	Ref   Ref    `json:"ref"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Conversation is one inbox row.
type Conversation struct {
	ID               int64     `json:"id"`
	LastMessageID    int64     `json:"last_message_id"`
	LastMessageAt    time.Time `json:"last_message_at"`
	CreatedAt        time.Time `json:"created_at"`
	LastMessage      string    `json:"last_message,omitempty"`
	OtherParticipant Contact   `json:"other_participant"`
	UnreadCount      int64     `json:"unread_count"`
}

// ListConversations returns the inbox of me, most recent first.
func (c *Client) ListConversations(ctx context.Context, me Participant) ([]Conversation, error) {
	var resp struct {
		Conversations []Conversation `json:"conversations"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/conversations", participantQuery(nil, "user", me), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// ListThread returns the messages between me and other, oldest first,
// marking other's messages as read.
func (c *Client) ListThread(ctx context.Context, me, other Participant) ([]Message, error) {
	q := participantQuery(participantQuery(nil, "user", me), "other", other)
	return c.listMessages(ctx, q)
}

// ListConversationMessages returns a thread by conversation id. With a nil
// caller nothing is marked read.
func (c *Client) ListConversationMessages(ctx context.Context, conversationID int64, me *Participant) ([]Message, error) {
	q := url.Values{}
	q.Set("conversation_id", strconv.FormatInt(conversationID, 10))
	if me != nil {
		q = participantQuery(q, "user", *me)
	}
	return c.listMessages(ctx, q)
}

func (c *Client) listMessages(ctx context.Context, q url.Values) ([]Message, error) {
	var resp struct {
		Messages []Message `json:"messages"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/messages", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// UnreadCount returns the unread badge of me.
func (c *Client) UnreadCount(ctx context.Context, me Participant) (int64, error) {
	var resp struct {
		UnreadCount int64 `json:"unread_count"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/messages/unread", participantQuery(nil, "user", me), nil, &resp); err != nil {
		return 0, err
	}
	return resp.UnreadCount, nil
}

type typingBody struct {
	UserKind  string `json:"user_kind"`
	UserID    string `json:"user_id"`
	OtherKind string `json:"other_kind"`
	OtherID   string `json:"other_id"`
	IsTyping  bool   `json:"is_typing"`
}

type typingResponse struct {
	IsTyping bool `json:"is_typing"`
}

// IsTyping reports whether other is typing to me.
func (c *Client) IsTyping(ctx context.Context, me, other Participant) (bool, error) {
	var resp typingResponse
	q := participantQuery(participantQuery(nil, "user", me), "other", other)
	if err := c.doRequest(ctx, http.MethodGet, "/typing", q, nil, &resp); err != nil {
		return false, err
	}
	return resp.IsTyping, nil
}

// SetTyping tells the server whether me is typing to other.
func (c *Client) SetTyping(ctx context.Context, me, other Participant, typing bool) error {
	body := typingBody{
		UserKind:  me.Kind,
		UserID:    me.ID,
		OtherKind: other.Kind,
		OtherID:   other.ID,
		IsTyping:  typing,
	}
	return c.doRequest(ctx, http.MethodPost, "/typing", nil, body, nil)
}

// HealthResponse is the response from health check.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Checks  map[string]struct {
		Status  string `json:"status"`
		Latency string `json:"latency,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"checks"`
	Timestamp string `json:"timestamp"`
}

// Health checks server health. A degraded server answers 503, which is
// reported as an *APIError.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/health", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
