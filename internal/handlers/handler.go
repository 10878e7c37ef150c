package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/messaging"
)

// Pinger is a dependency the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	svc    *messaging.Service
	db     Pinger
	redis  Pinger
	logger zerolog.Logger
}

// NewHandler creates a new Handler. redis may be nil when the service runs
// without Redis.
func NewHandler(svc *messaging.Service, db, redis Pinger, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, db: db, redis: redis, logger: logger}
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
	Ref   string `json:"ref,omitempty"`
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, ErrorResponse{Error: message})
}

// fail maps a service error onto a response. Unexpected errors are logged
// under a fresh reference that is the only detail the caller gets back.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *messaging.ValidationError
	switch {
	case errors.As(err, &vErr):
		h.JSON(w, http.StatusBadRequest, ErrorResponse{Error: vErr.Error(), Code: "validation_failed", Field: vErr.Field})
	case errors.Is(err, messaging.ErrIdentityNotFound):
		h.JSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "identity_not_found"})
	case errors.Is(err, messaging.ErrConversationNotFound):
		h.JSON(w, http.StatusNotFound, ErrorResponse{Error: "conversation not found", Code: "conversation_not_found"})
	case errors.Is(err, errBodyTooLarge):
		h.Error(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		ref := uuid.NewString()
		h.logger.Error().
			Err(err).
			Str("ref", ref).
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		h.JSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error", Ref: ref})
	}
}

// errBodyTooLarge is returned by decodeJSON when the body limit was hit
// while streaming.
var errBodyTooLarge = errors.New("request body too large")

// decodeJSON reads a JSON body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return &messaging.ValidationError{Field: "body", Reason: "must be a valid JSON object"}
	}
	return nil
}

// flexRef accepts a participant reference given either as a JSON number
// or as a string (numeric id, email or auth uid).
type flexRef string

func (f *flexRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexRef(n.String())
	return nil
}

// queryIdentity parses <prefix>_kind and <prefix>_id from the query string.
func queryIdentity(r *http.Request, prefix string) (messaging.Identity, error) {
	q := r.URL.Query()
	return messaging.ParseIdentity(prefix, q.Get(prefix+"_kind"), q.Get(prefix+"_id"))
}

// hasQueryIdentity reports whether either half of an identity was supplied.
func hasQueryIdentity(r *http.Request, prefix string) bool {
	q := r.URL.Query()
	return q.Get(prefix+"_kind") != "" || q.Get(prefix+"_id") != ""
}

func parsePositiveInt(raw, field string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, &messaging.ValidationError{Field: field, Reason: "must be a positive integer"}
	}
	return n, nil
}
