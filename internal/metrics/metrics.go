package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messaging_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "messaging_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messaging_messages_sent_total",
			Help: "Total messages persisted",
		},
		[]string{"sender_kind"}, // "client" or "agent"
	)

	ConversationIndexFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messaging_conversation_index_failures_total",
			Help: "Conversation upserts that failed after the message was stored",
		},
	)

	MarkReadFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messaging_mark_read_failures_total",
			Help: "Read marks that failed after a thread was fetched",
		},
	)

	ConversationRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messaging_conversation_refreshes_total",
			Help: "Background conversation pointer repairs",
		},
		[]string{"result"}, // "ok" or "error"
	)

	MessagesRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messaging_messages_read_total",
			Help: "Total messages flipped to read",
		},
	)

	TypingUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messaging_typing_updates_total",
			Help: "Total typing signal writes",
		},
		[]string{"typing"},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messaging_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	BlockedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messaging_blocked_requests_total",
			Help: "Total blocked requests",
		},
		[]string{"reason"},
	)
)
