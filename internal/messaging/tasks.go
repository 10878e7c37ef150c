package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/metrics"
	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/models"
	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/queue"
)

// RefreshConversationTask repairs a conversation pointer left stale by a
// failed upsert.
const RefreshConversationTask = "conversation:refresh"

// TaskQueue is the queue repair tasks are enqueued on; workers must consume it.
const TaskQueue = "conversations"

type refreshPayload struct {
	Pair models.Pair `json:"pair"`
}

func (s *Service) enqueueRefresh(ctx context.Context, pair models.Pair) {
	log := s.logger.With().
		Str("participant_one", pair.First.String()).
		Str("participant_two", pair.Second.String()).
		Logger()

	if s.queue == nil {
		log.Warn().Msg("no task queue configured, conversation index repairs on next send")
		return
	}

	payload, err := json.Marshal(refreshPayload{Pair: pair})
	if err != nil {
		log.Error().Err(err).Msg("encode refresh task")
		return
	}

	id, err := s.queue.Enqueue(ctx, queue.Task{Type: RefreshConversationTask, Payload: payload},
		queue.EnqueueOption{Queue: TaskQueue, MaxRetry: 5, UniqueTTL: time.Minute})
	if err != nil {
		log.Error().Err(err).Msg("enqueue conversation refresh")
		return
	}
	log.Info().Str("task_id", id).Msg("conversation refresh queued")
}

// RegisterTasks installs the background task handlers on srv.
func (s *Service) RegisterTasks(srv queue.Server) {
	srv.Register(RefreshConversationTask, s.handleRefresh)
}

func (s *Service) handleRefresh(ctx context.Context, t queue.Task) error {
	var p refreshPayload
	if err := json.Unmarshal(t.Payload, &p); err != nil {
		return fmt.Errorf("decode %s payload: %w", t.Type, err)
	}
	if p.Pair.First.ID <= 0 || p.Pair.Second.ID <= 0 {
		return fmt.Errorf("%s: incomplete pair in payload", t.Type)
	}

	if err := s.RefreshConversation(ctx, models.NewPair(p.Pair.First, p.Pair.Second)); err != nil {
		metrics.ConversationRefreshes.WithLabelValues("error").Inc()
		return err
	}
	metrics.ConversationRefreshes.WithLabelValues("ok").Inc()
	return nil
}
