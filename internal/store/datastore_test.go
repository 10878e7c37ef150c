package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/models"
)

var (
	client10 = models.ParticipantRef{Kind: models.KindClient, ID: 10}
	agent5   = models.ParticipantRef{Kind: models.KindAgent, ID: 5}
)

func insertMessage(t *testing.T, s MessageStore, from, to models.ParticipantRef, content string, at time.Time) *models.Message {
	t.Helper()
	msg := &models.Message{Sender: from, Receiver: to, Content: content, CreatedAt: at}
	require.NoError(t, s.InsertMessage(context.Background(), msg))
	return msg
}

// The test* cases below run against every DataStore implementation.

func testMessagesOrderedAndReadState(t *testing.T, s DataStore) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	m1 := insertMessage(t, s, client10, agent5, "Bonjour", base)
	m2 := insertMessage(t, s, agent5, client10, "Bonjour, comment puis-je aider ?", base.Add(time.Second))
	m3 := insertMessage(t, s, client10, agent5, "La villa est-elle disponible ?", base.Add(2*time.Second))

	msgs, err := s.ListMessagesBetween(ctx, agent5, client10)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []int64{m1.ID, m2.ID, m3.ID}, []int64{msgs[0].ID, msgs[1].ID, msgs[2].ID})
	assert.Equal(t, client10, msgs[0].Sender)
	assert.True(t, msgs[0].CreatedAt.Equal(base))

	unread, err := s.CountUnread(ctx, agent5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	n, err := s.MarkRead(ctx, agent5, client10, m3.ID, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.MarkRead(ctx, agent5, client10, m3.ID, base.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)

	unread, err = s.CountUnreadFrom(ctx, client10, agent5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	msgs, err = s.ListMessagesBetween(ctx, client10, agent5)
	require.NoError(t, err)
	require.NotNil(t, msgs[0].ReadAt)
	assert.True(t, msgs[0].ReadAt.Equal(base.Add(time.Minute)))
	assert.False(t, msgs[1].IsRead)
}

func testConversationPointerNeverMovesBack(t *testing.T, s DataStore) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	m1 := insertMessage(t, s, client10, agent5, "first", base)
	m2 := insertMessage(t, s, agent5, client10, "second", base.Add(time.Second))
	pair := models.NewPair(client10, agent5)

	require.NoError(t, s.UpsertConversation(ctx, pair, m2.ID, m2.CreatedAt))
	require.NoError(t, s.UpsertConversation(ctx, pair, m1.ID, m1.CreatedAt))

	conv, err := s.GetConversationByPair(ctx, models.NewPair(agent5, client10))
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Equal(t, m2.ID, conv.LastMessageID)
	assert.Equal(t, "second", conv.LastMessage)
	assert.Equal(t, agent5, conv.Pair.First)

	byID, err := s.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.Pair, byID.Pair)

	latest, err := s.LatestMessageBetween(ctx, client10, agent5)
	require.NoError(t, err)
	assert.Equal(t, m2.ID, latest.ID)

	missing, err := s.GetConversation(ctx, conv.ID+100)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testListConversationsNewestFirst(t *testing.T, s DataStore) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	agent7 := models.ParticipantRef{Kind: models.KindAgent, ID: 7}

	m1 := insertMessage(t, s, client10, agent5, "older", base)
	m2 := insertMessage(t, s, agent7, client10, "newer", base.Add(time.Hour))
	require.NoError(t, s.UpsertConversation(ctx, models.NewPair(client10, agent5), m1.ID, m1.CreatedAt))
	require.NoError(t, s.UpsertConversation(ctx, models.NewPair(client10, agent7), m2.ID, m2.CreatedAt))

	convs, err := s.ListConversations(ctx, client10)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "newer", convs[0].LastMessage)
	assert.Equal(t, "older", convs[1].LastMessage)

	convs, err = s.ListConversations(ctx, agent5)
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}

func testTypingUpsert(t *testing.T, s DataStore) {
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	sig, err := s.GetTyping(ctx, client10, agent5)
	require.NoError(t, err)
	assert.Nil(t, sig)

	require.NoError(t, s.SetTyping(ctx, models.TypingSignal{From: client10, To: agent5, IsTyping: true, UpdatedAt: at}))
	require.NoError(t, s.SetTyping(ctx, models.TypingSignal{From: client10, To: agent5, IsTyping: false, UpdatedAt: at.Add(time.Second)}))

	sig, err = s.GetTyping(ctx, client10, agent5)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.False(t, sig.IsTyping)
	assert.True(t, sig.UpdatedAt.Equal(at.Add(time.Second)))

	sig, err = s.GetTyping(ctx, agent5, client10)
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func testMarkReadStopsAtThroughID(t *testing.T, s DataStore) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	m1 := insertMessage(t, s, client10, agent5, "Bonjour", base)
	insertMessage(t, s, client10, agent5, "Vous êtes là ?", base.Add(time.Second))

	n, err := s.MarkRead(ctx, agent5, client10, m1.ID, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	unread, err := s.CountUnreadFrom(ctx, agent5, client10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}
