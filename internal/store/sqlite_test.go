package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/models"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestSQLiteResolveParticipant(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.DB().Exec(`INSERT INTO agents (id, name, email, auth_uid, role) VALUES (5, 'Nadia Amrani', 'Nadia@Sunshine.ma', 'uid-agent-5', 'admin')`)
	require.NoError(t, err)

	id, err := s.ResolveParticipant(ctx, models.KindAgent, "nadia@sunshine.ma")
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)

	id, err = s.ResolveParticipant(ctx, models.KindAgent, "uid-agent-5")
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)

	id, err = s.ResolveParticipant(ctx, models.KindClient, "nadia@sunshine.ma")
	require.NoError(t, err)
	assert.Zero(t, id, "agents are not clients")

	p, err := s.GetParticipant(ctx, agent5)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Nadia Amrani", p.Name)
	assert.Equal(t, "admin", p.Role)

	p, err = s.GetParticipant(ctx, client10)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestSQLiteMessagesOrderedAndReadState(t *testing.T) {
	testMessagesOrderedAndReadState(t, newTestSQLite(t))
}

func TestSQLiteConversationPointerNeverMovesBack(t *testing.T) {
	testConversationPointerNeverMovesBack(t, newTestSQLite(t))
}

func TestSQLiteListConversationsNewestFirst(t *testing.T) {
	testListConversationsNewestFirst(t, newTestSQLite(t))
}

func TestSQLiteTypingUpsert(t *testing.T) {
	testTypingUpsert(t, newTestSQLite(t))
}

func TestSQLiteMarkReadStopsAtThroughID(t *testing.T) {
	testMarkReadStopsAtThroughID(t, newTestSQLite(t))
}
