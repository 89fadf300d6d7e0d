package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "aria.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUsers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "alice@example.com", "", "email")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "email", u.AuthMethod)
	assert.True(t, u.IsActive)

	byEmail, err := s.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, u.ID, byEmail.ID)

	missing, err := s.GetUser(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Duplicate email is rejected by the unique index.
	_, err = s.CreateUser(ctx, "alice@example.com", "", "email")
	assert.Error(t, err)
}

func TestUpsertUserByEmail(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertUserByEmail(ctx, "bob@example.com")
	require.NoError(t, err)

	second, err := s.UpsertUserByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestUpdatePreferences(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "carol@example.com", "", "email")
	require.NoError(t, err)

	require.NoError(t, s.UpdatePreferences(ctx, u.ID, `{"language":"de"}`))

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, `{"language":"de"}`, got.Preferences)

	assert.Error(t, s.UpdatePreferences(ctx, "nope", "{}"))
}

func TestSessions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "dave@example.com", "", "email")
	require.NoError(t, err)

	id := uuid.New().String()
	sess, err := s.CreateSession(ctx, id, u.ID, `{"mode":"voice"}`)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.True(t, sess.IsActive)
	assert.Equal(t, `{"mode":"voice"}`, sess.Data)

	active, err := s.ActiveSessions(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)

	require.NoError(t, s.EndSession(ctx, id))

	ended, err := s.GetSession(ctx, id)
	require.NoError(t, err)
	assert.False(t, ended.IsActive)

	active, err = s.ActiveSessions(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestCommandHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "erin@example.com", "", "email")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := s.SaveCommand(ctx, &CommandRecord{
			UserID:     u.ID,
			Command:    fmt.Sprintf("command %d", i),
			Response:   "ok",
			Confidence: 0.9,
			ModelUsed:  "deepseek",
		})
		require.NoError(t, err)
	}

	records, err := s.RecentCommands(ctx, u.ID, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	// Newest first.
	assert.Equal(t, "command 4", records[0].Command)
	assert.Equal(t, "text", records[0].CommandType)
	assert.Equal(t, "deepseek", records[0].ModelUsed)

	_, err = s.SaveCommand(ctx, &CommandRecord{UserID: u.ID})
	assert.Error(t, err)
}

func TestPruneHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "frank@example.com", "", "email")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, err := s.SaveCommand(ctx, &CommandRecord{UserID: u.ID, Command: fmt.Sprintf("c%d", i)})
		require.NoError(t, err)
	}

	require.NoError(t, s.PruneHistory(ctx, u.ID, 4))

	records, err := s.RecentCommands(ctx, u.ID, 100)
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "c9", records[0].Command)
	assert.Equal(t, "c6", records[3].Command)
}
