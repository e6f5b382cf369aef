package services_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviegrounds/backend/internal/application/services"
	"github.com/moviegrounds/backend/internal/domain/entities"
)

func TestConversationService_AppendTruncatesToMaxHistory(t *testing.T) {
	svc := services.NewConversationService()

	for i := 0; i < 35; i++ {
		svc.Append("session-1", entities.ChatMessage{
			Role:    entities.RoleUser,
			Content: fmt.Sprintf("message %d", i),
		})
	}

	history := svc.Recent("session-1", services.MaxHistory)
	require.Len(t, history, services.MaxHistory)
	// Oldest entries evicted first; relative order preserved.
	assert.Equal(t, "message 5", history[0].Content)
	assert.Equal(t, "message 34", history[len(history)-1].Content)
}

func TestConversationService_RecentDefaultLimit(t *testing.T) {
	svc := services.NewConversationService()
	for i := 0; i < 20; i++ {
		svc.Append("session-1", entities.ChatMessage{Role: entities.RoleUser, Content: fmt.Sprintf("m%d", i)})
	}

	recent := svc.Recent("session-1", 0)
	require.Len(t, recent, services.DefaultContextLimit)
	assert.Equal(t, "m8", recent[0].Content)
	assert.Equal(t, "m19", recent[len(recent)-1].Content)
}

func TestConversationService_EnsureCreatesEmptySession(t *testing.T) {
	svc := services.NewConversationService()

	svc.Ensure("session-1")
	assert.Empty(t, svc.Recent("session-1", 0))

	// Ensure on an existing session leaves its history alone.
	svc.Append("session-1", entities.ChatMessage{Role: entities.RoleUser, Content: "hi"})
	svc.Ensure("session-1")
	assert.Len(t, svc.Recent("session-1", 0), 1)
}

func TestConversationService_AppendAssignsServerTimestamp(t *testing.T) {
	svc := services.NewConversationService()

	before := time.Now()
	state := svc.Append("session-1", entities.ChatMessage{Role: entities.RoleUser, Content: "hi"})
	require.Len(t, state.History, 1)
	assert.False(t, state.History[0].Timestamp.Before(before))

	// A caller-provided timestamp is kept.
	explicit := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	state = svc.Append("session-1", entities.ChatMessage{Role: entities.RoleUser, Content: "again", Timestamp: explicit})
	assert.Equal(t, explicit, state.History[1].Timestamp)
}

func TestConversationService_ResetClearsHistory(t *testing.T) {
	svc := services.NewConversationService()
	svc.Append("session-1", entities.ChatMessage{Role: entities.RoleUser, Content: "hi"})
	svc.Append("session-2", entities.ChatMessage{Role: entities.RoleUser, Content: "other"})

	svc.Reset("session-1")

	assert.Empty(t, svc.Recent("session-1", 0))
	// Sessions are isolated.
	assert.Len(t, svc.Recent("session-2", 0), 1)
}

func TestConversationService_RecentDoesNotMutate(t *testing.T) {
	svc := services.NewConversationService()
	svc.Append("session-1", entities.ChatMessage{Role: entities.RoleUser, Content: "hi"})

	recent := svc.Recent("session-1", 0)
	recent[0].Content = "mutated"

	assert.Equal(t, "hi", svc.Recent("session-1", 0)[0].Content)
}
