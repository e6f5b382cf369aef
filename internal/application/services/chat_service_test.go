package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviegrounds/backend/internal/application/services"
	"github.com/moviegrounds/backend/internal/domain/entities"
	"github.com/moviegrounds/backend/internal/domain/providers"
	apperrors "github.com/moviegrounds/backend/pkg/errors"
)

func sqlReply(sql string) func(ctx context.Context, messages []providers.LLMMessage, opts providers.JSONOptions, out any) error {
	return func(ctx context.Context, messages []providers.LLMMessage, opts providers.JSONOptions, out any) error {
		return json.Unmarshal([]byte(fmt.Sprintf(`{"sql": %q}`, sql)), out)
	}
}

func TestChatService_AnswersWithoutRetriever(t *testing.T) {
	llm := &fakeLLM{
		chatFn: func(ctx context.Context, messages []providers.LLMMessage, opts providers.ChatOptions) (string, error) {
			return "hello there", nil
		},
	}
	conversations := services.NewConversationService()
	chat := services.NewChatService(conversations, llm, nil, nil)

	reply, err := chat.HandleTurn(context.Background(), "s1", "  hi  ")
	require.NoError(t, err)
	assert.Equal(t, "hello there", reply)

	require.NotNil(t, llm.lastOpts.Temperature)
	assert.InDelta(t, 0.3, *llm.lastOpts.Temperature, 1e-9)
	assert.Equal(t, 400, llm.lastOpts.MaxTokens)
	assert.NotEmpty(t, llm.lastOpts.SystemPrompt)

	history := conversations.Recent("s1", services.MaxHistory)
	require.Len(t, history, 2)
	assert.Equal(t, entities.RoleUser, history[0].Role)
	assert.Equal(t, "hi", history[0].Content)
	assert.Equal(t, entities.RoleAssistant, history[1].Role)
	assert.Equal(t, "hello there", history[1].Content)
}

func TestChatService_BlankMessageIsRejectedBeforeAnyWork(t *testing.T) {
	llm := &fakeLLM{}
	retriever := &fakeRetriever{}
	db := &fakeSQLExecutor{}
	conversations := services.NewConversationService()
	chat := services.NewChatService(conversations, llm, retriever, db)

	_, err := chat.HandleTurn(context.Background(), "s1", "   \t\n ")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	assert.Zero(t, llm.chatCalls)
	assert.Zero(t, llm.chatJSONCalls)
	assert.Zero(t, retriever.searchCalls)
	assert.Zero(t, db.calls)
	assert.Empty(t, conversations.Recent("s1", services.MaxHistory))
}

func TestChatService_GroundedTurnCarriesSQLAndRows(t *testing.T) {
	llm := &fakeLLM{
		chatJSONFn: sqlReply("SELECT title FROM movies LIMIT 1"),
		chatFn: func(ctx context.Context, messages []providers.LLMMessage, opts providers.ChatOptions) (string, error) {
			return "Alpha is the answer", nil
		},
	}
	retriever := &fakeRetriever{docs: []string{"Title: Alpha", "Title: Beta"}}
	db := &fakeSQLExecutor{rows: []map[string]any{{"title": "Alpha"}}}
	conversations := services.NewConversationService()
	chat := services.NewChatService(conversations, llm, retriever, db)

	reply, err := chat.HandleTurn(context.Background(), "s1", "what movies are there?")
	require.NoError(t, err)
	assert.Equal(t, "Alpha is the answer", reply)

	assert.Equal(t, 5, retriever.lastK)
	assert.Equal(t, "what movies are there?", retriever.lastQuery)
	assert.Equal(t, "SELECT title FROM movies LIMIT 1", db.lastQuery)

	require.NotEmpty(t, llm.lastMessages)
	last := llm.lastMessages[len(llm.lastMessages)-1]
	assert.Contains(t, last.Content, "Question: what movies are there?")
	assert.Contains(t, last.Content, "SELECT title FROM movies LIMIT 1")
	assert.Contains(t, last.Content, `[{"title":"Alpha"}]`)
	assert.Contains(t, last.Content, "Ground your answer in these rows.")

	// The stored history keeps the plain user text, not the grounded prompt.
	history := conversations.Recent("s1", services.MaxHistory)
	require.Len(t, history, 2)
	assert.Equal(t, "what movies are there?", history[0].Content)
}

func TestChatService_SQLExecutionFailureStillReplies(t *testing.T) {
	llm := &fakeLLM{
		chatJSONFn: sqlReply("SELECT nope FROM nowhere"),
		chatFn: func(ctx context.Context, messages []providers.LLMMessage, opts providers.ChatOptions) (string, error) {
			return "answering anyway", nil
		},
	}
	retriever := &fakeRetriever{docs: []string{"Title: Alpha"}}
	db := &fakeSQLExecutor{err: errors.New("no such table: nowhere")}
	chat := services.NewChatService(services.NewConversationService(), llm, retriever, db)

	reply, err := chat.HandleTurn(context.Background(), "s1", "broken question")
	require.NoError(t, err)
	assert.Equal(t, "answering anyway", reply)

	last := llm.lastMessages[len(llm.lastMessages)-1]
	assert.Equal(t, "broken question", last.Content)
}

func TestChatService_RetrievalFailureStillReplies(t *testing.T) {
	llm := &fakeLLM{
		chatFn: func(ctx context.Context, messages []providers.LLMMessage, opts providers.ChatOptions) (string, error) {
			return "plain reply", nil
		},
	}
	retriever := &fakeRetriever{searchErr: errors.New("index unavailable")}
	db := &fakeSQLExecutor{}
	chat := services.NewChatService(services.NewConversationService(), llm, retriever, db)

	reply, err := chat.HandleTurn(context.Background(), "s1", "a question")
	require.NoError(t, err)
	assert.Equal(t, "plain reply", reply)
	assert.Zero(t, llm.chatJSONCalls)
	assert.Zero(t, db.calls)
}

func TestChatService_EmptySQLFromModelSkipsExecution(t *testing.T) {
	llm := &fakeLLM{
		chatJSONFn: sqlReply("   "),
		chatFn: func(ctx context.Context, messages []providers.LLMMessage, opts providers.ChatOptions) (string, error) {
			return "ungrounded", nil
		},
	}
	retriever := &fakeRetriever{docs: []string{"Title: Alpha"}}
	db := &fakeSQLExecutor{}
	chat := services.NewChatService(services.NewConversationService(), llm, retriever, db)

	reply, err := chat.HandleTurn(context.Background(), "s1", "a question")
	require.NoError(t, err)
	assert.Equal(t, "ungrounded", reply)
	assert.Zero(t, db.calls)
}

func TestChatService_EmptyResultSetSkipsGroundedPrompt(t *testing.T) {
	llm := &fakeLLM{
		chatJSONFn: sqlReply("SELECT title FROM movies WHERE budget > 1e12"),
		chatFn: func(ctx context.Context, messages []providers.LLMMessage, opts providers.ChatOptions) (string, error) {
			return "no matches", nil
		},
	}
	retriever := &fakeRetriever{docs: []string{"Title: Alpha"}}
	db := &fakeSQLExecutor{rows: []map[string]any{}}
	chat := services.NewChatService(services.NewConversationService(), llm, retriever, db)

	_, err := chat.HandleTurn(context.Background(), "s1", "any trillion dollar movies?")
	require.NoError(t, err)

	last := llm.lastMessages[len(llm.lastMessages)-1]
	assert.Equal(t, "any trillion dollar movies?", last.Content)
}

func TestChatService_TruncatesOversizedRowPayload(t *testing.T) {
	rows := make([]map[string]any, 0, 100)
	for i := 0; i < 100; i++ {
		rows = append(rows, map[string]any{"overview": strings.Repeat("x", 200)})
	}
	llm := &fakeLLM{
		chatJSONFn: sqlReply("SELECT overview FROM movies"),
		chatFn: func(ctx context.Context, messages []providers.LLMMessage, opts providers.ChatOptions) (string, error) {
			return "summarized", nil
		},
	}
	retriever := &fakeRetriever{docs: []string{"Title: Alpha"}}
	db := &fakeSQLExecutor{rows: rows}
	chat := services.NewChatService(services.NewConversationService(), llm, retriever, db)

	_, err := chat.HandleTurn(context.Background(), "s1", "list every overview")
	require.NoError(t, err)

	last := llm.lastMessages[len(llm.lastMessages)-1]
	assert.Contains(t, last.Content, "…(truncated)")
	assert.Less(t, len(last.Content), 5000)
}

func TestChatService_TruncationNeverSplitsMultiByteRunes(t *testing.T) {
	// The serialized row stream is laid out so a two-byte rune straddles
	// the truncation boundary.
	rows := []map[string]any{{"overview": "a" + strings.Repeat("é", 2500)}}
	llm := &fakeLLM{
		chatJSONFn: sqlReply("SELECT overview FROM movies"),
		chatFn: func(ctx context.Context, messages []providers.LLMMessage, opts providers.ChatOptions) (string, error) {
			return "summarized", nil
		},
	}
	retriever := &fakeRetriever{docs: []string{"Title: Alpha"}}
	db := &fakeSQLExecutor{rows: rows}
	chat := services.NewChatService(services.NewConversationService(), llm, retriever, db)

	_, err := chat.HandleTurn(context.Background(), "s1", "list every overview")
	require.NoError(t, err)

	last := llm.lastMessages[len(llm.lastMessages)-1]
	assert.Contains(t, last.Content, "…(truncated)")
	assert.True(t, utf8.ValidString(last.Content))
}

func TestChatService_ChatFailureSurfacesAsInternalError(t *testing.T) {
	llm := &fakeLLM{
		chatFn: func(ctx context.Context, messages []providers.LLMMessage, opts providers.ChatOptions) (string, error) {
			return "", errors.New("connection refused")
		},
	}
	conversations := services.NewConversationService()
	chat := services.NewChatService(conversations, llm, nil, nil)

	_, err := chat.HandleTurn(context.Background(), "s1", "hello")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))

	// The user turn is recorded but no assistant turn follows.
	history := conversations.Recent("s1", services.MaxHistory)
	require.Len(t, history, 1)
	assert.Equal(t, entities.RoleUser, history[0].Role)
}

func TestChatService_ResetClearsHistory(t *testing.T) {
	llm := &fakeLLM{
		chatFn: func(ctx context.Context, messages []providers.LLMMessage, opts providers.ChatOptions) (string, error) {
			return "ok", nil
		},
	}
	conversations := services.NewConversationService()
	chat := services.NewChatService(conversations, llm, nil, nil)

	_, err := chat.HandleTurn(context.Background(), "s1", "first")
	require.NoError(t, err)
	require.NotEmpty(t, conversations.Recent("s1", services.MaxHistory))

	chat.Reset("s1")
	assert.Empty(t, conversations.Recent("s1", services.MaxHistory))
}
