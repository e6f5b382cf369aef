package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/moviegrounds/backend/internal/domain/entities"
	"github.com/moviegrounds/backend/internal/domain/providers"
	"github.com/moviegrounds/backend/internal/infrastructure/observability"
	apperrors "github.com/moviegrounds/backend/pkg/errors"
)

const (
	chatSystemPrompt = "You are a helpful movie database assistant. When database rows or " +
		"context documents are provided with a question, ground your answer strictly in " +
		"that data and cite the figures it contains. When no data is provided, answer " +
		"from the conversation and avoid speculating about specific numbers."

	sqlSystemPrompt = "You write a single read-only SQLite SELECT statement answering the " +
		"user's question against the schema below. Use only the listed tables and columns. " +
		"Never write INSERT, UPDATE, DELETE or DDL."

	sqlSchemaDescription = `{ "sql": "a single SELECT statement" }`

	// maxGroundingChars caps the serialized rows included in the prompt.
	maxGroundingChars = 4000

	groundingTopK = 5
)

// ContextRetriever answers top-k similarity lookups over the corpus.
type ContextRetriever interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
	SchemaDocument() string
}

// SQLExecutor runs a read-only SELECT and returns row maps.
type SQLExecutor interface {
	RunReadOnlySelect(ctx context.Context, query string) ([]map[string]any, error)
}

// groundingResult is the outcome of a successful grounding attempt: the
// generated SQL and the rows it produced. Making it an explicit value keeps
// the swallow-versus-propagate boundary visible in HandleTurn.
type groundingResult struct {
	Query string
	Rows  []map[string]any
}

// ChatService orchestrates a grounded conversation turn: history, retrieval,
// SQL synthesis and the final completion.
type ChatService struct {
	conversations *ConversationService
	llm           providers.LLMProvider
	retriever     ContextRetriever // nil disables grounding
	db            SQLExecutor
}

// NewChatService creates a new chat service. retriever and db may be nil,
// in which case turns are answered without grounding.
func NewChatService(
	conversations *ConversationService,
	llm providers.LLMProvider,
	retriever ContextRetriever,
	db SQLExecutor,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		llm:           llm,
		retriever:     retriever,
		db:            db,
	}
}

// HandleTurn processes one user message and returns the assistant reply.
// Grounding failures are contained; failures of the mandatory steps surface
// as internal errors.
func (s *ChatService) HandleTurn(ctx context.Context, sessionID, userText string) (string, error) {
	trimmed := strings.TrimSpace(userText)
	if trimmed == "" {
		return "", apperrors.NewValidationError("message is required")
	}

	s.conversations.Append(sessionID, entities.ChatMessage{
		Role:    entities.RoleUser,
		Content: trimmed,
	})
	history := s.conversations.Recent(sessionID, DefaultContextLimit)

	var grounding *groundingResult
	if s.retriever != nil && s.db != nil {
		g, err := s.ground(ctx, trimmed)
		if err != nil {
			observability.GetLogger().Warn().Err(err).
				Str("session", sessionID).
				Msg("grounding failed, answering without database context")
		} else {
			grounding = g
		}
	}

	messages := make([]providers.LLMMessage, len(history))
	for i, msg := range history {
		messages[i] = providers.LLMMessage{Role: string(msg.Role), Content: msg.Content}
	}
	// The last history entry is the turn just appended; swap in the
	// grounded version when rows were obtained.
	if grounding != nil && len(grounding.Rows) > 0 {
		messages[len(messages)-1].Content = buildGroundedTurn(trimmed, grounding)
	}

	reply, err := s.llm.Chat(ctx, messages, providers.ChatOptions{
		Temperature:  providers.Temp(0.3),
		MaxTokens:    400,
		SystemPrompt: chatSystemPrompt,
	})
	if err != nil {
		return "", apperrors.NewInternalError("chat completion failed", err)
	}

	s.conversations.Append(sessionID, entities.ChatMessage{
		Role:    entities.RoleAssistant,
		Content: reply,
	})
	return reply, nil
}

// Reset clears the session's conversation history.
func (s *ChatService) Reset(sessionID string) {
	s.conversations.Reset(sessionID)
}

// ground retrieves similar documents, asks the model for a SELECT statement
// and executes it. Any error aborts the whole attempt; the caller decides
// what to do with it.
func (s *ChatService) ground(ctx context.Context, question string) (*groundingResult, error) {
	docs, err := s.retriever.Search(ctx, question, groundingTopK)
	if err != nil {
		return nil, fmt.Errorf("context retrieval: %w", err)
	}

	var prompt strings.Builder
	prompt.WriteString("Schema:\n")
	prompt.WriteString(s.retriever.SchemaDocument())
	if len(docs) > 0 {
		prompt.WriteString("\n\nContext documents:\n")
		prompt.WriteString(strings.Join(docs, "\n---\n"))
	}
	prompt.WriteString("\n\nQuestion: ")
	prompt.WriteString(question)

	var payload struct {
		SQL string `json:"sql"`
	}
	err = s.llm.ChatJSON(ctx, []providers.LLMMessage{{Role: "user", Content: prompt.String()}}, providers.JSONOptions{
		ChatOptions: providers.ChatOptions{
			SystemPrompt: sqlSystemPrompt,
		},
		SchemaDescription: sqlSchemaDescription,
	}, &payload)
	if err != nil {
		return nil, fmt.Errorf("sql synthesis: %w", err)
	}

	sqlText := strings.TrimSpace(payload.SQL)
	if sqlText == "" {
		return nil, apperrors.NewDataError("model returned an empty sql statement", nil)
	}

	rows, err := s.db.RunReadOnlySelect(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("sql execution: %w", err)
	}
	return &groundingResult{Query: sqlText, Rows: rows}, nil
}

// buildGroundedTurn prepends the original question and the serialized rows,
// annotated with the SQL that produced them.
func buildGroundedTurn(question string, grounding *groundingResult) string {
	serialized, err := json.Marshal(grounding.Rows)
	if err != nil {
		return question
	}
	rowsText := string(serialized)
	if len(rowsText) > maxGroundingChars {
		// Back up to a rune boundary so the cut never splits a multi-byte
		// character in serialized text columns.
		cut := maxGroundingChars
		for cut > 0 && !utf8.RuneStart(rowsText[cut]) {
			cut--
		}
		rowsText = rowsText[:cut] + " …(truncated)"
	}

	return fmt.Sprintf(
		"Question: %s\n\nRows returned by the SQL query `%s`:\n%s\n\nGround your answer in these rows.",
		question, grounding.Query, rowsText,
	)
}
