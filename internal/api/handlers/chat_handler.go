package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/moviegrounds/backend/internal/infrastructure/observability"
	apperrors "github.com/moviegrounds/backend/pkg/errors"
)

// ChatService defines the chat operations used by the handler.
type ChatService interface {
	HandleTurn(ctx context.Context, sessionID, userText string) (string, error)
	Reset(sessionID string)
}

// ChatHandler handles conversation requests.
type ChatHandler struct {
	service ChatService
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(service ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

type chatMessagePayload struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
	Status  string `json:"status"`
}

type chatResponse struct {
	Message        chatMessagePayload `json:"message"`
	ConversationID string             `json:"conversationId"`
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	conversationID := payload.ConversationID
	if conversationID == "" {
		conversationID = "conv-" + uuid.NewString()
	}

	reply, err := h.service.HandleTurn(r.Context(), conversationID, payload.Message)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			respondWithError(w, http.StatusBadRequest, "message is required")
			return
		}
		// Detail stays in the log; the caller gets a generic error.
		observability.LoggerFromContext(r.Context()).Error().Err(err).Str("conversation", conversationID).Msg("chat turn failed")
		respondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondWithJSON(w, http.StatusOK, chatResponse{
		Message: chatMessagePayload{
			ID:      uuid.NewString(),
			Role:    "assistant",
			Content: reply,
			Status:  "complete",
		},
		ConversationID: conversationID,
	})
}

// ResetConversation handles POST /api/chat/reset
func (h *ChatHandler) ResetConversation(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if payload.ConversationID == "" {
		respondWithError(w, http.StatusBadRequest, "conversationId is required")
		return
	}

	h.service.Reset(payload.ConversationID)
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
