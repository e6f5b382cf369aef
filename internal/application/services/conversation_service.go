package services

import (
	"sync"
	"time"

	"github.com/moviegrounds/backend/internal/domain/entities"
)

const (
	// MaxHistory bounds per-session history; oldest entries are evicted first.
	MaxHistory = 30

	// DefaultContextLimit is how many recent messages feed the LLM context.
	DefaultContextLimit = 12
)

type session struct {
	mu    sync.Mutex
	state entities.ConversationState
}

// ConversationService is a keyed store of per-session conversation state.
// Access to a session is serialized by its own mutex, so two in-flight
// requests for one session cannot interleave history writes.
type ConversationService struct {
	mu       sync.Mutex
	sessions map[string]*session
}

// NewConversationService creates an empty conversation store.
func NewConversationService() *ConversationService {
	return &ConversationService{sessions: make(map[string]*session)}
}

func (s *ConversationService) get(sessionID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{state: entities.ConversationState{LastUpdated: time.Now()}}
		s.sessions[sessionID] = sess
	}
	return sess
}

// Ensure creates the session's state if it does not exist yet.
func (s *ConversationService) Ensure(sessionID string) {
	s.get(sessionID)
}

// Append adds a message to the session's history, assigning the server
// timestamp when absent, and truncates to the most recent MaxHistory
// entries. It returns a snapshot of the resulting state.
func (s *ConversationService) Append(sessionID string, msg entities.ChatMessage) entities.ConversationState {
	sess := s.get(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	sess.state.History = append(sess.state.History, msg)
	if len(sess.state.History) > MaxHistory {
		trimmed := make([]entities.ChatMessage, MaxHistory)
		copy(trimmed, sess.state.History[len(sess.state.History)-MaxHistory:])
		sess.state.History = trimmed
	}
	sess.state.LastUpdated = time.Now()

	return snapshot(&sess.state)
}

// Recent returns the last limit messages without mutating state. A
// non-positive limit falls back to DefaultContextLimit.
func (s *ConversationService) Recent(sessionID string, limit int) []entities.ChatMessage {
	if limit <= 0 {
		limit = DefaultContextLimit
	}

	sess := s.get(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	history := sess.state.History
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	out := make([]entities.ChatMessage, len(history))
	copy(out, history)
	return out
}

// Reset returns the session to an empty conversation.
func (s *ConversationService) Reset(sessionID string) {
	sess := s.get(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.state = entities.ConversationState{LastUpdated: time.Now()}
}

func snapshot(state *entities.ConversationState) entities.ConversationState {
	history := make([]entities.ChatMessage, len(state.History))
	copy(history, state.History)
	return entities.ConversationState{History: history, LastUpdated: state.LastUpdated}
}
