package entities

import "time"

// ChatRole identifies the author of a conversation turn.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
	RoleSystem    ChatRole = "system"
)

// ChatMessage is a single conversation turn.
type ChatMessage struct {
	Role      ChatRole       `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// ConversationState is the bounded per-session message history.
type ConversationState struct {
	History     []ChatMessage `json:"history"`
	LastUpdated time.Time     `json:"lastUpdated"`
}
