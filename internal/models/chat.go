package models

import (
	"strings"
	"time"
)

// Conversation roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Part is one text fragment of a conversation entry.
type Part struct {
	Text string `json:"text"`
}

// ConversationEntry is a single role-tagged turn in a session's history.
type ConversationEntry struct {
	Role  string `json:"role"` // "user" or "model"
	Parts []Part `json:"parts"`
}

// NewEntry builds a single-part entry.
func NewEntry(role, text string) ConversationEntry {
	return ConversationEntry{Role: role, Parts: []Part{{Text: text}}}
}

// Text joins the entry's parts.
func (e ConversationEntry) Text() string {
	if len(e.Parts) == 1 {
		return e.Parts[0].Text
	}
	var b strings.Builder
	for _, p := range e.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Message string `json:"message"`
	Persona string `json:"persona,omitempty"`
}

// ChatResponse is the reply from the AI chat.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// FunFactResponse is returned by the fun-fact endpoint on success and failure.
type FunFactResponse struct {
	Fact string `json:"fact"`
}

// MessageResponse is a plain confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// SessionResponse is returned when a new session is issued.
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ErrorResponse is the flat error body used by every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}
