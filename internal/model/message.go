// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for users, conversations and messages.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/parley-tui/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE STATUS
// =============================================================================

// MessageStatus tracks a message through its exchange lifecycle.
type MessageStatus string

const (
	// StatusSending marks an optimistic user message awaiting backend ack.
	StatusSending MessageStatus = "sending"
	// StatusStreaming marks an assistant message currently receiving tokens.
	StatusStreaming MessageStatus = "streaming"
	// StatusComplete is terminal: the message content is final.
	StatusComplete MessageStatus = "complete"
	// StatusFailed is terminal but retryable: the exchange can be re-issued
	// in place without appending a duplicate.
	StatusFailed MessageStatus = "failed"
)

// IsTerminal reports whether the status is complete or failed.
func (s MessageStatus) IsTerminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
type Message struct {
	// Identity
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	CreatedAt      time.Time `json:"created_at"`

	// Content
	Content string `json:"content"`

	// Status machine state
	Status MessageStatus `json:"status"`

	// Streaming accumulation (not persisted)
	// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming
	streamContent strings.Builder
}

// NewUserMessage creates an optimistic user message in StatusSending.
func NewUserMessage(conversationID, content string) *Message {
	return &Message{
		ID:             newMessageID(),
		ConversationID: conversationID,
		Role:           RoleUser,
		Content:        content,
		Status:         StatusSending,
		CreatedAt:      time.Now(),
	}
}

// NewAssistantMessage creates an empty assistant placeholder in StatusStreaming.
func NewAssistantMessage(conversationID string) *Message {
	return &Message{
		ID:             newMessageID(),
		ConversationID: conversationID,
		Role:           RoleAssistant,
		Status:         StatusStreaming,
		CreatedAt:      time.Now(),
	}
}

// =============================================================================
// STATUS TRANSITIONS
// =============================================================================

// AppendToken appends a streamed fragment. No-op unless the message is
// streaming, so a late token can never mutate a terminal message.
func (m *Message) AppendToken(token string) bool {
	if m.Status != StatusStreaming {
		return false
	}
	m.streamContent.WriteString(token)
	return true
}

// Complete finalizes the message. For a streaming assistant message the
// accumulated fragments become the final content; for a sending user
// message the content is already final. No-op on terminal messages.
func (m *Message) Complete() bool {
	switch m.Status {
	case StatusStreaming:
		m.Content = m.streamContent.String()
		m.streamContent.Reset()
	case StatusSending:
		// content already set optimistically
	default:
		return false
	}
	m.Status = StatusComplete
	return true
}

// Fail transitions to StatusFailed, preserving whatever content has been
// accumulated so far: partial output has value to the user.
func (m *Message) Fail() bool {
	switch m.Status {
	case StatusStreaming:
		m.Content = m.streamContent.String()
		m.streamContent.Reset()
	case StatusSending:
	default:
		return false
	}
	m.Status = StatusFailed
	return true
}

// ResetForRetry arms a failed message for re-issuing the exchange in place.
// The identifier and conversation position are preserved; assistant
// messages drop their partial content and return to streaming, user
// messages return to sending. Only failed messages may be reset.
func (m *Message) ResetForRetry() bool {
	if m.Status != StatusFailed {
		return false
	}
	if m.Role == RoleAssistant {
		m.Content = ""
		m.streamContent.Reset()
		m.Status = StatusStreaming
	} else {
		m.Status = StatusSending
	}
	return true
}

// =============================================================================
// MESSAGE ACCESSORS
// =============================================================================

// DisplayContent returns the content to display (streamed-so-far or final).
// Clones carry their accumulated text in Content with no builder, so an
// empty builder defers to Content.
func (m *Message) DisplayContent() string {
	if m.Status == StatusStreaming && m.streamContent.Len() > 0 {
		return m.streamContent.String()
	}
	return m.Content
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	return util.TruncateRunes(m.DisplayContent(), maxLen)
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0 && m.streamContent.Len() == 0
}

// Clone returns a copy safe to hand to another goroutine. The streaming
// accumulator is flattened into Content so the copy carries no builder.
func (m *Message) Clone() *Message {
	return &Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Role:           m.Role,
		CreatedAt:      m.CreatedAt,
		Content:        m.DisplayContent(),
		Status:         m.Status,
	}
}

// =============================================================================
// STREAM TOKEN
// =============================================================================

// StreamToken is one incremental fragment of an assistant response. Tokens
// are transient: consumed immediately into the matching message, never kept.
type StreamToken struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	Text           string `json:"text"`
	Final          bool   `json:"final"`
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// newMessageID creates a provisional message ID.
func newMessageID() string {
	return "msg_" + uuid.NewString()
}
