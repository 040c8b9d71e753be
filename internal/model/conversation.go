// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for users, conversations and messages.
package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CONVERSATION STATUS
// =============================================================================

// ConversationStatus tracks a conversation through backend confirmation.
type ConversationStatus string

const (
	// ConversationPending is an optimistic conversation awaiting backend
	// confirmation, still keyed by its provisional identifier.
	ConversationPending ConversationStatus = "pending"
	// ConversationActive is backend-confirmed.
	ConversationActive ConversationStatus = "active"
	// ConversationError means creation failed. The entry stays visible so the
	// user sees a failed item rather than a silent disappearance.
	ConversationError ConversationStatus = "error"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a chat thread with history and metadata.
type Conversation struct {
	// Identity. Provisional (conv_<uuid>) until the backend confirms,
	// then replaced with the server-assigned identifier.
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Messages in strict chronological insertion order.
	Messages []*Message `json:"messages"`

	// Status machine state
	Status ConversationStatus `json:"status"`
}

// NewConversation creates a pending conversation under a provisional ID.
func NewConversation(title string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        NewProvisionalID(),
		Title:     title,
		Status:    ConversationPending,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]*Message, 0),
	}
}

// NewProvisionalID creates a client-local conversation identifier.
func NewProvisionalID() string {
	return "conv_" + uuid.NewString()
}

// IsProvisionalID reports whether id was generated client-side.
func IsProvisionalID(id string) bool {
	return len(id) > 5 && id[:5] == "conv_"
}

// =============================================================================
// STATUS TRANSITIONS
// =============================================================================

// Activate marks the conversation backend-confirmed under serverID.
// Only a pending conversation can activate.
func (c *Conversation) Activate(serverID string) bool {
	if c.Status != ConversationPending {
		return false
	}
	if serverID != "" {
		c.ID = serverID
	}
	c.Status = ConversationActive
	c.UpdatedAt = time.Now()
	return true
}

// FailCreation marks a pending conversation as failed. The provisional
// entry remains in the repository.
func (c *Conversation) FailCreation() bool {
	if c.Status != ConversationPending {
		return false
	}
	c.Status = ConversationError
	c.UpdatedAt = time.Now()
	return true
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage appends a message, preserving insertion order.
func (c *Conversation) AddMessage(msg *Message) {
	msg.ConversationID = c.ID
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
}

// Touch bumps the updated timestamp, moving the conversation to the
// front of any recency-ordered listing.
func (c *Conversation) Touch() {
	c.UpdatedAt = time.Now()
}

// MessageByID returns a message by its ID, or nil.
func (c *Conversation) MessageByID(id string) *Message {
	for _, msg := range c.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// LastMessage returns the most recent message, or nil if empty.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// InFlight reports whether any message is in a non-terminal status.
// At most one exchange (user message plus assistant response) may be
// in flight per conversation, so this gates SendMessage.
func (c *Conversation) InFlight() bool {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if !c.Messages[i].Status.IsTerminal() {
			return true
		}
	}
	return false
}

// FailedExchange returns the user/assistant pair containing the message
// with msgID if that pair is retryable (both members terminal, at least
// one failed). Either member's ID selects the pair. Returns nils when the
// message is unknown or the pair is not retryable.
func (c *Conversation) FailedExchange(msgID string) (userMsg, assistantMsg *Message) {
	for i, msg := range c.Messages {
		if msg.ID != msgID {
			continue
		}
		var u, a *Message
		switch msg.Role {
		case RoleUser:
			u = msg
			if i+1 < len(c.Messages) && c.Messages[i+1].Role == RoleAssistant {
				a = c.Messages[i+1]
			}
		case RoleAssistant:
			a = msg
			if i > 0 && c.Messages[i-1].Role == RoleUser {
				u = c.Messages[i-1]
			}
		}
		if u == nil || a == nil {
			return nil, nil
		}
		if u.Status == StatusFailed || a.Status == StatusFailed {
			return u, a
		}
		return nil, nil
	}
	return nil, nil
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// =============================================================================
// DISPLAY HELPERS
// =============================================================================

// DisplayTitle returns the conversation title or a default.
func (c *Conversation) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "New Conversation"
}

// Preview returns a short preview of the conversation for list display.
func (c *Conversation) Preview() string {
	if len(c.Messages) == 0 {
		return "Empty conversation"
	}
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleUser {
			return c.Messages[i].Preview(100)
		}
	}
	return c.Messages[0].Preview(100)
}

// Clone creates a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	clone := &Conversation{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Status:    c.Status,
		Messages:  make([]*Message, len(c.Messages)),
	}
	for i, msg := range c.Messages {
		clone.Messages[i] = msg.Clone()
	}
	return clone
}
