// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeranaias/parley-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

// StoreError represents a repository-level error.
// Use errors.Is to compare against the sentinel values below.
type StoreError struct {
	Message string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing store errors.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// ErrConversationNotFound is returned when a conversation doesn't exist.
var ErrConversationNotFound = &StoreError{Message: "conversation not found"}

// ErrMessageNotFound is returned when a message doesn't exist.
var ErrMessageNotFound = &StoreError{Message: "message not found"}

// ErrIDConflict is returned when a re-key would collide with an existing ID.
var ErrIDConflict = &StoreError{Message: "conversation id already in use"}

// ErrInvalidTransition is returned when a status change is not legal
// from the conversation's current state.
var ErrInvalidTransition = &StoreError{Message: "invalid status transition"}

// =============================================================================
// SNAPSHOT TYPE
// =============================================================================

// Snapshot is an immutable copy of the repository state at one point in
// time. The conversations are deep copies ordered most recent first, so
// holders may read them freely on any goroutine.
type Snapshot struct {
	Conversations []*model.Conversation
}

// Conversation returns the snapshot's copy of a conversation, or nil.
func (s Snapshot) Conversation(id string) *model.Conversation {
	for _, conv := range s.Conversations {
		if conv.ID == id {
			return conv
		}
	}
	return nil
}

// Subscriber receives a snapshot after every repository mutation.
type Subscriber func(Snapshot)

// =============================================================================
// MESSAGE PATCH
// =============================================================================

// MessagePatch describes a partial update to a message. Nil fields are
// left untouched.
type MessagePatch struct {
	Content     *string
	AppendToken *string
	Status      *model.MessageStatus
}

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// ConversationStore is the observable in-memory conversation repository.
// All methods are safe for concurrent use.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*model.Conversation
	order         []string // conversation IDs, most recently updated first
	subscribers   map[string]Subscriber
	logger        *zap.Logger
}

// NewConversationStore creates an empty repository.
func NewConversationStore(logger *zap.Logger) *ConversationStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationStore{
		conversations: make(map[string]*model.Conversation),
		subscribers:   make(map[string]Subscriber),
		logger:        logger,
	}
}

// =============================================================================
// SUBSCRIPTION
// =============================================================================

// Subscribe registers a snapshot listener and returns a token for
// Unsubscribe. The listener is called synchronously after each mutation,
// outside the store lock, with a deep-copied snapshot.
func (s *ConversationStore) Subscribe(fn Subscriber) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := uuid.NewString()
	s.subscribers[token] = fn
	return token
}

// Unsubscribe removes a listener. Unknown tokens are ignored.
func (s *ConversationStore) Unsubscribe(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribers, token)
}

// notifyLocked snapshots state and subscriber list under the lock, then
// releases it before invoking listeners. Callers must hold s.mu and must
// not touch the store after calling this.
func (s *ConversationStore) notifyLocked() {
	snap := s.snapshotLocked()
	subs := make([]Subscriber, 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}

	s.mu.Lock()
}

// snapshotLocked builds a deep-copied snapshot. Caller must hold s.mu.
func (s *ConversationStore) snapshotLocked() Snapshot {
	convs := make([]*model.Conversation, 0, len(s.order))
	for _, id := range s.order {
		if conv, ok := s.conversations[id]; ok {
			convs = append(convs, conv.Clone())
		}
	}
	return Snapshot{Conversations: convs}
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Upsert inserts a conversation or replaces an existing one with the
// same ID, then moves it to the front of the recency order.
func (s *ConversationStore) Upsert(conv *model.Conversation) {
	if conv == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conversations[conv.ID]; !exists {
		s.order = append(s.order, conv.ID)
	}
	s.conversations[conv.ID] = conv
	s.promoteLocked(conv.ID)

	s.notifyLocked()
}

// AppendMessage adds a message to a conversation's transcript. Appending
// to an unknown conversation is a no-op so a race between removal and a
// late-arriving stream event cannot corrupt state.
func (s *ConversationStore) AppendMessage(conversationID string, msg *model.Message) {
	if msg == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		s.logger.Debug("append to unknown conversation dropped",
			zap.String("conversation_id", conversationID),
			zap.String("message_id", msg.ID))
		return
	}

	conv.AddMessage(msg)
	s.promoteLocked(conversationID)

	s.notifyLocked()
}

// PatchMessage applies a partial update to a message. Patches aimed at
// unknown conversations or messages are dropped silently, for the same
// late-stream-event reason as AppendMessage. Status changes go through
// the message's own transition rules, so an illegal transition (for
// example completing an already failed message) is also a no-op.
func (s *ConversationStore) PatchMessage(conversationID, messageID string, patch MessagePatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		s.logger.Debug("patch for unknown conversation dropped",
			zap.String("conversation_id", conversationID),
			zap.String("message_id", messageID))
		return
	}

	msg := conv.MessageByID(messageID)
	if msg == nil {
		s.logger.Debug("patch for unknown message dropped",
			zap.String("conversation_id", conversationID),
			zap.String("message_id", messageID))
		return
	}

	changed := false

	if patch.Content != nil {
		msg.Content = *patch.Content
		changed = true
	}
	if patch.AppendToken != nil {
		if msg.AppendToken(*patch.AppendToken) {
			changed = true
		}
	}
	if patch.Status != nil {
		if s.applyStatusLocked(msg, *patch.Status) {
			changed = true
		} else {
			s.logger.Debug("illegal message status transition dropped",
				zap.String("message_id", messageID),
				zap.String("from", string(msg.Status)),
				zap.String("to", string(*patch.Status)))
		}
	}

	if !changed {
		return
	}

	conv.Touch()
	s.promoteLocked(conversationID)

	s.notifyLocked()
}

// applyStatusLocked routes a requested status through the message's
// transition functions.
func (s *ConversationStore) applyStatusLocked(msg *model.Message, status model.MessageStatus) bool {
	switch status {
	case model.StatusComplete:
		return msg.Complete()
	case model.StatusFailed:
		return msg.Fail()
	case model.StatusSending, model.StatusStreaming:
		want := model.StatusStreaming
		if msg.Role == model.RoleUser {
			want = model.StatusSending
		}
		if want != status {
			return false
		}
		return msg.ResetForRetry()
	default:
		return false
	}
}

// ReplaceConversationID atomically re-keys a conversation, preserving
// its position in the recency order and updating each message's
// conversation reference. This is how a provisional client ID becomes
// the server-assigned one.
func (s *ConversationStore) ReplaceConversationID(oldID, newID string) error {
	if oldID == newID {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[oldID]
	if !ok {
		return ErrConversationNotFound
	}
	if _, taken := s.conversations[newID]; taken {
		return ErrIDConflict
	}

	delete(s.conversations, oldID)
	conv.ID = newID
	for _, msg := range conv.Messages {
		msg.ConversationID = newID
	}
	s.conversations[newID] = conv

	for i, id := range s.order {
		if id == oldID {
			s.order[i] = newID
			break
		}
	}

	s.notifyLocked()
	return nil
}

// ConfirmConversation re-keys a pending conversation to its
// server-assigned ID and activates it in one mutation, so subscribers
// never observe an active conversation still carrying a provisional ID.
func (s *ConversationStore) ConfirmConversation(provisionalID, serverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[provisionalID]
	if !ok {
		return ErrConversationNotFound
	}
	if _, taken := s.conversations[serverID]; taken {
		return ErrIDConflict
	}

	delete(s.conversations, provisionalID)
	if !conv.Activate(serverID) {
		// Not pending anymore; keep it under its existing key.
		s.conversations[conv.ID] = conv
		return ErrInvalidTransition
	}
	for _, msg := range conv.Messages {
		msg.ConversationID = serverID
	}
	s.conversations[serverID] = conv

	for i, id := range s.order {
		if id == provisionalID {
			s.order[i] = serverID
			break
		}
	}

	s.notifyLocked()
	return nil
}

// FailConversation marks a pending conversation's creation as failed.
// The conversation stays visible so the user can see what happened.
func (s *ConversationStore) FailConversation(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return
	}
	if !conv.FailCreation() {
		s.logger.Debug("creation failure for non-pending conversation dropped",
			zap.String("conversation_id", id),
			zap.String("status", string(conv.Status)))
		return
	}

	s.notifyLocked()
}

// Remove deletes a conversation. Removing an unknown ID is a no-op and
// publishes no snapshot.
func (s *ConversationStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return
	}

	delete(s.conversations, id)
	for i, ordered := range s.order {
		if ordered == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	s.notifyLocked()
}

// Clear drops every conversation. Used on logout.
func (s *ConversationStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.conversations) == 0 {
		return
	}

	s.conversations = make(map[string]*model.Conversation)
	s.order = nil

	s.notifyLocked()
}

// promoteLocked moves a conversation to the front of the recency order.
// Caller must hold s.mu.
func (s *ConversationStore) promoteLocked(id string) {
	for i, ordered := range s.order {
		if ordered == id {
			copy(s.order[1:i+1], s.order[:i])
			s.order[0] = id
			return
		}
	}
}

// =============================================================================
// READS
// =============================================================================

// Get returns a deep copy of a conversation.
func (s *ConversationStore) Get(id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return conv.Clone(), nil
}

// List returns deep copies of all conversations, most recently updated
// first.
func (s *ConversationStore) List() []*model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked().Conversations
}

// Len returns the number of conversations held.
func (s *ConversationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// Snapshot returns the current state as an immutable snapshot.
func (s *ConversationStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}
