// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// NOTIFICATION TYPES
// =============================================================================

// Kind classifies a notification for styling and default duration.
type Kind int

const (
	// KindInfo is an informational notification (cyan color)
	KindInfo Kind = iota
	// KindSuccess is a success notification (emerald color)
	KindSuccess
	// KindWarning is a warning notification (amber color)
	KindWarning
	// KindError is an error notification (rose/red color)
	KindError
)

// DefaultTTL is the auto-dismiss duration for info and success
// notifications.
const DefaultTTL = 5 * time.Second

// ErrorTTL is the auto-dismiss duration for error notifications, longer
// so the message can be read.
const ErrorTTL = 8 * time.Second

// Notification is a transient, non-blocking message shown to the user.
type Notification struct {
	ID        string
	Message   string
	Kind      Kind
	CreatedAt time.Time
	TTL       time.Duration
}

// TimeRemaining returns how long before the notification auto-dismisses.
func (n Notification) TimeRemaining() time.Duration {
	remaining := n.TTL - time.Since(n.CreatedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// =============================================================================
// NOTIFICATION CENTER
// =============================================================================

// Center holds the active notifications and their dismissal timers.
// All methods are safe for concurrent use.
type Center struct {
	mu            sync.Mutex
	notifications []Notification
	timers        map[string]*time.Timer
	subscribers   map[string]func([]Notification)
	max           int
	logger        *zap.Logger
}

// NewCenter creates a notification center.
func NewCenter(logger *zap.Logger) *Center {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Center{
		timers:      make(map[string]*time.Timer),
		subscribers: make(map[string]func([]Notification)),
		max:         5, // maximum visible at once
		logger:      logger,
	}
}

// Subscribe registers a listener for the active notification list and
// returns a token for Unsubscribe. Listeners receive a copy after every
// change, newest first.
func (c *Center) Subscribe(fn func([]Notification)) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := uuid.NewString()
	c.subscribers[token] = fn
	return token
}

// Unsubscribe removes a listener. Unknown tokens are ignored.
func (c *Center) Unsubscribe(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribers, token)
}

// =============================================================================
// PUBLISH / DISMISS
// =============================================================================

// Publish adds a notification with the default TTL for its kind and
// schedules its auto-dismissal. Returns the notification ID.
func (c *Center) Publish(message string, kind Kind) string {
	ttl := DefaultTTL
	if kind == KindError {
		ttl = ErrorTTL
	}
	return c.PublishWithTTL(message, kind, ttl)
}

// PublishWithTTL adds a notification with an explicit TTL.
func (c *Center) PublishWithTTL(message string, kind Kind, ttl time.Duration) string {
	c.mu.Lock()

	n := Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Kind:      kind,
		CreatedAt: time.Now(),
		TTL:       ttl,
	}

	// Newest first, evicting the oldest past the display cap. Evicted
	// notifications get their timers cancelled too.
	c.notifications = append([]Notification{n}, c.notifications...)
	for len(c.notifications) > c.max {
		last := c.notifications[len(c.notifications)-1]
		c.notifications = c.notifications[:len(c.notifications)-1]
		c.stopTimerLocked(last.ID)
	}

	id := n.ID
	c.timers[id] = time.AfterFunc(ttl, func() {
		c.Dismiss(id)
	})

	c.logger.Debug("notification published",
		zap.String("id", id),
		zap.Int("kind", int(kind)),
		zap.Duration("ttl", ttl))

	c.notifyLocked()
	c.mu.Unlock()
	return id
}

// Info publishes an informational notification.
func (c *Center) Info(message string) string { return c.Publish(message, KindInfo) }

// Success publishes a success notification.
func (c *Center) Success(message string) string { return c.Publish(message, KindSuccess) }

// Warning publishes a warning notification.
func (c *Center) Warning(message string) string { return c.Publish(message, KindWarning) }

// Error publishes an error notification.
func (c *Center) Error(message string) string { return c.Publish(message, KindError) }

// Dismiss removes a notification and cancels its timer. Dismissing an
// unknown or already-dismissed ID is a no-op, so a manual dismissal
// racing the TTL timer is harmless.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := -1
	for i, n := range c.notifications {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	c.notifications = append(c.notifications[:idx], c.notifications[idx+1:]...)
	c.stopTimerLocked(id)

	c.notifyLocked()
}

// Clear removes all notifications and cancels every timer.
func (c *Center) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.notifications) == 0 {
		return
	}

	for id := range c.timers {
		c.stopTimerLocked(id)
	}
	c.notifications = nil

	c.notifyLocked()
}

// =============================================================================
// READS
// =============================================================================

// Active returns a copy of the current notifications, newest first.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Notification, len(c.notifications))
	copy(out, c.notifications)
	return out
}

// HasActive returns true if any notification is showing.
func (c *Center) HasActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.notifications) > 0
}

// =============================================================================
// INTERNAL
// =============================================================================

// stopTimerLocked cancels and forgets a notification's timer. Caller
// must hold c.mu.
func (c *Center) stopTimerLocked(id string) {
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
}

// notifyLocked hands the current list to each subscriber. Caller must
// hold c.mu; listeners run on the caller's goroutine and must not call
// back into the center.
func (c *Center) notifyLocked() {
	if len(c.subscribers) == 0 {
		return
	}

	out := make([]Notification, len(c.notifications))
	copy(out, c.notifications)
	for _, fn := range c.subscribers {
		fn(out)
	}
}
