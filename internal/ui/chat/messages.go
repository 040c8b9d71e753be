// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/parley-tui/internal/api"
	chatsvc "github.com/jeranaias/parley-tui/internal/chat"
	"github.com/jeranaias/parley-tui/internal/config"
	"github.com/jeranaias/parley-tui/internal/model"
	"github.com/jeranaias/parley-tui/internal/notify"
	"github.com/jeranaias/parley-tui/internal/session"
	"github.com/jeranaias/parley-tui/internal/store"
)

// =============================================================================
// MESSAGES
// =============================================================================

// SnapshotMsg carries a fresh conversation store snapshot.
type SnapshotMsg struct {
	Snapshot store.Snapshot
}

// NotificationsMsg carries the active toast list, newest first.
type NotificationsMsg struct {
	Notifications []notify.Notification
}

// LoginResultMsg reports the outcome of a login attempt.
type LoginResultMsg struct {
	User *model.User
	Err  error
}

// BootstrapMsg reports the initial backend fetch after sign-in.
type BootstrapMsg struct {
	User          *model.User
	Conversations []api.RemoteConversation
	Err           error
}

// SendResultMsg reports a rejected send. Accepted sends report nothing
// here; their progress arrives through store snapshots.
type SendResultMsg struct {
	ConversationID string
	Err            error
}

// RetryResultMsg reports a rejected retry.
type RetryResultMsg struct {
	ConversationID string
	Err            error
}

// ConversationCreatedMsg reports a locally created conversation. The
// conversation is already in the store under its provisional ID.
type ConversationCreatedMsg struct {
	Conversation *model.Conversation
	Err          error
}

// ConfigReloadedMsg delivers a configuration picked up by the file
// watcher. Sent through program.Send so the model swaps it on the
// update loop rather than racing the watcher goroutine.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// =============================================================================
// COMMANDS
// =============================================================================

// requestTimeout bounds one-shot backend calls made from the UI.
const requestTimeout = 30 * time.Second

// loginCmd attempts a password login through the session store.
func loginCmd(sess *session.Store, email, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		user, err := sess.Login(ctx, email, password)
		return LoginResultMsg{User: user, Err: err}
	}
}

// bootstrapCmd fetches the user profile and conversation list
// concurrently after sign-in.
func bootstrapCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var (
			user  *model.User
			convs []api.RemoteConversation
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			u, err := client.Me(gctx)
			if err != nil {
				return err
			}
			user = u
			return nil
		})
		g.Go(func() error {
			cs, err := client.ListConversations(gctx)
			if err != nil {
				return err
			}
			convs = cs
			return nil
		})

		if err := g.Wait(); err != nil {
			return BootstrapMsg{Err: err}
		}
		return BootstrapMsg{User: user, Conversations: convs}
	}
}

// sendCmd dispatches a message to the coordinator.
func sendCmd(coord *chatsvc.Coordinator, conversationID, text string) tea.Cmd {
	return func() tea.Msg {
		err := coord.SendMessage(context.Background(), conversationID, text)
		return SendResultMsg{ConversationID: conversationID, Err: err}
	}
}

// retryCmd re-issues a failed exchange.
func retryCmd(coord *chatsvc.Coordinator, conversationID, messageID string) tea.Cmd {
	return func() tea.Msg {
		err := coord.RetryMessage(context.Background(), conversationID, messageID)
		return RetryResultMsg{ConversationID: conversationID, Err: err}
	}
}

// newConversationCmd creates a conversation; it appears immediately
// under a provisional ID while backend confirmation runs.
func newConversationCmd(coord *chatsvc.Coordinator) tea.Cmd {
	return func() tea.Msg {
		conv, err := coord.CreateConversation(context.Background(), "")
		return ConversationCreatedMsg{Conversation: conv, Err: err}
	}
}

// waitForSnapshot blocks on the snapshot channel and re-arms itself
// from Update after each message.
func waitForSnapshot(ch <-chan store.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return SnapshotMsg{Snapshot: snap}
	}
}

// waitForNotifications blocks on the notification channel.
func waitForNotifications(ch <-chan []notify.Notification) tea.Cmd {
	return func() tea.Msg {
		ns, ok := <-ch
		if !ok {
			return nil
		}
		return NotificationsMsg{Notifications: ns}
	}
}

// =============================================================================
// REMOTE CONVERSION
// =============================================================================

// conversationFromRemote converts a backend conversation into the local
// model. Fetched history is terminal by definition.
func conversationFromRemote(rc api.RemoteConversation) *model.Conversation {
	conv := &model.Conversation{
		ID:        rc.ID,
		Title:     rc.Title,
		CreatedAt: rc.CreatedAt,
		UpdatedAt: rc.UpdatedAt,
		Status:    model.ConversationActive,
		Messages:  make([]*model.Message, 0, len(rc.Messages)),
	}
	for _, rm := range rc.Messages {
		conv.Messages = append(conv.Messages, &model.Message{
			ID:             rm.ID,
			ConversationID: rc.ID,
			Role:           model.Role(rm.Role),
			Content:        rm.Content,
			Status:         model.StatusComplete,
			CreatedAt:      rm.CreatedAt,
		})
	}
	return conv
}
