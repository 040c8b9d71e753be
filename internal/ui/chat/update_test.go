// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/parley-tui/internal/api"
	chatsvc "github.com/jeranaias/parley-tui/internal/chat"
	"github.com/jeranaias/parley-tui/internal/config"
	"github.com/jeranaias/parley-tui/internal/model"
	"github.com/jeranaias/parley-tui/internal/notify"
	"github.com/jeranaias/parley-tui/internal/session"
	"github.com/jeranaias/parley-tui/internal/store"
	"github.com/jeranaias/parley-tui/internal/ui/components"
	"github.com/jeranaias/parley-tui/internal/ui/styles"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

// fakeAuth authenticates one known user.
type fakeAuth struct{}

func (fakeAuth) Login(_ context.Context, email, password string) (*model.User, string, error) {
	if email == "ada@example.com" && password == "secret" {
		return &model.User{ID: "u1", Email: email, Name: "Ada"}, "tok-1", nil
	}
	return nil, "", api.ErrAuthFailed
}

func (fakeAuth) LoginWithGoogle(context.Context, string) (*model.User, string, error) {
	return nil, "", api.ErrAuthFailed
}

// stubOpener never streams; coordinator behavior is covered in its own
// package.
type stubOpener struct{}

func (stubOpener) CreateConversation(context.Context, string) (string, error) {
	return "srv-new", nil
}

func (stubOpener) OpenExchange(context.Context, string, string) (chatsvc.TokenStream, error) {
	return nil, api.ErrNetwork
}

func newTestModel(t *testing.T) *Model {
	t.Helper()

	cfg := config.Default()
	theme := styles.NewThemeFor("dark")
	convs := store.NewConversationStore(nil)
	notifier := notify.NewCenter(nil)
	sess := session.NewStore(fakeAuth{}, session.DefaultConfig(), nil)
	coord := chatsvc.NewCoordinator(convs, sess, stubOpener{}, notifier, nil, 0)
	client := api.NewClient("http://127.0.0.1:9", nil)

	m := New(Deps{
		Config:   cfg,
		Theme:    theme,
		Client:   client,
		Session:  sess,
		Store:    convs,
		Coord:    coord,
		Notifier: notifier,
	})

	t.Cleanup(func() {
		m.Release()
		coord.Close()
		notifier.Clear()
	})

	// Size the model so views render.
	m.handleResize(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func signIn(t *testing.T, m *Model) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := m.sess.Login(ctx, "ada@example.com", "secret"); err != nil {
		t.Fatalf("test login failed: %v", err)
	}
	m.screen = ScreenChat
}

// =============================================================================
// TESTS
// =============================================================================

func TestResizeMakesModelReady(t *testing.T) {
	m := newTestModel(t)
	if !m.ready {
		t.Error("model should be ready after a window size message")
	}
	if m.viewport.Width != m.transcriptWidth() {
		t.Errorf("viewport width = %d, want %d", m.viewport.Width, m.transcriptWidth())
	}
}

func TestNarrowTerminalHidesSidebar(t *testing.T) {
	m := newTestModel(t)
	if !m.showSidebar {
		t.Fatal("sidebar should start visible on a wide terminal")
	}
	m.handleResize(tea.WindowSizeMsg{Width: 60, Height: 24})
	if m.showSidebar {
		t.Error("sidebar should hide below the width threshold")
	}
}

func TestQuitKey(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !m.quitting {
		t.Error("ctrl+c should mark the model quitting")
	}
	if cmd == nil {
		t.Error("ctrl+c should return the quit command")
	}
}

func TestLoginResultFailure(t *testing.T) {
	m := newTestModel(t)
	m.login.busy = true

	m.handleLoginResult(LoginResultMsg{Err: api.ErrAuthFailed})

	if m.login.busy {
		t.Error("failed login should clear the busy flag")
	}
	if !strings.Contains(m.login.errText, "incorrect") {
		t.Errorf("auth failure text = %q", m.login.errText)
	}
	if m.screen != ScreenLogin {
		t.Error("failed login should stay on the login screen")
	}
}

func TestLoginResultSuccess(t *testing.T) {
	m := newTestModel(t)

	cmd := m.handleLoginResult(LoginResultMsg{
		User: &model.User{ID: "u1", Email: "ada@example.com", Name: "Ada"},
	})

	if m.screen != ScreenChat {
		t.Error("successful login should switch to the chat screen")
	}
	if cmd == nil {
		t.Error("successful login should return the bootstrap command")
	}
}

func TestHandleBootstrapSeedsStore(t *testing.T) {
	m := newTestModel(t)
	signIn(t, m)

	now := time.Now()
	m.handleBootstrap(BootstrapMsg{
		User: &model.User{ID: "u1", Name: "Ada"},
		Conversations: []api.RemoteConversation{
			{ID: "srv-1", Title: "First", CreatedAt: now, UpdatedAt: now},
			{ID: "srv-2", Title: "Second", CreatedAt: now, UpdatedAt: now},
		},
	})

	if m.convs.Len() != 2 {
		t.Errorf("store has %d conversations, want 2", m.convs.Len())
	}
	if m.activeConvID != "srv-1" {
		t.Errorf("active conversation = %q, want srv-1", m.activeConvID)
	}
}

func TestHandleBootstrapFailureNotifies(t *testing.T) {
	m := newTestModel(t)
	signIn(t, m)

	m.handleBootstrap(BootstrapMsg{Err: api.ErrNetwork})

	if !m.notifier.HasActive() {
		t.Error("bootstrap failure should publish a notification")
	}
	if m.convs.Len() != 0 {
		t.Error("bootstrap failure should not touch the store")
	}
}

func TestHandleSnapshotTracksStreaming(t *testing.T) {
	m := newTestModel(t)
	signIn(t, m)

	conv := model.NewConversation("Live")
	conv.Activate("srv-1")
	user := model.NewUserMessage(conv.ID, "hi")
	user.Complete()
	conv.AddMessage(user)
	conv.AddMessage(model.NewAssistantMessage(conv.ID))
	m.convs.Upsert(conv)
	m.activeConvID = conv.ID

	m.handleSnapshot(SnapshotMsg{Snapshot: m.convs.Snapshot()})

	if !m.spinner.IsActive() {
		t.Error("spinner should run while the response streams")
	}

	// Settle the exchange and deliver the next snapshot.
	done := model.StatusComplete
	m.convs.PatchMessage(conv.ID, conv.Messages[1].ID, store.MessagePatch{Status: &done})
	m.handleSnapshot(SnapshotMsg{Snapshot: m.convs.Snapshot()})

	if m.spinner.IsActive() {
		t.Error("spinner should stop once the exchange settles")
	}
	if m.status.MessageCount != 2 {
		t.Errorf("status message count = %d, want 2", m.status.MessageCount)
	}
}

func TestHandleSnapshotFollowsConfirmedID(t *testing.T) {
	m := newTestModel(t)
	signIn(t, m)

	conv := model.NewConversation("Pending")
	m.convs.Upsert(conv)
	m.activeConvID = conv.ID
	m.handleSnapshot(SnapshotMsg{Snapshot: m.convs.Snapshot()})

	if err := m.convs.ConfirmConversation(conv.ID, "srv-77"); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	m.handleSnapshot(SnapshotMsg{Snapshot: m.convs.Snapshot()})

	if m.activeConvID != "srv-77" {
		t.Errorf("active conversation after confirm = %q, want srv-77", m.activeConvID)
	}
}

func TestUnauthorizedDispatchReturnsToLogin(t *testing.T) {
	m := newTestModel(t)
	signIn(t, m)

	conv := model.NewConversation("c")
	conv.Activate("srv-1")
	m.convs.Upsert(conv)

	m.handleDispatchError(chatsvc.ErrUnauthorized)

	if m.screen != ScreenLogin {
		t.Error("unauthorized dispatch should return to the login screen")
	}
	if m.sess.IsAuthenticated() {
		t.Error("session should be signed out")
	}
	if m.convs.Len() != 0 {
		t.Error("conversations should be cleared on sign-out")
	}
	if !strings.Contains(m.login.errText, "expired") {
		t.Errorf("login hint = %q", m.login.errText)
	}
}

func TestInvalidStateDispatchIsSilent(t *testing.T) {
	m := newTestModel(t)
	signIn(t, m)

	if cmd := m.handleDispatchError(chatsvc.ErrInvalidState); cmd != nil {
		t.Error("invalid-state rejections should be silent")
	}
	if m.notifier.HasActive() {
		t.Error("invalid-state rejections should not toast")
	}
}

func TestSubmitBlankInputIsNoop(t *testing.T) {
	m := newTestModel(t)
	signIn(t, m)

	conv := model.NewConversation("c")
	conv.Activate("srv-1")
	m.convs.Upsert(conv)
	m.snapshot = m.convs.Snapshot()
	m.activeConvID = conv.ID

	m.input.SetValue("   ")
	if cmd := m.submitInput(); cmd != nil {
		t.Error("blank input should not dispatch")
	}
}

func TestSubmitClearsInput(t *testing.T) {
	m := newTestModel(t)
	signIn(t, m)

	conv := model.NewConversation("c")
	conv.Activate("srv-1")
	m.convs.Upsert(conv)
	m.snapshot = m.convs.Snapshot()
	m.activeConvID = conv.ID

	m.input.SetValue("hello there")
	cmd := m.submitInput()
	if cmd == nil {
		t.Fatal("submit should return a dispatch command")
	}
	if !m.input.IsBlank() {
		t.Error("input should clear immediately on submit")
	}
}

func TestToastTickRearmsOnlyWhileVisible(t *testing.T) {
	m := newTestModel(t)

	if _, cmd := m.Update(components.ToastTickMsg{Time: time.Now()}); cmd != nil {
		t.Error("tick with no toasts should not re-arm")
	}

	m.notifications = []notify.Notification{{ID: "n1", Message: "hi", CreatedAt: time.Now(), TTL: time.Second}}
	if _, cmd := m.Update(components.ToastTickMsg{Time: time.Now()}); cmd == nil {
		t.Error("tick with visible toasts should re-arm")
	}
}

func TestVimModeToggle(t *testing.T) {
	m := newTestModel(t)
	signIn(t, m)
	m.cfg.UI.VimMode = true

	// Esc with nothing streaming enters normal mode.
	m.handleKey(tea.KeyMsg{Type: tea.KeyEsc})
	if !m.vimNormal {
		t.Fatal("esc should enter normal mode when vim mode is on")
	}

	// i returns to insert mode.
	m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'i'}})
	if m.vimNormal {
		t.Error("i should return to insert mode")
	}
}

func TestConfigReloadAppliedOnUpdateLoop(t *testing.T) {
	m := newTestModel(t)

	next := config.Default()
	next.UI.MarkdownRendering = false
	next.UI.Theme = "light"

	m.Update(ConfigReloadedMsg{Config: next})

	if m.cfg != next {
		t.Fatal("reloaded config should replace the model's config")
	}
	if m.markdown != nil {
		t.Error("markdown renderer should be dropped when rendering is disabled")
	}

	// A nil config is ignored.
	m.Update(ConfigReloadedMsg{})
	if m.cfg != next {
		t.Error("nil reload should leave the config untouched")
	}
}
