// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/parley-tui/internal/api"
	chatsvc "github.com/jeranaias/parley-tui/internal/chat"
	"github.com/jeranaias/parley-tui/internal/config"
	"github.com/jeranaias/parley-tui/internal/session"
	"github.com/jeranaias/parley-tui/internal/ui/components"
	"github.com/jeranaias/parley-tui/internal/ui/styles"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update is the Bubble Tea message dispatcher.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m, m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SnapshotMsg:
		return m, m.handleSnapshot(msg)

	case NotificationsMsg:
		m.notifications = msg.Notifications
		cmds := []tea.Cmd{waitForNotifications(m.notifCh)}
		if len(m.notifications) > 0 {
			cmds = append(cmds, components.ToastTickCmd())
		}
		return m, tea.Batch(cmds...)

	case components.ToastTickMsg:
		if len(m.notifications) > 0 {
			return m, components.ToastTickCmd()
		}
		return m, nil

	case session.TickMsg:
		if m.screen != ScreenChat {
			return m, session.TickCmd()
		}
		return m, m.sess.HandleTick()

	case session.TimeoutWarningMsg:
		m.overlay.Show(msg.Remaining)
		m.status.SetSession(msg.Remaining, true)
		return m, nil

	case session.TimeoutMsg:
		return m, m.handleLogout("Signed out after inactivity.")

	case LoginResultMsg:
		return m, m.handleLoginResult(msg)

	case BootstrapMsg:
		return m, m.handleBootstrap(msg)

	case SendResultMsg:
		return m, m.handleDispatchError(msg.Err)

	case RetryResultMsg:
		return m, m.handleDispatchError(msg.Err)

	case ConversationCreatedMsg:
		if msg.Err != nil {
			return m, m.handleDispatchError(msg.Err)
		}
		m.activeConvID = msg.Conversation.ID
		m.convList.Select(msg.Conversation.ID)
		m.syncViewport(true)
		return m, nil

	case ConfigReloadedMsg:
		return m, m.handleConfigReload(msg.Config)

	default:
		// Spinner frames and other component-internal messages.
		return m, m.spinner.Update(msg)
	}
}

// =============================================================================
// RESIZE
// =============================================================================

func (m *Model) handleResize(msg tea.WindowSizeMsg) tea.Cmd {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true

	// Narrow terminals lose the sidebar.
	if m.width < 72 {
		m.showSidebar = false
	}

	m.header.SetWidth(m.width)
	m.status.SetWidth(m.width)
	m.input.SetWidth(m.transcriptWidth())
	m.overlay.SetSize(m.width, m.height)
	m.convList.SetSize(sidebarWidth, m.contentHeight())

	m.viewport.Width = m.transcriptWidth()
	m.viewport.Height = m.contentHeight()

	m.rebuildMarkdown()
	m.syncViewport(false)
	return nil
}

// handleConfigReload swaps in a configuration picked up by the file
// watcher. The theme struct is overwritten in place so every component
// holding the pointer sees the new styles.
func (m *Model) handleConfigReload(next *config.Config) tea.Cmd {
	if next == nil {
		return nil
	}
	themeChanged := m.cfg == nil || m.cfg.UI.Theme != next.UI.Theme
	m.cfg = next
	if themeChanged {
		*m.theme = *styles.NewThemeFor(next.UI.Theme)
	}
	m.rebuildMarkdown()
	m.syncViewport(false)
	return nil
}

// contentHeight is the vertical space between header and input/status.
func (m *Model) contentHeight() int {
	// header + input box (3) + status bar
	h := m.height - 1 - 3 - 1
	if h < 3 {
		h = 3
	}
	return h
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}

	if m.screen == ScreenLogin {
		return m, m.handleLoginKey(msg)
	}

	// Any keystroke counts as session activity and clears the timeout
	// warning.
	m.sess.RecordActivity()
	if m.overlay.IsVisible() {
		m.overlay.Hide()
		m.status.SetSession(0, false)
		return m, nil
	}

	if m.vimNormal {
		return m, m.handleVimKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m, m.submitInput()

	case key.Matches(msg, m.keys.Stop):
		if conv := m.ActiveConversation(); conv != nil && conv.InFlight() {
			m.coord.CancelExchange(conv.ID)
			return m, nil
		}
		if m.cfg != nil && m.cfg.UI.VimMode {
			m.vimNormal = true
			m.input.Blur()
		}
		return m, nil

	case key.Matches(msg, m.keys.NewConversation):
		return m, newConversationCmd(m.coord)

	case key.Matches(msg, m.keys.Retry):
		conv := m.ActiveConversation()
		if id := lastFailedMessageID(conv); id != "" {
			return m, retryCmd(m.coord, conv.ID, id)
		}
		return m, nil

	case key.Matches(msg, m.keys.NextConv):
		m.convList.MoveDown()
		m.selectFromList()
		return m, nil

	case key.Matches(msg, m.keys.PrevConv):
		m.convList.MoveUp()
		m.selectFromList()
		return m, nil

	case key.Matches(msg, m.keys.ToggleSidebar):
		m.showSidebar = !m.showSidebar
		return m, m.handleResize(tea.WindowSizeMsg{Width: m.width, Height: m.height})

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.LineUp(1)
		return m, nil
	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.LineDown(1)
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		return m, nil
	}

	return m, m.input.Update(msg)
}

// handleVimKey processes normal-mode scrolling when vim mode is on.
func (m *Model) handleVimKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.vimKeys.Up):
		m.viewport.LineUp(1)
	case key.Matches(msg, m.vimKeys.Down):
		m.viewport.LineDown(1)
	case key.Matches(msg, m.vimKeys.Top):
		m.viewport.GotoTop()
	case key.Matches(msg, m.vimKeys.Bottom):
		m.viewport.GotoBottom()
	case key.Matches(msg, m.vimKeys.Insert):
		m.vimNormal = false
		return m.input.Focus()
	}
	return nil
}

// handleLoginKey drives the login form.
func (m *Model) handleLoginKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		return m.login.cycleFocus()
	case "enter":
		if m.login.focus == fieldEmail {
			return m.login.cycleFocus()
		}
		if !m.login.CanSubmit() {
			return nil
		}
		m.login.busy = true
		m.login.errText = ""
		return loginCmd(m.sess, m.login.email.Value(), m.login.password.Value())
	default:
		return m.login.Update(msg)
	}
}

// submitInput dispatches the composed message to the coordinator.
func (m *Model) submitInput() tea.Cmd {
	if m.input.IsBlank() {
		return nil
	}
	conv := m.ActiveConversation()
	if conv == nil {
		return nil
	}
	text := m.input.Value()
	m.input.Reset()
	return sendCmd(m.coord, conv.ID, text)
}

// selectFromList makes the sidebar selection the active conversation.
func (m *Model) selectFromList() {
	if c := m.convList.Selected(); c != nil {
		m.activeConvID = c.ID
		m.syncViewport(true)
	}
}

// =============================================================================
// STATE MESSAGES
// =============================================================================

// handleSnapshot folds a store snapshot into the view.
func (m *Model) handleSnapshot(msg SnapshotMsg) tea.Cmd {
	m.snapshot = msg.Snapshot
	m.convList.SetConversations(m.snapshot.Conversations)

	// The active conversation can disappear (logout) or change ID when
	// the backend confirms a provisional create.
	if m.snapshot.Conversation(m.activeConvID) == nil {
		m.activeConvID = ""
		if c := m.convList.Selected(); c != nil {
			m.activeConvID = c.ID
		}
	}
	m.convList.Select(m.activeConvID)

	cmds := []tea.Cmd{waitForSnapshot(m.snapshotCh)}

	conv := m.ActiveConversation()
	streaming := conv != nil && conv.InFlight()
	switch {
	case streaming && !m.spinner.IsActive():
		cmds = append(cmds, m.spinner.Start())
		m.status.SetStatus(components.StatusStreaming)
	case !streaming && m.spinner.IsActive():
		m.spinner.Stop()
		m.status.SetStatus(components.StatusReady)
	case !streaming:
		m.status.SetStatus(components.StatusReady)
	}
	if conv != nil {
		m.status.MessageCount = conv.MessageCount()
		m.header.SetConversation(conv.DisplayTitle())
	} else {
		m.status.MessageCount = 0
		m.header.SetConversation("")
	}

	m.syncViewport(streaming)
	return tea.Batch(cmds...)
}

// handleLoginResult finishes or fails a sign-in attempt.
func (m *Model) handleLoginResult(msg LoginResultMsg) tea.Cmd {
	m.login.busy = false
	if msg.Err != nil {
		m.login.errText = loginErrorText(msg.Err)
		m.logger.Warn("login failed", zap.Error(msg.Err))
		return nil
	}

	m.screen = ScreenChat
	m.login.Reset()
	if msg.User != nil {
		m.header.SetUser(msg.User.DisplayName())
	}
	return tea.Batch(m.input.Focus(), bootstrapCmd(m.client))
}

// handleBootstrap seeds the store with backend history.
func (m *Model) handleBootstrap(msg BootstrapMsg) tea.Cmd {
	if msg.Err != nil {
		m.logger.Warn("bootstrap failed", zap.Error(msg.Err))
		m.notifier.Error("Could not load conversations. Check your connection.")
		m.status.SetStatus(components.StatusError)
		return nil
	}

	if msg.User != nil {
		m.header.SetUser(msg.User.DisplayName())
	}
	for _, rc := range msg.Conversations {
		m.convs.Upsert(conversationFromRemote(rc))
	}
	if m.activeConvID == "" && len(msg.Conversations) > 0 {
		m.activeConvID = msg.Conversations[0].ID
	}
	m.status.SetStatus(components.StatusReady)
	return nil
}

// handleLogout returns to the login screen and clears local state.
func (m *Model) handleLogout(reason string) tea.Cmd {
	m.sess.Logout()
	m.convs.Clear()
	m.notifier.Clear()
	m.overlay.Hide()
	m.status.SetSession(0, false)
	m.activeConvID = ""
	m.screen = ScreenLogin
	m.login.Reset()
	m.login.errText = reason
	m.header.SetUser("")
	m.logger.Info("session ended", zap.String("reason", reason))
	return m.login.Focus()
}

// handleDispatchError surfaces synchronous coordinator rejections.
// Exchange failures arrive through the notifier instead.
func (m *Model) handleDispatchError(err error) tea.Cmd {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, chatsvc.ErrInvalidState):
		// Blank input or an exchange already in flight; the UI state
		// already reflects it.
		return nil
	case errors.Is(err, chatsvc.ErrUnauthorized):
		return m.handleLogout("Your session has expired. Sign in again.")
	default:
		m.notifier.Error("Something went wrong. Please try again.")
		m.logger.Warn("dispatch rejected", zap.Error(err))
		return nil
	}
}

// loginErrorText maps login failures to form feedback.
func loginErrorText(err error) string {
	switch {
	case errors.Is(err, session.ErrAlreadyAuthenticated):
		return "Already signed in."
	case errors.Is(err, api.ErrAuthFailed):
		return "Email or password is incorrect."
	case errors.Is(err, api.ErrRateLimited):
		return "Too many attempts. Wait a moment and try again."
	default:
		return "Could not sign in. Check your connection."
	}
}

// syncViewport refreshes the transcript content, keeping the view
// pinned to the bottom while following a live response.
func (m *Model) syncViewport(follow bool) {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if follow || atBottom {
		m.viewport.GotoBottom()
	}
}
