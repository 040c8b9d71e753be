// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

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
// SCREENS
// =============================================================================

// Screen selects which top-level view renders.
type Screen int

const (
	ScreenLogin Screen = iota
	ScreenChat
)

// sidebarWidth is the conversation list width on wide terminals.
const sidebarWidth = 30

// =============================================================================
// APP MODEL
// =============================================================================

// Deps are the collaborators the model talks to. All are owned by the
// caller and outlive the program.
type Deps struct {
	Config   *config.Config
	Theme    *styles.Theme
	Client   *api.Client
	Session  *session.Store
	Store    *store.ConversationStore
	Coord    *chatsvc.Coordinator
	Notifier *notify.Center
	Logger   *zap.Logger
}

// Model is the Bubble Tea model for the whole application.
type Model struct {
	screen Screen
	theme  *styles.Theme
	cfg    *config.Config
	logger *zap.Logger

	// Collaborators
	client   *api.Client
	sess     *session.Store
	convs    *store.ConversationStore
	coord    *chatsvc.Coordinator
	notifier *notify.Center

	// Subscription channels drained by Update. Callbacks push with
	// drop-oldest semantics so publishers never block.
	snapshotCh chan store.Snapshot
	notifCh    chan []notify.Notification
	storeSub   string
	notifSub   string

	// Components
	header   *components.Header
	status   *components.StatusBar
	input    *components.InputArea
	convList *components.ConversationList
	spinner  components.Spinner
	overlay  *components.TimeoutOverlay
	viewport viewport.Model
	markdown *glamour.TermRenderer

	login loginForm

	// Key handling
	keys      KeyMap
	vimKeys   VimScrollKeys
	vimNormal bool

	// View state
	snapshot      store.Snapshot
	notifications []notify.Notification
	activeConvID  string
	showSidebar   bool
	showHelp      bool
	width         int
	height        int
	ready         bool
	quitting      bool
}

// New builds the application model.
func New(deps Deps) *Model {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Model{
		screen:      ScreenLogin,
		theme:       deps.Theme,
		cfg:         deps.Config,
		logger:      logger,
		client:      deps.Client,
		sess:        deps.Session,
		convs:       deps.Store,
		coord:       deps.Coord,
		notifier:    deps.Notifier,
		snapshotCh:  make(chan store.Snapshot, 16),
		notifCh:     make(chan []notify.Notification, 16),
		header:      components.NewHeader(deps.Theme),
		status:      components.NewStatusBar(deps.Theme),
		input:       components.NewInputArea(deps.Theme),
		convList:    components.NewConversationList(deps.Theme),
		spinner:     components.NewThinkingSpinner(deps.Theme),
		overlay:     components.NewTimeoutOverlay(deps.Theme),
		login:       newLoginForm(deps.Theme),
		keys:        DefaultKeyMap(),
		vimKeys:     DefaultVimScrollKeys(),
		showSidebar: true,
		width:       80,
		height:      24,
	}

	m.viewport = viewport.New(80, 20)

	m.storeSub = m.convs.Subscribe(func(snap store.Snapshot) {
		pushLatest(m.snapshotCh, snap)
	})
	m.notifSub = m.notifier.Subscribe(func(ns []notify.Notification) {
		pushLatest(m.notifCh, ns)
	})

	if m.sess.IsAuthenticated() {
		m.screen = ScreenChat
	}

	return m
}

// pushLatest delivers v without blocking, dropping the oldest queued
// value under pressure. Update always ends up seeing the newest state.
func pushLatest[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

// Init starts the subscription pumps and the session ticker.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		waitForSnapshot(m.snapshotCh),
		waitForNotifications(m.notifCh),
		session.TickCmd(),
	}
	if m.screen == ScreenLogin {
		cmds = append(cmds, m.login.Focus())
	} else {
		cmds = append(cmds, m.input.Focus(), bootstrapCmd(m.client))
	}
	return tea.Batch(cmds...)
}

// Release detaches the model's subscriptions. Call after the program
// exits.
func (m *Model) Release() {
	m.convs.Unsubscribe(m.storeSub)
	m.notifier.Unsubscribe(m.notifSub)
}

// ActiveConversation returns the selected conversation from the latest
// snapshot, or nil.
func (m *Model) ActiveConversation() *model.Conversation {
	return m.snapshot.Conversation(m.activeConvID)
}

// rebuildMarkdown recreates the glamour renderer for the current
// transcript width. Returns nil (and disables rich rendering) when
// markdown is off in the config.
func (m *Model) rebuildMarkdown() {
	if m.cfg == nil || !m.cfg.UI.MarkdownRendering {
		m.markdown = nil
		return
	}
	wrap := m.transcriptWidth() - 2
	if wrap < 20 {
		wrap = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		m.logger.Warn("markdown renderer unavailable", zap.Error(err))
		m.markdown = nil
		return
	}
	m.markdown = renderer
}

// transcriptWidth is the width available to the message viewport.
func (m *Model) transcriptWidth() int {
	w := m.width
	if m.showSidebar {
		w -= sidebarWidth
	}
	if w < 20 {
		w = 20
	}
	return w
}
