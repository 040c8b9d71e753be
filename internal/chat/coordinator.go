// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/parley-tui/internal/api"
	"github.com/jeranaias/parley-tui/internal/model"
	"github.com/jeranaias/parley-tui/internal/store"
	"github.com/jeranaias/parley-tui/internal/telemetry"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnauthorized indicates the operation requires a signed-in user.
	ErrUnauthorized = errors.New("not authorized")

	// ErrInvalidState indicates the operation is not legal from the
	// conversation's current state (exchange already in flight, unknown
	// conversation, nothing to retry, empty input).
	ErrInvalidState = errors.New("invalid state")

	// ErrNetworkFailure indicates a transport failure or token timeout.
	// The failed exchange can be retried.
	ErrNetworkFailure = errors.New("network failure")

	// ErrBackendRejected indicates the backend refused the exchange for
	// a non-transient reason. Not retryable.
	ErrBackendRejected = errors.New("backend rejected request")
)

// DefaultTokenTimeout is how long the coordinator waits for each stream
// token before treating the exchange as a network failure.
const DefaultTokenTimeout = 30 * time.Second

// confirmTimeout bounds the background conversation-create confirmation.
const confirmTimeout = 30 * time.Second

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// TokenStream is a lazy sequence of assistant tokens for one exchange.
// Satisfied by api.ExchangeStream.
type TokenStream interface {
	Next(ctx context.Context) (model.StreamToken, error)
	Cancel()
}

// Opener creates conversations on the backend and opens exchange
// streams.
type Opener interface {
	CreateConversation(ctx context.Context, title string) (string, error)
	OpenExchange(ctx context.Context, conversationID, content string) (TokenStream, error)
}

// SessionReader is the coordinator's read-only view of the session.
type SessionReader interface {
	IsAuthenticated() bool
	RecordActivity()
}

// Notifier receives transient user-facing notifications.
// Satisfied by notify.Center.
type Notifier interface {
	Info(message string) string
	Success(message string) string
	Error(message string) string
}

// StatsRecorder receives per-exchange timing stats.
// Satisfied by telemetry.Recorder.
type StatsRecorder interface {
	Record(stat telemetry.ExchangeStat)
}

// apiOpener adapts *api.Client to the Opener interface.
type apiOpener struct {
	client *api.Client
}

// NewAPIOpener wraps the backend client for coordinator use.
func NewAPIOpener(client *api.Client) Opener {
	return apiOpener{client: client}
}

func (o apiOpener) CreateConversation(ctx context.Context, title string) (string, error) {
	return o.client.CreateConversation(ctx, title)
}

func (o apiOpener) OpenExchange(ctx context.Context, conversationID, content string) (TokenStream, error) {
	stream, err := o.client.StreamExchange(ctx, conversationID, content)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// =============================================================================
// COORDINATOR
// =============================================================================

// exchange tracks one in-flight user/assistant pair. The context is
// created when the slot is claimed so a cancel that lands before the
// streaming goroutine starts still takes effect.
type exchange struct {
	ctx         context.Context
	cancelMgr   *cancelManager
	userID      string
	assistantID string

	mu        sync.Mutex
	cancelled bool // user asked to stop, not an error

	done chan struct{}
}

func (ex *exchange) markCancelled() {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	ex.cancelled = true
}

func (ex *exchange) wasCancelled() bool {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.cancelled
}

// Coordinator orchestrates conversation exchanges between the
// repository, the session, the backend, and the notification center.
type Coordinator struct {
	store   *store.ConversationStore
	session SessionReader
	opener  Opener
	notify  Notifier
	logger  *zap.Logger

	tokenTimeout time.Duration
	stats        StatsRecorder // optional

	mu       sync.Mutex
	inflight map[string]*exchange // keyed by conversation ID

	wg sync.WaitGroup
}

// SetStatsRecorder installs an optional per-exchange stats sink.
// Call before the first SendMessage.
func (c *Coordinator) SetStatsRecorder(rec StatsRecorder) {
	c.stats = rec
}

// NewCoordinator wires a coordinator. A zero tokenTimeout selects
// DefaultTokenTimeout.
func NewCoordinator(st *store.ConversationStore, session SessionReader, opener Opener, notifier Notifier, logger *zap.Logger, tokenTimeout time.Duration) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tokenTimeout <= 0 {
		tokenTimeout = DefaultTokenTimeout
	}
	return &Coordinator{
		store:        st,
		session:      session,
		opener:       opener,
		notify:       notifier,
		logger:       logger,
		tokenTimeout: tokenTimeout,
		inflight:     make(map[string]*exchange),
	}
}

// Close waits for all background exchange goroutines to finish. Call
// after cancelling anything still streaming.
func (c *Coordinator) Close() {
	c.wg.Wait()
}

// InFlight reports whether an exchange is running for the conversation.
func (c *Coordinator) InFlight(conversationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[conversationID]
	return ok
}

// =============================================================================
// CREATE CONVERSATION
// =============================================================================

// CreateConversation optimistically creates a conversation under a
// provisional ID and confirms it with the backend in the background.
// The returned conversation is immediately visible in the repository;
// its ID changes to the server-assigned one once confirmed.
func (c *Coordinator) CreateConversation(ctx context.Context, title string) (*model.Conversation, error) {
	if !c.session.IsAuthenticated() {
		return nil, ErrUnauthorized
	}
	c.session.RecordActivity()

	title = normalizeInput(title)
	conv := model.NewConversation(title)
	c.store.Upsert(conv)

	provisionalID := conv.ID
	c.logger.Debug("conversation created optimistically",
		zap.String("conversation_id", provisionalID))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.confirmConversation(provisionalID, title)
	}()

	return conv.Clone(), nil
}

// confirmConversation registers the conversation with the backend and
// re-keys the repository entry to the server ID.
func (c *Coordinator) confirmConversation(provisionalID, title string) {
	ctx, cancel := context.WithTimeout(context.Background(), confirmTimeout)
	defer cancel()

	serverID, err := c.opener.CreateConversation(ctx, title)
	if err != nil {
		c.logger.Warn("conversation creation rejected",
			zap.String("conversation_id", provisionalID),
			zap.Error(err))
		c.store.FailConversation(provisionalID)
		c.notify.Error("Could not create conversation: " + userFacingReason(err))
		return
	}

	if err := c.store.ConfirmConversation(provisionalID, serverID); err != nil {
		// The conversation was removed (or re-keyed) while we waited.
		c.logger.Debug("conversation confirmation dropped",
			zap.String("conversation_id", provisionalID),
			zap.Error(err))
	}
}

// =============================================================================
// SEND MESSAGE
// =============================================================================

// SendMessage appends the user message and an assistant placeholder,
// then streams the assistant's reply in the background. Returns
// ErrInvalidState when an exchange is already in flight for the
// conversation, when the conversation cannot accept messages, or when
// the input is empty after normalization.
func (c *Coordinator) SendMessage(ctx context.Context, conversationID, text string) error {
	if !c.session.IsAuthenticated() {
		return ErrUnauthorized
	}
	c.session.RecordActivity()

	text = normalizeInput(text)
	if text == "" {
		return fmt.Errorf("%w: empty message", ErrInvalidState)
	}

	conv, err := c.store.Get(conversationID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if conv.Status != model.ConversationActive {
		return fmt.Errorf("%w: conversation is %s", ErrInvalidState, conv.Status)
	}

	userMsg := model.NewUserMessage(conversationID, text)
	assistantMsg := model.NewAssistantMessage(conversationID)

	ex, err := c.claim(conversationID, userMsg.ID, assistantMsg.ID)
	if err != nil {
		return err
	}

	c.store.AppendMessage(conversationID, userMsg)
	c.store.AppendMessage(conversationID, assistantMsg)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runExchange(conversationID, text, ex)
	}()

	return nil
}

// claim takes the per-conversation in-flight slot.
func (c *Coordinator) claim(conversationID, userID, assistantID string) (*exchange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.inflight[conversationID]; busy {
		return nil, fmt.Errorf("%w: exchange already in flight", ErrInvalidState)
	}
	exCtx, cancel := context.WithCancel(context.Background())
	ex := &exchange{
		ctx:         exCtx,
		cancelMgr:   newCancelManager(),
		userID:      userID,
		assistantID: assistantID,
		done:        make(chan struct{}),
	}
	ex.cancelMgr.set(cancel)
	c.inflight[conversationID] = ex
	return ex, nil
}

// release frees the conversation's in-flight slot.
func (c *Coordinator) release(conversationID string, ex *exchange) {
	c.mu.Lock()
	delete(c.inflight, conversationID)
	c.mu.Unlock()
	close(ex.done)
}

// runExchange opens the stream and pumps tokens until a terminal
// condition. Runs on its own goroutine; exchanges for different
// conversations proceed independently.
func (c *Coordinator) runExchange(conversationID, text string, ex *exchange) {
	defer c.release(conversationID, ex)

	stat := telemetry.ExchangeStat{
		ConversationID: conversationID,
		MessageID:      ex.assistantID,
		StartedAt:      time.Now(),
		Outcome:        telemetry.OutcomeFailed,
	}
	defer func() {
		if c.stats != nil {
			stat.Duration = time.Since(stat.StartedAt)
			c.stats.Record(stat)
		}
	}()

	exCtx := ex.ctx
	defer ex.cancelMgr.cancel()

	stream, err := c.opener.OpenExchange(exCtx, conversationID, text)
	if err != nil {
		if ex.wasCancelled() {
			// Stopped before the stream opened: settle quietly.
			stat.Outcome = telemetry.OutcomeCancelled
			c.patchStatus(conversationID, ex.userID, model.StatusComplete)
			c.patchStatus(conversationID, ex.assistantID, model.StatusComplete)
			c.notify.Info("Response stopped")
			return
		}
		// Failure before the backend acknowledged the message: the
		// user message failed too and is retryable.
		c.settleFailure(conversationID, ex, err, true)
		return
	}
	defer stream.Cancel()

	// A 200 response is the backend's acknowledgement of the user
	// message.
	c.patchStatus(conversationID, ex.userID, model.StatusComplete)

	for {
		tok, err := c.nextToken(exCtx, stream)
		if err != nil {
			switch {
			case err == io.EOF:
				// Clean stream end without a final frame: the
				// accumulated content is the whole reply.
				stat.Outcome = telemetry.OutcomeComplete
				c.patchStatus(conversationID, ex.assistantID, model.StatusComplete)
				c.logger.Debug("exchange complete",
					zap.String("conversation_id", conversationID),
					zap.Int("tokens", stat.Tokens),
					zap.Duration("duration", time.Since(stat.StartedAt)))
				return
			case ex.wasCancelled():
				// User-requested stop: keep what we have, no error.
				stat.Outcome = telemetry.OutcomeCancelled
				c.patchStatus(conversationID, ex.assistantID, model.StatusComplete)
				c.notify.Info("Response stopped")
				c.logger.Debug("exchange cancelled",
					zap.String("conversation_id", conversationID),
					zap.Int("tokens", stat.Tokens))
				return
			default:
				c.settleFailure(conversationID, ex, err, false)
				return
			}
		}

		if stat.Tokens == 0 {
			stat.TTFT = time.Since(stat.StartedAt)
		}
		stat.Tokens++
		stat.Chars += len(tok.Text)

		if tok.Text != "" {
			token := tok.Text
			c.store.PatchMessage(conversationID, ex.assistantID, store.MessagePatch{AppendToken: &token})
		}
		if tok.Final {
			stat.Outcome = telemetry.OutcomeComplete
			c.patchStatus(conversationID, ex.assistantID, model.StatusComplete)
			c.logger.Debug("exchange complete",
				zap.String("conversation_id", conversationID),
				zap.Int("tokens", stat.Tokens),
				zap.Duration("duration", time.Since(stat.StartedAt)))
			return
		}
	}
}

// nextToken pulls one token with the per-token timeout applied. A
// stalled stream is indistinguishable from a dead connection, so the
// timeout maps to a network failure.
func (c *Coordinator) nextToken(exCtx context.Context, stream TokenStream) (model.StreamToken, error) {
	tokenCtx, cancel := context.WithTimeout(exCtx, c.tokenTimeout)
	defer cancel()

	tok, err := stream.Next(tokenCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && exCtx.Err() == nil {
			return model.StreamToken{}, fmt.Errorf("%w: no token within %v", ErrNetworkFailure, c.tokenTimeout)
		}
		return model.StreamToken{}, err
	}
	return tok, nil
}

// settleFailure moves the exchange to its failed terminal state. The
// user message fails only when the failure preceded the backend's
// acknowledgement.
func (c *Coordinator) settleFailure(conversationID string, ex *exchange, cause error, beforeAck bool) {
	mapped := mapStreamError(cause)

	if beforeAck {
		c.patchStatus(conversationID, ex.userID, model.StatusFailed)
	}
	c.patchStatus(conversationID, ex.assistantID, model.StatusFailed)

	c.logger.Warn("exchange failed",
		zap.String("conversation_id", conversationID),
		zap.Bool("before_ack", beforeAck),
		zap.Error(cause))
	c.notify.Error(userFacingReason(mapped))
}

// patchStatus applies a single status transition through the store.
func (c *Coordinator) patchStatus(conversationID, messageID string, status model.MessageStatus) {
	c.store.PatchMessage(conversationID, messageID, store.MessagePatch{Status: &status})
}

// =============================================================================
// RETRY
// =============================================================================

// RetryMessage re-issues a failed exchange in place. The message ID may
// name either member of the failed pair; both keep their IDs, so no
// duplicates appear in the transcript.
func (c *Coordinator) RetryMessage(ctx context.Context, conversationID, messageID string) error {
	if !c.session.IsAuthenticated() {
		return ErrUnauthorized
	}
	c.session.RecordActivity()

	conv, err := c.store.Get(conversationID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	userMsg, assistantMsg := conv.FailedExchange(messageID)
	if userMsg == nil || assistantMsg == nil {
		return fmt.Errorf("%w: nothing to retry", ErrInvalidState)
	}

	ex, err := c.claim(conversationID, userMsg.ID, assistantMsg.ID)
	if err != nil {
		return err
	}

	// Reset the failed members in place. A completed user message stays
	// complete; the assistant always restarts streaming from empty.
	if userMsg.Status == model.StatusFailed {
		c.patchStatus(conversationID, userMsg.ID, model.StatusSending)
	}
	if assistantMsg.Status == model.StatusFailed {
		c.patchStatus(conversationID, assistantMsg.ID, model.StatusStreaming)
	}

	text := userMsg.Content
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runExchange(conversationID, text, ex)
	}()

	return nil
}

// =============================================================================
// CANCEL
// =============================================================================

// CancelExchange stops the in-flight exchange for a conversation. The
// assistant message settles as complete with whatever content arrived.
// Idempotent; cancelling a conversation with nothing in flight is a
// no-op.
func (c *Coordinator) CancelExchange(conversationID string) {
	c.mu.Lock()
	ex, ok := c.inflight[conversationID]
	c.mu.Unlock()
	if !ok {
		return
	}

	ex.markCancelled()
	ex.cancelMgr.cancel()
}

// =============================================================================
// HELPERS
// =============================================================================

// normalizeInput trims whitespace and applies Unicode NFC so visually
// identical inputs compare and render identically.
func normalizeInput(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// mapStreamError folds backend and transport errors into the
// coordinator's taxonomy.
func mapStreamError(err error) error {
	switch {
	case errors.Is(err, ErrNetworkFailure) || errors.Is(err, ErrBackendRejected):
		return err
	case errors.Is(err, api.ErrAuthFailed):
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	case errors.Is(err, api.ErrRejected):
		return fmt.Errorf("%w: %v", ErrBackendRejected, err)
	default:
		return fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
}

// userFacingReason strips the error chain down to a single displayable
// line.
func userFacingReason(err error) string {
	msg := err.Error()
	// The last segment of the wrap chain is the most specific.
	if idx := strings.LastIndex(msg, ": "); idx >= 0 && idx+2 < len(msg) {
		return msg[idx+2:]
	}
	return msg
}
