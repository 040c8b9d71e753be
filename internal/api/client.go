// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/parley-tui/internal/model"
)

// Configuration constants for the parley backend API.
const (
	// DefaultBaseURL is the base URL for the hosted parley backend.
	DefaultBaseURL = "https://api.parley.dev/v1"

	// DefaultTimeout is the default timeout for unary API requests.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for
	// transient errors.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// Prevents memory exhaustion from a misbehaving backend.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB

	// userAgent identifies the client to the backend.
	userAgent = "parley/0.1.0"
)

var (
	// Shared HTTP client with connection pooling for all unary requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for SSE requests. No timeout: stream
	// lifetime is controlled via context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// =============================================================================
// ERRORS
// =============================================================================

// Error variables for common backend errors.
var (
	// ErrAuthFailed indicates authentication failed (bad credentials or
	// an expired token).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRejected indicates the backend refused the request for a
	// non-transient reason (validation failure, policy refusal).
	ErrRejected = errors.New("request rejected")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrNetwork indicates a transport-level failure or server error.
	// Retryable from the caller's perspective.
	ErrNetwork = errors.New("network failure")
)

// BackendError represents an error response from the parley backend.
type BackendError struct {
	Code    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
}

// RateLimitError represents a rate limit error with retry information.
type RateLimitError struct {
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %v", e.RetryAfter)
	}
	return "rate limited"
}

// Is allows RateLimitError to be compared with ErrRateLimited.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// apiErrorResponse is the backend's error envelope.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// loginRequest is the body for POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// googleLoginRequest is the body for POST /auth/oauth/google.
type googleLoginRequest struct {
	Code string `json:"code"`
}

// authResponse is the backend's reply to a successful sign-in.
type authResponse struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
}

// createConversationRequest is the body for POST /conversations.
type createConversationRequest struct {
	Title string `json:"title,omitempty"`
}

// RemoteMessage is a message as reported by the backend.
type RemoteMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// RemoteConversation is a conversation as reported by the backend.
type RemoteConversation struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Messages  []RemoteMessage `json:"messages,omitempty"`
}

// conversationsResponse is the reply to GET /conversations.
type conversationsResponse struct {
	Conversations []RemoteConversation `json:"conversations"`
}

// sendMessageRequest is the body for POST /conversations/{id}/messages.
type sendMessageRequest struct {
	Content string `json:"content"`
	Stream  bool   `json:"stream"`
}

// =============================================================================
// CLIENT
// =============================================================================

// TokenSource supplies the bearer token for authenticated requests.
// Wired to the session store.
type TokenSource func() (string, error)

// Client talks to the parley backend.
type Client struct {
	baseURL     string
	maxRetries  int
	tokenSource TokenSource

	// limiter keeps the client polite toward the backend regardless of
	// how fast the UI dispatches intents.
	limiter *rate.Limiter

	logger *zap.Logger
}

// NewClient creates a backend client.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		maxRetries: DefaultMaxRetries,
		limiter:    rate.NewLimiter(rate.Limit(5), 10),
		logger:     logger,
	}
}

// WithMaxRetries sets the maximum number of retry attempts.
func (c *Client) WithMaxRetries(maxRetries int) *Client {
	c.maxRetries = maxRetries
	return c
}

// SetTokenSource installs the bearer token supplier for authenticated
// endpoints.
func (c *Client) SetTokenSource(source TokenSource) {
	c.tokenSource = source
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// AUTH ENDPOINTS
// =============================================================================

// Login authenticates with email and password. Returns the user and a
// bearer token for subsequent requests.
func (c *Client) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	var resp authResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &resp, false)
	if err != nil {
		return nil, "", err
	}
	resp.User.Provider = model.ProviderCredentials
	return &resp.User, resp.Token, nil
}

// LoginWithGoogle exchanges a Google OAuth authorization code for a
// session. The OAuth dance itself happens in the browser; the client
// only sees the resulting code.
func (c *Client) LoginWithGoogle(ctx context.Context, code string) (*model.User, string, error) {
	var resp authResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/oauth/google", googleLoginRequest{Code: code}, &resp, false)
	if err != nil {
		return nil, "", err
	}
	resp.User.Provider = model.ProviderGoogle
	return &resp.User, resp.Token, nil
}

// Me returns the profile of the authenticated user.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &user, true); err != nil {
		return nil, err
	}
	return &user, nil
}

// =============================================================================
// CONVERSATION ENDPOINTS
// =============================================================================

// CreateConversation registers a conversation with the backend and
// returns its server-assigned ID.
func (c *Client) CreateConversation(ctx context.Context, title string) (string, error) {
	var resp RemoteConversation
	err := c.doJSON(ctx, http.MethodPost, "/conversations", createConversationRequest{Title: title}, &resp, true)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%w: backend returned no conversation id", ErrNetwork)
	}
	return resp.ID, nil
}

// ListConversations returns the user's conversation history, most
// recent first, including transcripts.
func (c *Client) ListConversations(ctx context.Context) ([]RemoteConversation, error) {
	var resp conversationsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/conversations", nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// doJSON performs a unary request with retry, backoff and a size-capped
// read, decoding the response into out (which may be nil).
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, authed bool) error {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt)
			if rl, ok := lastErr.(*RateLimitError); ok && rl.RetryAfter > delay {
				delay = rl.RetryAfter
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrNetwork, ctx.Err())
			case <-time.After(delay):
			}
		}

		err := c.doOnce(ctx, method, path, bodyBytes, out, authed)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// doOnce performs a single unary request.
func (c *Client) doOnce(ctx context.Context, method, path string, body []byte, out any, authed bool) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.setHeaders(req, authed); err != nil {
		return err
	}

	start := time.Now()
	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request complete",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	respBody, err := readResponse(resp)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.handleErrorResponse(resp, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%w: failed to parse response: %v", ErrNetwork, err)
		}
	}
	return nil
}

// setHeaders sets the required headers, including the bearer token for
// authenticated endpoints.
func (c *Client) setHeaders(req *http.Request, authed bool) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	if !authed {
		return nil
	}
	if c.tokenSource == nil {
		return fmt.Errorf("%w: no token source configured", ErrAuthFailed)
	}
	token, err := c.tokenSource()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// readResponse reads the response body with a size cap.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts backend error responses to Go errors.
// 401 maps to ErrAuthFailed, 403/422 to ErrRejected with the backend's
// reason attached, 429 to rate limiting, everything 5xx to ErrNetwork.
func (c *Client) handleErrorResponse(resp *http.Response, body []byte) error {
	status := resp.StatusCode

	message := strings.TrimSpace(string(body))
	code := ""
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
		code = apiErr.Error.Code
	}

	switch {
	case status == http.StatusUnauthorized:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrAuthFailed, message)
		}
		return ErrAuthFailed
	case status == http.StatusForbidden || status == http.StatusUnprocessableEntity:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrRejected, message)
		}
		return ErrRejected
	case status == http.StatusTooManyRequests:
		return rateLimitError(resp)
	case status >= 500:
		return fmt.Errorf("%w: %v", ErrNetwork, &BackendError{Code: code, Message: message, Status: status})
	default:
		return &BackendError{Code: code, Message: message, Status: status}
	}
}

// rateLimitError parses the Retry-After header from a 429 response.
func rateLimitError(resp *http.Response) error {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return &RateLimitError{}
	}
	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return &RateLimitError{RetryAfter: time.Duration(seconds) * time.Second}
	}
	if t, err := http.ParseTime(retryAfter); err == nil {
		return &RateLimitError{RetryAfter: time.Until(t)}
	}
	return &RateLimitError{}
}

// isRetryable determines if an error should trigger a retry.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrNetwork)
}

// calculateBackoff returns the delay before the next retry attempt.
func calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}
