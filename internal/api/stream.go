// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/parley-tui/internal/model"
)

// =============================================================================
// STREAMING CONSTANTS
// =============================================================================

// MaxFrameSize is the maximum allowed size for a single SSE frame (64KB).
const MaxFrameSize = 64 * 1024

// streamBuffer is the channel depth between the SSE reader goroutine
// and Next. Deep enough that a briefly slow consumer doesn't stall the
// socket.
const streamBuffer = 64

// =============================================================================
// WIRE FRAME
// =============================================================================

// tokenFrame is a single SSE data frame from the exchange stream.
type tokenFrame struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	Text           string `json:"text"`
	Final          bool   `json:"final"`
	Error          *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// =============================================================================
// SSE READER
// =============================================================================

// sseReader parses Server-Sent Events from a stream.
type sseReader struct {
	reader *bufio.Reader
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{reader: bufio.NewReader(r)}
}

// readEvent reads the next SSE data payload. Returns io.EOF when the
// stream ends. Frames above MaxFrameSize are an error.
func (s *sseReader) readEvent() ([]byte, error) {
	var dataLines [][]byte
	var total int

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				if len(dataLines) > 0 {
					return bytes.Join(dataLines, []byte("\n")), nil
				}
				return nil, io.EOF
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line signals end of event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("data:")) {
			data := bytes.TrimSpace(line[5:])
			total += len(data)
			if total > MaxFrameSize {
				return nil, fmt.Errorf("frame too large: %d bytes", total)
			}
			dataLines = append(dataLines, data)
		}
		// Ignore other fields (event:, id:, retry:, comments).
	}
}

// =============================================================================
// EXCHANGE STREAM
// =============================================================================

// frame couples a token with the error that ended the stream.
type frame struct {
	token model.StreamToken
	err   error
}

// ExchangeStream is a lazy sequence of assistant tokens for one
// exchange. Tokens are pulled one at a time with Next; Cancel tears
// down the transport and is safe to call from any goroutine, any
// number of times.
type ExchangeStream struct {
	frames chan frame
	cancel context.CancelFunc
	once   sync.Once
}

// StreamExchange submits a user message and opens the SSE token stream
// for the assistant's reply. The stream stays open until the final
// frame, an error, Cancel, or ctx cancellation.
func (c *Client) StreamExchange(ctx context.Context, conversationID, content string) (*ExchangeStream, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	bodyBytes, err := json.Marshal(sendMessageRequest{Content: content, Stream: true})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)

	url := c.baseURL + "/conversations/" + conversationID + "/messages"
	req, err := http.NewRequestWithContext(streamCtx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.setHeaders(req, true); err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := sharedStreamingClient.Do(req)
	if err != nil {
		cancel()
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := readResponse(resp)
		resp.Body.Close()
		cancel()
		return nil, c.handleErrorResponse(resp, body)
	}

	stream := &ExchangeStream{
		frames: make(chan frame, streamBuffer),
		cancel: cancel,
	}

	go c.readFrames(streamCtx, resp.Body, conversationID, stream)

	return stream, nil
}

// readFrames pumps SSE frames from the response body into the stream
// channel until the final frame, an error, or cancellation.
func (c *Client) readFrames(ctx context.Context, body io.ReadCloser, conversationID string, stream *ExchangeStream) {
	defer body.Close()
	defer close(stream.frames)

	reader := newSSEReader(body)

	for {
		data, err := reader.readEvent()
		if err != nil {
			if err == io.EOF {
				// Stream ended without a final frame: the connection
				// was dropped mid-exchange.
				stream.push(ctx, frame{err: fmt.Errorf("%w: stream ended unexpectedly", ErrNetwork)})
				return
			}
			if ctx.Err() != nil {
				stream.push(ctx, frame{err: ctx.Err()})
				return
			}
			stream.push(ctx, frame{err: fmt.Errorf("%w: %v", ErrNetwork, err)})
			return
		}

		if bytes.Equal(data, []byte("[DONE]")) {
			return
		}

		var tf tokenFrame
		if err := json.Unmarshal(data, &tf); err != nil {
			// Skip malformed frames rather than killing the exchange.
			c.logger.Debug("malformed stream frame skipped",
				zap.String("conversation_id", conversationID),
				zap.Error(err))
			continue
		}

		if tf.Error != nil {
			stream.push(ctx, frame{err: fmt.Errorf("%w: %s", ErrRejected, tf.Error.Message)})
			return
		}

		tok := model.StreamToken{
			ConversationID: tf.ConversationID,
			MessageID:      tf.MessageID,
			Text:           tf.Text,
			Final:          tf.Final,
		}
		if tok.ConversationID == "" {
			tok.ConversationID = conversationID
		}

		if !stream.push(ctx, frame{token: tok}) {
			return
		}
		if tf.Final {
			return
		}
	}
}

// push delivers a frame unless the stream is cancelled. Returns false
// when the consumer is gone.
func (s *ExchangeStream) push(ctx context.Context, f frame) bool {
	select {
	case s.frames <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

// Next returns the next token from the stream. The final token carries
// Final=true; the call after it returns io.EOF. A cancelled stream
// surfaces context.Canceled.
func (s *ExchangeStream) Next(ctx context.Context) (model.StreamToken, error) {
	select {
	case <-ctx.Done():
		return model.StreamToken{}, ctx.Err()
	case f, ok := <-s.frames:
		if !ok {
			return model.StreamToken{}, io.EOF
		}
		if f.err != nil {
			return model.StreamToken{}, f.err
		}
		return f.token, nil
	}
}

// Cancel tears down the stream's transport. Idempotent; pending and
// subsequent Next calls observe context.Canceled or io.EOF.
func (s *ExchangeStream) Cancel() {
	s.once.Do(s.cancel)
}
