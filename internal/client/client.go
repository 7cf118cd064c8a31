// Package client is a Go client for a running word cloud server. It opens the
// websocket session used by browsers and calls the HTTP endpoints used by
// operators.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/thruflo/wordcloud/internal/protocol"
	"github.com/thruflo/wordcloud/internal/state"
)

// Client talks to one word cloud server.
type Client struct {
	// baseURL is the base URL of the server (e.g., "http://localhost:3000")
	baseURL string

	// httpClient is the HTTP client used for requests
	httpClient *http.Client

	// dialer opens websocket sessions
	dialer *websocket.Dialer

	// eventBuffer is the size of a session's event channel
	eventBuffer int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithDialer sets a custom websocket dialer.
func WithDialer(dialer *websocket.Dialer) Option {
	return func(c *Client) {
		c.dialer = dialer
	}
}

// WithEventBuffer sets how many received events a session buffers before
// reading from the server pauses.
func WithEventBuffer(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.eventBuffer = n
		}
	}
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		dialer:      websocket.DefaultDialer,
		eventBuffer: 100,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResetResponse is the server's answer to an admin reset.
type ResetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HealthResponse is the server's health summary.
type HealthResponse struct {
	Status           string `json:"status"`
	Sessions         int    `json:"sessions"`
	Words            int    `json:"words"`
	TotalSubmissions int    `json:"totalSubmissions"`
}

// AdminReset clears the word cloud through POST /admin/reset.
func (c *Client) AdminReset(ctx context.Context) (*ResetResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/admin/reset", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	var resp ResetResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health fetches GET /health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	var resp HealthResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// WebSocketURL returns the session endpoint for the server.
func (c *Client) WebSocketURL() string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

// Connect opens a websocket session. The first event received is always the
// server's initialize snapshot.
func (c *Client) Connect(ctx context.Context) (*Session, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.WebSocketURL(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	s := &Session{
		conn:   conn,
		events: make(chan *protocol.Event, c.eventBuffer),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Session is an open websocket session.
type Session struct {
	conn    *websocket.Conn
	events  chan *protocol.Event
	writeMu sync.Mutex
	closed  atomic.Bool
	done    chan struct{}
	err     error // set before events is closed
}

// Events returns the channel of events from the server. It is closed when the
// session ends; Err then reports why.
func (s *Session) Events() <-chan *protocol.Event {
	return s.events
}

// Err returns the error that ended the session, or nil if it was closed
// locally or by a normal close frame. Only valid once Events is closed.
func (s *Session) Err() error {
	return s.err
}

func (s *Session) readLoop() {
	defer close(s.events)

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.err = err
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		ev, err := protocol.UnmarshalEvent(data)
		if err != nil {
			continue
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

// Send writes one event to the server.
func (s *Session) Send(ev *protocol.Event) error {
	data, err := ev.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}
	return nil
}

func (s *Session) send(msgType protocol.MessageType, data any) error {
	ev, err := protocol.NewEvent(msgType, data)
	if err != nil {
		return err
	}
	return s.Send(ev)
}

// AddWord submits a word with its embedding.
func (s *Session) AddWord(word string, embedding state.Embedding) error {
	return s.send(protocol.TypeAddWord, protocol.AddWord{Word: word, Embedding: embedding})
}

// UpdateConnections replaces the shared connection list. list must encode to
// JSON; it is sent as is.
func (s *Session) UpdateConnections(list any) error {
	return s.send(protocol.TypeUpdateConnections, list)
}

// ChangeColor sets the color of a word. A nil color clears it.
func (s *Session) ChangeColor(word string, color *string) error {
	return s.send(protocol.TypeChangeColor, protocol.ChangeColor{Word: word, Color: color})
}

// Reset clears the word cloud for everyone.
func (s *Session) Reset() error {
	return s.send(protocol.TypeReset, nil)
}

// Next waits for the next event.
func (s *Session) Next(ctx context.Context) (*protocol.Event, error) {
	select {
	case ev, ok := <-s.events:
		if !ok {
			if s.err != nil {
				return nil, s.err
			}
			return nil, ErrClosed
		}
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ErrClosed is returned by Next once the session has ended cleanly.
var ErrClosed = errors.New("session closed")

// Close sends a close frame and closes the connection.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.done)
	s.writeMu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.writeMu.Unlock()
	return s.conn.Close()
}
