// Package bridge connects the relay to a game server over a WebSocket.
//
// The server side is a small plugin that forwards chat messages as JSON
// frames and executes the frames it receives:
//
//	-> {"type":"chat","player":"Steve","message":"!ai hello"}
//	<- {"type":"tell","player":"Steve","text":"..."}
//	<- {"type":"broadcast","text":"..."}
//	<- {"type":"command","id":"<uuid>","command":"time set day"}
//	-> {"type":"command_result","id":"<uuid>","error":""}
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/germanamz/aichatbot/pkg/modeladapter"
	"github.com/germanamz/aichatbot/pkg/relay"
)

// Frame types.
const (
	FrameChat          = "chat"
	FrameCommandResult = "command_result"
	FrameTell          = "tell"
	FrameBroadcast     = "broadcast"
	FrameCommand       = "command"
)

// DefaultDispatchTimeout bounds the wait for a command_result frame.
const DefaultDispatchTimeout = 5 * time.Second

// ErrClosed is returned by Dispatch when the connection ends before the
// command result arrives.
var ErrClosed = errors.New("bridge: connection closed")

// Frame is one JSON message on the wire. Unused fields are omitted.
type Frame struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Player  string `json:"player,omitempty"`
	Message string `json:"message,omitempty"`
	Text    string `json:"text,omitempty"`
	Command string `json:"command,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CommandError is a command failure reported by the server.
type CommandError struct {
	Command string
	Message string
}

func (e *CommandError) Error() string { return e.Message }

// ChatHandler receives chat frames from Serve.
type ChatHandler func(ctx context.Context, ev relay.ChatEvent)

var _ relay.Host = (*Conn)(nil)

// Conn is a bridge connection. It implements relay.Host.
type Conn struct {
	// DispatchTimeout bounds Dispatch when ctx carries no earlier deadline.
	DispatchTimeout time.Duration

	ws  *websocket.Conn
	log *slog.Logger

	mu      sync.Mutex
	pending map[string]chan string

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the bridge endpoint. A token other than empty or the
// placeholder is sent in the X-API-TOKEN header of the handshake. http and
// https URLs are mapped to ws and wss.
func Dial(ctx context.Context, url, token string, log *slog.Logger) (*Conn, error) {
	header := make(http.Header)
	modeladapter.SelectAuth(token, "").Apply(header)

	ws, _, err := websocket.Dial(ctx, wsURL(url), &websocket.DialOptions{HTTPHeader: header}) //nolint:bodyclose // closed by the library on success
	if err != nil {
		return nil, fmt.Errorf("bridge: dial: %w", err)
	}

	return NewConn(ws, log), nil
}

// NewConn wraps an established WebSocket connection.
func NewConn(ws *websocket.Conn, log *slog.Logger) *Conn {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Conn{
		DispatchTimeout: DefaultDispatchTimeout,
		ws:              ws,
		log:             log,
		pending:         make(map[string]chan string),
		done:            make(chan struct{}),
	}
}

func wsURL(u string) string {
	if rest, ok := strings.CutPrefix(u, "https://"); ok {
		return "wss://" + rest
	}

	if rest, ok := strings.CutPrefix(u, "http://"); ok {
		return "ws://" + rest
	}

	return u
}

// Serve reads frames until ctx is done or the peer closes the connection.
// Chat frames go to handler; command results complete pending Dispatch calls.
// A normal close or ctx cancellation returns nil.
func (c *Conn) Serve(ctx context.Context, handler ChatHandler) error {
	defer c.shutdown()

	for {
		var f Frame
		if err := wsjson.Read(ctx, c.ws, &f); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}

			return fmt.Errorf("bridge: read: %w", err)
		}

		switch f.Type {
		case FrameChat:
			handler(ctx, relay.ChatEvent{Player: f.Player, Message: f.Message})
		case FrameCommandResult:
			c.resolve(f.ID, f.Error)
		default:
			c.log.Debug("bridge: ignoring frame", "type", f.Type)
		}
	}
}

func (c *Conn) resolve(id, errMsg string) {
	c.mu.Lock()
	ch, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()

	if !ok {
		c.log.Warn("bridge: unmatched command result", "id", id)
		return
	}

	ch <- errMsg
}

// Tell implements relay.Host.
func (c *Conn) Tell(ctx context.Context, player, text string) error {
	return c.write(ctx, Frame{Type: FrameTell, Player: player, Text: text})
}

// Broadcast implements relay.Host.
func (c *Conn) Broadcast(ctx context.Context, text string) error {
	return c.write(ctx, Frame{Type: FrameBroadcast, Text: text})
}

// Dispatch sends a command frame and waits for its command_result. A non-empty
// error field is returned as *CommandError.
func (c *Conn) Dispatch(ctx context.Context, command string) error {
	id := uuid.NewString()
	ch := make(chan string, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if c.DispatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.DispatchTimeout)
		defer cancel()
	}

	if err := c.write(ctx, Frame{Type: FrameCommand, ID: id, Command: command}); err != nil {
		return err
	}

	select {
	case msg := <-ch:
		if msg != "" {
			return &CommandError{Command: command, Message: msg}
		}

		return nil
	case <-ctx.Done():
		return fmt.Errorf("bridge: command %q: %w", command, ctx.Err())
	case <-c.done:
		return ErrClosed
	}
}

func (c *Conn) write(ctx context.Context, f Frame) error {
	if err := wsjson.Write(ctx, c.ws, f); err != nil {
		return fmt.Errorf("bridge: write %s: %w", f.Type, err)
	}

	return nil
}

func (c *Conn) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Close ends pending dispatches and closes the connection normally.
func (c *Conn) Close() error {
	c.shutdown()

	return c.ws.Close(websocket.StatusNormalClosure, "")
}
