package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/victorivanov/retroterm/internal/models"
)

const (
	writeWait        = 10 * time.Second
	defaultHeartbeat = 41250 * time.Millisecond
	dialTimeout      = 10 * time.Second
)

// ChannelSink receives DM channel state pushed by the server. The session's
// DM cache implements it.
type ChannelSink interface {
	Upsert(ch models.DMChannel)
	Current() (*models.DMChannel, bool)
}

// Notifier surfaces incoming-message notifications. The notification queue
// implements it.
type Notifier interface {
	Info(message string, title ...string) int64
}

// Client maintains one WebSocket connection to the server gateway, keeping
// the DM cache coherent with pushed events and raising notifications for
// messages that arrive outside the active channel.
type Client struct {
	url      string
	token    string
	channels ChannelSink
	notifier Notifier
	log      *slog.Logger

	writeMu   sync.Mutex // gorilla/websocket allows one concurrent writer
	sequence  atomic.Int64
	sessionID string
	selfID    models.ID
}

// NewClient creates a gateway client for the given server base URL. The ws
// endpoint is derived from the HTTP one.
func NewClient(serverURL, token string, channels ChannelSink, notifier Notifier, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	wsURL := strings.Replace(serverURL, "http", "ws", 1)
	return &Client{
		url:      strings.TrimRight(wsURL, "/") + "/gateway",
		token:    token,
		channels: channels,
		notifier: notifier,
		log:      log,
	}
}

// Run connects, identifies, and processes events until the context is
// cancelled or the connection fails. It does not reconnect; the caller
// decides whether to retry.
func (c *Client) Run(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("gateway: dialing %s: %w", c.url, err)
	}
	defer conn.Close()

	// Unblock the read loop when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			_ = conn.Close()
		case <-done:
		}
	}()

	if err := c.send(conn, Payload{Op: OpIdentify, Data: marshal(IdentifyData{Token: c.token})}); err != nil {
		return err
	}

	heartbeat := time.NewTicker(defaultHeartbeat)
	defer heartbeat.Stop()
	go func() {
		for {
			select {
			case <-heartbeat.C:
				if err := c.send(conn, Payload{Op: OpHeartbeat}); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		var p Payload
		if err := conn.ReadJSON(&p); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("gateway: read: %w", err)
		}
		if err := c.handle(conn, p, heartbeat); err != nil {
			return err
		}
	}
}

func (c *Client) handle(conn *websocket.Conn, p Payload, heartbeat *time.Ticker) error {
	switch p.Op {
	case OpHello:
		var hello HelloData
		if err := json.Unmarshal(p.Data, &hello); err == nil && hello.HeartbeatInterval > 0 {
			heartbeat.Reset(time.Duration(hello.HeartbeatInterval) * time.Millisecond)
		}

	case OpHeartbeat:
		return c.send(conn, Payload{Op: OpHeartbeatAck})

	case OpHeartbeatAck:
		// Nothing to do; the server acknowledged our heartbeat.

	case OpReconnect:
		return fmt.Errorf("gateway: server requested reconnect")

	case OpDispatch:
		if p.Sequence != nil {
			c.sequence.Store(*p.Sequence)
		}
		if p.Event != nil {
			c.dispatch(*p.Event, p.Data)
		}
	}
	return nil
}

func (c *Client) dispatch(event string, data json.RawMessage) {
	switch event {
	case EventReady:
		var ready ReadyData
		if err := json.Unmarshal(data, &ready); err != nil {
			c.log.Error("invalid READY payload", "error", err)
			return
		}
		c.sessionID = ready.SessionID
		c.selfID = ready.UserID
		c.log.Info("gateway ready", "sessionID", ready.SessionID, "userID", ready.UserID)

	case EventChannelCreate:
		var ch models.DMChannel
		if err := json.Unmarshal(data, &ch); err != nil {
			c.log.Error("invalid CHANNEL_CREATE payload", "error", err)
			return
		}
		c.channels.Upsert(ch)

	case EventMessageCreate:
		var msg MessageCreateData
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Error("invalid MESSAGE_CREATE payload", "error", err)
			return
		}
		c.notifyMessage(msg)
	}
}

// notifyMessage raises an info notification for a message, unless it is the
// user's own or belongs to the channel currently on screen.
func (c *Client) notifyMessage(msg MessageCreateData) {
	if msg.Author.ID == c.selfID {
		return
	}
	if cur, ok := c.channels.Current(); ok && cur.ID == msg.ChannelID {
		return
	}

	from := msg.Author.DisplayName
	if from == "" {
		from = msg.Author.Username
	}
	c.notifier.Info(msg.Content, from)
}

// Resume returns the state needed to resume this session on a new
// connection.
func (c *Client) Resume() ResumeData {
	return ResumeData{
		Token:     c.token,
		SessionID: c.sessionID,
		Sequence:  c.sequence.Load(),
	}
}

func (c *Client) send(conn *websocket.Conn, p Payload) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(p); err != nil {
		return fmt.Errorf("gateway: write op %d: %w", p.Op, err)
	}
	return nil
}

func marshal(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}
