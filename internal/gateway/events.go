package gateway

import (
	"encoding/json"

	"github.com/victorivanov/retroterm/internal/models"
)

// Op codes for gateway payloads.
const (
	OpDispatch       = 0
	OpHeartbeat      = 1
	OpIdentify       = 2
	OpPresenceUpdate = 3
	OpResume         = 6
	OpReconnect      = 7
	OpHello          = 10
	OpHeartbeatAck   = 11
)

// Dispatch event names the client reacts to. The server emits more; unknown
// events are ignored.
const (
	EventReady         = "READY"
	EventChannelCreate = "CHANNEL_CREATE"
	EventMessageCreate = "MESSAGE_CREATE"
)

// Payload is the envelope for all gateway messages.
type Payload struct {
	Op       int             `json:"op"`
	Data     json.RawMessage `json:"d,omitempty"`
	Sequence *int64          `json:"s,omitempty"`
	Event    *string         `json:"t,omitempty"`
}

// IdentifyData is sent in an Op 2 IDENTIFY.
type IdentifyData struct {
	Token string `json:"token"`
}

// ResumeData is sent in an Op 6 RESUME.
type ResumeData struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Sequence  int64  `json:"seq"`
}

// HelloData arrives after the WebSocket connects.
type HelloData struct {
	HeartbeatInterval int `json:"heartbeat_interval"`
}

// ReadyData arrives after a successful IDENTIFY.
type ReadyData struct {
	SessionID string    `json:"session_id"`
	UserID    models.ID `json:"user_id"`
}

// MessageCreateData is the payload of a MESSAGE_CREATE dispatch.
type MessageCreateData struct {
	ID        models.ID   `json:"id"`
	ChannelID models.ID   `json:"channel_id"`
	Author    models.User `json:"author"`
	Content   string      `json:"content"`
}
