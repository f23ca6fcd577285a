package ws

import "time"

// MessageType represents the type of WebSocket message
type MessageType string

// Client → Server message types
const (
	MsgCommand MessageType = "command"
	MsgPing    MessageType = "ping"
)

// Server → Client message types
const (
	MsgConnected MessageType = "connected"
	MsgReply     MessageType = "reply"
	MsgError     MessageType = "error"
	MsgEvent     MessageType = "event"
	MsgPong      MessageType = "pong"
)

// ClientMessage represents a message from client to server
type ClientMessage struct {
	Type    MessageType     `json:"type"`
	Payload *CommandPayload `json:"payload,omitempty"`
}

// ServerMessage represents a message from server to client
type ServerMessage struct {
	Type      MessageType `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// NewServerMessage creates a new server message with current timestamp
func NewServerMessage(msgType MessageType, payload interface{}) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// CommandPayload is the payload for command message.
// An empty channel means the main channel.
type CommandPayload struct {
	Text    string `json:"text"`
	Channel string `json:"channel,omitempty"`
	Name    string `json:"name,omitempty"`
}

// ConnectedPayload is the payload for connected message
type ConnectedPayload struct {
	PlayerID    string `json:"playerId"`
	MainChannel string `json:"mainChannel"`
}

// ReplyPayload is the payload for reply message
type ReplyPayload struct {
	Text      string `json:"text"`
	InChannel bool   `json:"inChannel"`
}

// ErrorPayload is the payload for error message
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrCodeInvalidMessage is sent for frames that are not a known message
const ErrCodeInvalidMessage = "INVALID_MESSAGE"
