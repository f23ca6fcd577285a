package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of game event
type EventType string

const (
	EventVoteCast     EventType = "VOTE_CAST"
	EventMoveApplied  EventType = "MOVE_APPLIED"
	EventMatchWon     EventType = "MATCH_WON"
	EventMatchTied    EventType = "MATCH_TIED"
	EventBoardReset   EventType = "BOARD_RESET"
	EventAnnouncement EventType = "ANNOUNCEMENT"
)

// GameEvent represents an event that occurred in the game
type GameEvent struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	PlayerID  string      `json:"playerId,omitempty"` // If event is player-specific
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a new game event
func NewEvent(eventType EventType, payload interface{}) *GameEvent {
	return &GameEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// NewPlayerEvent creates a new player-specific game event
func NewPlayerEvent(eventType EventType, playerID string, payload interface{}) *GameEvent {
	event := NewEvent(eventType, payload)
	event.PlayerID = playerID
	return event
}

// Payload types for different events

// VoteCastPayload is sent after a vote is recorded.
// The voter stays anonymous; only the updated tally is shared.
type VoteCastPayload struct {
	Category Category     `json:"category"`
	Tally    []TallyEntry `json:"tally"`
}

// MovePayload is sent after every accepted move
type MovePayload struct {
	Result MoveResult `json:"result"`
}

// BoardResetPayload is sent when the board is reset outside a match end
type BoardResetPayload struct {
	NextTurn Mark `json:"nextTurn"`
}

// AnnouncementPayload carries a preformatted text summary
type AnnouncementPayload struct {
	Text string `json:"text"`
}
