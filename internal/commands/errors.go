package commands

import (
	"errors"

	"partyvote/internal/domain"
)

// Error codes shared by the transports
const (
	CodeInvalidCoordinate  = "INVALID_COORDINATE"
	CodeCellOccupied       = "CELL_OCCUPIED"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	CodeInvalidCommand     = "INVALID_COMMAND"
	CodeWrongChannel       = "WRONG_CHANNEL"
	CodeInvalidTarget      = "INVALID_TARGET"
	CodeInvalidCategory    = "INVALID_CATEGORY"
	CodeInvalidPlayer      = "INVALID_PLAYER"
	CodePlayerNotFound     = "PLAYER_NOT_FOUND"
	CodeInternalError      = "INTERNAL_ERROR"
)

var errorTable = []struct {
	err     error
	code    string
	message string
}{
	{domain.ErrWrongChannel, CodeWrongChannel, "You can't do that in this channel."},
	{domain.ErrInvalidTarget, CodeInvalidTarget, "Try again - you didn't specify a valid player."},
	{domain.ErrInvalidCoordinate, CodeInvalidCoordinate, "That square is off the board. Rows and columns go from 0 to 2."},
	{domain.ErrCellOccupied, CodeCellOccupied, "That square is already taken."},
	{domain.ErrStorageUnavailable, CodeStorageUnavailable, "Something went wrong saving that. Please try again."},
	{domain.ErrInvalidCategory, CodeInvalidCategory, "Unknown vote type. Use kill or prayer."},
	{domain.ErrInvalidCommand, CodeInvalidCommand, "I didn't understand that. Try help."},
	{domain.ErrInvalidPlayer, CodeInvalidPlayer, "I couldn't tell who you are."},
	{domain.ErrPlayerNotFound, CodePlayerNotFound, "I don't know that player."},
}

// ErrorCode maps an error to a stable code for API clients
func ErrorCode(err error) string {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return CodeInternalError
}

// UserMessage maps an error to the text shown to the player
func UserMessage(err error) string {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			return e.message
		}
	}
	return "Something went wrong."
}
