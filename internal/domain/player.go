package domain

// UnknownPlayerName is shown when a player id cannot be resolved
const UnknownPlayerName = "someone"

// Player is a chat participant as seen by the game
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewPlayer creates a player, falling back to the id for an empty name
func NewPlayer(id, name string) Player {
	if name == "" {
		name = id
	}
	return Player{ID: id, Name: name}
}
