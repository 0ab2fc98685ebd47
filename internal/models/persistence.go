package models

import "time"

// GameState is the client's full game snapshot. The server stores it opaquely.
type GameState map[string]any

// SaveRecord is one persisted snapshot. (PlayerID, SaveSlot) identifies it.
type SaveRecord struct {
	ID        string    `json:"saveId,omitempty"`
	PlayerID  string    `json:"playerId"`
	SaveSlot  int       `json:"saveSlot"`
	SaveName  string    `json:"saveName"`
	GameState GameState `json:"gameState"`
	Timestamp time.Time `json:"timestamp"`
}

// SaveSummary is a list entry without the game state payload.
type SaveSummary struct {
	SaveID    string    `json:"saveId"`
	SaveName  string    `json:"saveName"`
	SaveSlot  int       `json:"saveSlot"`
	Timestamp time.Time `json:"timestamp"`
}

// UpsertResult reports where a save landed.
type UpsertResult struct {
	SaveID  string `json:"saveId"`
	Created bool   `json:"created"`
}
