package model

import "time"

// Snapshot is one saved version of a persisted override slot.
type Snapshot struct {
	ID        string    `json:"id"`
	Slot      string    `json:"slot"`
	Version   int       `json:"version"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	Data      []byte    `json:"-"`
}
