package records

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Calculation kinds, one per calculator endpoint.
const (
	KindAnthropometry = "anthropometry"
	KindEasyMode      = "easy-mode"
	KindVelocity      = "growth-velocity"
	KindKPSP          = "kpsp"
)

var validKinds = map[string]bool{
	KindAnthropometry: true,
	KindEasyMode:      true,
	KindVelocity:      true,
	KindKPSP:          true,
}

// ErrNotFound is returned by repositories for an unknown ID.
var ErrNotFound = errors.New("calculation not found")

// Calculation is a saved calculator result. Payload is stored as given.
type Calculation struct {
	ID        uuid.UUID       `json:"id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedBy string          `json:"created_by,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// SavedEvent is published on the records topic after a save.
type SavedEvent struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
