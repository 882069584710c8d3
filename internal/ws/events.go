package ws

import (
	"encoding/json"
	"time"

	"github.com/cbdb-network/cbdbnet/internal/models"
)

// Event types sent to clients.
const (
	EventProgress = "progress"
	EventResult   = "result"
	EventError    = "error"
)

// MsgExplore is the only message type a client sends.
const MsgExplore = "explore"

// Event is the structured message sent to WebSocket clients. IDs increase by
// one per event within a session, starting at 1.
type Event struct {
	Type string          `json:"type"`
	ID   uint64          `json:"id"`
	Data json.RawMessage `json:"data"`
	Time time.Time       `json:"time"`
}

// ExploreMsg is the client's request: an ExploreRequest tagged with its type.
type ExploreMsg struct {
	Type string `json:"type"`
	models.ExploreRequest
}

// ErrorData is the payload of an error event.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
