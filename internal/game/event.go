package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeTick              // Tick boundary with delta and entity count
	EventTypeStateChange
	EventTypeShipDestroyed
	EventTypeProjectileCreated
	EventTypeProjectileDestroyed
	EventTypeImpulse
	EventTypeMatchOver
	EventTypePlayerAI
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// Event is the core event structure for the event log
type Event struct {
	Version   uint8     `json:"version"`   // Schema version
	Type      EventType `json:"type"`      // Event type
	Timestamp int64     `json:"timestamp"` // Unix nano
	Sequence  uint64    `json:"sequence"`  // Monotonic sequence
	TickNum   uint64    `json:"tickNum"`   // Game tick this occurred in
	PlayerID  string    `json:"playerId"`  // Source player (for rate limiting)
	Payload   []byte    `json:"payload"`   // JSON-encoded payload
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeTick:
		return "tick"
	case EventTypeStateChange:
		return "state_change"
	case EventTypeShipDestroyed:
		return "ship_destroyed"
	case EventTypeProjectileCreated:
		return "projectile_created"
	case EventTypeProjectileDestroyed:
		return "projectile_destroyed"
	case EventTypeImpulse:
		return "impulse"
	case EventTypeMatchOver:
		return "match_over"
	case EventTypePlayerAI:
		return "player_ai"
	default:
		return "unknown"
	}
}

// Typed payloads for different event types

// TickPayload contains tick boundary information for replay
type TickPayload struct {
	DeltaTimeNs int64  `json:"deltaTimeNs"`
	EntityCount int    `json:"entityCount"`
	ShipCount   int    `json:"shipCount"`
	State       string `json:"state"`
}

// StateChangePayload records a lifecycle transition
type StateChangePayload struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Scores []int  `json:"scores"`
}

// MatchOverPayload contains the verdict and the updated scores
type MatchOverPayload struct {
	Result MatchResult `json:"result"`
	Scores []int       `json:"scores"`
}

// PlayerAIPayload records a player switching between keyboard and AI
type PlayerAIPayload struct {
	Player int  `json:"player"`
	IsAI   bool `json:"isAi"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, playerID string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		PlayerID:  playerID,
		Payload:   EncodePayload(payload),
	}
}
