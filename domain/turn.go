package domain

import (
	"encoding/json"
	"time"
)

// TurnDirection marks whether a turn was received or sent.
type TurnDirection string

const (
	TurnInbound  TurnDirection = "inbound"
	TurnOutbound TurnDirection = "outbound"
)

// ConversationTurn is a write-once audit record of one message.
// Turns are never read back into orchestration decisions.
type ConversationTurn struct {
	TurnID    string          `json:"turn_id"`
	SessionID string          `json:"session_id"`
	Direction TurnDirection   `json:"direction"`
	Text      string          `json:"text"`
	CreatedAt time.Time       `json:"created_at"`
	Snapshot  json.RawMessage `json:"snapshot,omitempty"`
}

// InboundMessage is the transport-delivered event the orchestrator
// consumes: sender identity, text, and the transport's message ID used
// for redelivery dedup.
type InboundMessage struct {
	MessageID string `json:"message_id"`
	From      string `json:"from"`
	Text      string `json:"text"`
}
