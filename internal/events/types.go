// internal/events/types.go
package events

import (
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Token lifecycle events
	TokenDetected EventType = "token.detected"
	TokenSkipped  EventType = "token.skipped"

	// Position lifecycle events
	PositionOpened EventType = "position.opened"
	TargetHit      EventType = "position.target_hit"
	PositionClosed EventType = "position.closed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// TokenDetectedEvent is emitted for every token creation pulled off the
// log stream, before any filtering.
type TokenDetectedEvent struct {
	BaseEvent
	Mint      string
	Name      string
	Symbol    string
	Signature string
}

// TokenSkippedEvent is emitted when the safety filter rejects a token.
type TokenSkippedEvent struct {
	BaseEvent
	Mint   string
	Name   string
	Symbol string
	Reason string
}

// PositionOpenedEvent is emitted after a buy lands and the position is
// registered.
type PositionOpenedEvent struct {
	BaseEvent
	PositionID  uint64
	Mint        string
	Name        string
	Symbol      string
	BuyPrice    float64
	SolSpent    float64
	TokenAmount uint64
	Signature   string
}

// TargetHitEvent is emitted when a profit target triggers a partial or
// final sell.
type TargetHitEvent struct {
	BaseEvent
	PositionID     uint64
	Mint           string
	Symbol         string
	Stage          string // "first" or "final"
	PriceRatio     float64
	SoldPercentage float64
	Signature      string
}

// PositionClosedEvent is emitted when a position reaches 100% sold.
type PositionClosedEvent struct {
	BaseEvent
	PositionID uint64
	Mint       string
	Symbol     string
	PnLPercent float64
}
