// Package model derives the property-graph node and edge set from bucketed
// clickstream sessions. The derivation is pure: no store access, and the
// same input always yields the same model.
package model

import "time"

// Node labels.
const (
	LabelUser    = "User"
	LabelSession = "Session"
	LabelEvent   = "Event"
	LabelProduct = "Product"
	LabelOutcome = "Outcome"
)

// Relationship types.
const (
	RelStarted    = "STARTED"
	RelContains   = "CONTAINS"
	RelNext       = "NEXT"
	RelAbout      = "ABOUT"
	RelResultedIn = "RESULTED_IN"
)

// Natural key property per label.
const (
	KeyUser    = "user_id"
	KeySession = "session_id"
	KeyEvent   = "event_id"
	KeyProduct = "product_id"
	KeyOutcome = "event_id"
)

// OutcomeNamePurchase is the only outcome kind the clickstream produces.
const OutcomeNamePurchase = "purchase"

// EventTypePurchase is the raw event type that yields an outcome.
const EventTypePurchase = "purchase"

// Event is one interaction, identified by "<session_id>#<seq>" with the
// sequence assigned chronologically within the session.
type Event struct {
	EventID   string
	SessionID string
	Timestamp *time.Time
	TypeRaw   string
}

// StartedEdge links a user to a session they started. Deduplicated by
// structural equality of the whole edge.
type StartedEdge struct {
	UserID    string
	SessionID string
}

type ContainsEdge struct {
	SessionID string
	EventID   string
}

// NextEdge chains consecutive events of one session. DeltaS is the
// inter-event gap in whole seconds, never negative.
type NextEdge struct {
	FromEventID string
	ToEventID   string
	DeltaS      int64
}

type AboutEdge struct {
	EventID   string
	ProductID string
}

// Outcome is the per-event result of a purchase. It is both a node (keyed
// by the originating event id, never shared between events) and the target
// of that event's RESULTED_IN edge. A nil Amount is coerced to 0.0 at load
// time.
type Outcome struct {
	EventID string
	Amount  *float64
}

// Model is the complete node/edge set for one run.
type Model struct {
	Users    []string
	Sessions []string
	Products []string
	Events   []Event

	Started  []StartedEdge
	Contains []ContainsEdge
	Next     []NextEdge
	About    []AboutEdge
	Outcomes []Outcome
}

// NodeCount is the total number of nodes the model materializes.
func (m *Model) NodeCount() int {
	return len(m.Users) + len(m.Sessions) + len(m.Products) + len(m.Events) + len(m.Outcomes)
}

// EdgeCount is the total number of relationships the model materializes.
func (m *Model) EdgeCount() int {
	return len(m.Started) + len(m.Contains) + len(m.Next) + len(m.About) + len(m.Outcomes)
}
