package eventstore

import "time"

// Event types recorded for a build.
const (
	TypeBuildStarted   = "BuildStarted"
	TypeContentLoaded  = "ContentLoaded"
	TypeBuildCompleted = "BuildCompleted"
	TypeBuildFailed    = "BuildFailed"
)

// Event is a recorded fact about a build.
type Event interface {
	ID() int64
	BuildID() string
	Type() string
	Timestamp() time.Time
	// Payload is the JSON encoded event body.
	Payload() []byte
}

// BaseEvent is the stored form of every event. Typed events embed it and
// marshal their own fields as the payload.
type BaseEvent struct {
	EventID        int64     `json:"-"`
	EventBuildID   string    `json:"-"`
	EventType      string    `json:"-"`
	EventTimestamp time.Time `json:"-"`
	EventPayload   []byte    `json:"-"`
}

func (e *BaseEvent) ID() int64            { return e.EventID }
func (e *BaseEvent) BuildID() string      { return e.EventBuildID }
func (e *BaseEvent) Type() string         { return e.EventType }
func (e *BaseEvent) Timestamp() time.Time { return e.EventTimestamp }
func (e *BaseEvent) Payload() []byte      { return e.EventPayload }
