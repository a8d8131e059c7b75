package eventstore

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

// BuildStarted is emitted when a build begins.
type BuildStarted struct {
	BaseEvent
	Trigger string `json:"trigger"` // cli, watch or schedule
}

// NewBuildStarted creates a BuildStarted event.
func NewBuildStarted(buildID, trigger string, at time.Time) (*BuildStarted, error) {
	e := &BuildStarted{Trigger: trigger}
	if err := e.init(buildID, TypeBuildStarted, at, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ContentLoaded is emitted after the content directory has been read.
type ContentLoaded struct {
	BaseEvent
	Documents   int    `json:"documents"`
	Posts       int    `json:"posts"`
	Fingerprint string `json:"fingerprint"`
}

// NewContentLoaded creates a ContentLoaded event.
func NewContentLoaded(buildID string, documents, posts int, fingerprint string, at time.Time) (*ContentLoaded, error) {
	e := &ContentLoaded{Documents: documents, Posts: posts, Fingerprint: fingerprint}
	if err := e.init(buildID, TypeContentLoaded, at, e); err != nil {
		return nil, err
	}
	return e, nil
}

// BuildCompleted is emitted when a build finishes without error, including
// builds skipped because the content was unchanged.
type BuildCompleted struct {
	BaseEvent
	Status      string        `json:"status"` // success or skipped
	Duration    time.Duration `json:"duration_ns"`
	Pages       int           `json:"pages"`
	Tags        int           `json:"tags"`
	FeedEntries int           `json:"feed_entries"`
}

// NewBuildCompleted creates a BuildCompleted event.
func NewBuildCompleted(buildID, status string, duration time.Duration, pages, tags, feedEntries int, at time.Time) (*BuildCompleted, error) {
	e := &BuildCompleted{Status: status, Duration: duration, Pages: pages, Tags: tags, FeedEntries: feedEntries}
	if err := e.init(buildID, TypeBuildCompleted, at, e); err != nil {
		return nil, err
	}
	return e, nil
}

// BuildFailed is emitted when a stage fails or the build is canceled.
type BuildFailed struct {
	BaseEvent
	Stage    string `json:"stage"`
	Error    string `json:"error"`
	Canceled bool   `json:"canceled,omitempty"`
}

// NewBuildFailed creates a BuildFailed event.
func NewBuildFailed(buildID, stage, errorMsg string, canceled bool, at time.Time) (*BuildFailed, error) {
	e := &BuildFailed{Stage: stage, Error: errorMsg, Canceled: canceled}
	if err := e.init(buildID, TypeBuildFailed, at, e); err != nil {
		return nil, err
	}
	return e, nil
}

// init fills the stored form from the typed event body.
func (e *BaseEvent) init(buildID, eventType string, at time.Time, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.StorageError("failed to marshal event payload").
			WithCause(err).
			WithContext("build_id", buildID).
			WithContext("event_type", eventType).
			Build()
	}
	e.EventBuildID = buildID
	e.EventType = eventType
	e.EventTimestamp = at
	e.EventPayload = payload
	return nil
}
