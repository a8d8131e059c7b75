package eventstore

import (
	"encoding/json"
	"testing"
	"time"
)

const testBuildID = "build-123"

func TestEventPayloads(t *testing.T) {
	at := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)

	loaded, err := NewContentLoaded(testBuildID, 10, 4, "abc", at)
	if err != nil {
		t.Fatalf("NewContentLoaded: %v", err)
	}
	if loaded.Type() != TypeContentLoaded || loaded.BuildID() != testBuildID {
		t.Errorf("unexpected envelope %s/%s", loaded.Type(), loaded.BuildID())
	}
	var body map[string]any
	if err := json.Unmarshal(loaded.Payload(), &body); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if body["fingerprint"] != "abc" || body["documents"] != float64(10) {
		t.Errorf("unexpected payload %v", body)
	}
	if _, leaked := body["EventBuildID"]; leaked {
		t.Error("envelope fields must not be part of the payload")
	}

	completed, err := NewBuildCompleted(testBuildID, StatusSuccess, 2*time.Second, 7, 3, 2, at)
	if err != nil {
		t.Fatalf("NewBuildCompleted: %v", err)
	}
	var decoded BuildCompleted
	if err := json.Unmarshal(completed.Payload(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Duration != 2*time.Second || decoded.Tags != 3 || decoded.FeedEntries != 2 {
		t.Errorf("round trip lost fields: %+v", decoded)
	}

	failed, err := NewBuildFailed(testBuildID, "load", "missing dir", true, at)
	if err != nil {
		t.Fatalf("NewBuildFailed: %v", err)
	}
	if !failed.Timestamp().Equal(at) {
		t.Errorf("expected timestamp %v, got %v", at, failed.Timestamp())
	}
}
