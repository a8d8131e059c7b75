package eventstore

import (
	"testing"
	"time"
)

func appendAll(t *testing.T, store Store, events ...Event) {
	t.Helper()
	for _, e := range events {
		if err := store.Append(t.Context(), e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func TestProjectionRebuild(t *testing.T) {
	store := newTestStore(t)
	base := time.Now().Add(-time.Hour).Truncate(time.Second)

	appendAll(t, store,
		must(NewBuildStarted("b1", "cli", base)),
		must(NewContentLoaded("b1", 5, 3, "fp-1", base.Add(time.Second))),
		must(NewBuildCompleted("b1", StatusSuccess, 2*time.Second, 5, 2, 3, base.Add(2*time.Second))),

		must(NewBuildStarted("b2", "watch", base.Add(time.Minute))),
		must(NewBuildFailed("b2", "blog", "template error", false, base.Add(time.Minute+time.Second))),

		must(NewBuildStarted("b3", "schedule", base.Add(2*time.Minute))),
	)

	p := NewBuildHistoryProjection(store, 10)
	if err := p.Rebuild(t.Context()); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	history := p.GetHistory(0)
	if len(history) != 2 {
		t.Fatalf("expected 2 finished builds, got %d", len(history))
	}
	if history[0].BuildID != "b2" || history[1].BuildID != "b1" {
		t.Errorf("expected newest first, got %s, %s", history[0].BuildID, history[1].BuildID)
	}
	if history[0].Status != StatusFailed || history[0].ErrorStage != "blog" {
		t.Errorf("unexpected failed summary %+v", history[0])
	}

	b1 := history[1]
	if b1.Status != StatusSuccess || b1.Fingerprint != "fp-1" || b1.Posts != 3 || b1.Tags != 2 || b1.Trigger != "cli" {
		t.Errorf("unexpected success summary %+v", b1)
	}
	if b1.Duration != 2*time.Second {
		t.Errorf("expected duration 2s, got %v", b1.Duration)
	}

	running, ok := p.GetBuild("b3")
	if !ok || running.Finished() {
		t.Errorf("expected b3 to be running, got %+v", running)
	}

	last := p.LastSuccessful()
	if last == nil || last.BuildID != "b1" {
		t.Fatalf("expected b1 as last successful, got %+v", last)
	}

	if got := p.GetHistory(1); len(got) != 1 || got[0].BuildID != "b2" {
		t.Errorf("limit not applied: %+v", got)
	}
	if p.LastSyncTime().IsZero() {
		t.Error("expected sync time to be set")
	}
}

func TestProjectionApplyAndBound(t *testing.T) {
	p := NewBuildHistoryProjection(nil, 2)
	base := time.Now()

	for i, id := range []string{"a", "b", "c"} {
		at := base.Add(time.Duration(i) * time.Minute)
		p.Apply(must(NewBuildStarted(id, "cli", at)))
		p.Apply(must(NewBuildCompleted(id, StatusSkipped, 0, 0, 0, 0, at.Add(time.Second))))
	}

	history := p.GetHistory(0)
	if len(history) != 2 || history[0].BuildID != "c" || history[1].BuildID != "b" {
		t.Fatalf("expected bounded history [c b], got %+v", history)
	}
	if _, ok := p.GetBuild("a"); ok {
		t.Error("expected pruned build a")
	}
	if last := p.LastSuccessful(); last == nil || last.Status != StatusSkipped {
		t.Errorf("skipped builds count as successful, got %+v", last)
	}

	p.Apply(must(NewBuildFailed("d", "load", "canceled", true, base.Add(time.Hour))))
	if got := p.GetHistory(1); got[0].Status != StatusCanceled {
		t.Errorf("expected canceled status, got %s", got[0].Status)
	}
}

func TestProjectionEmpty(t *testing.T) {
	p := NewBuildHistoryProjection(newTestStore(t), 0)
	if err := p.Rebuild(t.Context()); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if p.LastSuccessful() != nil {
		t.Error("expected no successful build")
	}
	if len(p.GetHistory(5)) != 0 {
		t.Error("expected empty history")
	}
}
