package stores

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func testRun(id string) *Run {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return &Run{
		ID:        id,
		Scenario:  "morning-rush",
		Status:    RunStatusRunning,
		StartedAt: now,
		Metadata:  "{}",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRunCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := testRun("run-1")
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("create run: %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Scenario != "morning-rush" || got.Status != RunStatusRunning {
		t.Errorf("got %+v", got)
	}
	if got.CompletedAt != nil {
		t.Error("running run must not have a completion time")
	}

	if err := store.UpdateRunStatus(ctx, "run-1", RunStatusCompleted, nil); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, err = store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Status != RunStatusCompleted || got.CompletedAt == nil {
		t.Errorf("terminal status must stamp completion: %+v", got)
	}

	if err := store.DeleteRun(ctx, "run-1"); err != nil {
		t.Fatalf("delete run: %v", err)
	}
	if _, err := store.GetRun(ctx, "run-1"); err == nil {
		t.Error("deleted run still readable")
	}
}

func TestUpdateUnknownRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.UpdateRunStatus(ctx, "missing", RunStatusFailed, nil); err == nil {
		t.Error("updating unknown run must fail")
	}
	if err := store.DeleteRun(ctx, "missing"); err == nil {
		t.Error("deleting unknown run must fail")
	}
}

func TestListRunsMostRecentFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"run-1", "run-2", "run-3"} {
		run := testRun(id)
		run.StartedAt = run.StartedAt.Add(time.Duration(i) * time.Hour)
		if err := store.CreateRun(ctx, run); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx, 2, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-3" || runs[1].ID != "run-2" {
		t.Errorf("got %d runs, first %s", len(runs), runs[0].ID)
	}
}

func TestEventTimeline(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateRun(ctx, testRun("run-1")); err != nil {
		t.Fatalf("create run: %v", err)
	}

	runID := "run-1"
	reqID := "R0001"
	slotID := "a1-01"
	warn := EventLevelWarning
	events := []*RequestEvent{
		{RunID: &runID, RequestID: &reqID, Type: "request.created", Level: EventLevelInfo, Message: "created", Timestamp: time.Now().UTC()},
		{RunID: &runID, RequestID: &reqID, SlotID: &slotID, Type: "allocation.granted", Level: EventLevelInfo, Message: "allocated", Timestamp: time.Now().UTC()},
		{RunID: &runID, Type: "allocation.denied", Level: warn, Message: "no capacity", Timestamp: time.Now().UTC()},
	}
	for _, ev := range events {
		if err := store.AppendEvent(ctx, ev); err != nil {
			t.Fatalf("append: %v", err)
		}
		if ev.ID == 0 {
			t.Error("append must backfill the event ID")
		}
	}

	all, err := store.GetEvents(ctx, EventFilter{RunID: &runID}, 10, 0)
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	if len(all) != 3 || all[0].Type != "request.created" {
		t.Errorf("got %d events, first %s", len(all), all[0].Type)
	}

	byRequest, err := store.GetEvents(ctx, EventFilter{RequestID: &reqID}, 10, 0)
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	if len(byRequest) != 2 {
		t.Errorf("by request = %d, want 2", len(byRequest))
	}

	warnings, err := store.GetEvents(ctx, EventFilter{Level: &warn}, 10, 0)
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	if len(warnings) != 1 || warnings[0].Type != "allocation.denied" {
		t.Errorf("warnings = %d", len(warnings))
	}
}

func TestRequestSnapshotUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateRun(ctx, testRun("run-1")); err != nil {
		t.Fatalf("create run: %v", err)
	}

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	slotID := "a1-01"
	snap := &RequestSnapshot{
		RequestID:   "R0001",
		RunID:       "run-1",
		VehicleID:   "KA-01-X-0001",
		ZoneID:      "zone-a",
		State:       "ALLOCATED",
		SlotID:      &slotID,
		RequestedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := store.UpsertRequestSnapshot(ctx, snap); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Second upsert advances the state.
	occupied := now.Add(time.Minute)
	snap.State = "OCCUPIED"
	snap.OccupiedAt = &occupied
	snap.UpdatedAt = occupied
	if err := store.UpsertRequestSnapshot(ctx, snap); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := store.GetRequestSnapshot(ctx, "run-1", "R0001")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if got.State != "OCCUPIED" || got.OccupiedAt == nil {
		t.Errorf("got %+v", got)
	}
	if got.SlotID == nil || *got.SlotID != "a1-01" {
		t.Errorf("slot = %v", got.SlotID)
	}
}

func TestListRequestSnapshotsOrdered(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateRun(ctx, testRun("run-1")); err != nil {
		t.Fatalf("create run: %v", err)
	}

	now := time.Now().UTC()
	for _, id := range []string{"R0002", "R0001", "R0003"} {
		snap := &RequestSnapshot{
			RequestID: id, RunID: "run-1", VehicleID: "KA-01-X-0001",
			ZoneID: "zone-a", State: "REQUESTED",
			RequestedAt: now, CreatedAt: now, UpdatedAt: now,
		}
		if err := store.UpsertRequestSnapshot(ctx, snap); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}

	snaps, err := store.ListRequestSnapshots(ctx, "run-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(snaps) != 3 || snaps[0].RequestID != "R0001" || snaps[2].RequestID != "R0003" {
		t.Errorf("order = %v", []string{snaps[0].RequestID, snaps[1].RequestID, snaps[2].RequestID})
	}
}

func TestDeleteRunCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateRun(ctx, testRun("run-1")); err != nil {
		t.Fatalf("create run: %v", err)
	}
	runID := "run-1"
	ev := &RequestEvent{RunID: &runID, Type: "run.started", Level: EventLevelInfo, Message: "started", Timestamp: time.Now().UTC()}
	if err := store.AppendEvent(ctx, ev); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := store.DeleteRun(ctx, "run-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	events, err := store.GetEvents(ctx, EventFilter{RunID: &runID}, 10, 0)
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("events survived run deletion: %d", len(events))
	}
}

func TestHealthCheck(t *testing.T) {
	store := newTestStore(t)
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("health check: %v", err)
	}

	uninitialized, _ := NewSQLiteStore(Config{})
	if err := uninitialized.HealthCheck(context.Background()); err == nil {
		t.Error("uninitialized store must fail health check")
	}
}
