package lifecycle

import (
	"testing"
	"time"

	"github.com/openkerb/openkerb/internal/clock"
	"github.com/openkerb/openkerb/pkg/capacity"
	"github.com/openkerb/openkerb/pkg/model"
)

var testNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestMachine(t *testing.T) (*Machine, *capacity.Map) {
	t.Helper()

	caps := capacity.NewMap()
	if err := caps.AddZone("zone-a", "Downtown"); err != nil {
		t.Fatalf("add zone: %v", err)
	}
	if err := caps.AddArea("a1", "zone-a"); err != nil {
		t.Fatalf("add area: %v", err)
	}
	for _, id := range []string{"a1-01", "a1-02"} {
		if err := caps.AddSlot(id, "a1"); err != nil {
			t.Fatalf("add slot: %v", err)
		}
	}
	return NewMachine(caps, clock.NewFixed(testNow)), caps
}

func newRequest(state model.RequestState) *model.Request {
	return &model.Request{
		ID:              "R0001",
		VehicleID:       "KA-01-X-1234",
		RequestedZoneID: "zone-a",
		State:           state,
		RequestedAt:     testNow.Add(-time.Minute),
	}
}

func TestAllocateBindsSlotAndFlags(t *testing.T) {
	t.Parallel()
	sm, caps := newTestMachine(t)
	req := newRequest(model.StateRequested)

	if err := sm.Allocate(req, "a1-01", true); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if req.State != model.StateAllocated {
		t.Errorf("state = %s, want ALLOCATED", req.State)
	}
	if req.AllocatedSlotID != "a1-01" || !req.CrossZone {
		t.Errorf("slot=%s crossZone=%v", req.AllocatedSlotID, req.CrossZone)
	}

	slot, _ := caps.Slot("a1-01")
	if slot.Available || slot.OccupantRequestID != "R0001" {
		t.Errorf("slot not bound: available=%v occupant=%s", slot.Available, slot.OccupantRequestID)
	}
}

func TestAllocateFromWrongStateLeavesSlotFree(t *testing.T) {
	t.Parallel()
	sm, caps := newTestMachine(t)
	req := newRequest(model.StateOccupied)

	err := sm.Allocate(req, "a1-01", false)
	if !model.IsInvalidTransition(err) {
		t.Fatalf("got %v, want invalid_transition", err)
	}
	slot, _ := caps.Slot("a1-01")
	if !slot.Available {
		t.Error("failed allocate must not bind the slot")
	}
	if req.State != model.StateOccupied {
		t.Errorf("request mutated on failure: %s", req.State)
	}
}

func TestAllocateOccupiedSlotLeavesRequestUnchanged(t *testing.T) {
	t.Parallel()
	sm, caps := newTestMachine(t)
	if err := caps.Bind("a1-01", "R9999"); err != nil {
		t.Fatalf("bind: %v", err)
	}

	req := newRequest(model.StateRequested)
	err := sm.Allocate(req, "a1-01", false)
	if !model.IsInvalidState(err) {
		t.Fatalf("got %v, want invalid_state", err)
	}
	if req.State != model.StateRequested || req.HasSlot() {
		t.Errorf("request mutated on failure: state=%s slot=%s", req.State, req.AllocatedSlotID)
	}
}

func TestOccupyStampsStartTime(t *testing.T) {
	t.Parallel()
	sm, _ := newTestMachine(t)
	req := newRequest(model.StateRequested)
	if err := sm.Allocate(req, "a1-01", false); err != nil {
		t.Fatalf("allocate: %v", err)
	}

	if err := sm.Transition(req, model.StateOccupied); err != nil {
		t.Fatalf("occupy: %v", err)
	}
	if req.OccupiedAt == nil || !req.OccupiedAt.Equal(testNow) {
		t.Errorf("OccupiedAt = %v, want %v", req.OccupiedAt, testNow)
	}
	if req.AllocatedSlotID != "a1-01" {
		t.Error("occupy must keep the slot linked")
	}
}

func TestReleaseStampsEndTimeAndFreesSlot(t *testing.T) {
	t.Parallel()
	sm, caps := newTestMachine(t)
	req := newRequest(model.StateRequested)
	if err := sm.Allocate(req, "a1-01", false); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if err := sm.Transition(req, model.StateOccupied); err != nil {
		t.Fatalf("occupy: %v", err)
	}

	if err := sm.Transition(req, model.StateReleased); err != nil {
		t.Fatalf("release: %v", err)
	}
	if req.ReleasedAt == nil || !req.ReleasedAt.Equal(testNow) {
		t.Errorf("ReleasedAt = %v, want %v", req.ReleasedAt, testNow)
	}
	if req.HasSlot() {
		t.Error("release must unlink the slot")
	}
	slot, _ := caps.Slot("a1-01")
	if !slot.Available || slot.OccupantRequestID != "" {
		t.Errorf("slot not freed: available=%v occupant=%q", slot.Available, slot.OccupantRequestID)
	}
}

func TestCancelFromAllocatedFreesSlot(t *testing.T) {
	t.Parallel()
	sm, caps := newTestMachine(t)
	req := newRequest(model.StateRequested)
	if err := sm.Allocate(req, "a1-01", false); err != nil {
		t.Fatalf("allocate: %v", err)
	}

	if err := sm.Transition(req, model.StateCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if req.State != model.StateCancelled || req.HasSlot() {
		t.Errorf("state=%s slot=%q", req.State, req.AllocatedSlotID)
	}
	if req.OccupiedAt != nil || req.ReleasedAt != nil {
		t.Error("cancel from ALLOCATED must not stamp occupancy timestamps")
	}
	slot, _ := caps.Slot("a1-01")
	if !slot.Available {
		t.Error("cancel from ALLOCATED must free the slot")
	}
}

func TestCancelFromRequestedIsSlotNoop(t *testing.T) {
	t.Parallel()
	sm, caps := newTestMachine(t)
	req := newRequest(model.StateRequested)

	if err := sm.Transition(req, model.StateCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if req.State != model.StateCancelled {
		t.Errorf("state = %s, want CANCELLED", req.State)
	}
	for _, id := range []string{"a1-01", "a1-02"} {
		slot, _ := caps.Slot(id)
		if !slot.Available {
			t.Errorf("slot %s touched by REQUESTED cancel", id)
		}
	}
}

func TestTerminalStatesRejectAllTransitions(t *testing.T) {
	t.Parallel()
	sm, _ := newTestMachine(t)

	for _, terminal := range []model.RequestState{model.StateReleased, model.StateCancelled} {
		for _, target := range model.States() {
			req := newRequest(terminal)
			err := sm.Transition(req, target)
			if !model.IsInvalidTransition(err) {
				t.Errorf("%s -> %s: got %v, want invalid_transition", terminal, target, err)
			}
			if req.State != terminal {
				t.Errorf("%s mutated to %s by rejected transition", terminal, req.State)
			}
		}
	}
}

func TestBackwardTransitionsRejected(t *testing.T) {
	t.Parallel()
	sm, _ := newTestMachine(t)

	req := newRequest(model.StateOccupied)
	if err := sm.Transition(req, model.StateRequested); !model.IsInvalidTransition(err) {
		t.Errorf("OCCUPIED -> REQUESTED: got %v, want invalid_transition", err)
	}
	if err := sm.Transition(req, model.StateCancelled); !model.IsInvalidTransition(err) {
		t.Errorf("OCCUPIED -> CANCELLED: got %v, want invalid_transition", err)
	}
}

func TestTransitionToAllocatedRequiresEngine(t *testing.T) {
	t.Parallel()
	sm, _ := newTestMachine(t)

	req := newRequest(model.StateRequested)
	if err := sm.Transition(req, model.StateAllocated); !model.IsInvalidState(err) {
		t.Errorf("got %v, want invalid_state", err)
	}
	if req.State != model.StateRequested {
		t.Error("request mutated")
	}
}

func TestTransitionUnknownTarget(t *testing.T) {
	t.Parallel()
	sm, _ := newTestMachine(t)

	req := newRequest(model.StateRequested)
	if err := sm.Transition(req, model.RequestState("PARKED")); !model.IsInvalidArgument(err) {
		t.Errorf("got %v, want invalid_argument", err)
	}
}
