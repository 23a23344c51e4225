package lifecycle

import (
	"fmt"

	"github.com/openkerb/openkerb/internal/clock"
	"github.com/openkerb/openkerb/pkg/capacity"
	"github.com/openkerb/openkerb/pkg/model"
)

// Machine validates and applies request state transitions. It is the only
// component that mutates request state forward; slot state is mutated
// through the capacity map so the availability invariant stays in one
// place.
type Machine struct {
	caps  *capacity.Map
	clock clock.Clock
}

// NewMachine creates a lifecycle machine over the given capacity map.
func NewMachine(caps *capacity.Map, clk clock.Clock) *Machine {
	return &Machine{caps: caps, clock: clk}
}

// Transition moves a request to the target state, applying the target's
// side effects atomically with the state change. It fails with
// invalid_transition when the table forbids the edge (including any
// transition on a terminal request) and leaves the request unmodified.
//
// Entering ALLOCATED requires a slot binding and must go through Allocate;
// calling Transition with StateAllocated returns invalid_state.
func (sm *Machine) Transition(req *model.Request, target model.RequestState) error {
	if err := target.Validate(); err != nil {
		return model.NewInvalidArgument(err.Error()).WithRequest(req.ID)
	}
	if !model.CanTransition(req.State, target) {
		return model.NewInvalidTransition(req.State, target).WithRequest(req.ID)
	}

	switch target {
	case model.StateAllocated:
		return model.NewInvalidState(
			"transition to ALLOCATED requires a slot binding; use Allocate",
		).WithRequest(req.ID)

	case model.StateOccupied:
		now := sm.clock.Now()
		req.State = model.StateOccupied
		req.OccupiedAt = &now

	case model.StateReleased:
		if err := sm.unlinkSlot(req); err != nil {
			return err
		}
		now := sm.clock.Now()
		req.State = model.StateReleased
		req.ReleasedAt = &now

	case model.StateCancelled:
		// Cancelling from REQUESTED is a no-op on slot state; from
		// ALLOCATED the slot must be freed even though no timestamps exist.
		if req.HasSlot() {
			if err := sm.unlinkSlot(req); err != nil {
				return err
			}
		}
		req.State = model.StateCancelled
	}

	return nil
}

// Allocate performs the REQUESTED -> ALLOCATED transition: it binds the
// slot, links it to the request, and sets the cross-zone flag. On any
// failure both the request and the slot are left unchanged.
func (sm *Machine) Allocate(req *model.Request, slotID string, crossZone bool) error {
	if !model.CanTransition(req.State, model.StateAllocated) {
		return model.NewInvalidTransition(req.State, model.StateAllocated).WithRequest(req.ID)
	}
	if err := sm.caps.Bind(slotID, req.ID); err != nil {
		return fmt.Errorf("bind slot: %w", err)
	}
	req.State = model.StateAllocated
	req.AllocatedSlotID = slotID
	req.CrossZone = crossZone
	return nil
}

// unlinkSlot frees the request's bound slot and clears the linkage.
func (sm *Machine) unlinkSlot(req *model.Request) error {
	if req.AllocatedSlotID == "" {
		return nil
	}
	if err := sm.caps.Free(req.AllocatedSlotID); err != nil {
		return fmt.Errorf("free slot: %w", err)
	}
	req.AllocatedSlotID = ""
	return nil
}
