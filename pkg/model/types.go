package model

import "time"

// Slot represents a single parking slot inside a parking area.
type Slot struct {
	// ID is the unique slot identifier (unique across the whole map).
	ID string `json:"id"`

	// ZoneID is the owning zone.
	ZoneID string `json:"zone_id"`

	// AreaID is the owning parking area.
	AreaID string `json:"area_id"`

	// Available reports whether the slot can be allocated.
	// Invariant: Available == (OccupantRequestID == "").
	Available bool `json:"available"`

	// OccupantRequestID is the request currently bound to this slot, if any.
	OccupantRequestID string `json:"occupant_request_id,omitempty"`
}

// ParkingArea groups an ordered collection of slots inside a zone.
type ParkingArea struct {
	// ID is the unique area identifier.
	ID string `json:"id"`

	// ZoneID is the owning zone.
	ZoneID string `json:"zone_id"`

	// SlotIDs lists the area's slots in declared scan order.
	SlotIDs []string `json:"slot_ids"`
}

// Zone is a named region containing parking areas, with declared adjacency
// to other zones. Adjacency is declared, not inferred geometrically, and is
// not required to be symmetric.
type Zone struct {
	// ID is the unique zone identifier.
	ID string `json:"id"`

	// Name is the human-readable zone name.
	Name string `json:"name"`

	// AreaIDs lists the zone's parking areas in declared scan order.
	AreaIDs []string `json:"area_ids"`

	// AdjacentZoneIDs lists adjacent zones in declared fallback order.
	AdjacentZoneIDs []string `json:"adjacent_zone_ids,omitempty"`
}

// Vehicle identifies a vehicle requesting parking.
type Vehicle struct {
	// ID is the unique vehicle identifier (e.g. a plate number).
	ID string `json:"id"`

	// PreferredZoneID is the zone the vehicle usually requests.
	PreferredZoneID string `json:"preferred_zone_id,omitempty"`
}

// Request is a parking request and the unit of undo for the rollback
// journal. It is created in StateRequested and mutated only through the
// lifecycle machine, except for privileged rollback restores.
type Request struct {
	// ID is the unique request identifier (sequential, e.g. "R0001").
	ID string `json:"id"`

	// VehicleID is the requesting vehicle.
	VehicleID string `json:"vehicle_id"`

	// RequestedZoneID is the originally requested zone.
	RequestedZoneID string `json:"requested_zone_id"`

	// State is the current lifecycle state.
	State RequestState `json:"state"`

	// AllocatedSlotID is the bound slot while State is ALLOCATED or OCCUPIED.
	AllocatedSlotID string `json:"allocated_slot_id,omitempty"`

	// CrossZone marks an allocation that fell outside the requested zone.
	CrossZone bool `json:"cross_zone"`

	// RequestedAt is when the request was created.
	RequestedAt time.Time `json:"requested_at"`

	// OccupiedAt is when the vehicle arrived, set on entering OCCUPIED.
	OccupiedAt *time.Time `json:"occupied_at,omitempty"`

	// ReleasedAt is when the vehicle left, set on entering RELEASED.
	ReleasedAt *time.Time `json:"released_at,omitempty"`
}

// HasSlot reports whether a slot is currently linked to the request.
func (r *Request) HasSlot() bool {
	return r.AllocatedSlotID != ""
}

// Duration returns the completed parking duration, or false when the
// request never completed a full OCCUPIED -> RELEASED cycle.
func (r *Request) Duration() (time.Duration, bool) {
	if r.OccupiedAt == nil || r.ReleasedAt == nil {
		return 0, false
	}
	return r.ReleasedAt.Sub(*r.OccupiedAt), true
}
