package engine

// AllocationResult describes the outcome of an allocation attempt.
// Allocated is false when no slot was free in the requested zone or
// any adjacent zone; that outcome carries no error.
type AllocationResult struct {
	// RequestID is the request the attempt was made for.
	RequestID string `json:"request_id"`

	// Allocated reports whether a slot was bound.
	Allocated bool `json:"allocated"`

	// SlotID is the bound slot, empty when Allocated is false.
	SlotID string `json:"slot_id,omitempty"`

	// ZoneID is the zone the bound slot belongs to.
	ZoneID string `json:"zone_id,omitempty"`

	// CrossZone reports whether the slot came from an adjacent zone
	// rather than the requested one.
	CrossZone bool `json:"cross_zone"`
}
