package capacity

import (
	"fmt"
	"sort"

	"github.com/openkerb/openkerb/pkg/model"
)

// Map is the arena of zones, areas, and slots. Zones, areas, and slots are
// owned by the Map; everything outside holds IDs only.
type Map struct {
	zones map[string]*model.Zone
	areas map[string]*model.ParkingArea
	slots map[string]*model.Slot
}

// NewMap returns an empty capacity map.
func NewMap() *Map {
	return &Map{
		zones: make(map[string]*model.Zone),
		areas: make(map[string]*model.ParkingArea),
		slots: make(map[string]*model.Slot),
	}
}

// AddZone registers a zone. Fails when the ID is already taken.
func (m *Map) AddZone(id, name string) error {
	if id == "" {
		return model.NewInvalidArgument("zone id must not be empty")
	}
	if _, exists := m.zones[id]; exists {
		return model.NewInvalidArgument(fmt.Sprintf("duplicate zone id: %s", id))
	}
	m.zones[id] = &model.Zone{ID: id, Name: name}
	return nil
}

// AddArea registers a parking area under an existing zone, appended in
// declared scan order.
func (m *Map) AddArea(id, zoneID string) error {
	if id == "" {
		return model.NewInvalidArgument("area id must not be empty")
	}
	zone, ok := m.zones[zoneID]
	if !ok {
		return model.NewNotFound("zone", zoneID)
	}
	if _, exists := m.areas[id]; exists {
		return model.NewInvalidArgument(fmt.Sprintf("duplicate area id: %s", id))
	}
	m.areas[id] = &model.ParkingArea{ID: id, ZoneID: zoneID}
	zone.AreaIDs = append(zone.AreaIDs, id)
	return nil
}

// AddSlot registers a slot under an existing area, appended in declared
// scan order. New slots start available.
func (m *Map) AddSlot(id, areaID string) error {
	if id == "" {
		return model.NewInvalidArgument("slot id must not be empty")
	}
	area, ok := m.areas[areaID]
	if !ok {
		return model.NewNotFound("area", areaID)
	}
	if _, exists := m.slots[id]; exists {
		return model.NewInvalidArgument(fmt.Sprintf("duplicate slot id: %s", id))
	}
	m.slots[id] = &model.Slot{
		ID:        id,
		ZoneID:    area.ZoneID,
		AreaID:    areaID,
		Available: true,
	}
	area.SlotIDs = append(area.SlotIDs, id)
	return nil
}

// AddAdjacency declares that to is adjacent to from, appended in declared
// fallback order. Adjacency is directional; callers wanting symmetric
// adjacency declare both directions.
func (m *Map) AddAdjacency(from, to string) error {
	zone, ok := m.zones[from]
	if !ok {
		return model.NewNotFound("zone", from)
	}
	if _, ok := m.zones[to]; !ok {
		return model.NewNotFound("zone", to)
	}
	for _, id := range zone.AdjacentZoneIDs {
		if id == to {
			return nil
		}
	}
	zone.AdjacentZoneIDs = append(zone.AdjacentZoneIDs, to)
	return nil
}

// Zone returns a zone by ID.
func (m *Map) Zone(id string) (*model.Zone, bool) {
	z, ok := m.zones[id]
	return z, ok
}

// Slot returns a slot by ID.
func (m *Map) Slot(id string) (*model.Slot, bool) {
	s, ok := m.slots[id]
	return s, ok
}

// Area returns a parking area by ID.
func (m *Map) Area(id string) (*model.ParkingArea, bool) {
	a, ok := m.areas[id]
	return a, ok
}

// Zones returns all zones sorted by ID for deterministic iteration.
func (m *Map) Zones() []*model.Zone {
	out := make([]*model.Zone, 0, len(m.zones))
	for _, z := range m.zones {
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AdjacentZones returns the declared adjacency of a zone in declared order.
func (m *Map) AdjacentZones(zoneID string) []string {
	zone, ok := m.zones[zoneID]
	if !ok {
		return nil
	}
	out := make([]string, len(zone.AdjacentZoneIDs))
	copy(out, zone.AdjacentZoneIDs)
	return out
}

// Slots returns a zone's slots in declared area/slot order.
func (m *Map) Slots(zoneID string) []*model.Slot {
	zone, ok := m.zones[zoneID]
	if !ok {
		return nil
	}
	var out []*model.Slot
	for _, areaID := range zone.AreaIDs {
		for _, slotID := range m.areas[areaID].SlotIDs {
			out = append(out, m.slots[slotID])
		}
	}
	return out
}

// AvailableSlots returns a zone's available slots in declared scan order.
func (m *Map) AvailableSlots(zoneID string) []*model.Slot {
	var out []*model.Slot
	for _, slot := range m.Slots(zoneID) {
		if slot.Available {
			out = append(out, slot)
		}
	}
	return out
}

// NextAvailable returns the first available slot of a zone in declared
// scan order, or false when the zone is full or unknown.
func (m *Map) NextAvailable(zoneID string) (*model.Slot, bool) {
	for _, slot := range m.Slots(zoneID) {
		if slot.Available {
			return slot, true
		}
	}
	return nil, false
}

// Bind marks a slot occupied by a request. Fails with invalid_state when
// the slot is already occupied, leaving the slot unchanged.
func (m *Map) Bind(slotID, requestID string) error {
	slot, ok := m.slots[slotID]
	if !ok {
		return model.NewNotFound("slot", slotID)
	}
	if !slot.Available {
		return model.NewInvalidState(
			fmt.Sprintf("slot already occupied by %s", slot.OccupantRequestID),
		).WithSlot(slotID).WithRequest(requestID)
	}
	slot.Available = false
	slot.OccupantRequestID = requestID
	return nil
}

// Free clears a slot's occupant and marks it available. Idempotent and
// authoritative: rollback relies on Free succeeding regardless of the
// slot's current occupant.
func (m *Map) Free(slotID string) error {
	slot, ok := m.slots[slotID]
	if !ok {
		return model.NewNotFound("slot", slotID)
	}
	slot.Available = true
	slot.OccupantRequestID = ""
	return nil
}
