package capacity

import (
	"fmt"
	"testing"

	"github.com/openkerb/openkerb/pkg/model"
)

// buildTestMap creates two zones: zone-a with areas a1 (2 slots) and a2
// (1 slot), zone-b with one area and one slot, a adjacent to b.
func buildTestMap(t *testing.T) *Map {
	t.Helper()

	m := NewMap()
	steps := []struct {
		fn   func() error
		name string
	}{
		{func() error { return m.AddZone("zone-a", "Downtown") }, "zone-a"},
		{func() error { return m.AddZone("zone-b", "Harbor") }, "zone-b"},
		{func() error { return m.AddArea("a1", "zone-a") }, "a1"},
		{func() error { return m.AddArea("a2", "zone-a") }, "a2"},
		{func() error { return m.AddArea("b1", "zone-b") }, "b1"},
		{func() error { return m.AddSlot("a1-01", "a1") }, "a1-01"},
		{func() error { return m.AddSlot("a1-02", "a1") }, "a1-02"},
		{func() error { return m.AddSlot("a2-01", "a2") }, "a2-01"},
		{func() error { return m.AddSlot("b1-01", "b1") }, "b1-01"},
		{func() error { return m.AddAdjacency("zone-a", "zone-b") }, "adjacency"},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			t.Fatalf("building map (%s): %v", s.name, err)
		}
	}
	return m
}

func TestMapRejectsDuplicatesAndUnknownParents(t *testing.T) {
	t.Parallel()
	m := buildTestMap(t)

	if err := m.AddZone("zone-a", "Again"); !model.IsInvalidArgument(err) {
		t.Errorf("duplicate zone: got %v, want invalid_argument", err)
	}
	if err := m.AddArea("a1", "zone-a"); !model.IsInvalidArgument(err) {
		t.Errorf("duplicate area: got %v, want invalid_argument", err)
	}
	if err := m.AddSlot("a1-01", "a1"); !model.IsInvalidArgument(err) {
		t.Errorf("duplicate slot: got %v, want invalid_argument", err)
	}
	if err := m.AddArea("x1", "zone-x"); !model.IsNotFound(err) {
		t.Errorf("area under unknown zone: got %v, want not_found", err)
	}
	if err := m.AddSlot("x1-01", "x1"); !model.IsNotFound(err) {
		t.Errorf("slot under unknown area: got %v, want not_found", err)
	}
	if err := m.AddAdjacency("zone-a", "zone-x"); !model.IsNotFound(err) {
		t.Errorf("adjacency to unknown zone: got %v, want not_found", err)
	}
}

func TestScanOrderIsDeclaredOrder(t *testing.T) {
	t.Parallel()
	m := buildTestMap(t)

	want := []string{"a1-01", "a1-02", "a2-01"}
	slots := m.Slots("zone-a")
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d", len(want), len(slots))
	}
	for i, s := range slots {
		if s.ID != want[i] {
			t.Errorf("slot[%d] = %s, want %s", i, s.ID, want[i])
		}
	}
}

func TestNextAvailableSkipsOccupied(t *testing.T) {
	t.Parallel()
	m := buildTestMap(t)

	if err := m.Bind("a1-01", "R0001"); err != nil {
		t.Fatalf("bind: %v", err)
	}

	slot, ok := m.NextAvailable("zone-a")
	if !ok {
		t.Fatal("expected an available slot")
	}
	if slot.ID != "a1-02" {
		t.Errorf("NextAvailable = %s, want a1-02", slot.ID)
	}
}

func TestNextAvailableFullZone(t *testing.T) {
	t.Parallel()
	m := buildTestMap(t)

	for i, id := range []string{"a1-01", "a1-02", "a2-01"} {
		if err := m.Bind(id, fmt.Sprintf("R%04d", i+1)); err != nil {
			t.Fatalf("bind %s: %v", id, err)
		}
	}
	if _, ok := m.NextAvailable("zone-a"); ok {
		t.Error("expected no available slot in a full zone")
	}
	if _, ok := m.NextAvailable("zone-x"); ok {
		t.Error("expected no available slot for an unknown zone")
	}
}

func TestBindOccupiedSlotFails(t *testing.T) {
	t.Parallel()
	m := buildTestMap(t)

	if err := m.Bind("a1-01", "R0001"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	err := m.Bind("a1-01", "R0002")
	if !model.IsInvalidState(err) {
		t.Fatalf("double bind: got %v, want invalid_state", err)
	}

	// Slot must be left unchanged by the failed bind.
	slot, _ := m.Slot("a1-01")
	if slot.OccupantRequestID != "R0001" {
		t.Errorf("occupant = %s, want R0001", slot.OccupantRequestID)
	}
}

func TestFreeIsIdempotentAndAuthoritative(t *testing.T) {
	t.Parallel()
	m := buildTestMap(t)

	if err := m.Bind("a1-01", "R0001"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := m.Free("a1-01"); err != nil {
		t.Fatalf("free: %v", err)
	}
	if err := m.Free("a1-01"); err != nil {
		t.Fatalf("second free: %v", err)
	}

	slot, _ := m.Slot("a1-01")
	if !slot.Available || slot.OccupantRequestID != "" {
		t.Errorf("slot after free: available=%v occupant=%q", slot.Available, slot.OccupantRequestID)
	}
}

func TestSlotAvailabilityInvariant(t *testing.T) {
	t.Parallel()
	m := buildTestMap(t)

	check := func() {
		t.Helper()
		for _, zone := range m.Zones() {
			for _, slot := range m.Slots(zone.ID) {
				if slot.Available != (slot.OccupantRequestID == "") {
					t.Errorf("slot %s violates availability invariant: available=%v occupant=%q",
						slot.ID, slot.Available, slot.OccupantRequestID)
				}
			}
		}
	}

	check()
	_ = m.Bind("a1-02", "R0001")
	check()
	_ = m.Free("a1-02")
	check()
}

func TestZoneStatusAndSummary(t *testing.T) {
	t.Parallel()
	m := buildTestMap(t)

	if err := m.Bind("a1-01", "R0001"); err != nil {
		t.Fatalf("bind: %v", err)
	}

	st, err := m.ZoneStatus("zone-a")
	if err != nil {
		t.Fatalf("zone status: %v", err)
	}
	if st.Total != 3 || st.Available != 2 || st.Occupied != 1 {
		t.Errorf("status = %+v", st)
	}
	wantUtil := 100.0 / 3.0
	if st.Utilization < wantUtil-0.01 || st.Utilization > wantUtil+0.01 {
		t.Errorf("utilization = %f, want ~%f", st.Utilization, wantUtil)
	}

	if _, err := m.ZoneStatus("zone-x"); !model.IsNotFound(err) {
		t.Errorf("unknown zone status: got %v, want not_found", err)
	}

	sum := m.Summary()
	if sum.Zones != 2 || sum.Total != 4 || sum.Occupied != 1 || sum.Available != 3 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestAdjacencyIsDirectionalAndOrdered(t *testing.T) {
	t.Parallel()
	m := buildTestMap(t)

	if got := m.AdjacentZones("zone-a"); len(got) != 1 || got[0] != "zone-b" {
		t.Errorf("zone-a adjacency = %v", got)
	}
	if got := m.AdjacentZones("zone-b"); len(got) != 0 {
		t.Errorf("zone-b adjacency = %v, want empty (declared, not inferred)", got)
	}

	// Duplicate declarations are collapsed.
	if err := m.AddAdjacency("zone-a", "zone-b"); err != nil {
		t.Fatalf("re-declare adjacency: %v", err)
	}
	if got := m.AdjacentZones("zone-a"); len(got) != 1 {
		t.Errorf("adjacency after duplicate declare = %v", got)
	}
}
