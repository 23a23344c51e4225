package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const validTopologyYAML = `
name: downtown-grid
zones:
  - id: zone-a
    name: Downtown
    adjacent: [zone-b]
    areas:
      - id: a1
        slots: 2
      - id: a2
        slots: 1
  - id: zone-b
    name: Riverside
    adjacent: [zone-a]
    areas:
      - id: b1
        slots: 1
`

func TestLoadTopologyYAML(t *testing.T) {
	t.Parallel()

	loader := NewLoader()
	path := writeFile(t, "topology.yaml", validTopologyYAML)

	topo, err := loader.LoadTopology(path)
	if err != nil {
		t.Fatalf("LoadTopology: %v", err)
	}
	if topo.Name != "downtown-grid" {
		t.Errorf("name = %q, want downtown-grid", topo.Name)
	}
	if len(topo.Zones) != 2 {
		t.Fatalf("zones = %d, want 2", len(topo.Zones))
	}
	if got := topo.Zones[0].Areas[0].SlotIDs(); len(got) != 2 || got[0] != "a1-01" || got[1] != "a1-02" {
		t.Errorf("slot IDs = %v, want [a1-01 a1-02]", got)
	}
}

func TestLoadTopologyUnsupportedFormat(t *testing.T) {
	t.Parallel()

	loader := NewLoader()
	if _, err := loader.LoadTopology("topology.json"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestValidateTopologySemantics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		topo    *Topology
		wantMsg string
	}{
		{
			name: "duplicate zone id",
			topo: &Topology{
				Name: "t",
				Zones: []ZoneConfig{
					{ID: "zone-a", Name: "A", Areas: []AreaConfig{{ID: "a1", Slots: 1}}},
					{ID: "zone-a", Name: "A2", Areas: []AreaConfig{{ID: "a2", Slots: 1}}},
				},
			},
			wantMsg: "duplicate zone id",
		},
		{
			name: "duplicate area id",
			topo: &Topology{
				Name: "t",
				Zones: []ZoneConfig{
					{ID: "zone-a", Name: "A", Areas: []AreaConfig{{ID: "a1", Slots: 1}}},
					{ID: "zone-b", Name: "B", Areas: []AreaConfig{{ID: "a1", Slots: 1}}},
				},
			},
			wantMsg: "duplicate area id",
		},
		{
			name: "self adjacency",
			topo: &Topology{
				Name: "t",
				Zones: []ZoneConfig{
					{ID: "zone-a", Name: "A", Adjacent: []string{"zone-a"}, Areas: []AreaConfig{{ID: "a1", Slots: 1}}},
				},
			},
			wantMsg: "adjacent to itself",
		},
		{
			name: "unknown adjacency target",
			topo: &Topology{
				Name: "t",
				Zones: []ZoneConfig{
					{ID: "zone-a", Name: "A", Adjacent: []string{"zone-x"}, Areas: []AreaConfig{{ID: "a1", Slots: 1}}},
				},
			},
			wantMsg: "does not exist",
		},
		{
			name: "zone without areas",
			topo: &Topology{
				Name:  "t",
				Zones: []ZoneConfig{{ID: "zone-a", Name: "A"}},
			},
			wantMsg: "validation",
		},
		{
			name: "zero slots",
			topo: &Topology{
				Name: "t",
				Zones: []ZoneConfig{
					{ID: "zone-a", Name: "A", Areas: []AreaConfig{{ID: "a1", Slots: 0}}},
				},
			},
			wantMsg: "validation",
		},
	}

	loader := NewLoader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			errs := loader.ValidateTopology(tt.topo)
			if len(errs) == 0 {
				t.Fatal("expected validation errors")
			}
			found := false
			for _, e := range errs {
				if strings.Contains(e.Message, tt.wantMsg) {
					found = true
				}
			}
			if !found {
				t.Errorf("no error containing %q in %v", tt.wantMsg, errs)
			}
		})
	}
}

func TestBuildMapDeclaredOrder(t *testing.T) {
	t.Parallel()

	loader := NewLoader()
	path := writeFile(t, "topology.yaml", validTopologyYAML)
	topo, err := loader.LoadTopology(path)
	if err != nil {
		t.Fatalf("LoadTopology: %v", err)
	}

	caps, err := BuildMap(topo)
	if err != nil {
		t.Fatalf("BuildMap: %v", err)
	}

	wantSlots := []string{"a1-01", "a1-02", "a2-01"}
	slots := caps.Slots("zone-a")
	if len(slots) != len(wantSlots) {
		t.Fatalf("zone-a slots = %d, want %d", len(slots), len(wantSlots))
	}
	for i, slot := range slots {
		if slot.ID != wantSlots[i] {
			t.Errorf("slot[%d] = %s, want %s", i, slot.ID, wantSlots[i])
		}
	}

	if adj := caps.AdjacentZones("zone-a"); len(adj) != 1 || adj[0] != "zone-b" {
		t.Errorf("adjacency = %v, want [zone-b]", adj)
	}
	if adj := caps.AdjacentZones("zone-b"); len(adj) != 1 || adj[0] != "zone-a" {
		t.Errorf("adjacency = %v, want [zone-a]", adj)
	}
}

func TestLoadScenarioYAML(t *testing.T) {
	t.Parallel()

	loader := NewLoader()
	path := writeFile(t, "scenario.yaml", `
name: morning-rush
ops:
  - action: create
    vehicle: CAR-001
    zone: zone-a
  - action: allocate
    request: R0001
  - action: rollback
    count: 1
`)

	scenario, err := loader.LoadScenario(path, nil)
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if scenario.Name != "morning-rush" {
		t.Errorf("name = %q, want morning-rush", scenario.Name)
	}
	if len(scenario.Ops) != 3 {
		t.Fatalf("ops = %d, want 3", len(scenario.Ops))
	}
	if scenario.Ops[0].Action != ActionCreate || scenario.Ops[0].Vehicle != "CAR-001" {
		t.Errorf("unexpected first op: %+v", scenario.Ops[0])
	}
	if scenario.Ops[2].Count != 1 {
		t.Errorf("rollback count = %d, want 1", scenario.Ops[2].Count)
	}
}

func TestLoadScenarioRejectsUnknownAction(t *testing.T) {
	t.Parallel()

	loader := NewLoader()
	path := writeFile(t, "scenario.yaml", `
name: bad
ops:
  - action: teleport
    vehicle: CAR-001
`)

	if _, err := loader.LoadScenario(path, nil); err == nil {
		t.Fatal("expected validation error for unknown action")
	}
}

func TestLoadScenarioStarlark(t *testing.T) {
	t.Parallel()

	loader := NewLoader()
	path := writeFile(t, "rush.star", `
def _build(count, zone):
    result = []
    for i in range(count):
        result.append({"action": "create", "vehicle": "CAR-" + str(i), "zone": zone})
        result.append({"action": "allocate", "request": "R000" + str(i + 1)})
    return result

ops = _build(count, zone)
`)

	scenario, err := loader.LoadScenario(path, map[string]interface{}{
		"count": 3,
		"zone":  "zone-a",
	})
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if scenario.Name != "rush" {
		t.Errorf("name = %q, want rush (from filename)", scenario.Name)
	}
	if len(scenario.Ops) != 6 {
		t.Fatalf("ops = %d, want 6", len(scenario.Ops))
	}
	if scenario.Ops[0].Vehicle != "CAR-0" || scenario.Ops[0].Zone != "zone-a" {
		t.Errorf("unexpected first op: %+v", scenario.Ops[0])
	}
	if scenario.Ops[5].Request != "R0003" {
		t.Errorf("last allocate request = %q, want R0003", scenario.Ops[5].Request)
	}
}
