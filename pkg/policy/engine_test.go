package policy

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/openkerb/openkerb/pkg/config"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func cleanTopology() *config.Topology {
	return &config.Topology{
		Name: "downtown-grid",
		Zones: []config.ZoneConfig{
			{
				ID:       "zone-a",
				Name:     "Downtown",
				Adjacent: []string{"zone-b"},
				Areas:    []config.AreaConfig{{ID: "a1", Slots: 2}},
			},
			{
				ID:       "zone-b",
				Name:     "Riverside",
				Adjacent: []string{"zone-a"},
				Areas:    []config.AreaConfig{{ID: "b1", Slots: 3}},
			},
		},
	}
}

func TestEvaluateCleanTopology(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	result, err := e.EvaluateTopology(context.Background(), cleanTopology())
	if err != nil {
		t.Fatalf("EvaluateTopology: %v", err)
	}
	if !result.Allowed {
		t.Errorf("clean topology blocked: %+v", result.Violations)
	}
	if len(result.Violations) != 0 || len(result.Warnings) != 0 {
		t.Errorf("expected no findings, got violations=%v warnings=%v", result.Violations, result.Warnings)
	}
	if len(result.EvaluatedPolicies) != 3 {
		t.Errorf("evaluated %d policies, want 3", len(result.EvaluatedPolicies))
	}
}

func TestEvaluateNamingViolationBlocks(t *testing.T) {
	t.Parallel()

	topo := cleanTopology()
	topo.Zones[0].ID = "Zone_A"

	e := newTestEngine(t)
	result, err := e.EvaluateTopology(context.Background(), topo)
	if err != nil {
		t.Fatalf("EvaluateTopology: %v", err)
	}
	if result.Allowed {
		t.Error("bad zone id should block the topology")
	}
	found := false
	for _, v := range result.Violations {
		if v.Policy == "zone-naming" && v.Zone == "Zone_A" {
			found = true
			if v.Severity != SeverityError {
				t.Errorf("severity = %s, want error", v.Severity)
			}
		}
	}
	if !found {
		t.Errorf("no zone-naming violation for Zone_A in %+v", result.Violations)
	}
}

func TestEvaluateAsymmetricAdjacencyWarns(t *testing.T) {
	t.Parallel()

	topo := cleanTopology()
	topo.Zones[1].Adjacent = nil

	e := newTestEngine(t)
	result, err := e.EvaluateTopology(context.Background(), topo)
	if err != nil {
		t.Fatalf("EvaluateTopology: %v", err)
	}
	if !result.Allowed {
		t.Errorf("warnings must not block: %+v", result.Violations)
	}
	found := false
	for _, w := range result.Warnings {
		if w.Policy == "adjacency-symmetry" && w.Zone == "zone-a" {
			found = true
		}
	}
	if !found {
		t.Errorf("no adjacency-symmetry warning in %+v", result.Warnings)
	}
}

func TestEvaluateCapacityFloorWarns(t *testing.T) {
	t.Parallel()

	topo := cleanTopology()
	topo.Zones[1].Areas = []config.AreaConfig{{ID: "b1", Slots: 1}}

	e := newTestEngine(t)
	result, err := e.EvaluateTopology(context.Background(), topo)
	if err != nil {
		t.Fatalf("EvaluateTopology: %v", err)
	}
	if !result.Allowed {
		t.Errorf("single-slot zone must not block: %+v", result.Violations)
	}
	found := false
	for _, w := range result.Warnings {
		if w.Policy == "capacity-floor" && w.Zone == "zone-b" {
			found = true
		}
	}
	if !found {
		t.Errorf("no capacity-floor warning in %+v", result.Warnings)
	}
}

func TestDisabledPolicySkipped(t *testing.T) {
	t.Parallel()

	topo := cleanTopology()
	topo.Zones[0].ID = "Zone_A"

	e := newTestEngine(t)
	if err := e.DisablePolicy("zone-naming"); err != nil {
		t.Fatalf("DisablePolicy: %v", err)
	}

	result, err := e.EvaluateTopology(context.Background(), topo)
	if err != nil {
		t.Fatalf("EvaluateTopology: %v", err)
	}
	if !result.Allowed {
		t.Errorf("disabled policy still blocking: %+v", result.Violations)
	}
	for _, name := range result.EvaluatedPolicies {
		if name == "zone-naming" {
			t.Error("disabled policy should not be evaluated")
		}
	}

	if err := e.EnablePolicy("zone-naming"); err != nil {
		t.Fatalf("EnablePolicy: %v", err)
	}
	result, err = e.EvaluateTopology(context.Background(), topo)
	if err != nil {
		t.Fatalf("EvaluateTopology: %v", err)
	}
	if result.Allowed {
		t.Error("re-enabled policy should block again")
	}
}

func TestTogglingUnknownPolicyFails(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	if err := e.DisablePolicy("no-such-policy"); err == nil {
		t.Error("expected error disabling unknown policy")
	}
	if _, err := e.Policy("no-such-policy"); err == nil {
		t.Error("expected error looking up unknown policy")
	}
}

func TestReplacePoliciesKeepsBuiltins(t *testing.T) {
	t.Parallel()

	custom := Policy{
		Name:     "max-zones",
		Severity: SeverityError,
		Enabled:  true,
		Rego: `package openkerb.policies.maxzones

import rego.v1

deny contains violation if {
	count(input.topology.zones) > 1
	violation := {
		"message": "topology exceeds the zone limit",
		"severity": "error",
	}
}`,
	}

	e := newTestEngine(t)
	if err := e.ReplacePolicies([]Policy{custom}); err != nil {
		t.Fatalf("ReplacePolicies: %v", err)
	}

	policies := e.Policies()
	if len(policies) != 4 {
		t.Fatalf("policies = %d, want builtins plus one", len(policies))
	}

	result, err := e.EvaluateTopology(context.Background(), cleanTopology())
	if err != nil {
		t.Fatalf("EvaluateTopology: %v", err)
	}
	if result.Allowed {
		t.Error("custom policy should block a two-zone topology")
	}
}

func TestStringDenyMemberUsesPolicySeverity(t *testing.T) {
	t.Parallel()

	custom := Policy{
		Name:     "flat-deny",
		Severity: SeverityWarning,
		Enabled:  true,
		Rego: `package openkerb.policies.flat

import rego.v1

deny contains msg if {
	input.topology.name == "downtown-grid"
	msg := "grid topologies are under review"
}`,
	}

	e := newTestEngine(t)
	if err := e.ReplacePolicies([]Policy{custom}); err != nil {
		t.Fatalf("ReplacePolicies: %v", err)
	}

	result, err := e.EvaluateTopology(context.Background(), cleanTopology())
	if err != nil {
		t.Fatalf("EvaluateTopology: %v", err)
	}
	if !result.Allowed {
		t.Error("warning severity must not block")
	}
	found := false
	for _, w := range result.Warnings {
		if w.Policy == "flat-deny" && w.Message == "grid topologies are under review" {
			found = true
		}
	}
	if !found {
		t.Errorf("string deny member not surfaced: %+v", result.Warnings)
	}
}

func TestCompileRejectsBadRego(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	err := e.ReplacePolicies([]Policy{{
		Name:    "broken",
		Enabled: true,
		Rego:    "this is not rego",
	}})
	if err == nil {
		t.Error("expected compile error for invalid Rego")
	}
}
