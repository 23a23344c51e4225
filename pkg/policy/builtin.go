package policy

import (
	"time"
)

// BuiltinPolicies returns the policies shipped with the engine.
func BuiltinPolicies() []Policy {
	return []Policy{
		zoneNamingPolicy(),
		adjacencySymmetryPolicy(),
		capacityFloorPolicy(),
	}
}

// zoneNamingPolicy enforces identifier conventions for zones and areas.
func zoneNamingPolicy() Policy {
	return Policy{
		Name:        "zone-naming",
		Description: "Enforces zone and area identifier conventions (lowercase, alphanumeric, hyphens only)",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"naming", "conventions"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package openkerb.policies.naming

import rego.v1

deny contains violation if {
	some zone in input.topology.zones
	not regex.match("^[a-z0-9-]+$", zone.id)
	violation := {
		"message": sprintf("zone id %q must contain only lowercase letters, numbers, and hyphens", [zone.id]),
		"severity": "error",
		"zone": zone.id,
	}
}

deny contains violation if {
	some zone in input.topology.zones
	regex.match("^-|-$", zone.id)
	violation := {
		"message": sprintf("zone id %q must not start or end with a hyphen", [zone.id]),
		"severity": "error",
		"zone": zone.id,
	}
}

deny contains violation if {
	some zone in input.topology.zones
	some area in zone.areas
	not regex.match("^[a-z0-9-]+$", area.id)
	violation := {
		"message": sprintf("area id %q in zone %q must contain only lowercase letters, numbers, and hyphens", [area.id, zone.id]),
		"severity": "error",
		"zone": zone.id,
	}
}`,
	}
}

// adjacencySymmetryPolicy flags one-way adjacency declarations. The
// engine honors directional adjacency, so this is a warning rather
// than an error.
func adjacencySymmetryPolicy() Policy {
	return Policy{
		Name:        "adjacency-symmetry",
		Description: "Warns when a zone declares an adjacent zone that does not declare it back",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"adjacency", "topology"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package openkerb.policies.adjacency

import rego.v1

deny contains violation if {
	some zone in input.topology.zones
	some neighbor_id in zone.adjacent
	some neighbor in input.topology.zones
	neighbor.id == neighbor_id
	not zone.id in object.get(neighbor, "adjacent", [])
	violation := {
		"message": sprintf("zone %q lists %q as adjacent but %q does not list %q back", [zone.id, neighbor_id, neighbor_id, zone.id]),
		"severity": "warning",
		"zone": zone.id,
	}
}`,
	}
}

// capacityFloorPolicy warns about zones with a single slot. A lone
// slot leaves no headroom inside the zone, so every second request
// spills into adjacent zones.
func capacityFloorPolicy() Policy {
	return Policy{
		Name:        "capacity-floor",
		Description: "Warns when a zone has only one slot in total",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"capacity", "topology"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package openkerb.policies.capacity

import rego.v1

zone_slots(zone) := sum([area.slots | some area in zone.areas])

deny contains violation if {
	some zone in input.topology.zones
	zone_slots(zone) == 1
	violation := {
		"message": sprintf("zone %q has a single slot and no headroom for concurrent requests", [zone.id]),
		"severity": "warning",
		"zone": zone.id,
	}
}`,
	}
}
