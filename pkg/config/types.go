package config

import (
	"fmt"
	"time"
)

// Topology describes the static layout of the parking system.
type Topology struct {
	// Name identifies the topology.
	Name string `yaml:"name" json:"name" validate:"required"`

	// Zones lists the zones in declared scan order.
	Zones []ZoneConfig `yaml:"zones" json:"zones" validate:"required,min=1,dive"`
}

// ZoneConfig describes one zone and its areas.
type ZoneConfig struct {
	// ID is the zone identifier, unique across the topology.
	ID string `yaml:"id" json:"id" validate:"required"`

	// Name is the human-readable zone name.
	Name string `yaml:"name" json:"name"`

	// Adjacent lists zone IDs reachable in one hop, in preference order.
	Adjacent []string `yaml:"adjacent,omitempty" json:"adjacent,omitempty"`

	// Areas lists the parking areas in declared scan order.
	Areas []AreaConfig `yaml:"areas" json:"areas" validate:"required,min=1,dive"`
}

// AreaConfig describes one parking area.
type AreaConfig struct {
	// ID is the area identifier, unique across the topology.
	ID string `yaml:"id" json:"id" validate:"required"`

	// Slots is the number of slots in the area. Slot IDs are generated
	// as "<area>-01", "<area>-02", and so on.
	Slots int `yaml:"slots" json:"slots" validate:"required,min=1"`
}

// SlotIDs returns the generated slot identifiers for the area.
func (a AreaConfig) SlotIDs() []string {
	ids := make([]string, a.Slots)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%02d", a.ID, i+1)
	}
	return ids
}

// Scenario is a sequence of operations to drive the engine.
type Scenario struct {
	// Name identifies the scenario.
	Name string `yaml:"name" json:"name" validate:"required"`

	// Ops are executed in order.
	Ops []Op `yaml:"ops" json:"ops" validate:"required,min=1,dive"`
}

// Op is one scenario operation. Which fields apply depends on the
// action: create takes vehicle and zone; allocate, occupy, release,
// and cancel take request; rollback takes count.
type Op struct {
	Action  string `yaml:"action" json:"action" validate:"required,oneof=create allocate occupy release cancel rollback"`
	Vehicle string `yaml:"vehicle,omitempty" json:"vehicle,omitempty"`
	Zone    string `yaml:"zone,omitempty" json:"zone,omitempty"`
	Request string `yaml:"request,omitempty" json:"request,omitempty"`
	Count   int    `yaml:"count,omitempty" json:"count,omitempty"`
}

// Op action constants.
const (
	ActionCreate   = "create"
	ActionAllocate = "allocate"
	ActionOccupy   = "occupy"
	ActionRelease  = "release"
	ActionCancel   = "cancel"
	ActionRollback = "rollback"
)

// ValidationError is one problem found while loading a file.
type ValidationError struct {
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	Path     string `json:"path,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// StarlarkResult is the outcome of a Starlark evaluation.
type StarlarkResult struct {
	Output        map[string]interface{} `json:"output"`
	ExecutionTime time.Duration          `json:"execution_time"`
	Error         string                 `json:"error,omitempty"`
}
