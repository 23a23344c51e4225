package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/openkerb/openkerb/pkg/capacity"
)

// Loader loads topology and scenario files, dispatching on extension:
// .yaml/.yml, .cue for topologies, and additionally .star for
// scenarios.
type Loader struct {
	validate *validator.Validate
	cue      *CUEParser
	starlark *StarlarkEvaluator
}

// NewLoader creates a loader.
func NewLoader() *Loader {
	return &Loader{
		validate: validator.New(),
		cue:      NewCUEParser(),
		starlark: NewStarlarkEvaluator(0),
	}
}

// LoadTopology loads and validates a topology file.
func (l *Loader) LoadTopology(path string) (*Topology, error) {
	var topo Topology
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read topology: %w", err)
		}
		if err := yaml.Unmarshal(data, &topo); err != nil {
			return nil, fmt.Errorf("parse topology %s: %w", path, err)
		}
	case ".cue":
		parsed, err := l.cue.ParseTopologyFile(path)
		if err != nil {
			return nil, err
		}
		topo = *parsed
	default:
		return nil, fmt.Errorf("unsupported topology format: %s", ext)
	}

	if errs := l.ValidateTopology(&topo); len(errs) > 0 {
		return nil, fmt.Errorf("invalid topology %s: %s", path, errs[0].Error())
	}
	return &topo, nil
}

// ValidateTopology runs structural and semantic checks and returns all
// problems found.
func (l *Loader) ValidateTopology(topo *Topology) []ValidationError {
	var errs []ValidationError

	if err := l.validate.Struct(topo); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, ValidationError{
					Path:     fe.Namespace(),
					Message:  fmt.Sprintf("failed %q validation", fe.Tag()),
					Severity: "error",
				})
			}
		} else {
			errs = append(errs, ValidationError{Message: err.Error(), Severity: "error"})
		}
		return errs
	}

	zoneIDs := make(map[string]bool, len(topo.Zones))
	areaIDs := make(map[string]bool)
	for _, zone := range topo.Zones {
		if zoneIDs[zone.ID] {
			errs = append(errs, ValidationError{
				Path:     fmt.Sprintf("zones.%s", zone.ID),
				Message:  "duplicate zone id",
				Severity: "error",
			})
		}
		zoneIDs[zone.ID] = true

		for _, area := range zone.Areas {
			if areaIDs[area.ID] {
				errs = append(errs, ValidationError{
					Path:     fmt.Sprintf("zones.%s.areas.%s", zone.ID, area.ID),
					Message:  "duplicate area id",
					Severity: "error",
				})
			}
			areaIDs[area.ID] = true
		}
	}

	for _, zone := range topo.Zones {
		for _, adj := range zone.Adjacent {
			if adj == zone.ID {
				errs = append(errs, ValidationError{
					Path:     fmt.Sprintf("zones.%s.adjacent", zone.ID),
					Message:  "zone cannot be adjacent to itself",
					Severity: "error",
				})
			} else if !zoneIDs[adj] {
				errs = append(errs, ValidationError{
					Path:     fmt.Sprintf("zones.%s.adjacent", zone.ID),
					Message:  fmt.Sprintf("adjacent zone %q does not exist", adj),
					Severity: "error",
				})
			}
		}
	}

	return errs
}

// BuildMap constructs a capacity map from a validated topology. Zones,
// areas, slots, and adjacency are registered in declared order, which
// fixes the allocation scan order.
func BuildMap(topo *Topology) (*capacity.Map, error) {
	caps := capacity.NewMap()

	for _, zone := range topo.Zones {
		if err := caps.AddZone(zone.ID, zone.Name); err != nil {
			return nil, fmt.Errorf("zone %s: %w", zone.ID, err)
		}
		for _, area := range zone.Areas {
			if err := caps.AddArea(area.ID, zone.ID); err != nil {
				return nil, fmt.Errorf("area %s: %w", area.ID, err)
			}
			for _, slotID := range area.SlotIDs() {
				if err := caps.AddSlot(slotID, area.ID); err != nil {
					return nil, fmt.Errorf("slot %s: %w", slotID, err)
				}
			}
		}
	}

	// Adjacency after all zones exist.
	for _, zone := range topo.Zones {
		for _, adj := range zone.Adjacent {
			if err := caps.AddAdjacency(zone.ID, adj); err != nil {
				return nil, fmt.Errorf("adjacency %s -> %s: %w", zone.ID, adj, err)
			}
		}
	}

	return caps, nil
}

// LoadScenario loads and validates a scenario file. Starlark scripts
// receive the params map as predeclared globals.
func (l *Loader) LoadScenario(path string, params map[string]interface{}) (*Scenario, error) {
	var scenario Scenario
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read scenario: %w", err)
		}
		if err := yaml.Unmarshal(data, &scenario); err != nil {
			return nil, fmt.Errorf("parse scenario %s: %w", path, err)
		}
	case ".star":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read scenario: %w", err)
		}
		generated, err := l.starlark.GenerateScenario(string(data), params)
		if err != nil {
			return nil, fmt.Errorf("generate scenario %s: %w", path, err)
		}
		scenario = *generated
		if scenario.Name == "" {
			scenario.Name = strings.TrimSuffix(filepath.Base(path), ".star")
		}
	default:
		return nil, fmt.Errorf("unsupported scenario format: %s", ext)
	}

	if err := l.validate.Struct(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}
