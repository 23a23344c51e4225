package analytics

import (
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/openkerb/openkerb/pkg/capacity"
	"github.com/openkerb/openkerb/pkg/engine"
	"github.com/openkerb/openkerb/pkg/model"
)

// Source is the read surface the analyzer consumes. The engine
// implements it.
type Source interface {
	Requests() []*model.Request
	Summary() engine.SystemSummary
}

// Analyzer computes statistics over a Source.
type Analyzer struct {
	src Source
}

// NewAnalyzer creates an analyzer over the given source.
func NewAnalyzer(src Source) *Analyzer {
	return &Analyzer{src: src}
}

// OccupancyStats summarizes completed occupancies.
type OccupancyStats struct {
	Completed       int           `json:"completed"`
	AverageDuration time.Duration `json:"average_duration"`
	TotalDuration   time.Duration `json:"total_duration"`
}

// AverageOccupancy returns duration statistics over released requests.
// Requests that never reached OCCUPIED contribute nothing.
func (a *Analyzer) AverageOccupancy() OccupancyStats {
	var stats OccupancyStats
	for _, req := range a.src.Requests() {
		if d, ok := req.Duration(); ok {
			stats.Completed++
			stats.TotalDuration += d
		}
	}
	if stats.Completed > 0 {
		stats.AverageDuration = stats.TotalDuration / time.Duration(stats.Completed)
	}
	return stats
}

// ZoneUtilization returns per-zone occupancy, sorted by zone ID.
func (a *Analyzer) ZoneUtilization() []capacity.ZoneStatus {
	return a.src.Summary().Zones
}

// PeakUsageZones returns the n zones with the highest utilization,
// ties broken by zone ID so the ranking is stable.
func (a *Analyzer) PeakUsageZones(n int) []capacity.ZoneStatus {
	zones := a.src.Summary().Zones
	sort.SliceStable(zones, func(i, j int) bool {
		if zones[i].Utilization != zones[j].Utilization {
			return zones[i].Utilization > zones[j].Utilization
		}
		return zones[i].ZoneID < zones[j].ZoneID
	})
	if n > 0 && n < len(zones) {
		zones = zones[:n]
	}
	return zones
}

// CompletionStats counts terminal outcomes.
type CompletionStats struct {
	Completed        int     `json:"completed"`
	Cancelled        int     `json:"cancelled"`
	CancellationRate float64 `json:"cancellation_rate_pct"`
}

// CompletionStats returns released versus cancelled counts. The rate
// is cancelled over all terminal requests, as a percentage.
func (a *Analyzer) CompletionStats() CompletionStats {
	var stats CompletionStats
	for _, req := range a.src.Requests() {
		switch req.State {
		case model.StateReleased:
			stats.Completed++
		case model.StateCancelled:
			stats.Cancelled++
		}
	}
	if terminal := stats.Completed + stats.Cancelled; terminal > 0 {
		stats.CancellationRate = float64(stats.Cancelled) / float64(terminal) * 100
	}
	return stats
}

// CrossZoneStats counts allocations that spilled into adjacent zones.
type CrossZoneStats struct {
	Allocations   int     `json:"allocations"`
	CrossZone     int     `json:"cross_zone"`
	CrossZoneRate float64 `json:"cross_zone_rate_pct"`
}

// CrossZoneStats returns the share of allocations placed outside the
// requested zone. Rolled-back allocations are not counted; their
// cross-zone flag was cleared with the binding.
func (a *Analyzer) CrossZoneStats() CrossZoneStats {
	var stats CrossZoneStats
	for _, req := range a.src.Requests() {
		switch req.State {
		case model.StateAllocated, model.StateOccupied, model.StateReleased:
			stats.Allocations++
			if req.CrossZone {
				stats.CrossZone++
			}
		case model.StateCancelled:
			// A cancelled request may still have held a cross-zone slot.
			if req.CrossZone {
				stats.Allocations++
				stats.CrossZone++
			}
		}
	}
	if stats.Allocations > 0 {
		stats.CrossZoneRate = float64(stats.CrossZone) / float64(stats.Allocations) * 100
	}
	return stats
}

// RequestDistribution returns request counts per state, covering every
// state even when its count is zero.
func (a *Analyzer) RequestDistribution() map[model.RequestState]int {
	dist := make(map[model.RequestState]int, len(model.States()))
	for _, state := range model.States() {
		dist[state] = 0
	}
	for _, req := range a.src.Requests() {
		dist[req.State]++
	}
	return dist
}

// ZoneDistribution returns request counts per requested zone. Zones
// nobody requested do not appear.
func (a *Analyzer) ZoneDistribution() map[string]int {
	dist := make(map[string]int)
	for _, req := range a.src.Requests() {
		dist[req.RequestedZoneID]++
	}
	return dist
}

// Report is the full analytics snapshot.
type Report struct {
	GeneratedAt  time.Time                  `json:"generated_at"`
	Summary      engine.SystemSummary       `json:"summary"`
	Occupancy    OccupancyStats             `json:"occupancy"`
	Completion   CompletionStats            `json:"completion"`
	CrossZone    CrossZoneStats             `json:"cross_zone"`
	Distribution map[model.RequestState]int `json:"distribution"`
	Zones        map[string]int             `json:"zone_distribution"`
	PeakZones    []capacity.ZoneStatus      `json:"peak_zones"`
}

// Report assembles the full analytics snapshot.
func (a *Analyzer) Report(now time.Time) Report {
	return Report{
		GeneratedAt:  now,
		Summary:      a.src.Summary(),
		Occupancy:    a.AverageOccupancy(),
		Completion:   a.CompletionStats(),
		CrossZone:    a.CrossZoneStats(),
		Distribution: a.RequestDistribution(),
		Zones:        a.ZoneDistribution(),
		PeakZones:    a.PeakUsageZones(3),
	}
}

// WriteJSON writes the report as indented JSON.
func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
