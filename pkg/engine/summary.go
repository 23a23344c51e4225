package engine

import (
	"github.com/openkerb/openkerb/pkg/capacity"
	"github.com/openkerb/openkerb/pkg/model"
)

// SystemSummary is a point-in-time snapshot of the whole system:
// per-zone occupancy, request counts by state, and the rollback
// journal depth.
type SystemSummary struct {
	Zones           []capacity.ZoneStatus      `json:"zones"`
	TotalSlots      int                        `json:"total_slots"`
	AvailableSlots  int                        `json:"available_slots"`
	OccupiedSlots   int                        `json:"occupied_slots"`
	TotalRequests   int                        `json:"total_requests"`
	RequestsByState map[model.RequestState]int `json:"requests_by_state"`
	JournalDepth    int                        `json:"journal_depth"`
}
