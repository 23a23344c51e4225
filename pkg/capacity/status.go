package capacity

import "github.com/openkerb/openkerb/pkg/model"

// ZoneStatus summarizes the occupancy of a single zone.
type ZoneStatus struct {
	ZoneID      string  `json:"zone_id"`
	ZoneName    string  `json:"zone_name"`
	Total       int     `json:"total_slots"`
	Available   int     `json:"available_slots"`
	Occupied    int     `json:"occupied_slots"`
	Utilization float64 `json:"utilization_pct"`
}

// Summary aggregates occupancy across all zones.
type Summary struct {
	Zones     int `json:"zones"`
	Total     int `json:"total_slots"`
	Available int `json:"available_slots"`
	Occupied  int `json:"occupied_slots"`
}

// ZoneStatus returns occupancy statistics for one zone.
func (m *Map) ZoneStatus(zoneID string) (ZoneStatus, error) {
	zone, ok := m.zones[zoneID]
	if !ok {
		return ZoneStatus{}, model.NewNotFound("zone", zoneID)
	}

	slots := m.Slots(zoneID)
	available := 0
	for _, s := range slots {
		if s.Available {
			available++
		}
	}

	st := ZoneStatus{
		ZoneID:    zoneID,
		ZoneName:  zone.Name,
		Total:     len(slots),
		Available: available,
		Occupied:  len(slots) - available,
	}
	if st.Total > 0 {
		st.Utilization = float64(st.Occupied) / float64(st.Total) * 100
	}
	return st, nil
}

// Summary returns map-wide occupancy statistics.
func (m *Map) Summary() Summary {
	s := Summary{Zones: len(m.zones)}
	for _, slot := range m.slots {
		s.Total++
		if slot.Available {
			s.Available++
		} else {
			s.Occupied++
		}
	}
	return s
}
