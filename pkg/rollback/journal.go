package rollback

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/openkerb/openkerb/pkg/capacity"
	"github.com/openkerb/openkerb/pkg/model"
)

// DefaultCapacity is the journal bound used when no capacity option is given.
const DefaultCapacity = 100

// OverflowPolicy controls what happens when a push would exceed the
// journal capacity.
type OverflowPolicy string

const (
	// OverflowEvictOldest drops the oldest record to make room.
	OverflowEvictOldest OverflowPolicy = "evict_oldest"
	// OverflowReject refuses the push with a history_full error.
	OverflowReject OverflowPolicy = "reject"
)

// RecordKind identifies the action a journal record undoes.
type RecordKind string

// KindAllocation is a slot binding checkpoint.
const KindAllocation RecordKind = "allocation"

// Record is one undoable checkpoint.
type Record struct {
	Kind       RecordKind         `json:"kind"`
	RequestID  string             `json:"request_id"`
	SlotID     string             `json:"slot_id"`
	PriorState model.RequestState `json:"prior_state"`
	At         time.Time          `json:"at"`
}

// RequestSource resolves request IDs recorded in the journal back to
// live requests. The engine's ledger implements it.
type RequestSource interface {
	Request(id string) (*model.Request, error)
}

// Stats are cumulative journal counters, exposed for telemetry and reports.
type Stats struct {
	Pushed     int64 `json:"pushed"`
	Evicted    int64 `json:"evicted"`
	Undone     int64 `json:"undone"`
	StaleFrees int64 `json:"stale_frees"`
}

// Journal is a bounded LIFO of allocation checkpoints.
type Journal struct {
	records  []Record
	capacity int
	policy   OverflowPolicy
	logger   zerolog.Logger
	stats    Stats
}

// Option configures a Journal.
type Option func(*Journal)

// WithCapacity sets the maximum number of records kept. Values below 1
// are ignored.
func WithCapacity(n int) Option {
	return func(j *Journal) {
		if n > 0 {
			j.capacity = n
		}
	}
}

// WithOverflowPolicy sets the behavior when the journal is full.
func WithOverflowPolicy(p OverflowPolicy) Option {
	return func(j *Journal) {
		if p == OverflowEvictOldest || p == OverflowReject {
			j.policy = p
		}
	}
}

// WithLogger sets the logger used for rollback warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(j *Journal) {
		j.logger = l
	}
}

// NewJournal creates a journal with the default capacity and the
// evict-oldest overflow policy.
func NewJournal(opts ...Option) *Journal {
	j := &Journal{
		capacity: DefaultCapacity,
		policy:   OverflowEvictOldest,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(j)
	}
	j.records = make([]Record, 0, j.capacity)
	return j
}

// Push appends a checkpoint. When the journal is full the oldest record
// is evicted, or the push is rejected with a history_full error under
// the reject policy.
func (j *Journal) Push(rec Record) error {
	if rec.Kind == "" {
		rec.Kind = KindAllocation
	}
	if len(j.records) >= j.capacity {
		if j.policy == OverflowReject {
			return model.NewHistoryFull(j.capacity).WithRequest(rec.RequestID)
		}
		evicted := j.records[0]
		copy(j.records, j.records[1:])
		j.records = j.records[:len(j.records)-1]
		j.stats.Evicted++
		j.logger.Debug().
			Str("request_id", evicted.RequestID).
			Str("slot_id", evicted.SlotID).
			Msg("journal full, evicting oldest record")
	}
	j.records = append(j.records, rec)
	j.stats.Pushed++
	return nil
}

// Len returns the number of records currently held.
func (j *Journal) Len() int {
	return len(j.records)
}

// Capacity returns the journal bound.
func (j *Journal) Capacity() int {
	return j.capacity
}

// Records returns a copy of the journal, oldest first.
func (j *Journal) Records() []Record {
	out := make([]Record, len(j.records))
	copy(out, j.records)
	return out
}

// Clear drops all records.
func (j *Journal) Clear() {
	j.records = j.records[:0]
}

// Stats returns cumulative counters.
func (j *Journal) Stats() Stats {
	return j.stats
}

// Rollback undoes up to k allocations, most recent first, and returns
// the number actually undone. Fewer than k records in the journal is
// not an error; the available records are undone and counted.
//
// For each record the slot is freed unconditionally. When the slot's
// current occupant is a different request the free still wins, since
// the journal is the authority on what was allocated, and the mismatch
// is logged and counted in Stats.StaleFrees. The request is forced
// back to its recorded prior state without consulting the transition
// table, its slot linkage and cross-zone flag are cleared, and its
// occupancy timestamps are cleared when the restored state is
// REQUESTED.
func (j *Journal) Rollback(k int, caps *capacity.Map, reqs RequestSource) (int, error) {
	if k <= 0 {
		return 0, model.NewInvalidArgument(fmt.Sprintf("rollback count must be positive, got %d", k))
	}

	undone := 0
	for undone < k && len(j.records) > 0 {
		rec := j.records[len(j.records)-1]
		j.records = j.records[:len(j.records)-1]

		if slot, ok := caps.Slot(rec.SlotID); ok {
			if slot.OccupantRequestID != "" && slot.OccupantRequestID != rec.RequestID {
				j.stats.StaleFrees++
				j.logger.Warn().
					Str("slot_id", rec.SlotID).
					Str("recorded_request_id", rec.RequestID).
					Str("current_request_id", slot.OccupantRequestID).
					Msg("rollback freeing slot held by a different request")
			}
			_ = caps.Free(rec.SlotID)
		} else {
			j.logger.Warn().
				Str("slot_id", rec.SlotID).
				Str("request_id", rec.RequestID).
				Msg("rollback record references unknown slot")
		}

		req, err := reqs.Request(rec.RequestID)
		if err != nil {
			j.logger.Warn().
				Str("request_id", rec.RequestID).
				Msg("rollback record references unknown request")
			continue
		}

		req.State = rec.PriorState
		req.AllocatedSlotID = ""
		req.CrossZone = false
		if rec.PriorState == model.StateRequested {
			req.OccupiedAt = nil
			req.ReleasedAt = nil
		}

		undone++
		j.stats.Undone++
		j.logger.Info().
			Str("request_id", req.ID).
			Str("slot_id", rec.SlotID).
			Str("restored_state", string(rec.PriorState)).
			Msg("allocation rolled back")
	}
	return undone, nil
}
