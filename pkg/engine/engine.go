package engine

import (
	"fmt"
	"sync"

	"github.com/openkerb/openkerb/internal/clock"
	"github.com/openkerb/openkerb/pkg/capacity"
	"github.com/openkerb/openkerb/pkg/lifecycle"
	"github.com/openkerb/openkerb/pkg/model"
	"github.com/openkerb/openkerb/pkg/rollback"
	"github.com/openkerb/openkerb/pkg/telemetry"
)

// Engine coordinates requests, slots, and the rollback journal. All
// operations are serialized by a single mutex; callers never observe a
// half-applied transition.
type Engine struct {
	mu      sync.Mutex
	caps    *capacity.Map
	machine *lifecycle.Machine
	journal *rollback.Journal
	clock   clock.Clock
	tel     *telemetry.Telemetry

	requests map[string]*model.Request
	order    []string
	seq      int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for request timestamps.
func WithClock(clk clock.Clock) Option {
	return func(e *Engine) { e.clock = clk }
}

// WithJournal sets the rollback journal.
func WithJournal(j *rollback.Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithTelemetry sets the telemetry bundle.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(e *Engine) { e.tel = tel }
}

// New creates an engine over the given capacity map.
func New(caps *capacity.Map, opts ...Option) *Engine {
	e := &Engine{
		caps:     caps,
		clock:    clock.NewSystem(),
		tel:      telemetry.Nop(),
		requests: make(map[string]*model.Request),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.journal == nil {
		e.journal = rollback.NewJournal(
			rollback.WithLogger(e.tel.Logger.NewComponentLogger("rollback").Zerolog()),
		)
	}
	e.machine = lifecycle.NewMachine(caps, e.clock)
	return e
}

// requestSource adapts the engine's ledger for the rollback journal.
// Callers already hold the engine mutex.
type requestSource struct{ e *Engine }

func (s requestSource) Request(id string) (*model.Request, error) {
	req, ok := s.e.requests[id]
	if !ok {
		return nil, model.NewNotFound("request", id)
	}
	return req, nil
}

// CreateRequest registers a new parking request for a vehicle in the
// given zone. Request IDs are sequential ("R0001", "R0002", ...), so
// replays of the same operation sequence produce the same IDs.
func (e *Engine) CreateRequest(vehicleID, zoneID string) (*model.Request, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if vehicleID == "" {
		return nil, model.NewInvalidArgument("vehicle id must not be empty")
	}
	if _, ok := e.caps.Zone(zoneID); !ok {
		return nil, model.NewNotFound("zone", zoneID)
	}

	e.seq++
	req := &model.Request{
		ID:              fmt.Sprintf("R%04d", e.seq),
		VehicleID:       vehicleID,
		RequestedZoneID: zoneID,
		State:           model.StateRequested,
		RequestedAt:     e.clock.Now(),
	}
	e.requests[req.ID] = req
	e.order = append(e.order, req.ID)

	e.tel.Metrics.RecordRequestCreated()
	e.tel.Events.PublishRequestCreated(req.ID, vehicleID, zoneID)
	e.tel.Logger.WithRequestID(req.ID).WithVehicleID(vehicleID).WithZoneID(zoneID).
		Debug("request created")

	return snapshot(req), nil
}

// Allocate finds a slot for a REQUESTED request and binds it. The
// requested zone is scanned first in declared order; when it is full,
// each adjacent zone is scanned in adjacency declaration order. Only
// directly adjacent zones are considered, never two hops out. When no
// slot is free anywhere the result has Allocated false and err is nil.
func (e *Engine) Allocate(requestID string) (*AllocationResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	req, ok := e.requests[requestID]
	if !ok {
		return nil, model.NewNotFound("request", requestID)
	}
	if req.State != model.StateRequested {
		err := model.NewInvalidState(
			fmt.Sprintf("allocation requires state %s, request is %s", model.StateRequested, req.State),
		).WithRequest(requestID)
		e.recordError(err)
		return nil, err
	}

	slot, zoneID, crossZone := e.findSlot(req.RequestedZoneID)
	if slot == nil {
		e.tel.Metrics.RecordAllocation("no_capacity", false)
		e.tel.Events.PublishAllocationDenied(requestID, req.RequestedZoneID)
		e.tel.Logger.WithRequestID(requestID).WithZoneID(req.RequestedZoneID).
			Info("no capacity in requested or adjacent zones")
		return &AllocationResult{RequestID: requestID}, nil
	}

	prior := req.State
	if err := e.machine.Allocate(req, slot.ID, crossZone); err != nil {
		e.recordError(err)
		return nil, err
	}

	rec := rollback.Record{
		Kind:       rollback.KindAllocation,
		RequestID:  requestID,
		SlotID:     slot.ID,
		PriorState: prior,
		At:         e.clock.Now(),
	}
	if err := e.journal.Push(rec); err != nil {
		// The allocation must not outlive its checkpoint.
		_ = e.caps.Free(slot.ID)
		req.State = prior
		req.AllocatedSlotID = ""
		req.CrossZone = false
		e.recordError(err)
		return nil, err
	}

	e.tel.Metrics.RecordAllocation("allocated", crossZone)
	e.tel.Metrics.SetJournalDepth(e.journal.Len())
	e.updateZoneGauges()
	e.tel.Events.PublishAllocationGranted(requestID, slot.ID, zoneID, crossZone)
	e.tel.Logger.WithRequestID(requestID).WithSlotID(slot.ID).WithZoneID(zoneID).
		Infof("slot allocated (cross_zone=%v)", crossZone)

	return &AllocationResult{
		RequestID: requestID,
		Allocated: true,
		SlotID:    slot.ID,
		ZoneID:    zoneID,
		CrossZone: crossZone,
	}, nil
}

// findSlot returns the first available slot for the zone, falling back
// to adjacent zones. A one-hop search only: adjacents of adjacents are
// never considered.
func (e *Engine) findSlot(zoneID string) (*model.Slot, string, bool) {
	if slot, ok := e.caps.NextAvailable(zoneID); ok {
		return slot, zoneID, false
	}
	for _, adjID := range e.caps.AdjacentZones(zoneID) {
		if slot, ok := e.caps.NextAvailable(adjID); ok {
			return slot, adjID, true
		}
	}
	return nil, "", false
}

// Occupy marks an allocated request's vehicle as parked.
func (e *Engine) Occupy(requestID string) error {
	return e.transition(requestID, model.StateOccupied)
}

// Release completes an occupied request, freeing its slot.
func (e *Engine) Release(requestID string) error {
	return e.transition(requestID, model.StateReleased)
}

// Cancel aborts a request before occupancy, freeing its slot if one
// was allocated.
func (e *Engine) Cancel(requestID string) error {
	return e.transition(requestID, model.StateCancelled)
}

func (e *Engine) transition(requestID string, target model.RequestState) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	req, ok := e.requests[requestID]
	if !ok {
		return model.NewNotFound("request", requestID)
	}

	from := req.State
	slotID := req.AllocatedSlotID
	if err := e.machine.Transition(req, target); err != nil {
		e.tel.Metrics.RecordTransition(string(from), string(target), "error")
		e.recordError(err)
		return err
	}

	e.tel.Metrics.RecordTransition(string(from), string(target), "ok")
	if target == model.StateReleased {
		if d, ok := req.Duration(); ok {
			e.tel.Metrics.RecordOccupancyDuration(d)
		}
	}
	e.updateZoneGauges()
	e.tel.Events.PublishTransition(requestID, slotID, string(target))
	e.tel.Logger.WithRequestID(requestID).
		Debugf("transition %s -> %s", from, target)

	return nil
}

// Rollback undoes up to k of the most recent allocations and returns
// the number actually undone. Asking for more than the journal holds
// is not an error.
func (e *Engine) Rollback(k int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	staleBefore := e.journal.Stats().StaleFrees
	undone, err := e.journal.Rollback(k, e.caps, requestSource{e})
	if err != nil {
		e.recordError(err)
		return 0, err
	}

	e.tel.Metrics.RecordRollback(undone, int(e.journal.Stats().StaleFrees-staleBefore))
	e.tel.Metrics.SetJournalDepth(e.journal.Len())
	e.updateZoneGauges()
	e.tel.Events.PublishRollback(k, undone)
	e.tel.Logger.Infof("rolled back %d of %d requested allocations", undone, k)

	return undone, nil
}

// Request returns a snapshot of one request.
func (e *Engine) Request(id string) (*model.Request, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	req, ok := e.requests[id]
	if !ok {
		return nil, model.NewNotFound("request", id)
	}
	return snapshot(req), nil
}

// Requests returns snapshots of all requests in creation order.
func (e *Engine) Requests() []*model.Request {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*model.Request, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, snapshot(e.requests[id]))
	}
	return out
}

// RequestsByState returns snapshots of requests in the given state, in
// creation order.
func (e *Engine) RequestsByState(state model.RequestState) []*model.Request {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []*model.Request
	for _, id := range e.order {
		if req := e.requests[id]; req.State == state {
			out = append(out, snapshot(req))
		}
	}
	return out
}

// ZoneStatus returns occupancy statistics for one zone.
func (e *Engine) ZoneStatus(zoneID string) (capacity.ZoneStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.caps.ZoneStatus(zoneID)
}

// Summary returns a snapshot of zone occupancy, request counts, and
// journal depth.
func (e *Engine) Summary() SystemSummary {
	e.mu.Lock()
	defer e.mu.Unlock()

	caps := e.caps.Summary()
	sum := SystemSummary{
		TotalSlots:      caps.Total,
		AvailableSlots:  caps.Available,
		OccupiedSlots:   caps.Occupied,
		TotalRequests:   len(e.requests),
		RequestsByState: make(map[model.RequestState]int, len(model.States())),
		JournalDepth:    e.journal.Len(),
	}
	for _, zone := range e.caps.Zones() {
		if st, err := e.caps.ZoneStatus(zone.ID); err == nil {
			sum.Zones = append(sum.Zones, st)
		}
	}
	for _, req := range e.requests {
		sum.RequestsByState[req.State]++
	}
	return sum
}

// JournalLen returns the current rollback journal depth.
func (e *Engine) JournalLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.journal.Len()
}

func (e *Engine) updateZoneGauges() {
	for _, zone := range e.caps.Zones() {
		if st, err := e.caps.ZoneStatus(zone.ID); err == nil {
			e.tel.Metrics.SetZoneSlots(zone.ID, st.Available, st.Occupied)
		}
	}
}

func (e *Engine) recordError(err error) {
	e.tel.Metrics.RecordError(string(model.CodeOf(err)))
}

// snapshot copies a request so callers can't mutate ledger state.
func snapshot(req *model.Request) *model.Request {
	cp := *req
	if req.OccupiedAt != nil {
		t := *req.OccupiedAt
		cp.OccupiedAt = &t
	}
	if req.ReleasedAt != nil {
		t := *req.ReleasedAt
		cp.ReleasedAt = &t
	}
	return &cp
}
