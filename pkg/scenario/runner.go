package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openkerb/openkerb/internal/clock"
	"github.com/openkerb/openkerb/pkg/config"
	"github.com/openkerb/openkerb/pkg/engine"
	"github.com/openkerb/openkerb/pkg/model"
	"github.com/openkerb/openkerb/pkg/stores"
	"github.com/openkerb/openkerb/pkg/telemetry"
)

// Runner executes scenarios against an allocation engine.
type Runner struct {
	engine *engine.Engine
	store  stores.Store
	tel    *telemetry.Telemetry
	clock  clock.Clock
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore attaches a persistence store. Runs, their operation
// timeline, and final request snapshots are recorded in it.
func WithStore(store stores.Store) Option {
	return func(r *Runner) { r.store = store }
}

// WithTelemetry attaches a telemetry context.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(r *Runner) { r.tel = tel }
}

// WithClock overrides the wall clock, used in tests.
func WithClock(c clock.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// NewRunner creates a runner for the given engine.
func NewRunner(eng *engine.Engine, opts ...Option) *Runner {
	r := &Runner{
		engine: eng,
		tel:    telemetry.Nop(),
		clock:  clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OpResult is the outcome of one scenario operation.
type OpResult struct {
	// Index is the op's position in the scenario.
	Index int `json:"index"`

	// Op is the operation that ran.
	Op config.Op `json:"op"`

	// RequestID is the created request's ID for create ops.
	RequestID string `json:"request_id,omitempty"`

	// Allocation is the allocation outcome for allocate ops,
	// including denials.
	Allocation *engine.AllocationResult `json:"allocation,omitempty"`

	// Undone is the number of records undone for rollback ops.
	Undone int `json:"undone,omitempty"`

	// Error is set when the op failed.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the op failed.
func (r OpResult) Failed() bool { return r.Error != "" }

// RunResult is the outcome of a full scenario run.
type RunResult struct {
	// RunID is the unique run identifier.
	RunID string `json:"run_id"`

	// Scenario is the scenario name.
	Scenario string `json:"scenario"`

	// Ops are the per-operation outcomes in execution order.
	Ops []OpResult `json:"ops"`

	// Succeeded and Failed count the operations.
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`

	// StartedAt and CompletedAt bound the run.
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Run executes a scenario op by op. A failing op is recorded and the
// run continues; the returned error covers run-level failures such as
// persistence, not individual ops.
func (r *Runner) Run(ctx context.Context, scenario *config.Scenario) (*RunResult, error) {
	result := &RunResult{
		RunID:     uuid.NewString(),
		Scenario:  scenario.Name,
		StartedAt: r.clock.Now(),
	}

	ctx, span := r.tel.Tracer.StartRunSpan(ctx, result.RunID)
	defer span.End()

	logger := r.tel.Logger.WithRunID(result.RunID)
	logger.Infof("starting scenario %s with %d ops", scenario.Name, len(scenario.Ops))
	r.tel.Events.PublishRunStarted(result.RunID, scenario.Name)

	if r.store != nil {
		run := &stores.Run{
			ID:        result.RunID,
			Scenario:  scenario.Name,
			Status:    stores.RunStatusRunning,
			StartedAt: result.StartedAt,
			Metadata:  fmt.Sprintf(`{"ops":%d}`, len(scenario.Ops)),
			CreatedAt: result.StartedAt,
			UpdatedAt: result.StartedAt,
		}
		if err := r.store.CreateRun(ctx, run); err != nil {
			return nil, fmt.Errorf("create run: %w", err)
		}
	}

	for i, op := range scenario.Ops {
		opResult := r.execute(op)
		opResult.Index = i
		result.Ops = append(result.Ops, opResult)

		status := "ok"
		if opResult.Failed() {
			status = "error"
			result.Failed++
			logger.WithField("op", op.Action).Warnf("op %d failed: %s", i, opResult.Error)
		} else {
			result.Succeeded++
		}
		r.tel.Metrics.RecordScenarioOp(op.Action, status)

		if r.store != nil {
			if err := r.recordOpEvent(ctx, result.RunID, opResult); err != nil {
				logger.WithError(err).Warn("failed to record op event")
			}
		}
	}

	result.CompletedAt = r.clock.Now()
	r.tel.Events.PublishRunCompleted(result.RunID, result.Succeeded, result.Failed)
	logger.Infof("scenario %s completed: %d ok, %d failed", scenario.Name, result.Succeeded, result.Failed)

	if r.store != nil {
		if err := r.persistOutcome(ctx, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// execute runs a single op against the engine.
func (r *Runner) execute(op config.Op) OpResult {
	result := OpResult{Op: op}

	switch op.Action {
	case config.ActionCreate:
		req, err := r.engine.CreateRequest(op.Vehicle, op.Zone)
		if err != nil {
			result.Error = err.Error()
			break
		}
		result.RequestID = req.ID
	case config.ActionAllocate:
		alloc, err := r.engine.Allocate(op.Request)
		if err != nil {
			result.Error = err.Error()
			break
		}
		result.Allocation = alloc
	case config.ActionOccupy:
		if err := r.engine.Occupy(op.Request); err != nil {
			result.Error = err.Error()
		}
	case config.ActionRelease:
		if err := r.engine.Release(op.Request); err != nil {
			result.Error = err.Error()
		}
	case config.ActionCancel:
		if err := r.engine.Cancel(op.Request); err != nil {
			result.Error = err.Error()
		}
	case config.ActionRollback:
		undone, err := r.engine.Rollback(op.Count)
		if err != nil {
			result.Error = err.Error()
			break
		}
		result.Undone = undone
	default:
		result.Error = fmt.Sprintf("unknown action %q", op.Action)
	}

	return result
}

// recordOpEvent appends one op outcome to the run's timeline.
func (r *Runner) recordOpEvent(ctx context.Context, runID string, opResult OpResult) error {
	level := stores.EventLevelInfo
	message := fmt.Sprintf("op %s succeeded", opResult.Op.Action)
	if opResult.Failed() {
		level = stores.EventLevelError
		message = fmt.Sprintf("op %s failed: %s", opResult.Op.Action, opResult.Error)
	}

	event := &stores.RequestEvent{
		RunID:     &runID,
		Type:      "op." + opResult.Op.Action,
		Level:     level,
		Message:   message,
		Timestamp: r.clock.Now(),
	}

	if requestID := opRequestID(opResult); requestID != "" {
		event.RequestID = &requestID
	}
	if opResult.Allocation != nil && opResult.Allocation.Allocated {
		event.SlotID = &opResult.Allocation.SlotID
		event.ZoneID = &opResult.Allocation.ZoneID
	}
	if details, err := json.Marshal(opResult); err == nil {
		s := string(details)
		event.Details = &s
	}

	return r.store.AppendEvent(ctx, event)
}

// opRequestID returns the request an op outcome refers to, if any.
func opRequestID(opResult OpResult) string {
	if opResult.RequestID != "" {
		return opResult.RequestID
	}
	return opResult.Op.Request
}

// persistOutcome snapshots every request and marks the run terminal.
func (r *Runner) persistOutcome(ctx context.Context, result *RunResult) error {
	now := r.clock.Now()
	for _, req := range r.engine.Requests() {
		snap := requestSnapshot(req, result.RunID, now)
		if err := r.store.UpsertRequestSnapshot(ctx, snap); err != nil {
			return fmt.Errorf("snapshot request %s: %w", req.ID, err)
		}
	}

	status := stores.RunStatusCompleted
	var runErr *string
	if result.Failed > 0 {
		status = stores.RunStatusFailed
		msg := fmt.Sprintf("%d of %d operations failed", result.Failed, len(result.Ops))
		runErr = &msg
	}
	if err := r.store.UpdateRunStatus(ctx, result.RunID, status, runErr); err != nil {
		return fmt.Errorf("update run status: %w", err)
	}

	return nil
}

func requestSnapshot(req *model.Request, runID string, now time.Time) *stores.RequestSnapshot {
	snap := &stores.RequestSnapshot{
		RequestID:   req.ID,
		RunID:       runID,
		VehicleID:   req.VehicleID,
		ZoneID:      req.RequestedZoneID,
		State:       string(req.State),
		CrossZone:   req.CrossZone,
		RequestedAt: req.RequestedAt,
		OccupiedAt:  req.OccupiedAt,
		ReleasedAt:  req.ReleasedAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.AllocatedSlotID != "" {
		slotID := req.AllocatedSlotID
		snap.SlotID = &slotID
	}
	return snap
}
