package stores

import (
	"context"
	"database/sql"
	"time"
)

// RunStatus represents the status of a scenario run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// EventLevel represents the severity level of an event
type EventLevel string

const (
	EventLevelDebug   EventLevel = "debug"
	EventLevelInfo    EventLevel = "info"
	EventLevelWarning EventLevel = "warning"
	EventLevelError   EventLevel = "error"
)

// Run represents a scenario run
type Run struct {
	ID          string     `json:"id"`
	Scenario    string     `json:"scenario"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       *string    `json:"error,omitempty"`
	Metadata    string     `json:"metadata"` // JSON blob
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// RequestEvent is one entry in the append-only allocation timeline
type RequestEvent struct {
	ID        int64      `json:"id"`
	RunID     *string    `json:"run_id,omitempty"`
	RequestID *string    `json:"request_id,omitempty"`
	SlotID    *string    `json:"slot_id,omitempty"`
	ZoneID    *string    `json:"zone_id,omitempty"`
	Type      string     `json:"type"`
	Level     EventLevel `json:"level"`
	Message   string     `json:"message"`
	Details   *string    `json:"details,omitempty"` // JSON blob
	Timestamp time.Time  `json:"timestamp"`
}

// RequestSnapshot is the persisted state of a request at the end of a run
type RequestSnapshot struct {
	RequestID   string     `json:"request_id"`
	RunID       string     `json:"run_id"`
	VehicleID   string     `json:"vehicle_id"`
	ZoneID      string     `json:"zone_id"`
	State       string     `json:"state"`
	SlotID      *string    `json:"slot_id,omitempty"`
	CrossZone   bool       `json:"cross_zone"`
	RequestedAt time.Time  `json:"requested_at"`
	OccupiedAt  *time.Time `json:"occupied_at,omitempty"`
	ReleasedAt  *time.Time `json:"released_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// EventFilter narrows GetEvents queries. Nil fields match everything.
type EventFilter struct {
	RunID     *string
	RequestID *string
	Level     *EventLevel
}

// Store defines the interface for the persistence layer
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(tx *sql.Tx) error
	RollbackTx(tx *sql.Tx) error

	// Run operations
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	UpdateRunStatus(ctx context.Context, id string, status RunStatus, err *string) error
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)
	DeleteRun(ctx context.Context, id string) error

	// Event operations
	AppendEvent(ctx context.Context, event *RequestEvent) error
	GetEvents(ctx context.Context, filter EventFilter, limit, offset int) ([]*RequestEvent, error)

	// Request snapshot operations
	UpsertRequestSnapshot(ctx context.Context, snap *RequestSnapshot) error
	GetRequestSnapshot(ctx context.Context, runID, requestID string) (*RequestSnapshot, error)
	ListRequestSnapshots(ctx context.Context, runID string) ([]*RequestSnapshot, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
