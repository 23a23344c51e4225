package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one entry in the allocation timeline.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// RunID is the associated scenario run ID, if applicable.
	RunID string `json:"run_id,omitempty"`

	// RequestID is the associated request ID, if applicable.
	RequestID string `json:"request_id,omitempty"`

	// SlotID is the associated slot ID, if applicable.
	SlotID string `json:"slot_id,omitempty"`

	// ZoneID is the associated zone ID, if applicable.
	ZoneID string `json:"zone_id,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// Event type constants.
const (
	EventTypeRequestCreated   = "request.created"
	EventTypeAllocationGrant  = "allocation.granted"
	EventTypeAllocationDenied = "allocation.denied"
	EventTypeRequestOccupied  = "request.occupied"
	EventTypeRequestReleased  = "request.released"
	EventTypeRequestCancelled = "request.cancelled"
	EventTypeRollback         = "rollback.performed"
	EventTypePolicyViolation  = "policy.violation"
	EventTypeRunStarted       = "run.started"
	EventTypeRunCompleted     = "run.completed"
	EventTypeError            = "error"
)

// Event severity levels.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles published events.
type EventSubscriber func(event Event)

// EventPublisher fans events out to in-process subscribers and keeps a
// bounded ring of recent events for reporting.
type EventPublisher struct {
	config      EventsConfig
	mu          sync.RWMutex
	subscribers []EventSubscriber
	recent      []Event
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	return &EventPublisher{config: cfg}, nil
}

// Subscribe registers a subscriber for all future events.
func (p *EventPublisher) Subscribe(sub EventSubscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, sub)
}

// Publish delivers an event to all subscribers. The ID and timestamp
// are filled in when absent.
func (p *EventPublisher) Publish(event Event) {
	if !p.config.Enabled {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Level == "" {
		event.Level = EventLevelInfo
	}

	p.mu.Lock()
	p.recent = append(p.recent, event)
	if max := p.config.BufferSize; max > 0 && len(p.recent) > max {
		p.recent = p.recent[len(p.recent)-max:]
	}
	subs := make([]EventSubscriber, len(p.subscribers))
	copy(subs, p.subscribers)
	p.mu.Unlock()

	for _, sub := range subs {
		sub(event)
	}
}

// Recent returns a copy of the retained events, oldest first.
func (p *EventPublisher) Recent() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Event, len(p.recent))
	copy(out, p.recent)
	return out
}

// PublishRequestCreated publishes a request.created event.
func (p *EventPublisher) PublishRequestCreated(requestID, vehicleID, zoneID string) {
	p.Publish(Event{
		Type:      EventTypeRequestCreated,
		RequestID: requestID,
		ZoneID:    zoneID,
		Message:   "parking request created",
		Data:      map[string]interface{}{"vehicle_id": vehicleID},
	})
}

// PublishAllocationGranted publishes an allocation.granted event.
func (p *EventPublisher) PublishAllocationGranted(requestID, slotID, zoneID string, crossZone bool) {
	p.Publish(Event{
		Type:      EventTypeAllocationGrant,
		RequestID: requestID,
		SlotID:    slotID,
		ZoneID:    zoneID,
		Message:   "slot allocated",
		Data:      map[string]interface{}{"cross_zone": crossZone},
	})
}

// PublishAllocationDenied publishes an allocation.denied event.
func (p *EventPublisher) PublishAllocationDenied(requestID, zoneID string) {
	p.Publish(Event{
		Type:      EventTypeAllocationDenied,
		RequestID: requestID,
		ZoneID:    zoneID,
		Level:     EventLevelWarning,
		Message:   "no capacity in requested or adjacent zones",
	})
}

// PublishTransition publishes the event matching a completed transition.
func (p *EventPublisher) PublishTransition(requestID, slotID, state string) {
	types := map[string]string{
		"OCCUPIED":  EventTypeRequestOccupied,
		"RELEASED":  EventTypeRequestReleased,
		"CANCELLED": EventTypeRequestCancelled,
	}
	eventType, ok := types[state]
	if !ok {
		return
	}
	p.Publish(Event{
		Type:      eventType,
		RequestID: requestID,
		SlotID:    slotID,
		Message:   "request transitioned to " + state,
	})
}

// PublishRollback publishes a rollback.performed event.
func (p *EventPublisher) PublishRollback(requested, undone int) {
	p.Publish(Event{
		Type:    EventTypeRollback,
		Message: "allocations rolled back",
		Data: map[string]interface{}{
			"requested": requested,
			"undone":    undone,
		},
	})
}

// PublishRunStarted publishes a run.started event.
func (p *EventPublisher) PublishRunStarted(runID, scenario string) {
	p.Publish(Event{
		Type:    EventTypeRunStarted,
		RunID:   runID,
		Message: "scenario run started",
		Data:    map[string]interface{}{"scenario": scenario},
	})
}

// PublishRunCompleted publishes a run.completed event.
func (p *EventPublisher) PublishRunCompleted(runID string, succeeded, failed int) {
	p.Publish(Event{
		Type:    EventTypeRunCompleted,
		RunID:   runID,
		Message: "scenario run completed",
		Data: map[string]interface{}{
			"ops_succeeded": succeeded,
			"ops_failed":    failed,
		},
	})
}
