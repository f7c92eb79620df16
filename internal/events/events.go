package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by committed workflows.
const (
	TypeUserRegistered       = "user.registered"
	TypeUserUpdated          = "user.updated"
	TypeUserDeleted          = "user.deleted"
	TypeCourseCreated        = "course.created"
	TypeAssignmentCreated    = "assignment.created"
	TypeAssignmentDeleted    = "assignment.deleted"
	TypeAssignmentSubmitted  = "assignment.submitted"
	TypeGradeRecorded        = "grade.recorded"
	TypeEnrollmentChanged    = "enrollment.changed"
	TypeNotificationsCreated = "notifications.created"
)

// Event records something that happened in a committed workflow.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type constants
	Type string `json:"type"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// OccurredAt is when the workflow committed
	OccurredAt time.Time `json:"occurred_at"`
}

// RecipientsPayload lists the student profiles whose inbox changed.
type RecipientsPayload struct {
	RecipientIDs []int64 `json:"recipient_ids"`
}

// EntityPayload identifies the entity a workflow acted on.
type EntityPayload struct {
	ID       int64 `json:"id"`
	CourseID int64 `json:"course_id,omitempty"`
	ActorID  int64 `json:"actor_id,omitempty"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates a new Event with the specified type and payload.
func NewEvent(eventType string, payload interface{}, occurredAt time.Time) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:         uuid.New(),
		Type:       eventType,
		Payload:    payloadBytes,
		OccurredAt: occurredAt,
	}, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent implements EventHandler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *Event) error
}
