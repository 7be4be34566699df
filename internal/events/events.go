package events

import (
	"context"
	"time"
)

// Event types emitted by the assignment service
const (
	EventAssignmentAssigned  = "assignment.assigned"
	EventAssignmentStarted   = "assignment.started"
	EventAssignmentCompleted = "assignment.completed"
	EventAssignmentExpired   = "assignment.expired"
	EventAssignmentCanceled  = "assignment.canceled"
	EventDeliveryFailed      = "delivery.failed"
)

// Event is the envelope published to the message broker
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// EventPublisher publishes domain events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// AssignmentEventData is the payload shared by assignment lifecycle events
type AssignmentEventData struct {
	AssignmentID uint   `json:"assignment_id"`
	TemplateID   uint   `json:"template_id"`
	AssigneeID   string `json:"assignee_id"`
	AssignerID   string `json:"assigner_id"`
	Status       string `json:"status"`
}

// DeliveryFailedData is the payload of delivery failure events
type DeliveryFailedData struct {
	AssignmentID uint   `json:"assignment_id"`
	AssigneeID   string `json:"assignee_id"`
	AssignerID   string `json:"assigner_id"`
	Reason       string `json:"reason"`
}
