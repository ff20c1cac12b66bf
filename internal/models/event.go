package models

import "time"

type DestinationEventType string

const (
	DestinationCreated DestinationEventType = "destination.created"
	DestinationUpdated DestinationEventType = "destination.updated"
	DestinationDeleted DestinationEventType = "destination.deleted"
)

// DestinationEvent is published after a committed catalog mutation.
type DestinationEvent struct {
	Type          DestinationEventType `json:"type"`
	DestinationID string               `json:"destinationId"`
	Title         string               `json:"title"`
	Featured      bool                 `json:"featured"`
	Images        []string             `json:"images"`
	ActorID       string               `json:"actorId"`
	OccurredAt    time.Time            `json:"occurredAt"`
}

// NewDestinationEvent snapshots d for an event of the given type.
func NewDestinationEvent(t DestinationEventType, d *Destination, actorID string) DestinationEvent {
	return DestinationEvent{
		Type:          t,
		DestinationID: d.ID,
		Title:         d.Title,
		Featured:      d.Featured,
		Images:        append([]string{}, d.Images...),
		ActorID:       actorID,
		OccurredAt:    time.Now().UTC(),
	}
}
