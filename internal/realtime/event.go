// Package realtime fans pack section changes out to subscribed stream clients, across instances
// when a shared bus is configured.
package realtime

import (
	"time"

	"boardpacks/internal/domains"

	"github.com/google/uuid"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

const sectionsTable = "pack_sections"

// ChangeEvent describes one changed pack section row.
type ChangeEvent struct {
	Channel string              `json:"channel"`
	Type    EventType           `json:"type"`
	Table   string              `json:"table"`
	PackID  uuid.UUID           `json:"pack_id"`
	Record  domains.PackSection `json:"record"`
	At      time.Time           `json:"at"`
}

// Channel is the subscription channel of one pack's sections.
func Channel(packID uuid.UUID) string {
	return sectionsTable + ":pack_id=eq." + packID.String()
}

func NewSectionEvent(eventType EventType, section domains.PackSection) ChangeEvent {
	return ChangeEvent{
		Channel: Channel(section.PackID),
		Type:    eventType,
		Table:   sectionsTable,
		PackID:  section.PackID,
		Record:  section,
		At:      time.Now().UTC(),
	}
}
