package domains

import (
	"time"

	"github.com/google/uuid"
)

const (
	PackStatusDraft      = "draft"
	PackStatusInProgress = "in_progress"
	PackStatusCompleted  = "completed"
)

func IsKnownPackStatus(status string) bool {
	switch status {
	case PackStatusDraft, PackStatusInProgress, PackStatusCompleted:
		return true
	}
	return false
}

type Pack struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	BoardID     uuid.UUID  `db:"board_id" json:"board_id"`
	TemplateID  *uuid.UUID `db:"template_id" json:"template_id,omitempty"`
	MeetingDate time.Time  `db:"meeting_date" json:"meeting_date"`
	Title       string     `db:"title" json:"title"`
	Status      string     `db:"status" json:"status"`
	CreatedBy   uuid.UUID  `db:"created_by" json:"created_by"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

type PackCreate struct {
	BoardID     uuid.UUID `json:"board_id"`
	TemplateID  uuid.UUID `json:"template_id"`
	MeetingDate time.Time `json:"meeting_date"`
	Title       string    `json:"title"`
}

type AdHocPackCreate struct {
	BoardID       uuid.UUID `json:"board_id"`
	MeetingDate   time.Time `json:"meeting_date"`
	Title         string    `json:"title"`
	SectionTitles []string  `json:"section_titles"`
}

// PackToSave is a pack header plus the section slots cloned for it.
type PackToSave struct {
	BoardID     uuid.UUID
	TemplateID  *uuid.UUID
	MeetingDate time.Time
	Title       string
	Status      string
	CreatedBy   uuid.UUID
	Sections    []PackSectionToSave
}

type PackSectionToSave struct {
	Title      string
	OrderIndex int
}

type PackUpdate struct {
	Title       *string    `json:"title,omitempty"`
	MeetingDate *time.Time `json:"meeting_date,omitempty"`
	Status      *string    `json:"status,omitempty"`
}

func (u PackUpdate) HasChanges() bool {
	return u.Title != nil || u.MeetingDate != nil || u.Status != nil
}

type PackSummary struct {
	Pack
	TotalSections     int `db:"total_sections" json:"total_sections"`
	SubmittedSections int `db:"submitted_sections" json:"submitted_sections"`
}

type PackCreateResult struct {
	Pack     Pack          `json:"pack"`
	Sections []PackSection `json:"sections"`
}
