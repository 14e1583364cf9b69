package httptransport

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"boardpacks/internal/domains"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// dateError is returned by Date when the value is not a date. Handlers report it against the
// meeting_date field instead of rejecting the body.
type dateError struct {
	value string
}

func (e *dateError) Error() string {
	return fmt.Sprintf("meeting_date %q must look like %s", e.value, dateLayout)
}

// Date accepts either a calendar date or an RFC 3339 timestamp.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return &dateError{value: string(data)}
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return &dateError{value: raw}
	}
	d.Time = t.UTC()
	return nil
}

type TemplateRequest struct {
	Name        string                          `json:"name"`
	Description *string                         `json:"description,omitempty"`
	CompanyName *string                         `json:"company_name,omitempty"`
	LogoURL     *string                         `json:"logo_url,omitempty"`
	Sections    []domains.TemplateSectionCreate `json:"sections"`
}

func (r TemplateRequest) toDomain(boardID uuid.UUID) domains.TemplateCreate {
	return domains.TemplateCreate{
		BoardID:     boardID,
		Name:        r.Name,
		Description: r.Description,
		CompanyName: r.CompanyName,
		LogoURL:     r.LogoURL,
		Sections:    r.Sections,
	}
}

type PackRequest struct {
	TemplateID  uuid.UUID `json:"template_id"`
	MeetingDate Date      `json:"meeting_date"`
	Title       string    `json:"title"`
}

type AdHocPackRequest struct {
	MeetingDate   Date     `json:"meeting_date"`
	Title         string   `json:"title"`
	SectionTitles []string `json:"section_titles"`
}

type PackUpdateRequest struct {
	Title       *string `json:"title,omitempty"`
	MeetingDate *Date   `json:"meeting_date,omitempty"`
	Status      *string `json:"status,omitempty"`
}

func (r PackUpdateRequest) toDomain() domains.PackUpdate {
	update := domains.PackUpdate{Title: r.Title, Status: r.Status}
	if r.MeetingDate != nil {
		date := r.MeetingDate.Time
		update.MeetingDate = &date
	}
	return update
}

type SubmissionRequest struct {
	Content json.RawMessage `json:"content"`
}

// SectionResponse is one row of the section tracker.
type SectionResponse struct {
	domains.PackSection
	Document    *domains.SectionDocument `json:"document,omitempty"`
	LastUpdated *time.Time               `json:"last_updated"`
}

func toSectionResponses(views []domains.PackSectionView) []SectionResponse {
	out := make([]SectionResponse, 0, len(views))
	for _, view := range views {
		out = append(out, SectionResponse{
			PackSection: view.PackSection,
			Document:    view.Document,
			LastUpdated: view.LastUpdated(),
		})
	}
	return out
}
