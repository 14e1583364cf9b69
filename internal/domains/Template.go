package domains

import (
	"time"

	"github.com/google/uuid"
)

type Template struct {
	ID          uuid.UUID `db:"id" json:"id"`
	BoardID     uuid.UUID `db:"board_id" json:"board_id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CompanyName *string   `db:"company_name" json:"company_name,omitempty"`
	LogoURL     *string   `db:"logo_url" json:"logo_url,omitempty"`
	CreatedBy   uuid.UUID `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type TemplateSection struct {
	ID         uuid.UUID `db:"id" json:"id"`
	TemplateID uuid.UUID `db:"template_id" json:"template_id"`
	Title      string    `db:"title" json:"title"`
	OrderIndex int       `db:"order_index" json:"order_index"`
	IsRequired bool      `db:"is_required" json:"is_required"`
	IsEnabled  bool      `db:"is_enabled" json:"is_enabled"`
}

// TemplateDetails is a template header together with its ordered sections.
type TemplateDetails struct {
	Template
	Sections []TemplateSection `json:"sections"`
}

type TemplateSectionCreate struct {
	Title      string `json:"title"`
	OrderIndex *int   `json:"order_index,omitempty"`
	IsRequired bool   `json:"is_required"`
	IsEnabled  bool   `json:"is_enabled"`
}

type TemplateCreate struct {
	BoardID     uuid.UUID               `json:"board_id"`
	Name        string                  `json:"name"`
	Description *string                 `json:"description,omitempty"`
	CompanyName *string                 `json:"company_name,omitempty"`
	LogoURL     *string                 `json:"logo_url,omitempty"`
	Sections    []TemplateSectionCreate `json:"sections"`
}

// TemplateToSave is a validated template with every section carrying its final order index.
type TemplateToSave struct {
	BoardID     uuid.UUID
	Name        string
	Description *string
	CompanyName *string
	LogoURL     *string
	CreatedBy   uuid.UUID
	Sections    []TemplateSectionToSave
}

type TemplateSectionToSave struct {
	Title      string
	OrderIndex int
	IsRequired bool
	IsEnabled  bool
}
