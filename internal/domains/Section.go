package domains

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	SectionStatusPending   = "pending"
	SectionStatusSubmitted = "submitted"
)

type PackSection struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PackID      uuid.UUID  `db:"pack_id" json:"pack_id"`
	Title       string     `db:"title" json:"title"`
	OrderIndex  int        `db:"order_index" json:"order_index"`
	Status      string     `db:"status" json:"status"`
	DocumentID  *uuid.UUID `db:"document_id" json:"document_id,omitempty"`
	NextVersion int        `db:"next_version" json:"-"`
}

type SectionDocument struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	SectionID     uuid.UUID      `db:"section_id" json:"section_id"`
	Content       SectionContent `db:"content" json:"content"`
	VersionNumber int            `db:"version_number" json:"version_number"`
	ContentDigest string         `db:"content_digest" json:"content_digest"`
	CreatedBy     uuid.UUID      `db:"created_by" json:"created_by"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

// PackSectionView is a section joined with the document its pointer currently refers to.
type PackSectionView struct {
	PackSection
	Document *SectionDocument `json:"document,omitempty"`
}

// LastUpdated is the creation time of the current document, if any.
func (v PackSectionView) LastUpdated() *time.Time {
	if v.Document == nil {
		return nil
	}
	t := v.Document.CreatedAt
	return &t
}

type ReportSubmission struct {
	SectionID uuid.UUID       `json:"section_id"`
	Content   json.RawMessage `json:"content"`
}

type DocumentToSave struct {
	SectionID     uuid.UUID
	Content       SectionContent
	ContentDigest string
	CreatedBy     uuid.UUID
}

type SubmissionResult struct {
	Section  PackSection     `json:"section"`
	Document SectionDocument `json:"document"`
}

const (
	AnomalyDuplicateVersion     = "duplicate_version"
	AnomalyUnreferencedDocument = "unreferenced_document"
)

// VersionAnomaly is a document history entry left behind by non-transactional writes: either two
// documents sharing a version number, or a document newer than the one the section points at.
type VersionAnomaly struct {
	Kind          string    `db:"kind" json:"kind"`
	SectionID     uuid.UUID `db:"section_id" json:"section_id"`
	VersionNumber int       `db:"version_number" json:"version_number"`
	Documents     int       `db:"documents" json:"documents"`
}

type SweepResult struct {
	Packs     int64 `json:"packs"`
	Templates int64 `json:"templates"`
}
