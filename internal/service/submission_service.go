package service

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"

	"boardpacks/internal/actor"
	"boardpacks/internal/domains"
	"boardpacks/internal/metrics"
	"boardpacks/internal/query"
	"boardpacks/internal/realtime"

	"github.com/google/uuid"
	"github.com/topi314/tint"
	"golang.org/x/crypto/blake2b"
)

type DocumentProvider interface {
	SubmitDocument(ctx context.Context, doc domains.DocumentToSave) (domains.SubmissionResult, error)
	ListSectionDocuments(ctx context.Context, sectionID uuid.UUID) ([]domains.SectionDocument, error)
	GetSectionDocument(ctx context.Context, sectionID uuid.UUID, version int) (domains.SectionDocument, error)
}

type SubmissionService struct {
	documents DocumentProvider
	query     *query.Client
	publisher ChangePublisher
	metrics   *metrics.Metrics
}

func NewSubmissionService(documents DocumentProvider, q *query.Client, publisher ChangePublisher, m *metrics.Metrics) *SubmissionService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &SubmissionService{
		documents: documents,
		query:     q,
		publisher: publisher,
		metrics:   m,
	}
}

// SubmitReport stores content as the next version of the section and points the section at it.
// Once validated, the store call is not cancelled by the caller going away.
func (s *SubmissionService) SubmitReport(ctx context.Context, submission domains.ReportSubmission) (domains.SubmissionResult, error) {
	userID, err := actor.Require(ctx)
	if err != nil {
		return domains.SubmissionResult{}, err
	}
	if submission.SectionID == uuid.Nil {
		return domains.SubmissionResult{}, invalid("section_id", "Section is required")
	}

	content, err := domains.ParseSectionContent(submission.Content)
	if err != nil {
		return domains.SubmissionResult{}, &ValidationError{Field: "content", Message: contentMessage(err), Err: err}
	}
	digest, err := ContentDigest(content)
	if err != nil {
		return domains.SubmissionResult{}, &ValidationError{Field: "content", Message: contentMessage(err), Err: err}
	}

	doc := domains.DocumentToSave{
		SectionID:     submission.SectionID,
		Content:       content,
		ContentDigest: digest,
		CreatedBy:     userID,
	}

	storeCtx := context.WithoutCancel(ctx)
	result, err := query.Mutate(storeCtx, s.query, func(ctx context.Context) (domains.SubmissionResult, error) {
		return s.documents.SubmitDocument(ctx, doc)
	}, query.SectionVersions(submission.SectionID))
	if err != nil {
		slog.ErrorContext(ctx, "submit report failed", slog.String("section_id", submission.SectionID.String()), tint.Err(err))
		return domains.SubmissionResult{}, err
	}

	s.query.Invalidate(query.PackSections(result.Section.PackID))
	// board listings carry submitted counts but the section does not know its board
	s.query.InvalidateScope(query.ScopeBoardPacks)
	s.metrics.Submission()
	s.publisher.PublishSectionChange(storeCtx, realtime.EventUpdate, result.Section)

	slog.InfoContext(ctx, "report submitted",
		slog.String("section_id", result.Section.ID.String()),
		slog.Int("version", result.Document.VersionNumber),
	)
	return result, nil
}

func (s *SubmissionService) ListSectionVersions(ctx context.Context, sectionID uuid.UUID) ([]domains.SectionDocument, error) {
	return query.Read(ctx, s.query, query.SectionVersions(sectionID), func(ctx context.Context) ([]domains.SectionDocument, error) {
		return s.documents.ListSectionDocuments(ctx, sectionID)
	})
}

func (s *SubmissionService) GetSectionVersion(ctx context.Context, sectionID uuid.UUID, version int) (domains.SectionDocument, error) {
	if version < 1 {
		return domains.SectionDocument{}, invalid("version", "Versions start at 1")
	}
	return query.Fetch(ctx, s.query, func(ctx context.Context) (domains.SectionDocument, error) {
		return s.documents.GetSectionDocument(ctx, sectionID, version)
	})
}

// ContentDigest is the hex BLAKE2b-256 of the canonical content encoding.
func ContentDigest(content domains.SectionContent) (string, error) {
	canonical, err := content.Canonical()
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func contentMessage(err error) string {
	switch {
	case errors.Is(err, domains.ErrContentEmpty):
		return "The report is empty"
	case errors.Is(err, domains.ErrContentUnknownKind):
		return "This kind of report content is not supported"
	default:
		return "The report content is not valid"
	}
}
