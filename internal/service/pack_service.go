package service

import (
	"context"
	"log/slog"
	"strings"

	"boardpacks/internal/actor"
	"boardpacks/internal/domains"
	"boardpacks/internal/query"
	"boardpacks/internal/realtime"

	"github.com/google/uuid"
	"github.com/topi314/tint"
)

type PackProvider interface {
	SavePack(ctx context.Context, pack domains.PackToSave) (domains.Pack, []domains.PackSection, error)
	GetPackByID(ctx context.Context, packID uuid.UUID) (domains.Pack, error)
	ListPacksByBoard(ctx context.Context, boardID uuid.UUID) ([]domains.PackSummary, error)
	UpdatePack(ctx context.Context, packID uuid.UUID, update domains.PackUpdate) (domains.Pack, error)
	GetSectionByID(ctx context.Context, sectionID uuid.UUID) (domains.PackSection, error)
	GetPackSections(ctx context.Context, packID uuid.UUID) ([]domains.PackSectionView, error)
}

type ChangePublisher interface {
	PublishSectionChange(ctx context.Context, eventType realtime.EventType, section domains.PackSection)
}

type PackService struct {
	packs     PackProvider
	templates TemplateProvider
	query     *query.Client
	publisher ChangePublisher
}

type noopPublisher struct{}

func (noopPublisher) PublishSectionChange(context.Context, realtime.EventType, domains.PackSection) {}

func NewPackService(packs PackProvider, templates TemplateProvider, q *query.Client, publisher ChangePublisher) *PackService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &PackService{
		packs:     packs,
		templates: templates,
		query:     q,
		publisher: publisher,
	}
}

// CreatePackFromTemplate snapshots the enabled sections of a template into a new draft pack. Later
// template edits do not reach the pack.
func (s *PackService) CreatePackFromTemplate(ctx context.Context, payload domains.PackCreate) (domains.PackCreateResult, error) {
	userID, err := actor.Require(ctx)
	if err != nil {
		return domains.PackCreateResult{}, err
	}
	title, err := validatePackHeader(payload.BoardID, payload.Title, payload.MeetingDate.IsZero())
	if err != nil {
		return domains.PackCreateResult{}, err
	}
	if payload.TemplateID == uuid.Nil {
		return domains.PackCreateResult{}, invalid("template_id", "Choose a template")
	}

	template, err := query.Fetch(ctx, s.query, func(ctx context.Context) (domains.Template, error) {
		return s.templates.GetTemplateByID(ctx, payload.TemplateID)
	})
	if err != nil {
		return domains.PackCreateResult{}, err
	}
	if template.BoardID != payload.BoardID {
		return domains.PackCreateResult{}, invalid("template_id", "The template belongs to another board")
	}

	templateSections, err := query.Fetch(ctx, s.query, func(ctx context.Context) ([]domains.TemplateSection, error) {
		return s.templates.GetTemplateSections(ctx, payload.TemplateID)
	})
	if err != nil {
		return domains.PackCreateResult{}, err
	}

	sections := make([]domains.PackSectionToSave, 0, len(templateSections))
	for _, section := range templateSections {
		if !section.IsEnabled {
			continue
		}
		sections = append(sections, domains.PackSectionToSave{
			Title:      section.Title,
			OrderIndex: section.OrderIndex,
		})
	}
	if len(sections) == 0 {
		return domains.PackCreateResult{}, invalid("template_id", "The template has no enabled sections")
	}

	templateID := template.ID
	return s.savePack(ctx, domains.PackToSave{
		BoardID:     payload.BoardID,
		TemplateID:  &templateID,
		MeetingDate: payload.MeetingDate,
		Title:       title,
		Status:      domains.PackStatusDraft,
		CreatedBy:   userID,
		Sections:    sections,
	})
}

// CreateAdHocPack creates a pack whose sections are given directly instead of taken from a
// template.
func (s *PackService) CreateAdHocPack(ctx context.Context, payload domains.AdHocPackCreate) (domains.PackCreateResult, error) {
	userID, err := actor.Require(ctx)
	if err != nil {
		return domains.PackCreateResult{}, err
	}
	title, err := validatePackHeader(payload.BoardID, payload.Title, payload.MeetingDate.IsZero())
	if err != nil {
		return domains.PackCreateResult{}, err
	}

	sections := make([]domains.PackSectionToSave, 0, len(payload.SectionTitles))
	for i, sectionTitle := range payload.SectionTitles {
		sectionTitle = strings.TrimSpace(sectionTitle)
		if sectionTitle == "" {
			return domains.PackCreateResult{}, invalid("section_titles", "Section %d needs a title", i+1)
		}
		sections = append(sections, domains.PackSectionToSave{Title: sectionTitle, OrderIndex: i})
	}
	if len(sections) == 0 {
		return domains.PackCreateResult{}, invalid("section_titles", "Add at least one section")
	}

	return s.savePack(ctx, domains.PackToSave{
		BoardID:     payload.BoardID,
		MeetingDate: payload.MeetingDate,
		Title:       title,
		Status:      domains.PackStatusDraft,
		CreatedBy:   userID,
		Sections:    sections,
	})
}

func (s *PackService) savePack(ctx context.Context, toSave domains.PackToSave) (domains.PackCreateResult, error) {
	type saved struct {
		pack     domains.Pack
		sections []domains.PackSection
	}
	result, err := query.Mutate(ctx, s.query, func(ctx context.Context) (saved, error) {
		pack, sections, err := s.packs.SavePack(ctx, toSave)
		return saved{pack: pack, sections: sections}, err
	}, query.BoardPacks(toSave.BoardID))
	if err != nil {
		slog.ErrorContext(ctx, "save pack failed", slog.String("board_id", toSave.BoardID.String()), tint.Err(err))
		return domains.PackCreateResult{}, err
	}

	s.query.Invalidate(query.PackSections(result.pack.ID))
	for _, section := range result.sections {
		s.publisher.PublishSectionChange(ctx, realtime.EventInsert, section)
	}
	return domains.PackCreateResult{Pack: result.pack, Sections: result.sections}, nil
}

func (s *PackService) ListBoardPacks(ctx context.Context, boardID uuid.UUID) ([]domains.PackSummary, error) {
	return query.Read(ctx, s.query, query.BoardPacks(boardID), func(ctx context.Context) ([]domains.PackSummary, error) {
		return s.packs.ListPacksByBoard(ctx, boardID)
	})
}

func (s *PackService) GetPack(ctx context.Context, packID uuid.UUID) (domains.Pack, error) {
	return query.Fetch(ctx, s.query, func(ctx context.Context) (domains.Pack, error) {
		return s.packs.GetPackByID(ctx, packID)
	})
}

// UpdatePack changes header fields. Any known status is accepted; no transition order is imposed.
func (s *PackService) UpdatePack(ctx context.Context, packID uuid.UUID, update domains.PackUpdate) (domains.Pack, error) {
	if _, err := actor.Require(ctx); err != nil {
		return domains.Pack{}, err
	}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return domains.Pack{}, invalid("title", "Pack title is required")
		}
		update.Title = &title
	}
	if update.MeetingDate != nil && update.MeetingDate.IsZero() {
		return domains.Pack{}, invalid("meeting_date", "Meeting date is required")
	}
	if update.Status != nil && !domains.IsKnownPackStatus(*update.Status) {
		return domains.Pack{}, invalid("status", "Unknown pack status %q", *update.Status)
	}

	updated, err := query.Mutate(ctx, s.query, func(ctx context.Context) (domains.Pack, error) {
		return s.packs.UpdatePack(ctx, packID, update)
	})
	if err != nil {
		slog.ErrorContext(ctx, "update pack failed", slog.String("pack_id", packID.String()), tint.Err(err))
		return domains.Pack{}, err
	}
	s.query.Invalidate(query.BoardPacks(updated.BoardID))
	return updated, nil
}

// FetchPackSections returns every section of the pack with its current document, ordered by
// order_index. Status and last-updated time come from this view only.
func (s *PackService) FetchPackSections(ctx context.Context, packID uuid.UUID) ([]domains.PackSectionView, error) {
	return query.Read(ctx, s.query, query.PackSections(packID), func(ctx context.Context) ([]domains.PackSectionView, error) {
		return s.packs.GetPackSections(ctx, packID)
	})
}

func validatePackHeader(boardID uuid.UUID, title string, missingDate bool) (string, error) {
	if boardID == uuid.Nil {
		return "", invalid("board_id", "Board is required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return "", invalid("title", "Pack title is required")
	}
	if missingDate {
		return "", invalid("meeting_date", "Meeting date is required")
	}
	return title, nil
}
