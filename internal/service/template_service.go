package service

import (
	"context"
	"log/slog"
	"strings"

	"boardpacks/internal/actor"
	"boardpacks/internal/domains"
	"boardpacks/internal/query"

	"github.com/google/uuid"
	"github.com/topi314/tint"
)

type TemplateService struct {
	provider TemplateProvider
	query    *query.Client
}

type TemplateProvider interface {
	SaveTemplate(ctx context.Context, template domains.TemplateToSave) (domains.Template, error)
	UpdateTemplate(ctx context.Context, templateID uuid.UUID, template domains.TemplateToSave) (domains.Template, error)
	ListTemplatesByBoard(ctx context.Context, boardID uuid.UUID) ([]domains.Template, error)
	GetTemplateByID(ctx context.Context, templateID uuid.UUID) (domains.Template, error)
	GetTemplateSections(ctx context.Context, templateID uuid.UUID) ([]domains.TemplateSection, error)
}

func NewTemplateService(provider TemplateProvider, q *query.Client) *TemplateService {
	return &TemplateService{
		provider: provider,
		query:    q,
	}
}

// CreateTemplate stores a template header and its sections together. Section ids are not part of
// the result.
func (s *TemplateService) CreateTemplate(ctx context.Context, template domains.TemplateCreate) (domains.Template, error) {
	userID, err := actor.Require(ctx)
	if err != nil {
		return domains.Template{}, err
	}
	toSave, err := validateTemplate(template, userID)
	if err != nil {
		return domains.Template{}, err
	}

	created, err := query.Mutate(ctx, s.query, func(ctx context.Context) (domains.Template, error) {
		return s.provider.SaveTemplate(ctx, toSave)
	}, query.BoardTemplates(toSave.BoardID))
	if err != nil {
		slog.ErrorContext(ctx, "save template failed", slog.String("board_id", toSave.BoardID.String()), tint.Err(err))
		return domains.Template{}, err
	}
	return created, nil
}

// UpdateTemplate replaces the header fields and the whole section list. Packs created earlier
// keep their own copies of the sections.
func (s *TemplateService) UpdateTemplate(ctx context.Context, templateID uuid.UUID, template domains.TemplateCreate) (domains.Template, error) {
	userID, err := actor.Require(ctx)
	if err != nil {
		return domains.Template{}, err
	}

	existing, err := query.Fetch(ctx, s.query, func(ctx context.Context) (domains.Template, error) {
		return s.provider.GetTemplateByID(ctx, templateID)
	})
	if err != nil {
		return domains.Template{}, err
	}
	template.BoardID = existing.BoardID

	toSave, err := validateTemplate(template, userID)
	if err != nil {
		return domains.Template{}, err
	}

	updated, err := query.Mutate(ctx, s.query, func(ctx context.Context) (domains.Template, error) {
		return s.provider.UpdateTemplate(ctx, templateID, toSave)
	}, query.BoardTemplates(existing.BoardID))
	if err != nil {
		slog.ErrorContext(ctx, "update template failed", slog.String("template_id", templateID.String()), tint.Err(err))
		return domains.Template{}, err
	}
	return updated, nil
}

func (s *TemplateService) ListBoardTemplates(ctx context.Context, boardID uuid.UUID) ([]domains.Template, error) {
	return query.Read(ctx, s.query, query.BoardTemplates(boardID), func(ctx context.Context) ([]domains.Template, error) {
		return s.provider.ListTemplatesByBoard(ctx, boardID)
	})
}

// FetchTemplateSections returns the sections ordered by order_index. It always reads through to
// the store.
func (s *TemplateService) FetchTemplateSections(ctx context.Context, templateID uuid.UUID) ([]domains.TemplateSection, error) {
	return query.Fetch(ctx, s.query, func(ctx context.Context) ([]domains.TemplateSection, error) {
		return s.provider.GetTemplateSections(ctx, templateID)
	})
}

func (s *TemplateService) GetTemplate(ctx context.Context, templateID uuid.UUID) (domains.TemplateDetails, error) {
	template, err := query.Fetch(ctx, s.query, func(ctx context.Context) (domains.Template, error) {
		return s.provider.GetTemplateByID(ctx, templateID)
	})
	if err != nil {
		return domains.TemplateDetails{}, err
	}
	sections, err := s.FetchTemplateSections(ctx, templateID)
	if err != nil {
		return domains.TemplateDetails{}, err
	}
	return domains.TemplateDetails{Template: template, Sections: sections}, nil
}

func validateTemplate(template domains.TemplateCreate, createdBy uuid.UUID) (domains.TemplateToSave, error) {
	if template.BoardID == uuid.Nil {
		return domains.TemplateToSave{}, invalid("board_id", "Board is required")
	}
	name := strings.TrimSpace(template.Name)
	if name == "" {
		return domains.TemplateToSave{}, invalid("name", "Template name is required")
	}
	if len(template.Sections) == 0 {
		return domains.TemplateToSave{}, invalid("sections", "Add at least one section")
	}

	sections := make([]domains.TemplateSectionToSave, 0, len(template.Sections))
	used := make(map[int]bool, len(template.Sections))
	for i, section := range template.Sections {
		title := strings.TrimSpace(section.Title)
		if title == "" {
			return domains.TemplateToSave{}, invalid("sections", "Section %d needs a title", i+1)
		}
		if section.IsRequired && !section.IsEnabled {
			return domains.TemplateToSave{}, invalid("sections", "Required section %q cannot be disabled", title)
		}

		order := i
		if section.OrderIndex != nil {
			order = *section.OrderIndex
		}
		if order < 0 {
			return domains.TemplateToSave{}, invalid("sections", "Section %q has a negative position", title)
		}
		if used[order] {
			return domains.TemplateToSave{}, invalid("sections", "Position %d is used by more than one section", order)
		}
		used[order] = true

		sections = append(sections, domains.TemplateSectionToSave{
			Title:      title,
			OrderIndex: order,
			IsRequired: section.IsRequired,
			IsEnabled:  section.IsEnabled,
		})
	}

	return domains.TemplateToSave{
		BoardID:     template.BoardID,
		Name:        name,
		Description: trimOptional(template.Description),
		CompanyName: trimOptional(template.CompanyName),
		LogoURL:     trimOptional(template.LogoURL),
		CreatedBy:   createdBy,
		Sections:    sections,
	}, nil
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
