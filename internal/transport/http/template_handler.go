package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"boardpacks/internal/domains"
	"boardpacks/internal/httpx"
	"boardpacks/internal/query"

	"github.com/google/uuid"
	"github.com/topi314/tint"
)

type TemplateHandlers struct {
	service TemplateServices
	query   *query.Client
}

type TemplateServices interface {
	CreateTemplate(ctx context.Context, template domains.TemplateCreate) (domains.Template, error)
	UpdateTemplate(ctx context.Context, templateID uuid.UUID, template domains.TemplateCreate) (domains.Template, error)
	ListBoardTemplates(ctx context.Context, boardID uuid.UUID) ([]domains.Template, error)
	FetchTemplateSections(ctx context.Context, templateID uuid.UUID) ([]domains.TemplateSection, error)
	GetTemplate(ctx context.Context, templateID uuid.UUID) (domains.TemplateDetails, error)
}

func NewTemplateHandlers(service TemplateServices, q *query.Client) *TemplateHandlers {
	return &TemplateHandlers{
		service: service,
		query:   q,
	}
}

func (h *TemplateHandlers) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	boardID, ok := httpx.PathUUID(w, r, "boardID")
	if !ok {
		return
	}

	body, err := httpx.ReadBody[TemplateRequest](w, r)
	if err != nil {
		slog.Debug("CreateTemplate read body", tint.Err(err))
		writeBodyError(w, err)
		return
	}

	created, err := h.service.CreateTemplate(r.Context(), body.toDomain(boardID))
	if err != nil {
		writeError(w, r, h.query, "create template", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *TemplateHandlers) ListBoardTemplates(w http.ResponseWriter, r *http.Request) {
	boardID, ok := httpx.PathUUID(w, r, "boardID")
	if !ok {
		return
	}

	templates, err := h.service.ListBoardTemplates(r.Context(), boardID)
	if err != nil {
		writeError(w, r, h.query, "list board templates", err)
		return
	}
	httpx.JSON(w, http.StatusOK, templates)
}

func (h *TemplateHandlers) GetTemplate(w http.ResponseWriter, r *http.Request) {
	templateID, ok := httpx.PathUUID(w, r, "templateID")
	if !ok {
		return
	}

	details, err := h.service.GetTemplate(r.Context(), templateID)
	if err != nil {
		writeError(w, r, h.query, "get template", err)
		return
	}
	httpx.JSON(w, http.StatusOK, details)
}

func (h *TemplateHandlers) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	templateID, ok := httpx.PathUUID(w, r, "templateID")
	if !ok {
		return
	}

	body, err := httpx.ReadBody[TemplateRequest](w, r)
	if err != nil {
		slog.Debug("UpdateTemplate read body", tint.Err(err))
		writeBodyError(w, err)
		return
	}

	// the board is taken from the stored template
	updated, err := h.service.UpdateTemplate(r.Context(), templateID, body.toDomain(uuid.Nil))
	if err != nil {
		writeError(w, r, h.query, "update template", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *TemplateHandlers) FetchTemplateSections(w http.ResponseWriter, r *http.Request) {
	templateID, ok := httpx.PathUUID(w, r, "templateID")
	if !ok {
		return
	}

	sections, err := h.service.FetchTemplateSections(r.Context(), templateID)
	if err != nil {
		writeError(w, r, h.query, "fetch template sections", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sections)
}
