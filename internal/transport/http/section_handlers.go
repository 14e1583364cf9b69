package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"boardpacks/internal/domains"
	"boardpacks/internal/httpx"
	"boardpacks/internal/query"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/topi314/tint"
)

type SectionHandlers struct {
	service SubmissionServices
	query   *query.Client
}

type SubmissionServices interface {
	SubmitReport(ctx context.Context, submission domains.ReportSubmission) (domains.SubmissionResult, error)
	ListSectionVersions(ctx context.Context, sectionID uuid.UUID) ([]domains.SectionDocument, error)
	GetSectionVersion(ctx context.Context, sectionID uuid.UUID, version int) (domains.SectionDocument, error)
}

func NewSectionHandlers(service SubmissionServices, q *query.Client) *SectionHandlers {
	return &SectionHandlers{
		service: service,
		query:   q,
	}
}

func (h *SectionHandlers) SubmitReport(w http.ResponseWriter, r *http.Request) {
	sectionID, ok := httpx.PathUUID(w, r, "sectionID")
	if !ok {
		return
	}

	body, err := httpx.ReadBody[SubmissionRequest](w, r)
	if err != nil {
		slog.Debug("SubmitReport read body", tint.Err(err))
		writeBodyError(w, err)
		return
	}

	result, err := h.service.SubmitReport(r.Context(), domains.ReportSubmission{
		SectionID: sectionID,
		Content:   body.Content,
	})
	if err != nil {
		writeError(w, r, h.query, "submit report", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *SectionHandlers) ListSectionVersions(w http.ResponseWriter, r *http.Request) {
	sectionID, ok := httpx.PathUUID(w, r, "sectionID")
	if !ok {
		return
	}

	versions, err := h.service.ListSectionVersions(r.Context(), sectionID)
	if err != nil {
		writeError(w, r, h.query, "list section versions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, versions)
}

func (h *SectionHandlers) GetSectionVersion(w http.ResponseWriter, r *http.Request) {
	sectionID, ok := httpx.PathUUID(w, r, "sectionID")
	if !ok {
		return
	}
	version, err := strconv.Atoi(mux.Vars(r)["version"])
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid version")
		return
	}

	doc, err := h.service.GetSectionVersion(r.Context(), sectionID, version)
	if err != nil {
		writeError(w, r, h.query, "get section version", err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}
