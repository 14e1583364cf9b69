package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"boardpacks/internal/actor"
	"boardpacks/internal/domains"
	"boardpacks/internal/httpx"
	"boardpacks/internal/query"
	"boardpacks/internal/realtime"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/topi314/tint"
)

type PackHandlers struct {
	service PackServices
	query   *query.Client
	hub     *realtime.Hub
}

type PackServices interface {
	CreatePackFromTemplate(ctx context.Context, payload domains.PackCreate) (domains.PackCreateResult, error)
	CreateAdHocPack(ctx context.Context, payload domains.AdHocPackCreate) (domains.PackCreateResult, error)
	ListBoardPacks(ctx context.Context, boardID uuid.UUID) ([]domains.PackSummary, error)
	GetPack(ctx context.Context, packID uuid.UUID) (domains.Pack, error)
	UpdatePack(ctx context.Context, packID uuid.UUID, update domains.PackUpdate) (domains.Pack, error)
	FetchPackSections(ctx context.Context, packID uuid.UUID) ([]domains.PackSectionView, error)
}

func NewPackHandlers(service PackServices, q *query.Client, hub *realtime.Hub) *PackHandlers {
	return &PackHandlers{
		service: service,
		query:   q,
		hub:     hub,
	}
}

func (h *PackHandlers) CreatePack(w http.ResponseWriter, r *http.Request) {
	boardID, ok := httpx.PathUUID(w, r, "boardID")
	if !ok {
		return
	}

	body, err := httpx.ReadBody[PackRequest](w, r)
	if err != nil {
		slog.Debug("CreatePack read body", tint.Err(err))
		writeBodyError(w, err)
		return
	}

	created, err := h.service.CreatePackFromTemplate(r.Context(), domains.PackCreate{
		BoardID:     boardID,
		TemplateID:  body.TemplateID,
		MeetingDate: body.MeetingDate.Time,
		Title:       body.Title,
	})
	if err != nil {
		writeError(w, r, h.query, "create pack", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *PackHandlers) CreateAdHocPack(w http.ResponseWriter, r *http.Request) {
	boardID, ok := httpx.PathUUID(w, r, "boardID")
	if !ok {
		return
	}

	body, err := httpx.ReadBody[AdHocPackRequest](w, r)
	if err != nil {
		slog.Debug("CreateAdHocPack read body", tint.Err(err))
		writeBodyError(w, err)
		return
	}

	created, err := h.service.CreateAdHocPack(r.Context(), domains.AdHocPackCreate{
		BoardID:       boardID,
		MeetingDate:   body.MeetingDate.Time,
		Title:         body.Title,
		SectionTitles: body.SectionTitles,
	})
	if err != nil {
		writeError(w, r, h.query, "create ad hoc pack", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *PackHandlers) ListBoardPacks(w http.ResponseWriter, r *http.Request) {
	boardID, ok := httpx.PathUUID(w, r, "boardID")
	if !ok {
		return
	}

	packs, err := h.service.ListBoardPacks(r.Context(), boardID)
	if err != nil {
		writeError(w, r, h.query, "list board packs", err)
		return
	}
	httpx.JSON(w, http.StatusOK, packs)
}

func (h *PackHandlers) GetPack(w http.ResponseWriter, r *http.Request) {
	packID, ok := httpx.PathUUID(w, r, "packID")
	if !ok {
		return
	}

	pack, err := h.service.GetPack(r.Context(), packID)
	if err != nil {
		writeError(w, r, h.query, "get pack", err)
		return
	}
	httpx.JSON(w, http.StatusOK, pack)
}

func (h *PackHandlers) UpdatePack(w http.ResponseWriter, r *http.Request) {
	packID, ok := httpx.PathUUID(w, r, "packID")
	if !ok {
		return
	}

	body, err := httpx.ReadBody[PackUpdateRequest](w, r)
	if err != nil {
		slog.Debug("UpdatePack read body", tint.Err(err))
		writeBodyError(w, err)
		return
	}
	update := body.toDomain()
	if !update.HasChanges() {
		httpx.Error(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	updated, err := h.service.UpdatePack(r.Context(), packID, update)
	if err != nil {
		writeError(w, r, h.query, "update pack", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

// FetchPackSections serves the section tracker. The response carries an ETag so polling clients
// get 304 while nothing changed.
func (h *PackHandlers) FetchPackSections(w http.ResponseWriter, r *http.Request) {
	packID, ok := httpx.PathUUID(w, r, "packID")
	if !ok {
		return
	}

	views, err := h.service.FetchPackSections(r.Context(), packID)
	if err != nil {
		writeError(w, r, h.query, "fetch pack sections", err)
		return
	}

	payload, err := json.Marshal(toSectionResponses(views))
	if err != nil {
		writeError(w, r, h.query, "encode pack sections", err)
		return
	}
	etag := `"` + strconv.FormatUint(xxhash.Sum64(payload), 16) + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// StreamPackSections pushes section changes of one pack as server-sent events.
func (h *PackHandlers) StreamPackSections(w http.ResponseWriter, r *http.Request) {
	packID, ok := httpx.PathUUID(w, r, "packID")
	if !ok {
		return
	}
	userID, err := actor.Require(r.Context())
	if err != nil {
		writeError(w, r, h.query, "stream pack sections", err)
		return
	}
	if _, err := h.service.GetPack(r.Context(), packID); err != nil {
		writeError(w, r, h.query, "stream pack sections", err)
		return
	}

	// streams outlive the server write timeout
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		slog.Debug("stream write deadline not cleared", tint.Err(err))
	}

	client := h.hub.NewClient(userID)
	defer h.hub.CloseClient(client)
	h.hub.AddChannel(client, realtime.Channel(packID))

	h.hub.ServeHTTP(w, r, client)
}
