package httptransport

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"boardpacks/internal/httpx"
	"boardpacks/internal/metrics"
	"boardpacks/internal/query"
	"boardpacks/internal/realtime"

	"github.com/gorilla/mux"
)

type Dependencies struct {
	Templates   TemplateServices
	Packs       PackServices
	Submissions SubmissionServices
	Query       *query.Client
	Hub         *realtime.Hub
	Metrics     *metrics.Metrics
	JWTSecret   string
}

func Router(deps Dependencies) *mux.Router {
	router := mux.NewRouter()
	router.Use(observe(deps.Metrics))

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	router.Handle("/metrics", deps.Metrics.Handler()).Methods(http.MethodGet)

	templateHandler := NewTemplateHandlers(deps.Templates, deps.Query)
	packHandler := NewPackHandlers(deps.Packs, deps.Query, deps.Hub)
	sectionHandler := NewSectionHandlers(deps.Submissions, deps.Query)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(httpx.Protected(deps.JWTSecret))

	boards := api.PathPrefix("/boards/{boardID}").Subrouter()
	boards.HandleFunc("/templates", templateHandler.ListBoardTemplates).Methods(http.MethodGet)
	boards.HandleFunc("/templates", templateHandler.CreateTemplate).Methods(http.MethodPost)
	boards.HandleFunc("/packs", packHandler.ListBoardPacks).Methods(http.MethodGet)
	boards.HandleFunc("/packs", packHandler.CreatePack).Methods(http.MethodPost)
	boards.HandleFunc("/packs/adhoc", packHandler.CreateAdHocPack).Methods(http.MethodPost)

	templates := api.PathPrefix("/templates/{templateID}").Subrouter()
	templates.HandleFunc("", templateHandler.GetTemplate).Methods(http.MethodGet)
	templates.HandleFunc("", templateHandler.UpdateTemplate).Methods(http.MethodPut)
	templates.HandleFunc("/sections", templateHandler.FetchTemplateSections).Methods(http.MethodGet)

	packs := api.PathPrefix("/packs/{packID}").Subrouter()
	packs.HandleFunc("", packHandler.GetPack).Methods(http.MethodGet)
	packs.HandleFunc("", packHandler.UpdatePack).Methods(http.MethodPatch)
	packs.HandleFunc("/sections", packHandler.FetchPackSections).Methods(http.MethodGet)
	packs.HandleFunc("/sections/stream", packHandler.StreamPackSections).Methods(http.MethodGet)

	sections := api.PathPrefix("/sections/{sectionID}").Subrouter()
	sections.HandleFunc("/submissions", sectionHandler.SubmitReport).Methods(http.MethodPost)
	sections.HandleFunc("/versions", sectionHandler.ListSectionVersions).Methods(http.MethodGet)
	sections.HandleFunc("/versions/{version}", sectionHandler.GetSectionVersion).Methods(http.MethodGet)

	return router
}

// StreamRouter serves only the section change streams. Deps.Templates and deps.Submissions are
// not used.
func StreamRouter(deps Dependencies) *mux.Router {
	router := mux.NewRouter()
	router.Use(observe(deps.Metrics))

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	router.Handle("/metrics", deps.Metrics.Handler()).Methods(http.MethodGet)

	packHandler := NewPackHandlers(deps.Packs, deps.Query, deps.Hub)
	api := router.PathPrefix("/api").Subrouter()
	api.Use(httpx.Protected(deps.JWTSecret))
	api.HandleFunc("/packs/{packID}/sections/stream", packHandler.StreamPackSections).Methods(http.MethodGet)

	return router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func observe(m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}
			elapsed := time.Since(start)
			m.ObserveRequest(r.Method, route, strconv.Itoa(rec.status), elapsed)
			slog.DebugContext(r.Context(), "request",
				slog.String("method", r.Method),
				slog.String("route", route),
				slog.Int("status", rec.status),
				slog.Duration("elapsed", elapsed),
			)
		})
	}
}
