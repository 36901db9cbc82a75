// Package httpapi exposes the planner over a JSON HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"mindplanner/internal/events"
	"mindplanner/internal/model"
	"mindplanner/internal/planner"
	"mindplanner/internal/recurrence"
	"mindplanner/internal/repository"
	"mindplanner/internal/service"
)

// UserHeader carries the caller's external subject. Authentication happens in
// front of this service.
const UserHeader = "X-User-ID"

type ctxKey int

const userKey ctxKey = iota

// Deps are the collaborators the API serves.
type Deps struct {
	Users       *repository.UserRepository
	Activities  *service.ActivityService
	Presets     *service.PresetService
	Categories  *service.CategoryService
	Dispatcher  *events.Dispatcher
	Location    *time.Location
	CORSOrigins []string
}

// API provides application-wide context to the handlers.
type API struct {
	users       *repository.UserRepository
	activities  *service.ActivityService
	presets     *service.PresetService
	categories  *service.CategoryService
	dispatcher  *events.Dispatcher
	loc         *time.Location
	corsOrigins []string
	upgrader    websocket.Upgrader
}

func NewAPI(d Deps) *API {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &API{
		users:       d.Users,
		activities:  d.Activities,
		presets:     d.Presets,
		categories:  d.Categories,
		dispatcher:  d.Dispatcher,
		loc:         loc,
		corsOrigins: origins,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return originAllowed(origins, r.Header.Get("Origin")) },
		},
	}
}

// Router builds the chi router with middleware and every route.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   a.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", UserHeader},
		AllowCredentials: true,
	})
	r.Use(corsMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/templates", a.ListTemplates)
		r.Post("/recurrence/preview", a.PreviewRecurrence)

		r.Group(func(r chi.Router) {
			r.Use(a.requireUser)

			// The websocket connection outlives any request timeout.
			r.Get("/ws", a.handleWebSocket)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(60 * time.Second))

				r.Get("/categories", a.ListCategories)

				r.Get("/activities", a.ListActivities)
				r.Post("/activities", a.PlanActivities)
				r.Get("/activities.ics", a.ExportActivities)
				r.Get("/activities/{id}", a.GetActivity)
				r.Patch("/activities/{id}", a.UpdateActivity)
				r.Delete("/activities/{id}", a.DeleteActivity)
				r.Post("/activities/{id}/status", a.SetActivityStatus)

				r.Get("/presets", a.ListPresets)
				r.Post("/presets", a.CreatePreset)
				r.Get("/presets/{id}", a.GetPreset)
				r.Delete("/presets/{id}", a.DeletePreset)
				r.Post("/presets/{id}/activate", a.ActivatePreset)
				r.Post("/presets/{id}/deactivate", a.DeactivatePreset)
			})
		})
	})

	return r
}

// requireUser resolves the caller from UserHeader, creating the user on first
// contact.
func (a *API) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := strings.TrimSpace(r.Header.Get(UserHeader))
		if subject == "" {
			subject = strings.TrimSpace(r.URL.Query().Get("user"))
		}
		if subject == "" {
			a.respondWithError(w, http.StatusUnauthorized, "missing "+UserHeader+" header")
			return
		}
		user, created, err := a.users.EnsureBySubject(r.Context(), subject)
		if err != nil {
			a.respondWithError(w, http.StatusInternalServerError, "resolve user: "+err.Error())
			return
		}
		if created {
			if err := a.presets.SeedDefaults(r.Context(), user); err != nil {
				log.Printf("seed presets for user %d: %v", user.ID, err)
			}
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

func userFrom(r *http.Request) *model.User {
	user, _ := r.Context().Value(userKey).(*model.User)
	return user
}

func originAllowed(origins []string, origin string) bool {
	if origin == "" {
		return true
	}
	for _, o := range origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// --- Helper Functions ---

func (a *API) respondWithError(w http.ResponseWriter, code int, message string) {
	a.respondWithJSON(w, code, map[string]string{"error": message})
}

func (a *API) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// partialResponse is returned when a batch stopped part way.
type partialResponse struct {
	Error   string `json:"error"`
	Created int    `json:"created"`
	Total   int    `json:"total"`
	GroupID string `json:"groupId,omitempty"`
}

// respondWithServiceError maps service errors onto status codes.
func (a *API) respondWithServiceError(w http.ResponseWriter, err error) {
	var partial *service.PartialMaterializationError
	switch {
	case errors.As(err, &partial):
		a.respondWithJSON(w, http.StatusInternalServerError, partialResponse{
			Error:   err.Error(),
			Created: partial.Created,
			Total:   partial.Total,
			GroupID: partial.GroupID,
		})
	case errors.Is(err, service.ErrNotFound):
		a.respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, recurrence.ErrInvalidRule),
		errors.Is(err, recurrence.ErrEndBeforeStart),
		errors.Is(err, planner.ErrTitleRequired),
		errors.Is(err, planner.ErrUnknownDayPart),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrEmptyPatch),
		errors.Is(err, service.ErrNegativeDuration),
		errors.Is(err, service.ErrPresetEmpty),
		errors.Is(err, service.ErrPresetNameRequired):
		a.respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("request failed: %v", err)
		a.respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
