package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"plant-care/internal/logger"
	"plant-care/internal/model"
	"plant-care/internal/service"
)

const maxBodySize = 1 << 20

// Engine is the part of the care engine exposed over HTTP.
type Engine interface {
	CreatePlant(ctx context.Context, name, species string) (*model.Plant, error)
	ListPlants(ctx context.Context) ([]model.Plant, error)
	GetPlant(ctx context.Context, plantID string) (*model.Plant, error)
	DeletePlant(ctx context.Context, plantID string) error
	SchedulesForPlant(ctx context.Context, plantID string) ([]model.CareSchedule, error)

	CreateSchedulesFromRecommendations(ctx context.Context, plantID string, recs []service.Recommendation) (service.ReconcileResult, error)
	ToggleRemindersForPlant(ctx context.Context, plantID string, enabled bool) error
	MarkComplete(ctx context.Context, scheduleID string, source model.CompletionSource) error
	Snooze(ctx context.Context, scheduleID string, option service.SnoozeOption) error
	UpdateScheduleFrequency(ctx context.Context, scheduleID string, days int) error
	ResolveRecommendation(ctx context.Context, scheduleID string, accept bool) error
	ListCompletions(ctx context.Context, scheduleID string) ([]model.CareCompletion, error)

	DueNow(ctx context.Context) ([]service.DueItem, error)
	HandleDailyTrigger(ctx context.Context) (service.TriggerResult, error)
	PauseReminders(ctx context.Context) error
	ResumeReminders(ctx context.Context) error
	SetReminderTime(ctx context.Context, raw string) (time.Time, error)
	Preferences(ctx context.Context) (bool, model.ClockTime, error)
	NextAlarm() (time.Time, bool)
}

type Deps struct {
	Engine Engine
	// Token enables bearer auth when set.
	Token    string
	Location *time.Location
}

// NewHandler builds the REST surface used by the app UI.
func NewHandler(deps Deps) http.Handler {
	if deps.Location == nil {
		deps.Location = time.Local
	}
	h := &handlers{engine: deps.Engine, loc: deps.Location}

	r := chi.NewRouter()
	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}

		r.Route("/plants", func(r chi.Router) {
			r.Post("/", h.createPlant)
			r.Get("/", h.listPlants)
			r.Delete("/{id}", h.deletePlant)
			r.Get("/{id}/schedules", h.plantSchedules)
			r.Post("/{id}/recommendations", h.reconcile)
			r.Put("/{id}/reminders", h.toggleReminders)
		})

		r.Route("/schedules/{id}", func(r chi.Router) {
			r.Post("/complete", h.complete)
			r.Post("/snooze", h.snooze)
			r.Put("/frequency", h.updateFrequency)
			r.Post("/recommendation", h.resolveRecommendation)
			r.Get("/completions", h.completions)
		})

		r.Get("/due", h.due)
		r.Get("/preferences", h.getPreferences)
		r.Put("/preferences", h.putPreferences)
		r.Post("/trigger", h.trigger)
	})

	return r
}

func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) || subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(token)) != 1 {
				httpError(w, http.StatusUnauthorized, "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("write response", "error", err)
	}
}

func httpError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeEngineError maps engine errors to a status. Validation and unknown-plant
// errors are shown as is; anything else becomes a generic message.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrPlantNotFound):
		httpError(w, http.StatusNotFound, "plant not found")
	case errors.Is(err, service.ErrInvalidFrequency),
		errors.Is(err, service.ErrInvalidSnoozeOption),
		errors.Is(err, service.ErrInvalidSource),
		errors.Is(err, service.ErrInvalidReminderTime):
		httpError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		httpError(w, http.StatusInternalServerError, "could not update schedule")
	}
}
