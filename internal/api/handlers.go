package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"plant-care/internal/model"
	"plant-care/internal/service"
)

type handlers struct {
	engine Engine
	loc    *time.Location
}

type plantView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Species   string    `json:"species,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type scheduleView struct {
	ID                    string    `json:"id"`
	PlantID               string    `json:"plant_id"`
	CareType              string    `json:"care_type"`
	FrequencyDays         int       `json:"frequency_days"`
	NextDue               time.Time `json:"next_due"`
	IsCustom              bool      `json:"is_custom"`
	IsEnabled             bool      `json:"is_enabled"`
	SnoozeCount           int       `json:"snooze_count"`
	Notes                 string    `json:"notes,omitempty"`
	PendingRecommendation *int      `json:"pending_recommended_frequency_days,omitempty"`
}

type completionView struct {
	ID          string    `json:"id"`
	ScheduleID  string    `json:"schedule_id"`
	CompletedAt time.Time `json:"completed_at"`
	Source      string    `json:"source"`
}

type dueView struct {
	Plant    plantView    `json:"plant"`
	Schedule scheduleView `json:"schedule"`
	Overdue  bool         `json:"overdue"`
}

type reconcileView struct {
	Created           []scheduleView                  `json:"created"`
	Updated           []scheduleView                  `json:"updated"`
	NeedsConfirmation []scheduleView                  `json:"needs_confirmation"`
	Failures          []service.RecommendationFailure `json:"failures,omitempty"`
}

type preferencesView struct {
	Paused       bool       `json:"paused"`
	ReminderTime string     `json:"reminder_time"`
	NextAlarm    *time.Time `json:"next_alarm,omitempty"`
}

func (h *handlers) plantView(p model.Plant) plantView {
	return plantView{ID: p.ID, Name: p.DisplayName(), Species: p.Species, CreatedAt: p.CreatedAt.In(h.loc)}
}

func (h *handlers) scheduleView(s model.CareSchedule) scheduleView {
	return scheduleView{
		ID:                    s.ID,
		PlantID:               s.PlantID,
		CareType:              string(s.CareType),
		FrequencyDays:         s.FrequencyDays,
		NextDue:               s.NextDue.In(h.loc),
		IsCustom:              s.IsCustom,
		IsEnabled:             s.IsEnabled,
		SnoozeCount:           s.SnoozeCount,
		Notes:                 s.Notes,
		PendingRecommendation: s.PendingRecommendedFrequencyDays,
	}
}

func (h *handlers) scheduleViews(schedules []model.CareSchedule) []scheduleView {
	views := make([]scheduleView, 0, len(schedules))
	for _, s := range schedules {
		views = append(views, h.scheduleView(s))
	}
	return views
}

func (h *handlers) createPlant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Species string `json:"species"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Species = strings.TrimSpace(req.Species)
	if req.Name == "" && req.Species == "" {
		httpError(w, http.StatusBadRequest, "name or species is required")
		return
	}

	plant, err := h.engine.CreatePlant(r.Context(), req.Name, req.Species)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.plantView(*plant))
}

func (h *handlers) listPlants(w http.ResponseWriter, r *http.Request) {
	plants, err := h.engine.ListPlants(r.Context())
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	views := make([]plantView, 0, len(plants))
	for _, p := range plants {
		views = append(views, h.plantView(p))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handlers) deletePlant(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeletePlant(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) plantSchedules(w http.ResponseWriter, r *http.Request) {
	plantID := chi.URLParam(r, "id")
	if _, err := h.engine.GetPlant(r.Context(), plantID); err != nil {
		writeEngineError(w, r, err)
		return
	}
	schedules, err := h.engine.SchedulesForPlant(r.Context(), plantID)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.scheduleViews(schedules))
}

func (h *handlers) reconcile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Recommendations []service.Recommendation `json:"recommendations"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.engine.CreateSchedulesFromRecommendations(r.Context(), chi.URLParam(r, "id"), req.Recommendations)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reconcileView{
		Created:           h.scheduleViews(result.Created),
		Updated:           h.scheduleViews(result.Updated),
		NeedsConfirmation: h.scheduleViews(result.NeedsConfirmation),
		Failures:          result.Failures,
	})
}

func (h *handlers) toggleReminders(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		httpError(w, http.StatusBadRequest, "enabled is required")
		return
	}
	plantID := chi.URLParam(r, "id")
	if _, err := h.engine.GetPlant(r.Context(), plantID); err != nil {
		writeEngineError(w, r, err)
		return
	}
	if err := h.engine.ToggleRemindersForPlant(r.Context(), plantID, *req.Enabled); err != nil {
		writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) complete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source string `json:"source"`
	}
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	source := model.SourceInApp
	if req.Source != "" {
		source = model.CompletionSource(req.Source)
	}
	if err := h.engine.MarkComplete(r.Context(), chi.URLParam(r, "id"), source); err != nil {
		writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) snooze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Option *int `json:"option"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Option == nil {
		httpError(w, http.StatusBadRequest, "option is required")
		return
	}
	if err := h.engine.Snooze(r.Context(), chi.URLParam(r, "id"), service.SnoozeOption(*req.Option)); err != nil {
		writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) updateFrequency(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Days int `json:"days"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.engine.UpdateScheduleFrequency(r.Context(), chi.URLParam(r, "id"), req.Days); err != nil {
		writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) resolveRecommendation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Accept *bool `json:"accept"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Accept == nil {
		httpError(w, http.StatusBadRequest, "accept is required")
		return
	}
	if err := h.engine.ResolveRecommendation(r.Context(), chi.URLParam(r, "id"), *req.Accept); err != nil {
		writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) completions(w http.ResponseWriter, r *http.Request) {
	completions, err := h.engine.ListCompletions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	views := make([]completionView, 0, len(completions))
	for _, c := range completions {
		views = append(views, completionView{
			ID:          c.ID,
			ScheduleID:  c.ScheduleID,
			CompletedAt: c.CompletedAt.In(h.loc),
			Source:      string(c.Source),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handlers) due(w http.ResponseWriter, r *http.Request) {
	items, err := h.engine.DueNow(r.Context())
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	now := time.Now()
	views := make([]dueView, 0, len(items))
	for _, item := range items {
		views = append(views, dueView{
			Plant:    h.plantView(item.Plant),
			Schedule: h.scheduleView(item.Schedule),
			Overdue:  item.Schedule.NextDue.Before(now),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handlers) getPreferences(w http.ResponseWriter, r *http.Request) {
	h.writePreferences(w, r)
}

func (h *handlers) putPreferences(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Paused       *bool   `json:"paused"`
		ReminderTime *string `json:"reminder_time"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if req.ReminderTime != nil {
		if _, err := h.engine.SetReminderTime(r.Context(), *req.ReminderTime); err != nil {
			writeEngineError(w, r, err)
			return
		}
	}
	if req.Paused != nil {
		var err error
		if *req.Paused {
			err = h.engine.PauseReminders(r.Context())
		} else {
			err = h.engine.ResumeReminders(r.Context())
		}
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
	}
	h.writePreferences(w, r)
}

func (h *handlers) writePreferences(w http.ResponseWriter, r *http.Request) {
	paused, at, err := h.engine.Preferences(r.Context())
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	view := preferencesView{Paused: paused, ReminderTime: at.String()}
	if next, ok := h.engine.NextAlarm(); ok {
		next = next.In(h.loc)
		view.NextAlarm = &next
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handlers) trigger(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.HandleDailyTrigger(r.Context())
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"paused": result.Paused,
		"due":    result.Due,
		"posted": result.Posted,
	})
}
