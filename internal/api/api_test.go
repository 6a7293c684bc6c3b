package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"plant-care/internal/model"
	"plant-care/internal/repository"
	"plant-care/internal/service"
)

const testToken = "test-token-12345"

func setupHandler(t *testing.T, token string) http.Handler {
	t.Helper()
	db, err := repository.NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB(:memory:) failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	queue := service.NewQueue(8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		queue.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	engine := service.NewEngine(service.EngineDeps{
		Queue:     queue,
		Plants:    repository.NewPlantRepository(db),
		Schedules: repository.NewScheduleRepository(db),
		Prefs: repository.NewPreferenceRepository(db, repository.PreferenceDefaults{
			ReminderTime: model.ClockTime{Hour: 9},
		}),
		Location: time.UTC,
	})
	return NewHandler(Deps{Engine: engine, Token: token, Location: time.UTC})
}

func authReq(method, url, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func do(t *testing.T, h http.Handler, method, url, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(method, url, body, testToken))
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func TestHealthSkipsAuth(t *testing.T) {
	h := setupHandler(t, testToken)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	expectStatus(t, rr, http.StatusOK)
}

func TestAuthRequired(t *testing.T) {
	h := setupHandler(t, testToken)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{name: "missing token", token: "", want: http.StatusUnauthorized},
		{name: "wrong token", token: "nope", want: http.StatusUnauthorized},
		{name: "valid token", token: testToken, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, authReq(http.MethodGet, "/plants", "", tt.token))
			expectStatus(t, rr, tt.want)
		})
	}
}

func TestNoTokenDisablesAuth(t *testing.T) {
	h := setupHandler(t, "")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/plants", nil))
	expectStatus(t, rr, http.StatusOK)
}

func TestScheduleLifecycle(t *testing.T) {
	h := setupHandler(t, testToken)

	rr := do(t, h, http.MethodPost, "/plants", `{"name":"Monstera","species":"Monstera deliciosa"}`)
	expectStatus(t, rr, http.StatusCreated)
	plant := decode[plantView](t, rr)

	rr = do(t, h, http.MethodPost, "/plants/"+plant.ID+"/recommendations",
		`{"recommendations":[{"care_type":"Water","frequency_days":3},{"care_type":"prune","frequency_days":30},{"care_type":"fertilize","frequency_days":0}]}`)
	expectStatus(t, rr, http.StatusOK)
	result := decode[reconcileView](t, rr)
	if len(result.Created) != 1 || result.Created[0].CareType != "water" {
		t.Fatalf("created = %+v", result.Created)
	}
	if len(result.Failures) != 1 || result.Failures[0].CareType != model.CareFertilize {
		t.Errorf("failures = %+v", result.Failures)
	}
	scheduleID := result.Created[0].ID

	expectStatus(t, do(t, h, http.MethodPost, "/schedules/"+scheduleID+"/complete", ""), http.StatusNoContent)

	rr = do(t, h, http.MethodGet, "/schedules/"+scheduleID+"/completions", "")
	expectStatus(t, rr, http.StatusOK)
	completions := decode[[]completionView](t, rr)
	if len(completions) != 1 || completions[0].Source != string(model.SourceInApp) {
		t.Errorf("completions = %+v", completions)
	}

	expectStatus(t, do(t, h, http.MethodPost, "/schedules/"+scheduleID+"/snooze", `{"option":1}`), http.StatusNoContent)
	expectStatus(t, do(t, h, http.MethodPut, "/schedules/"+scheduleID+"/frequency", `{"days":5}`), http.StatusNoContent)

	rr = do(t, h, http.MethodGet, "/plants/"+plant.ID+"/schedules", "")
	expectStatus(t, rr, http.StatusOK)
	schedules := decode[[]scheduleView](t, rr)
	if len(schedules) != 1 || schedules[0].FrequencyDays != 5 || !schedules[0].IsCustom {
		t.Errorf("schedules = %+v", schedules)
	}

	expectStatus(t, do(t, h, http.MethodPut, "/plants/"+plant.ID+"/reminders", `{"enabled":false}`), http.StatusNoContent)

	rr = do(t, h, http.MethodGet, "/due", "")
	expectStatus(t, rr, http.StatusOK)
	if due := decode[[]dueView](t, rr); len(due) != 0 {
		t.Errorf("due = %+v", due)
	}

	expectStatus(t, do(t, h, http.MethodDelete, "/plants/"+plant.ID, ""), http.StatusNoContent)
	expectStatus(t, do(t, h, http.MethodDelete, "/plants/"+plant.ID, ""), http.StatusNotFound)
}

func TestValidationErrors(t *testing.T) {
	h := setupHandler(t, testToken)

	rr := do(t, h, http.MethodPost, "/plants", `{"name":"Ficus"}`)
	expectStatus(t, rr, http.StatusCreated)
	plant := decode[plantView](t, rr)
	rr = do(t, h, http.MethodPost, "/plants/"+plant.ID+"/recommendations", `{"recommendations":[{"care_type":"water","frequency_days":7}]}`)
	expectStatus(t, rr, http.StatusOK)
	scheduleID := decode[reconcileView](t, rr).Created[0].ID

	tests := []struct {
		name   string
		method string
		url    string
		body   string
		want   int
	}{
		{name: "malformed body", method: http.MethodPost, url: "/plants", body: `{`, want: http.StatusBadRequest},
		{name: "nameless plant", method: http.MethodPost, url: "/plants", body: `{}`, want: http.StatusBadRequest},
		{name: "unknown plant", method: http.MethodPost, url: "/plants/missing/recommendations", body: `{"recommendations":[]}`, want: http.StatusNotFound},
		{name: "unknown plant schedules", method: http.MethodGet, url: "/plants/missing/schedules", want: http.StatusNotFound},
		{name: "zero frequency", method: http.MethodPut, url: "/schedules/" + scheduleID + "/frequency", body: `{"days":0}`, want: http.StatusBadRequest},
		{name: "snooze option out of range", method: http.MethodPost, url: "/schedules/" + scheduleID + "/snooze", body: `{"option":9}`, want: http.StatusBadRequest},
		{name: "snooze without option", method: http.MethodPost, url: "/schedules/" + scheduleID + "/snooze", body: `{}`, want: http.StatusBadRequest},
		{name: "unknown source", method: http.MethodPost, url: "/schedules/" + scheduleID + "/complete", body: `{"source":"telepathy"}`, want: http.StatusBadRequest},
		{name: "bad reminder time", method: http.MethodPut, url: "/preferences", body: `{"reminder_time":"25:61"}`, want: http.StatusBadRequest},
		{name: "toggle without flag", method: http.MethodPut, url: "/plants/" + plant.ID + "/reminders", body: `{}`, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, do(t, h, tt.method, tt.url, tt.body), tt.want)
		})
	}
}

func TestPreferences(t *testing.T) {
	h := setupHandler(t, testToken)

	rr := do(t, h, http.MethodGet, "/preferences", "")
	expectStatus(t, rr, http.StatusOK)
	if prefs := decode[preferencesView](t, rr); prefs.Paused || prefs.ReminderTime != "09:00" {
		t.Errorf("defaults = %+v", prefs)
	}

	rr = do(t, h, http.MethodPut, "/preferences", `{"paused":true,"reminder_time":"07:45"}`)
	expectStatus(t, rr, http.StatusOK)
	if prefs := decode[preferencesView](t, rr); !prefs.Paused || prefs.ReminderTime != "07:45" {
		t.Errorf("updated = %+v", prefs)
	}

	rr = do(t, h, http.MethodPost, "/trigger", "")
	expectStatus(t, rr, http.StatusOK)
	if result := decode[map[string]any](t, rr); result["paused"] != true {
		t.Errorf("trigger while paused = %v", result)
	}
}

type failingEngine struct {
	Engine
}

func (failingEngine) MarkComplete(context.Context, string, model.CompletionSource) error {
	return errors.New("disk I/O error")
}

func TestStorageFailureIsGeneric(t *testing.T) {
	h := NewHandler(Deps{Engine: failingEngine{}})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/schedules/s1/complete", nil))

	expectStatus(t, rr, http.StatusInternalServerError)
	if body := decode[map[string]string](t, rr); body["error"] != "could not update schedule" {
		t.Errorf("body = %v", body)
	}
}
