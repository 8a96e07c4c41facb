package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sarahkitay/cute-schedule/internal/coach"
	"github.com/sarahkitay/cute-schedule/internal/models"
	"github.com/sarahkitay/cute-schedule/internal/schedule"
	"github.com/sarahkitay/cute-schedule/internal/store"
)

func contextWithRequestTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), DefaultRequestTimeout)
}

// buildCoachRequest assembles the full gateway payload for a day: schedule
// structure, progress, monthly objectives, notes, time of day, inferred
// emotional state, and the pattern summary.
func (s *Server) buildCoachRequest(dayKey string, prog models.Progress, question string, history []models.CoachTurn) models.CoachRequest {
	record := s.day.Day(dayKey)

	var notes string
	if _, err := store.LoadJSON(s.kv, store.KeyNotes, &notes); err != nil {
		notes = ""
	}

	now := s.clock().In(s.day.Location())
	return models.CoachRequest{
		DayKey:         dayKey,
		Progress:       prog,
		Hours:          record.Hours,
		Monthly:        s.day.Monthly(),
		Notes:          notes,
		TimeOfDay:      models.TimeOfDayForHour(now.Hour()),
		EmotionalState: coach.InferEmotionalState(record.DailyMood, record.DailyCapacity, prog),
		Patterns:       s.analytics.Summary(),
		UserQuestion:   question,
		History:        history,
	}
}

// coachStatusView reports whether the coach can fire right now.
type coachStatusView struct {
	Configured       bool `json:"configured"`
	Locked           bool `json:"locked"`
	RemainingMinutes int  `json:"remaining_minutes"`
}

func (s *Server) coachStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	now := s.clock()
	writeJSONResponse(w, http.StatusOK, models.Success(coachStatusView{
		Configured:       s.coach.Gateway.Configured(),
		Locked:           s.coach.Policy.Locked(now),
		RemainingMinutes: s.coach.Policy.RemainingMinutes(now),
	}))
}

// checkinRequest is a manual coach session. A plain check-in (no question)
// honors the cooldown; a free-text question always goes through.
type checkinRequest struct {
	Day      string             `json:"day"`
	Question string             `json:"question"`
	History  []models.CoachTurn `json:"history"`
}

func (s *Server) coachCheckinHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req checkinRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Day == "" {
		req.Day = s.day.TodayKey()
	}
	if !schedule.IsValidDayKey(req.Day) {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid day key"))
		return
	}

	now := s.clock()
	if req.Question == "" && s.coach.Policy.Locked(now) {
		remaining := s.coach.Policy.RemainingMinutes(now)
		writeJSONResponse(w, http.StatusTooManyRequests,
			models.Error(fmt.Sprintf("The coach needs a moment. Try again in %d minutes.", remaining)))
		return
	}

	record := s.day.Day(req.Day)
	prog := schedule.DayProgress(record.Hours)

	ctx, cancel := contextWithRequestTimeout(r)
	defer cancel()
	resp := s.coach.Consult(ctx, s.buildCoachRequest(req.Day, prog, req.Question, req.History))
	writeJSONResponse(w, http.StatusOK, models.Success(resp))
}
