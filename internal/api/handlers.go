// Package api provides HTTP handlers for cute-schedule endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sarahkitay/cute-schedule/internal/models"
	"github.com/sarahkitay/cute-schedule/internal/schedule"
	"github.com/sarahkitay/cute-schedule/internal/store"
)

// taskRef addresses one task bucket coordinate in request payloads.
type taskRef struct {
	Day      string          `json:"day"`
	Hour     string          `json:"hour"`
	Category models.Category `json:"category"`
	TaskID   string          `json:"task_id"`
}

func (ref taskRef) validKeys() bool {
	return schedule.IsValidDayKey(ref.Day) && schedule.IsValidHourKey(ref.Hour)
}

// decodeJSON decodes the request body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		slog.Warn("Server: failed to decode JSON", "path", r.URL.Path, "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return false
	}
	return true
}

// requireMethod enforces the HTTP method, answering 405 otherwise.
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		slog.Warn("Server: method not allowed", "path", r.URL.Path, "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// dayView is the full payload for one day of the schedule.
type dayView struct {
	Day       string           `json:"day"`
	Record    models.DayRecord `json:"record"`
	Progress  models.Progress  `json:"progress"`
	Copy      string           `json:"copy"`
	Starred   bool             `json:"starred"`
	AutoCoach *autoCoachView   `json:"auto_coach,omitempty"`
}

// autoCoachView carries an automatically triggered coach session alongside
// the day payload.
type autoCoachView struct {
	Reason   string               `json:"reason"`
	Response models.CoachResponse `json:"response"`
}

// dayHandler serves the day view. Requesting today also runs one coaching
// policy tick: on the first open of the day or after a stuck stretch the
// coach response rides along in the payload.
func (s *Server) dayHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	dayKey := r.URL.Query().Get("date")
	if dayKey == "" {
		dayKey = s.day.TodayKey()
	}
	if !schedule.IsValidDayKey(dayKey) {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid date, expected YYYY-MM-DD"))
		return
	}

	record := s.day.Day(dayKey)
	prog := schedule.DayProgress(record.Hours)
	view := dayView{
		Day:      dayKey,
		Record:   record,
		Progress: prog,
		Copy:     schedule.ProgressCopy(prog.Pct),
		Starred:  schedule.DayIsStarred(record.Hours),
	}

	viewingToday := dayKey == s.day.TodayKey()
	if reason, ok := s.coach.Policy.Evaluate(s.clock(), dayKey, viewingToday, prog); ok {
		ctx, cancel := contextWithRequestTimeout(r)
		defer cancel()
		resp := s.coach.Consult(ctx, s.buildCoachRequest(dayKey, prog, "", nil))
		view.AutoCoach = &autoCoachView{Reason: string(reason), Response: resp}
	}

	writeJSONResponse(w, http.StatusOK, models.Success(view))
}

func (s *Server) ensureHourHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req taskRef
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.validKeys() {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid day or hour key"))
		return
	}
	if err := s.day.EnsureHour(req.Day, req.Hour); err != nil {
		slog.Error("Server.ensureHourHandler: failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save schedule"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.day.Day(req.Day)))
}

func (s *Server) deleteHourHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req taskRef
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.validKeys() {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid day or hour key"))
		return
	}
	removed, err := s.day.DeleteHour(req.Day, req.Hour)
	if err != nil {
		slog.Error("Server.deleteHourHandler: failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save schedule"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"removed_tasks": len(removed),
	}))
}

// addTaskRequest creates a task in a bucket.
type addTaskRequest struct {
	taskRef
	Text         string        `json:"text"`
	Repeat       models.Repeat `json:"repeat"`
	SourceTaskID string        `json:"source_task_id"`
}

func (s *Server) addTaskHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req addTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.validKeys() {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid day or hour key"))
		return
	}
	if req.Repeat == "" {
		req.Repeat = models.RepeatNone
	}
	if !models.IsValidRepeat(req.Repeat) {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Unknown repeat mode"))
		return
	}

	task, err := s.day.AddTask(req.Day, req.Hour, req.Category, req.Text, req.Repeat, req.SourceTaskID)
	if err != nil {
		slog.Error("Server.addTaskHandler: failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save schedule"))
		return
	}
	if task == nil {
		// Empty text or unknown category: deliberate no-op.
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Task text must not be empty and category must be known"))
		return
	}
	slog.Info("Server.addTaskHandler: task added", "day", req.Day, "hour", req.Hour, "task", task.ID)
	writeJSONResponse(w, http.StatusOK, models.Success(task))
}

func (s *Server) toggleTaskHandler(w http.ResponseWriter, r *http.Request) {
	s.taskMutation(w, r, "toggle", s.day.ToggleTask)
}

func (s *Server) energyHandler(w http.ResponseWriter, r *http.Request) {
	s.taskMutation(w, r, "energy", s.day.ToggleEnergyLevel)
}

func (s *Server) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	s.taskMutation(w, r, "delete", s.day.DeleteTask)
}

// taskMutation is the shared shape of toggle/energy/delete: address a task,
// mutate it, answer with the task (404 when the coordinates miss).
func (s *Server) taskMutation(w http.ResponseWriter, r *http.Request, name string, op func(string, string, models.Category, string) (*models.Task, error)) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req taskRef
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.validKeys() {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid day or hour key"))
		return
	}
	task, err := op(req.Day, req.Hour, req.Category, req.TaskID)
	if err != nil {
		slog.Error("Server: task mutation failed", "op", name, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save schedule"))
		return
	}
	if task == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Task not found"))
		return
	}
	slog.Debug("Server: task mutation applied", "op", name, "task", req.TaskID)
	writeJSONResponse(w, http.StatusOK, models.Success(task))
}

// feelingRequest records a post-completion reaction.
type feelingRequest struct {
	taskRef
	Feeling models.Feeling `json:"feeling"`
}

func (s *Server) feelingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req feelingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.validKeys() {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid day or hour key"))
		return
	}
	task, err := s.day.SetTaskFeeling(req.Day, req.Hour, req.Category, req.TaskID, req.Feeling)
	if err != nil {
		slog.Error("Server.feelingHandler: failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save schedule"))
		return
	}
	if task == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Task not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(task))
}

func (s *Server) moveTomorrowHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req taskRef
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.validKeys() {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid day or hour key"))
		return
	}
	task, newDay, err := s.day.MoveTaskToTomorrow(req.Day, req.Hour, req.Category, req.TaskID)
	if err != nil {
		slog.Error("Server.moveTomorrowHandler: failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save schedule"))
		return
	}
	if task == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Task not found"))
		return
	}
	slog.Info("Server.moveTomorrowHandler: task moved", "task", task.ID, "to", newDay)
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"task": task,
		"day":  newDay,
	}))
}

// moodRequest sets the day-level mood.
type moodRequest struct {
	Day  string      `json:"day"`
	Mood models.Mood `json:"mood"`
}

func (s *Server) moodHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req moodRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !schedule.IsValidDayKey(req.Day) {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid day key"))
		return
	}
	if err := s.day.SetDailyMood(req.Day, req.Mood); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Mood recorded", nil))
}

// capacityRequest sets the day-level capacity.
type capacityRequest struct {
	Day      string          `json:"day"`
	Capacity models.Capacity `json:"capacity"`
}

func (s *Server) capacityHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req capacityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !schedule.IsValidDayKey(req.Day) {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid day key"))
		return
	}
	if err := s.day.SetDailyCapacity(req.Day, req.Capacity); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Capacity recorded", nil))
}

// textRequest carries a free-text payload (monthly objectives, routine
// items, notes, theme).
type textRequest struct {
	Text string `json:"text"`
}

// idRequest addresses an item by ID.
type idRequest struct {
	ID string `json:"id"`
}

func (s *Server) monthlyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodGet:
		writeJSONResponse(w, http.StatusOK, models.Success(s.day.Monthly()))
	case http.MethodPost:
		var req textRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		obj, err := s.day.AddMonthly(req.Text)
		if err != nil {
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save objectives"))
			return
		}
		if obj == nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Objective text must not be empty"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(obj))
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) monthlyToggleHandler(w http.ResponseWriter, r *http.Request) {
	s.idMutation(w, r, s.day.ToggleMonthly, "Failed to save objectives")
}

func (s *Server) monthlyDeleteHandler(w http.ResponseWriter, r *http.Request) {
	s.idMutation(w, r, s.day.DeleteMonthly, "Failed to save objectives")
}

func (s *Server) idMutation(w http.ResponseWriter, r *http.Request, op func(string) error, failMsg string) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req idRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := op(req.ID); err != nil {
		slog.Error("Server: id mutation failed", "path", r.URL.Path, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error(failMsg))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Saved", nil))
}

func (s *Server) bedtimeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodGet:
		writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
			"items":    s.day.BedtimeRoutine(),
			"complete": s.day.BedtimeComplete(),
		}))
	case http.MethodPost:
		var req textRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		item, err := s.day.AddRoutineItem(req.Text)
		if err != nil {
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save routine"))
			return
		}
		if item == nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Routine item text must not be empty"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(item))
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) bedtimeToggleHandler(w http.ResponseWriter, r *http.Request) {
	s.idMutation(w, r, s.day.ToggleRoutineItem, "Failed to save routine")
}

// bedtimeCompleteHandler marks tonight's routine done: the date enters the
// sleep-correlation set and the routine resets for tomorrow.
func (s *Server) bedtimeCompleteHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	dayKey := s.day.TodayKey()
	s.analytics.RecordBedtimeComplete(dayKey)
	if err := s.day.ResetBedtimeRoutine(); err != nil {
		slog.Error("Server.bedtimeCompleteHandler: reset failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save routine"))
		return
	}
	slog.Info("Server.bedtimeCompleteHandler: night recorded", "day", dayKey)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Good night", map[string]string{"day": dayKey}))
}

func (s *Server) notesHandler(w http.ResponseWriter, r *http.Request) {
	s.storedTextHandler(w, r, store.KeyNotes)
}

func (s *Server) themeHandler(w http.ResponseWriter, r *http.Request) {
	s.storedTextHandler(w, r, store.KeyTheme)
}

// storedTextHandler serves a single persisted text blob: notes and the
// theme name, stored verbatim.
func (s *Server) storedTextHandler(w http.ResponseWriter, r *http.Request, key string) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodGet:
		var text string
		if _, err := store.LoadJSON(s.kv, key, &text); err != nil {
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"text": text}))
	case http.MethodPut, http.MethodPost:
		var req textRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := store.SaveJSON(s.kv, key, req.Text); err != nil {
			slog.Error("Server: failed to save text blob", "key", key, "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Saved", nil))
	default:
		w.Header().Set("Allow", "GET, PUT")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) analyticsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.analytics.Summary()))
}

func (s *Server) repeatArchiveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.day.RepeatArchive()))
}
