// Package api provides the HTTP surface for cute-schedule.
//
// It exposes JSON endpoints for the day schedule, task operations, pattern
// analytics, the coach, finance notes, push registration, and the focus
// sprint. The API wires together the schedule, patterns, coach, reminder,
// and store modules.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sarahkitay/cute-schedule/internal/coach"
	"github.com/sarahkitay/cute-schedule/internal/finance"
	"github.com/sarahkitay/cute-schedule/internal/models"
	"github.com/sarahkitay/cute-schedule/internal/notify"
	"github.com/sarahkitay/cute-schedule/internal/patterns"
	"github.com/sarahkitay/cute-schedule/internal/reminder"
	"github.com/sarahkitay/cute-schedule/internal/schedule"
	"github.com/sarahkitay/cute-schedule/internal/store"
)

// DefaultRequestTimeout bounds handler work that reaches the coach backend.
const DefaultRequestTimeout = 60 * time.Second

// Server holds the wired application services behind the HTTP handlers.
type Server struct {
	kv        store.KV
	day       *schedule.Store
	analytics *patterns.Engine
	coach     *coach.Coach
	ledger    *finance.Ledger
	push      *notify.PushService
	reminders *reminder.Scheduler
	sprint    *reminder.Sprint
	clock     func() time.Time

	httpServer *http.Server
}

// NewServer wires the services together and installs the task side
// channels: completed tasks feed the pattern log, toggles refresh the coach
// stuck-detector, added tasks get reminders scheduled, and removed tasks get
// them cancelled.
func NewServer(kv store.KV, day *schedule.Store, analytics *patterns.Engine, coachSvc *coach.Coach, ledger *finance.Ledger, push *notify.PushService, reminders *reminder.Scheduler, sprint *reminder.Sprint) *Server {
	s := &Server{
		kv:        kv,
		day:       day,
		analytics: analytics,
		coach:     coachSvc,
		ledger:    ledger,
		push:      push,
		reminders: reminders,
		sprint:    sprint,
		clock:     time.Now,
	}

	day.SetHooks(schedule.Hooks{
		OnCompletion: analytics.RecordCompletion,
		OnProgress:   coachSvc.Policy.RecordProgress,
		OnTaskAdded: func(dayKey, hourKey string, category models.Category, task models.Task) {
			analytics.RecordScheduled(category)
			if _, err := reminders.ScheduleTaskReminder(dayKey, hourKey, category, task); err != nil {
				slog.Warn("Server: failed to schedule reminder for new task", "task", task.ID, "error", err)
			}
		},
		OnTaskRemoved: func(task models.Task) {
			reminders.CancelTask(task.ID)
		},
	})
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler)

	mux.HandleFunc("/day", s.dayHandler)
	mux.HandleFunc("/day/ensure-hour", s.ensureHourHandler)
	mux.HandleFunc("/day/delete-hour", s.deleteHourHandler)
	mux.HandleFunc("/day/mood", s.moodHandler)
	mux.HandleFunc("/day/capacity", s.capacityHandler)

	mux.HandleFunc("/tasks", s.addTaskHandler)
	mux.HandleFunc("/tasks/toggle", s.toggleTaskHandler)
	mux.HandleFunc("/tasks/energy", s.energyHandler)
	mux.HandleFunc("/tasks/feeling", s.feelingHandler)
	mux.HandleFunc("/tasks/delete", s.deleteTaskHandler)
	mux.HandleFunc("/tasks/move-tomorrow", s.moveTomorrowHandler)

	mux.HandleFunc("/monthly", s.monthlyHandler)
	mux.HandleFunc("/monthly/toggle", s.monthlyToggleHandler)
	mux.HandleFunc("/monthly/delete", s.monthlyDeleteHandler)

	mux.HandleFunc("/bedtime", s.bedtimeHandler)
	mux.HandleFunc("/bedtime/toggle", s.bedtimeToggleHandler)
	mux.HandleFunc("/bedtime/complete", s.bedtimeCompleteHandler)

	mux.HandleFunc("/notes", s.notesHandler)
	mux.HandleFunc("/theme", s.themeHandler)
	mux.HandleFunc("/analytics", s.analyticsHandler)
	mux.HandleFunc("/repeat-archive", s.repeatArchiveHandler)

	mux.HandleFunc("/coach/status", s.coachStatusHandler)
	mux.HandleFunc("/coach/checkin", s.coachCheckinHandler)

	mux.HandleFunc("/finance", s.financeHandler)
	mux.HandleFunc("/finance/delete", s.financeDeleteHandler)

	mux.HandleFunc("/push/key", s.pushKeyHandler)
	mux.HandleFunc("/push/subscribe", s.pushSubscribeHandler)
	mux.HandleFunc("/push/unsubscribe", s.pushUnsubscribeHandler)

	mux.HandleFunc("/sprint/start", s.sprintStartHandler)
	mux.HandleFunc("/sprint/cancel", s.sprintCancelHandler)
	mux.HandleFunc("/sprint/status", s.sprintStatusHandler)

	return mux
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: DefaultRequestTimeout + 15*time.Second,
	}
	slog.Info("cute-schedule API running", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully and cancels pending reminders.
func (s *Server) Shutdown(ctx context.Context) error {
	s.reminders.Stop()
	s.sprint.Cancel()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "healthy"}))
}
