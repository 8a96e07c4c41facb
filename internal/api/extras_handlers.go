package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sarahkitay/cute-schedule/internal/finance"
	"github.com/sarahkitay/cute-schedule/internal/models"
)

// financeEntryRequest adds one finance note.
type financeEntryRequest struct {
	Date   string       `json:"date"`
	Label  string       `json:"label"`
	Amount float64      `json:"amount"`
	Kind   finance.Kind `json:"kind"`
}

func (s *Server) financeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodGet:
		writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
			"entries": s.ledger.List(),
			"balance": s.ledger.Balance(),
		}))
	case http.MethodPost:
		var req financeEntryRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		entry, err := s.ledger.Add(req.Date, req.Label, req.Amount, req.Kind)
		if err != nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(entry))
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) financeDeleteHandler(w http.ResponseWriter, r *http.Request) {
	s.idMutation(w, r, s.ledger.Delete, "Failed to save ledger")
}

func (s *Server) pushKeyHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if !s.push.Configured() {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Push delivery not configured"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"public_key": s.push.PublicKey()}))
}

// pushSubscribeRequest registers a browser push endpoint.
type pushSubscribeRequest struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

func (s *Server) pushSubscribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req pushSubscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sub, err := s.push.Subscribe(req.Endpoint, req.P256dh, req.Auth)
	if err != nil {
		slog.Warn("Server.pushSubscribeHandler: failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sub))
}

func (s *Server) pushUnsubscribeHandler(w http.ResponseWriter, r *http.Request) {
	s.idMutation(w, r, s.push.Unsubscribe, "Failed to save subscriptions")
}

// sprintStatusView reports the focus countdown.
type sprintStatusView struct {
	Running          bool `json:"running"`
	RemainingSeconds int  `json:"remaining_seconds"`
}

func (s *Server) sprintStartHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	endsAt := s.sprint.Start()
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"ends_at": endsAt,
	}))
}

func (s *Server) sprintCancelHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	s.sprint.Cancel()
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Sprint cancelled", nil))
}

func (s *Server) sprintStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	left, running := s.sprint.Remaining()
	writeJSONResponse(w, http.StatusOK, models.Success(sprintStatusView{
		Running:          running,
		RemainingSeconds: int(left / time.Second),
	}))
}
