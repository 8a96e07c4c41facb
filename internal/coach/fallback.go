package coach

import (
	"context"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/sarahkitay/cute-schedule/internal/models"
	"github.com/sarahkitay/cute-schedule/internal/schedule"
)

// InferEmotionalState maps the day's mood, capacity, and progress onto the
// fixed state whitelist. Used both in the coach request and to pick fallback
// copy.
func InferEmotionalState(mood models.Mood, capacity models.Capacity, prog models.Progress) models.EmotionalState {
	switch {
	case prog.Total > 0 && prog.Done == prog.Total:
		return models.StateCelebrating
	case mood == models.MoodDrained || capacity == models.CapacityLow:
		return models.StateDrained
	case prog.Total-prog.Done >= 6 && prog.Pct < 40:
		return models.StateStretched
	case prog.Done == 0:
		return models.StateFresh
	default:
		return models.StateSteady
	}
}

// fallbackMessages are the deterministic local messages used when the
// gateway fails or is not configured. Keyed by emotional state.
var fallbackMessages = map[models.EmotionalState][]string{
	models.StateFresh: {
		"The day is wide open. Pick the smallest task and just begin.",
		"Nothing done yet is not behind. Choose one thing for this hour.",
	},
	models.StateSteady: {
		"You are moving. Keep the same easy pace.",
		"Nice rhythm so far. One task at a time is exactly right.",
	},
	models.StateStretched: {
		"The list is long. Move what can wait to tomorrow and breathe.",
		"A lot is open. Shrink the day to three things that matter.",
	},
	models.StateDrained: {
		"Low-energy days count too. Do one light task, then rest.",
		"Be gentle with yourself today. Small is enough.",
	},
	models.StateCelebrating: {
		"Everything done. Take the win and enjoy the evening.",
		"Gold star day. Nothing left but to be proud of it.",
	},
}

// FallbackMessage picks a deterministic message for the state, varied by
// day key so consecutive days do not repeat verbatim.
func FallbackMessage(state models.EmotionalState, dayKey string) string {
	msgs, ok := fallbackMessages[state]
	if !ok || len(msgs) == 0 {
		msgs = fallbackMessages[models.StateSteady]
	}
	h := fnv.New32a()
	h.Write([]byte(dayKey))
	return msgs[int(h.Sum32())%len(msgs)]
}

// FallbackResponse builds the complete local substitute for a failed or
// unconfigured gateway call.
func FallbackResponse(state models.EmotionalState, dayKey string, pct int) models.CoachResponse {
	resp := models.CoachResponse{
		Message:        FallbackMessage(state, dayKey),
		PercentSummary: schedule.ProgressCopy(pct),
		Fallback:       true,
	}
	resp.Normalize()
	return resp
}

// Coach couples the trigger policy with the gateway and the fallback so
// callers get a response no matter what the backend does.
type Coach struct {
	Policy  *Policy
	Gateway *Gateway
	clock   func() time.Time
}

// NewCoach builds a Coach. clock may be nil for wall-clock time.
func NewCoach(policy *Policy, gateway *Gateway, clock func() time.Time) *Coach {
	if clock == nil {
		clock = time.Now
	}
	return &Coach{Policy: policy, Gateway: gateway, clock: clock}
}

// Consult runs one coach session. Gateway failures degrade to the local
// fallback, and the cooldown is stamped either way.
func (c *Coach) Consult(ctx context.Context, req models.CoachRequest) models.CoachResponse {
	now := c.clock()
	resp, err := c.Gateway.Ask(ctx, req)
	if err != nil {
		slog.Warn("Coach.Consult: falling back to local message", "error", err, "day", req.DayKey)
		resp = FallbackResponse(req.EmotionalState, req.DayKey, req.Progress.Pct)
	}
	c.Policy.MarkCoached(now)
	return resp
}
