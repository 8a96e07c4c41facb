package coach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"

	"github.com/sarahkitay/cute-schedule/internal/models"
)

// ErrNotConfigured indicates no language-model backend is available. The
// caller should surface a hint instead of a generic failure.
var ErrNotConfigured = errors.New("coach gateway not configured")

// systemPrompt frames the coach. The model must answer with a single JSON
// object matching the CoachResponse contract.
const systemPrompt = `You are a gentle, practical daily-planning coach for a single user.
You receive the day's schedule, progress counters, monthly objectives, notes,
and pattern-analytics summary as JSON. Reply with ONLY a JSON object with the
keys: "message" (short encouraging string), "highlights" (list of strings),
"suggestions" (list of {"category","text","hour"}), "ignored_monthlies"
(list of {"text"}), "percent_summary" (one short sentence about the
completion percentage). Keep the tone warm and unhurried; never scold.`

// generator is the minimal language-model surface the gateway needs.
// *genai.Client satisfies it.
type generator interface {
	GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)
}

// Gateway talks to the language-model backend and parses its reply into the
// coach response contract.
type Gateway struct {
	gen generator
}

// NewGateway wraps a generator. A nil generator produces an unconfigured
// gateway whose Ask always returns ErrNotConfigured.
func NewGateway(gen generator) *Gateway {
	return &Gateway{gen: gen}
}

// Configured reports whether a backend is wired.
func (g *Gateway) Configured() bool {
	return g != nil && g.gen != nil
}

// Ask sends the coach request and parses the reply. Malformed model output
// is an error; the caller recovers with the local fallback.
func (g *Gateway) Ask(ctx context.Context, req models.CoachRequest) (models.CoachResponse, error) {
	if !g.Configured() {
		return models.CoachResponse{}, ErrNotConfigured
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return models.CoachResponse{}, fmt.Errorf("failed to marshal coach request: %w", err)
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
	}
	for _, turn := range req.History {
		if turn.Role == "coach" {
			messages = append(messages, openai.AssistantMessage(turn.Content))
		} else {
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}
	messages = append(messages, openai.UserMessage(string(payload)))

	raw, err := g.gen.GenerateWithMessages(ctx, messages)
	if err != nil {
		slog.Error("Gateway.Ask: generation failed", "error", err)
		return models.CoachResponse{}, fmt.Errorf("coach generation failed: %w", err)
	}

	var resp models.CoachResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &resp); err != nil {
		slog.Warn("Gateway.Ask: malformed coach reply", "error", err)
		return models.CoachResponse{}, fmt.Errorf("malformed coach reply: %w", err)
	}
	resp.Normalize()
	slog.Debug("Gateway.Ask: reply parsed", "highlights", len(resp.Highlights), "suggestions", len(resp.Suggestions))
	return resp, nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON in
// one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
