package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aura-edu/aura/pkg/assistant"
	"github.com/aura-edu/aura/pkg/gateway"
	"github.com/aura-edu/aura/pkg/models"
)

type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

var handlers = map[string]toolHandler{
	"aura_ask":          handleAsk,
	"aura_status":       handleStatus,
	"aura_call_summary": handleCallSummary,
	"aura_recent_calls": handleRecentCalls,
}

var tools = []Tool{
	{
		Name:        "aura_ask",
		Description: "Ask the tutoring assistant a question through the resilient gateway.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"message"},
			"properties": map[string]any{
				"message": map[string]any{
					"type":        "string",
					"description": "The student's message",
				},
				"interaction_type": map[string]any{
					"type":        "string",
					"enum":        []string{"correction", "exercise_request", "explanation", "conversation"},
					"description": "What the assistant is asked to do (default conversation)",
				},
				"module": map[string]any{
					"type":        "string",
					"description": "Learning module name (optional)",
				},
				"difficulty": map[string]any{
					"type":        "string",
					"enum":        []string{"basico", "intermedio", "avanzado"},
					"description": "Difficulty level (optional)",
				},
			},
		},
	},
	{
		Name:        "aura_status",
		Description: "Show response cache statistics and circuit breaker state.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "aura_call_summary",
		Description: "Summarise recorded gateway calls by model and outcome.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"since": map[string]any{
					"type":        "string",
					"description": "Look-back window as a Go duration, e.g. 1h or 30m (default 24h)",
				},
			},
		},
	},
	{
		Name:        "aura_recent_calls",
		Description: "List the most recent gateway calls.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"limit": map[string]any{
					"type":        "integer",
					"description": "How many calls to list (default 20)",
				},
			},
		},
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{Content: []ContentBlock{{Type: "text", Text: text}}}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{Content: []ContentBlock{{Type: "text", Text: text}}, IsError: true}
}

type askArgs struct {
	Message         string `json:"message"`
	InteractionType string `json:"interaction_type"`
	Module          string `json:"module"`
	Difficulty      string `json:"difficulty"`
}

func handleAsk(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	var args askArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return errorResult("invalid arguments: " + err.Error())
		}
	}
	if strings.TrimSpace(args.Message) == "" {
		return errorResult("message is required")
	}

	req := models.InteractRequest{
		Message:         args.Message,
		InteractionType: models.InteractionType(args.InteractionType),
		Module:          args.Module,
		Difficulty:      args.Difficulty,
	}
	model := s.router.Resolve(req.InteractionType)

	res, err := s.gen.Call(ctx, model, assistant.BuildPrompt(s.systemPrompt, req))
	if err != nil {
		var gerr *gateway.Error
		if errors.As(err, &gerr) {
			s.logger.Warn("ask failed", "kind", gerr.Kind, "error", err)
			return errorResult(gerr.Message())
		}
		return errorResult(err.Error())
	}
	return textResult(res.Text)
}

func handleStatus(_ context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	return textResult(formatStatus(s.gen.Status()))
}

type summaryArgs struct {
	Since string `json:"since"`
}

func handleCallSummary(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	if s.ledger == nil {
		return textResult("Telemetry is not enabled.")
	}
	var args summaryArgs
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &args)
	}

	window := 24 * time.Hour
	if args.Since != "" {
		d, err := time.ParseDuration(args.Since)
		if err != nil {
			return errorResult("invalid since duration: " + err.Error())
		}
		window = d
	}

	rows, err := s.ledger.Summary(ctx, time.Now().Add(-window))
	if err != nil {
		return errorResult("Error fetching summary: " + err.Error())
	}
	return textResult(formatSummary(rows))
}

type recentArgs struct {
	Limit int `json:"limit"`
}

func handleRecentCalls(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	if s.ledger == nil {
		return textResult("Telemetry is not enabled.")
	}
	var args recentArgs
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &args)
	}

	events, err := s.ledger.Recent(ctx, args.Limit)
	if err != nil {
		return errorResult("Error fetching calls: " + err.Error())
	}
	return textResult(formatEvents(events))
}

func formatStatus(st models.GatewayStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cache entries:  %d (%d fresh)\n", st.Cache.Entries, st.Cache.Fresh)
	fmt.Fprintf(&b, "Cache hits:     %d\n", st.Cache.Hits)
	fmt.Fprintf(&b, "Cache misses:   %d\n", st.Cache.Misses)
	if st.Circuit.Open {
		fmt.Fprintf(&b, "Circuit:        OPEN until %s\n", st.Circuit.OpenUntil.Format(time.RFC3339))
	} else {
		fmt.Fprintf(&b, "Circuit:        closed (%d consecutive failures)\n", st.Circuit.Failures)
	}
	return b.String()
}

func formatSummary(rows []models.OutcomeSummary) string {
	if len(rows) == 0 {
		return "No calls recorded."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-22s %-22s %6s %8s %12s %6s\n", "Model", "Outcome", "Calls", "Attempts", "Avg latency", "Opens")
	b.WriteString(strings.Repeat("-", 81) + "\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%-22s %-22s %6d %8d %10.0fms %6d\n",
			r.Model, r.Outcome, r.Calls, r.TotalAttempts, r.AvgLatencyMs, r.CircuitOpens)
	}
	return b.String()
}

func formatEvents(events []models.CallEvent) string {
	if len(events) == 0 {
		return "No calls recorded."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-22s %-22s %8s %10s\n", "Time", "Model", "Outcome", "Attempts", "Latency")
	b.WriteString(strings.Repeat("-", 86) + "\n")
	for _, ev := range events {
		fmt.Fprintf(&b, "%-20s %-22s %-22s %8d %10s\n",
			ev.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			ev.Model, ev.Outcome, ev.Attempts, ev.Latency)
	}
	return b.String()
}
