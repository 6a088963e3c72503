package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aura-edu/aura/pkg/config"
	"github.com/aura-edu/aura/pkg/gateway"
	"github.com/aura-edu/aura/pkg/models"
)

// fakeGenerator implements assistant.Generator for testing.
type fakeGenerator struct {
	text    string
	err     error
	status  models.GatewayStatus
	models  []string
	prompts []string
}

func (f *fakeGenerator) Call(_ context.Context, model, prompt string) (gateway.Result, error) {
	f.models = append(f.models, model)
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return gateway.Result{}, f.err
	}
	return gateway.Result{Text: f.text, Outcome: models.OutcomeSuccess, Attempts: 1}, nil
}

func (f *fakeGenerator) Status() models.GatewayStatus { return f.status }

// fakeLedger implements Ledger for testing.
type fakeLedger struct {
	summaries []models.OutcomeSummary
	events    []models.CallEvent
	since     time.Time
	limit     int
}

func (f *fakeLedger) Summary(_ context.Context, since time.Time) ([]models.OutcomeSummary, error) {
	f.since = since
	return f.summaries, nil
}

func (f *fakeLedger) Recent(_ context.Context, limit int) ([]models.CallEvent, error) {
	f.limit = limit
	return f.events, nil
}

func newTestServer(gen *fakeGenerator, ledger Ledger) *Server {
	return New(config.Default(), gen, ledger, "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func sendAndReceive(t *testing.T, srv *Server, req Request) Response {
	t.Helper()
	line, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	line = append(line, '\n')

	var out bytes.Buffer
	if err := srv.Run(context.Background(), bytes.NewReader(line), &out); err != nil {
		t.Fatal(err)
	}

	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, out.String())
	}
	return resp
}

func callTool(t *testing.T, srv *Server, name string, args any) ToolCallResult {
	t.Helper()
	params := map[string]any{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	raw, _ := json.Marshal(params)

	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`7`),
		Method:  "tools/call",
		Params:  raw,
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result ToolCallResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Content) == 0 {
		t.Fatal("empty tool result")
	}
	return result
}

func TestInitialize(t *testing.T) {
	srv := newTestServer(&fakeGenerator{}, nil)
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  "initialize",
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result InitializeResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatal(err)
	}
	if result.ProtocolVersion != "2024-11-05" {
		t.Errorf("protocol version = %s, want 2024-11-05", result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "aura" || result.ServerInfo.Version != "test" {
		t.Errorf("unexpected server info: %+v", result.ServerInfo)
	}
}

func TestToolsList(t *testing.T) {
	srv := newTestServer(&fakeGenerator{}, nil)
	resp := sendAndReceive(t, srv, Request{JSONRPC: "2.0", ID: json.RawMessage(`2`), Method: "tools/list"})

	data, _ := json.Marshal(resp.Result)
	var result ToolsListResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Tools) != len(handlers) {
		t.Fatalf("expected %d tools, got %d", len(handlers), len(result.Tools))
	}
	for _, tool := range result.Tools {
		if _, ok := handlers[tool.Name]; !ok {
			t.Errorf("tool %s has no handler", tool.Name)
		}
	}
}

func TestNotificationHasNoResponse(t *testing.T) {
	srv := newTestServer(&fakeGenerator{}, nil)
	var out bytes.Buffer
	in := strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n")
	if err := srv.Run(context.Background(), in, &out); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output, got %s", out.String())
	}
}

func TestParseError(t *testing.T) {
	srv := newTestServer(&fakeGenerator{}, nil)
	var out bytes.Buffer
	if err := srv.Run(context.Background(), strings.NewReader("{not json\n"), &out); err != nil {
		t.Fatal(err)
	}
	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || resp.Error.Code != CodeParseError {
		t.Errorf("expected parse error, got %+v", resp.Error)
	}
}

func TestUnknownMethod(t *testing.T) {
	srv := newTestServer(&fakeGenerator{}, nil)
	resp := sendAndReceive(t, srv, Request{JSONRPC: "2.0", ID: json.RawMessage(`3`), Method: "resources/list"})
	if resp.Error == nil || resp.Error.Code != CodeMethodNotFound {
		t.Errorf("expected method not found, got %+v", resp.Error)
	}
}

func TestUnknownTool(t *testing.T) {
	srv := newTestServer(&fakeGenerator{}, nil)
	result := callTool(t, srv, "aura_usage", nil)
	if !result.IsError {
		t.Error("expected error result")
	}
}

func TestAsk(t *testing.T) {
	gen := &fakeGenerator{text: "Se escribe «haya»."}
	srv := newTestServer(gen, nil)

	result := callTool(t, srv, "aura_ask", map[string]any{
		"message":          "¿Haiga o haya?",
		"interaction_type": "correction",
	})
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.Content[0].Text)
	}
	if result.Content[0].Text != "Se escribe «haya»." {
		t.Errorf("unexpected text: %s", result.Content[0].Text)
	}
	if len(gen.models) != 1 || gen.models[0] != "gemini-2.5-flash" {
		t.Errorf("unexpected models: %v", gen.models)
	}
	if !strings.Contains(gen.prompts[0], "Tipo de interacción: correction") {
		t.Errorf("prompt missing interaction: %s", gen.prompts[0])
	}
}

func TestAskRequiresMessage(t *testing.T) {
	gen := &fakeGenerator{}
	result := callTool(t, newTestServer(gen, nil), "aura_ask", map[string]any{"message": "  "})
	if !result.IsError {
		t.Error("expected error result")
	}
	if len(gen.prompts) != 0 {
		t.Error("gateway should not be called")
	}
}

func TestAskGatewayError(t *testing.T) {
	gen := &fakeGenerator{err: &gateway.Error{Kind: gateway.KindServiceUnavailable}}
	result := callTool(t, newTestServer(gen, nil), "aura_ask", map[string]any{"message": "hola"})
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if result.Content[0].Text != "service is in temporary recovery mode" {
		t.Errorf("unexpected text: %s", result.Content[0].Text)
	}
}

func TestStatus(t *testing.T) {
	gen := &fakeGenerator{status: models.GatewayStatus{
		Cache:   models.CacheStats{Entries: 4, Fresh: 3, Hits: 10, Misses: 2},
		Circuit: models.CircuitStatus{Open: true, OpenUntil: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)},
	}}
	result := callTool(t, newTestServer(gen, nil), "aura_status", nil)

	text := result.Content[0].Text
	for _, want := range []string{"4 (3 fresh)", "10", "OPEN until 2026-01-01T12:00:00Z"} {
		if !strings.Contains(text, want) {
			t.Errorf("status missing %q:\n%s", want, text)
		}
	}
}

func TestCallSummary(t *testing.T) {
	ledger := &fakeLedger{summaries: []models.OutcomeSummary{
		{Model: "gemini-2.5-flash", Outcome: models.OutcomeSuccess, Calls: 12, TotalAttempts: 14, AvgLatencyMs: 820},
	}}
	srv := newTestServer(&fakeGenerator{}, ledger)

	result := callTool(t, srv, "aura_call_summary", map[string]any{"since": "1h"})
	if result.IsError {
		t.Fatal(result.Content[0].Text)
	}
	if !strings.Contains(result.Content[0].Text, "gemini-2.5-flash") {
		t.Errorf("summary missing model:\n%s", result.Content[0].Text)
	}
	if age := time.Since(ledger.since); age < 59*time.Minute || age > 61*time.Minute {
		t.Errorf("expected a 1h window, got %v", age)
	}

	bad := callTool(t, srv, "aura_call_summary", map[string]any{"since": "yesterday"})
	if !bad.IsError {
		t.Error("expected error for invalid duration")
	}
}

func TestRecentCalls(t *testing.T) {
	ledger := &fakeLedger{events: []models.CallEvent{
		{Model: "gemini-2.5-flash", Outcome: models.OutcomeStaleFallback, Attempts: 3, CreatedAt: time.Now()},
	}}
	result := callTool(t, newTestServer(&fakeGenerator{}, ledger), "aura_recent_calls", map[string]any{"limit": 5})

	if ledger.limit != 5 {
		t.Errorf("expected limit 5, got %d", ledger.limit)
	}
	if !strings.Contains(result.Content[0].Text, "stale_fallback") {
		t.Errorf("missing outcome:\n%s", result.Content[0].Text)
	}
}

func TestLedgerDisabled(t *testing.T) {
	srv := newTestServer(&fakeGenerator{}, nil)
	for _, name := range []string{"aura_call_summary", "aura_recent_calls"} {
		result := callTool(t, srv, name, nil)
		if result.Content[0].Text != "Telemetry is not enabled." {
			t.Errorf("%s: unexpected text %q", name, result.Content[0].Text)
		}
	}
}
