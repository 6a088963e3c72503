// Package mcp exposes the gateway as Model Context Protocol tools over stdio.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aura-edu/aura/pkg/assistant"
	"github.com/aura-edu/aura/pkg/config"
	"github.com/aura-edu/aura/pkg/models"
	"github.com/aura-edu/aura/pkg/router"
)

// Ledger reads recorded gateway calls. It is nil when telemetry is off.
type Ledger interface {
	Summary(ctx context.Context, since time.Time) ([]models.OutcomeSummary, error)
	Recent(ctx context.Context, limit int) ([]models.CallEvent, error)
}

// Server is a line-delimited JSON-RPC 2.0 MCP server.
type Server struct {
	gen          assistant.Generator
	ledger       Ledger
	router       *router.Router
	systemPrompt string
	version      string
	logger       *slog.Logger
}

// New creates a Server. ledger may be nil.
func New(cfg *config.Config, gen assistant.Generator, ledger Ledger, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		gen:          gen,
		ledger:       ledger,
		router:       router.New(cfg),
		systemPrompt: cfg.Assistant.SystemPrompt,
		version:      version,
		logger:       logger.With("component", "mcp"),
	}
}

// Run reads requests from r one per line and writes responses to w.
// It blocks until r is exhausted or ctx is cancelled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.write(w, Response{
				JSONRPC: jsonRPCVersion,
				Error:   &RPCError{Code: CodeParseError, Message: "parse error"},
			})
			continue
		}

		if resp := s.dispatch(ctx, &req); resp != nil {
			s.write(w, *resp)
		}
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "initialize":
		return s.reply(req, InitializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      ServerInfo{Name: "aura", Version: s.version},
			Capabilities:    map[string]any{"tools": map[string]any{}},
		})
	case "notifications/initialized":
		return nil
	case "tools/list":
		return s.reply(req, ToolsListResult{Tools: tools})
	case "tools/call":
		var params ToolCallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return s.fail(req, CodeInvalidParams, "invalid params")
		}
		handler, ok := handlers[params.Name]
		if !ok {
			return s.reply(req, errorResult("unknown tool: "+params.Name))
		}
		return s.reply(req, handler(ctx, s, params.Arguments))
	default:
		return s.fail(req, CodeMethodNotFound, fmt.Sprintf("unknown method: %s", req.Method))
	}
}

func (s *Server) reply(req *Request, result any) *Response {
	return &Response{JSONRPC: jsonRPCVersion, ID: req.ID, Result: result}
}

func (s *Server) fail(req *Request, code int, msg string) *Response {
	return &Response{JSONRPC: jsonRPCVersion, ID: req.ID, Error: &RPCError{Code: code, Message: msg}}
}

func (s *Server) write(w io.Writer, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("marshal response", "error", err)
		return
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		s.logger.Error("write response", "error", err)
	}
}
