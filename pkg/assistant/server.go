// Package assistant serves the AURA tutoring HTTP API on top of the gateway.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aura-edu/aura/pkg/config"
	"github.com/aura-edu/aura/pkg/gateway"
	"github.com/aura-edu/aura/pkg/models"
	"github.com/aura-edu/aura/pkg/router"
)

const maxBodyBytes = 1 << 20

// Generator is the subset of *gateway.Gateway the server needs.
type Generator interface {
	Call(ctx context.Context, model, prompt string) (gateway.Result, error)
	Status() models.GatewayStatus
}

// Server is the AURA assistant HTTP API.
type Server struct {
	listen       string
	systemPrompt string
	gen          Generator
	router       *router.Router
	validate     *validator.Validate
	logger       *slog.Logger
	now          func() time.Time
	mux          *http.ServeMux
}

// New creates a Server wired to gen.
func New(cfg *config.Config, gen Generator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		listen:       cfg.Listen,
		systemPrompt: cfg.Assistant.SystemPrompt,
		gen:          gen,
		router:       router.New(cfg),
		validate:     validator.New(),
		logger:       logger.With("component", "assistant"),
		now:          time.Now,
		mux:          http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /assistant/interact", s.handleInteract)
	s.mux.HandleFunc("GET /assistant/status", s.handleStatus)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Private-Network", "true")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the server with graceful shutdown support.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("aura listening", "addr", s.listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleInteract(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", requestID)

	var req models.InteractRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "La solicitud no es un JSON válido.", requestID)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.logger.Debug("rejected request", "request_id", requestID, "error", err)
		s.writeError(w, http.StatusBadRequest, "invalid_request", "La solicitud tiene campos inválidos o incompletos.", requestID)
		return
	}

	model := s.router.Resolve(req.InteractionType)
	prompt := BuildPrompt(s.systemPrompt, req)

	res, err := s.gen.Call(r.Context(), model, prompt)
	if err != nil {
		status, kind, msg := errorResponse(err)
		s.logger.Error("interaction failed",
			"request_id", requestID,
			"model", model,
			"kind", kind,
			"attempts", res.Attempts,
			"error", err,
		)
		s.writeError(w, status, kind, msg, requestID)
		return
	}

	if fromCache(res.Outcome) {
		w.Header().Set("X-Aura-Cache", "hit")
	} else {
		w.Header().Set("X-Aura-Cache", "miss")
	}
	if res.Outcome.Degraded() {
		s.logger.Warn("served degraded response", "request_id", requestID, "outcome", res.Outcome)
	}

	writeJSON(w, http.StatusOK, models.InteractResponse{
		Response:     res.Text,
		ResponseType: req.InteractionType.ResponseType(),
		ModuleUsed:   req.Module,
		Model:        model,
		RequestID:    requestID,
		Timestamp:    s.now().UTC(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.gen.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errorResponse maps a gateway failure to an HTTP status, a kind and a
// caller-safe message. Upstream diagnostics never reach the client.
func errorResponse(err error) (int, string, string) {
	var gerr *gateway.Error
	if !errors.As(err, &gerr) {
		return http.StatusInternalServerError, "internal", "Ocurrió un error inesperado. Intenta de nuevo."
	}
	switch gerr.Kind {
	case gateway.KindServiceUnavailable:
		return http.StatusServiceUnavailable, gerr.Kind.String(),
			"AURA está en modo de recuperación temporal. Intenta de nuevo en un minuto."
	case gateway.KindUpstreamUnavailable:
		return http.StatusServiceUnavailable, gerr.Kind.String(),
			"El servicio de IA está saturado en este momento. Intenta de nuevo en unos segundos."
	case gateway.KindCanceled:
		return http.StatusGatewayTimeout, gerr.Kind.String(),
			"La solicitud tardó demasiado o fue cancelada."
	default:
		return http.StatusInternalServerError, "internal", "Ocurrió un error inesperado. Intenta de nuevo."
	}
}

func fromCache(o models.Outcome) bool {
	return o == models.OutcomeCacheHit || o.Degraded()
}

func (s *Server) writeError(w http.ResponseWriter, code int, kind, message, requestID string) {
	writeJSON(w, code, models.ErrorResponse{
		Response:     message,
		ResponseType: "error",
		ErrorKind:    kind,
		RequestID:    requestID,
		Timestamp:    s.now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
