// Package api serves the skill registry over a small JSON HTTP API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillz/pkg/logger"
	"github.com/jingkaihe/skillz/pkg/presenter"
	"github.com/jingkaihe/skillz/pkg/skills"
	skilltypes "github.com/jingkaihe/skillz/pkg/types/skills"
	"github.com/jingkaihe/skillz/pkg/version"
)

// maxRequestBody caps the size of a skill invocation body.
const maxRequestBody = 1 << 20

// Server represents the skills HTTP server
type Server struct {
	router *mux.Router
	state  skilltypes.State
	config *ServerConfig
	server *http.Server
}

// ServerConfig holds the configuration for the HTTP server
type ServerConfig struct {
	Host string
	Port int
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}

	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	return nil
}

// SkillInfo describes a registered skill.
type SkillInfo struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Schema      *jsonschema.Schema `json:"schema"`
}

// SkillResponse is returned by POST /api/skills/{name}.
type SkillResponse struct {
	Result skilltypes.StructuredSkillResult `json:"result"`
	Text   string                           `json:"text"`
}

// NewServer creates a new HTTP server dispatching to the skill registry
func NewServer(ctx context.Context, config *ServerConfig, state skilltypes.State) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server configuration")
	}
	if state == nil {
		return nil, errors.New("state cannot be nil")
	}

	s := &Server{
		router: mux.NewRouter(),
		state:  state,
		config: config,
	}
	s.setupRoutes()

	logger.G(ctx).WithField("session", state.SessionID()).Debug("api server configured")
	return s, nil
}

// Handler returns the routed handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/skills", s.handleListSkills).Methods("GET")
	api.HandleFunc("/skills/{name}", s.handleRunSkill).Methods("POST")

	s.router.Use(s.loggingMiddleware)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		logger.G(r.Context()).WithFields(map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration":    time.Since(start),
			"remote_addr": r.RemoteAddr,
		}).Info("HTTP request")
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// handleHealthz handles GET /healthz
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": version.Get().Version,
	})
}

// handleListSkills handles GET /api/skills
func (s *Server) handleListSkills(w http.ResponseWriter, _ *http.Request) {
	all := skills.All()
	infos := make([]SkillInfo, 0, len(all))
	for _, skill := range all {
		infos = append(infos, SkillInfo{
			Name:        skill.Name(),
			Description: skill.Description(),
			Schema:      skill.GenerateSchema(),
		})
	}
	s.writeJSONResponse(w, http.StatusOK, map[string]any{"skills": infos})
}

// handleRunSkill handles POST /api/skills/{name}
func (s *Server) handleRunSkill(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if _, ok := skills.Get(name); !ok {
		s.writeErrorResponse(r.Context(), w, http.StatusNotFound, fmt.Sprintf("unknown skill: %s", name), nil)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		s.writeErrorResponse(r.Context(), w, http.StatusBadRequest, "failed to read request body", err)
		return
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	if !json.Valid(body) {
		s.writeErrorResponse(r.Context(), w, http.StatusBadRequest, "request body must be a JSON object", nil)
		return
	}

	ctx := logger.WithFields(r.Context(), map[string]any{"skill": name, "session": s.state.SessionID()})
	result := skills.Run(ctx, s.state, name, string(body))

	status := http.StatusOK
	if result.Reason() == skilltypes.ReasonInvalidInput {
		status = http.StatusBadRequest
	}

	s.writeJSONResponse(w, status, SkillResponse{
		Result: result.StructuredData(),
		Text:   result.AssistantFacing(),
	})
}

func (s *Server) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.G(context.TODO()).WithError(err).Error("failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (s *Server) writeErrorResponse(ctx context.Context, w http.ResponseWriter, statusCode int, message string, err error) {
	if err != nil {
		logger.G(ctx).WithError(err).Error(message)
	}

	s.writeJSONResponse(w, statusCode, map[string]any{
		"error":   message,
		"status":  statusCode,
		"success": false,
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:              address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	presenter.Info(fmt.Sprintf("Starting skills API on http://%s", address))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return errors.Wrap(err, "api server failed")
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Stop closes the server immediately
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}
