package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"concierge/internal/api"
	"concierge/internal/config"
	"concierge/internal/logging"
	"concierge/internal/records"
)

// statusSource is the daemon surface the API reads.
type statusSource interface {
	Status() Status
	Tickets() []records.Ticket
	Tasks(status records.TaskStatus) []records.Task
	TestNotification(ctx context.Context) (bool, string, error)
}

type apiServer struct {
	bind   string
	logger *slog.Logger
	source statusSource

	listener net.Listener
	server   *http.Server
}

// newAPIServer returns nil when no bind address is configured.
func newAPIServer(cfg *config.Config, source statusSource, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || source == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		source: source,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(cfg.API.Token),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) routes(token string) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// Routes stay on the root router: a subrouter loses the method mismatch
	// when a later route on it matches the path with another method.
	auth := authMiddleware(token)
	r.Handle("/api/status", auth(http.HandlerFunc(s.handleStatus))).Methods(http.MethodGet)
	r.Handle("/api/tickets", auth(http.HandlerFunc(s.handleTickets))).Methods(http.MethodGet)
	r.Handle("/api/tasks", auth(http.HandlerFunc(s.handleTasks))).Methods(http.MethodGet)
	r.Handle("/api/notifications/test", auth(http.HandlerFunc(s.handleTestNotification))).Methods(http.MethodPost)

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address, or "" before start.
func (s *apiServer) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	state := "ok"
	if !s.source.Status().Running {
		state = "stopped"
	}
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: state})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := s.source.Status()
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:        status.Running,
		Dispatching:    status.Dispatching,
		PID:            status.PID,
		StartedAt:      api.FormatTime(status.StartedAt),
		Tickets:        status.Tickets,
		Tasks:          status.Tasks,
		OpenTasks:      status.OpenTasks,
		StoreBackend:   status.StoreBackend,
		StorePath:      status.StorePath,
		LockFilePath:   status.LockFilePath,
		LastOverdueRun: api.FormatTime(status.LastOverdueRun),
	})
}

func (s *apiServer) handleTickets(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.TicketListResponse{Tickets: api.FromTickets(s.source.Tickets())})
}

func (s *apiServer) handleTasks(w http.ResponseWriter, r *http.Request) {
	var status records.TaskStatus
	switch value := strings.TrimSpace(r.URL.Query().Get("status")); {
	case value == "":
	case strings.EqualFold(value, string(records.TaskOpen)):
		status = records.TaskOpen
	case strings.EqualFold(value, string(records.TaskCompleted)):
		status = records.TaskCompleted
	default:
		s.writeError(w, http.StatusBadRequest, "unknown task status "+value)
		return
	}
	s.writeJSON(w, http.StatusOK, api.TaskListResponse{Tasks: api.FromTasks(s.source.Tasks(status))})
}

func (s *apiServer) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	sent, message, err := s.source.TestNotification(r.Context())
	resp := api.TestNotificationResponse{Sent: sent, Message: message}
	if err != nil {
		s.logger.Warn("test notification failed", logging.Error(err))
		resp.Error = err.Error()
		s.writeJSON(w, http.StatusBadGateway, resp)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
