package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"postpilot/internal/api"
	"postpilot/internal/config"
	"postpilot/internal/content"
	"postpilot/internal/coordination"
	"postpilot/internal/dispatch"
	"postpilot/internal/logging"
	"postpilot/internal/platform"
	"postpilot/internal/services"
	"postpilot/internal/store"
)

const defaultRecordLimit = 50

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	now    func() time.Time

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
		now:    time.Now,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(cfg.Paths.APIToken),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) routes(token string) http.Handler {
	router := mux.NewRouter()
	router.Use(requestIDMiddleware, authMiddleware(token))

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	apiRouter.HandleFunc("/schedules", s.handleSchedules).Methods(http.MethodGet)
	apiRouter.HandleFunc("/records", s.handleRecords).Methods(http.MethodGet)
	apiRouter.HandleFunc("/counters", s.handleCounters).Methods(http.MethodGet)
	apiRouter.HandleFunc("/tick", s.handleTick).Methods(http.MethodPost)
	return router
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
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
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

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		LockFilePath: status.LockFilePath,
		Storage:      status.Storage,
		LogPath:      status.LogPath,
		Dispatch:     api.FromDispatchStatus(status.Dispatch),
	})
}

func (s *apiServer) handleSchedules(w http.ResponseWriter, r *http.Request) {
	items, err := s.daemon.Schedules(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.ScheduleListResponse{Schedules: api.FromSchedules(items, s.now())})
}

func (s *apiServer) handleRecords(w http.ResponseWriter, r *http.Request) {
	filter, err := recordFilterFromQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := s.daemon.Records(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.RecordListResponse{Records: api.FromRecords(items)})
}

func recordFilterFromQuery(r *http.Request) (store.RecordFilter, error) {
	query := r.URL.Query()
	filter := store.RecordFilter{
		ContentID: strings.TrimSpace(query.Get("content")),
		Date:      strings.TrimSpace(query.Get("date")),
		Limit:     defaultRecordLimit,
	}
	if value := strings.TrimSpace(query.Get("platform")); value != "" {
		id, err := platform.Parse(value)
		if err != nil {
			return filter, err
		}
		filter.Platform = string(id)
	}
	if value := strings.ToLower(strings.TrimSpace(query.Get("status"))); value != "" {
		switch status := content.RecordStatus(value); status {
		case content.RecordPending, content.RecordPublished, content.RecordFailed:
			filter.Status = status
		default:
			return filter, fmt.Errorf("invalid status %q", value)
		}
	}
	if value := strings.TrimSpace(query.Get("limit")); value != "" {
		limit, err := strconv.Atoi(value)
		if err != nil || limit < 0 {
			return filter, fmt.Errorf("invalid limit %q", value)
		}
		filter.Limit = limit
	}
	return filter, nil
}

func (s *apiServer) handleCounters(w http.ResponseWriter, r *http.Request) {
	items, err := s.daemon.Counters(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.CounterListResponse{Counters: api.FromCounters(items)})
}

func (s *apiServer) handleTick(w http.ResponseWriter, r *http.Request) {
	report, err := s.daemon.Tick(r.Context())
	switch {
	case errors.Is(err, dispatch.ErrTickInProgress), errors.Is(err, coordination.ErrLockHeld):
		s.writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.TickResponse{Tick: api.FromTickReport(report)})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}

// requestIDMiddleware stamps a correlation id on the request context, reusing
// X-Request-ID when the caller supplies one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}
