package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"opptrace/internal/api"
	"opptrace/internal/config"
	"opptrace/internal/ingest"
	"opptrace/internal/logging"
	"opptrace/internal/services"
)

// maxBatchBytes bounds the accepted enrichment request body.
const maxBatchBytes = 8 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

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

	mux := http.NewServeMux()
	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	mux.HandleFunc("/api/enrich", srv.handleEnrich)
	mux.HandleFunc("/api/snapshot", srv.handleSnapshot)
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/retry", srv.handleRetry)
	mux.HandleFunc("/api/match", srv.handleMatch)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
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

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleEnrich(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBatchBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read request body")
		return
	}
	batch, err := ingest.Parse(body)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	gen, scheduled, err := s.daemon.orch.Ingest(r.Context(), batch)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.EnrichAck{Generation: gen, Scheduled: scheduled})
}

func (s *apiServer) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snap, ok := s.daemon.store.Current()
	if !ok {
		s.writeError(w, http.StatusNotFound, "no batch has been ingested")
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromSnapshot(snap))
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	attendees := 0
	if snap, ok := s.daemon.store.Current(); ok {
		attendees = len(snap.Attendees)
	}
	payload := api.FromRunState(s.daemon.Running(), s.daemon.orch.State(), attendees, s.daemon.cacheEntries())
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Stage string `json:"stage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid retry request")
		return
	}
	gen, err := s.daemon.orch.Retry(r.Context(), req.Stage)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.EnrichAck{Generation: gen, Scheduled: true})
}

func (s *apiServer) handleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.daemon.matcher == nil {
		s.writeError(w, http.StatusServiceUnavailable, "face matching is not enabled")
		return
	}
	var req struct {
		Image         string  `json:"image"`
		MinConfidence float64 `json:"minConfidence"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid match request")
		return
	}
	snap, ok := s.daemon.store.Current()
	if !ok {
		s.writeError(w, http.StatusNotFound, "no batch has been ingested")
		return
	}

	result, err := s.daemon.matcher.Match(r.Context(), req.Image, snap.Attendees)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if result == nil || (req.MinConfidence > 0 && result.Confidence < req.MinConfidence) {
		s.writeJSON(w, http.StatusOK, api.MatchView{Matched: false})
		return
	}

	view := api.MatchView{
		Matched:    true,
		Confidence: result.Confidence,
		Distance:   result.Distance,
		Verified:   result.Verified,
	}
	for _, attendee := range snap.Attendees {
		if attendee.Identity == result.Identity {
			converted := api.FromAttendee(attendee)
			view.Attendee = &converted
			break
		}
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	message := services.Details(err)
	if message == "" {
		message = err.Error()
	}
	s.writeError(w, statusForError(err), message)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
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
