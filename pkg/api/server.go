package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/esl-mosaic/pawr-go/pkg/broadcast"
	"github.com/esl-mosaic/pawr-go/pkg/persistence"
	"github.com/esl-mosaic/pawr-go/pkg/service"
	"github.com/esl-mosaic/pawr-go/pkg/slot"
)

// MaxLimit caps the limit query parameter.
const MaxLimit = 1000

// StatusSource provides the coordinator's live state.
// *service.CoordinatorService implements it.
type StatusSource interface {
	Status() service.CoordinatorStatus
	Roster() *persistence.Roster
	Latest() []broadcast.Sample
}

// ReadingStore provides stored readings. *store.Store implements it.
type ReadingStore interface {
	Recent(ctx context.Context, limit int) ([]broadcast.Sample, error)
	ByCoordinate(ctx context.Context, c slot.Coordinate, limit int) ([]broadcast.Sample, error)
}

// Server is the status HTTP server.
type Server struct {
	source StatusSource
	store  ReadingStore
	logger *slog.Logger
	router chi.Router
}

// NewServer creates a server. store may be nil; logger may be nil.
func NewServer(source StatusSource, store ReadingStore, logger *slog.Logger) *Server {
	s := &Server{
		source: source,
		store:  store,
		logger: logger,
		router: chi.NewRouter(),
	}
	s.RegisterRoutes(s.router)
	return s
}

// RegisterRoutes registers the status routes on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Recoverer)

	r.Get("/livez", s.handleLivez)
	r.Get("/status", s.handleStatus)
	r.Get("/roster", s.handleRoster)
	r.Get("/readings/latest", s.handleLatest)
	r.Get("/readings", s.handleReadings)
	r.Get("/readings/{subevent}/{slot}", s.handleCoordinateReadings)
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.debugLog("api: listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleLivez(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.source.Status())
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.source.Roster())
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, nonNil(s.source.Latest()))
}

func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusNotFound, "no readings store configured")
		return
	}
	limit, ok := s.parseLimit(w, r)
	if !ok {
		return
	}
	samples, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		s.debugLog("api: query readings failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	s.writeJSON(w, http.StatusOK, nonNil(samples))
}

func (s *Server) handleCoordinateReadings(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusNotFound, "no readings store configured")
		return
	}
	sub, err1 := strconv.ParseUint(chi.URLParam(r, "subevent"), 10, 8)
	rs, err2 := strconv.ParseUint(chi.URLParam(r, "slot"), 10, 8)
	if err1 != nil || err2 != nil {
		s.writeError(w, http.StatusBadRequest, "invalid coordinate")
		return
	}
	limit, ok := s.parseLimit(w, r)
	if !ok {
		return
	}
	c := slot.Coordinate{Subevent: uint8(sub), ResponseSlot: uint8(rs)}
	samples, err := s.store.ByCoordinate(r.Context(), c, limit)
	if err != nil {
		s.debugLog("api: query readings failed", "coordinate", c, "error", err)
		s.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	s.writeJSON(w, http.StatusOK, nonNil(samples))
}

func (s *Server) parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > MaxLimit {
		s.writeError(w, http.StatusBadRequest, "limit must be in 1.."+strconv.Itoa(MaxLimit))
		return 0, false
	}
	return n, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.debugLog("api: encode response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) debugLog(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func nonNil(samples []broadcast.Sample) []broadcast.Sample {
	if samples == nil {
		return []broadcast.Sample{}
	}
	return samples
}
