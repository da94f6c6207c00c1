// Package transportsapi serves the persisted transport history to the map
// front end. Read only: the pipeline is the sole writer.
package transportsapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	shared "github.com/carbonpath/server/pkg"
	"github.com/carbonpath/server/pkg/types"
)

// Server holds the API's dependencies.
type Server struct {
	db     shared.Database
	logger *slog.Logger
}

func NewServer(db shared.Database, logger *slog.Logger) *Server {
	return &Server{db: db, logger: logger}
}

// Router builds the HTTP surface.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/users/{userID}/transports", func(r chi.Router) {
		r.Get("/", s.handleListTransports)
		r.Get("/{transportID}/geojson", s.handleTransportGeoJSON)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListTransports returns a user's transports for one date, most
// recent first as persisted. The date parameter is required: the collection
// is unbounded and the front end always renders one day at a time.
func (s *Server) handleListTransports(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date query parameter is required")
		return
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	records, err := s.db.ListTransportsByDate(r.Context(), userID, date)
	if err != nil {
		s.logger.Error("Failed to list transports", "user_id", userID, "date", date, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list transports")
		return
	}
	if records == nil {
		records = []*types.TransportRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":    userID,
		"date":       date,
		"transports": records,
		"count":      len(records),
	})
}

// handleTransportGeoJSON serves one transport's geometry as a bare feature
// collection, directly consumable by map libraries.
func (s *Server) handleTransportGeoJSON(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	transportID := chi.URLParam(r, "transportID")

	record, err := s.db.GetTransport(r.Context(), userID, transportID)
	if err != nil {
		s.logger.Error("Failed to get transport", "user_id", userID, "transport_id", transportID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get transport")
		return
	}
	if record == nil || record.GeoJSON == nil {
		writeError(w, http.StatusNotFound, "transport not found")
		return
	}

	writeJSON(w, http.StatusOK, record.GeoJSON)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
