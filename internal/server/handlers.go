package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Datta-sai-vvn/StormAlert/internal/engine"
	"github.com/Datta-sai-vvn/StormAlert/internal/market"
)

// handleTick is the sole ingestion entry point for the feed collaborator.
// Validation errors come back as 400; everything past validation is absorbed
// by the pipeline.
func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	var tick market.Tick
	if err := json.NewDecoder(r.Body).Decode(&tick); err != nil {
		writeError(w, http.StatusBadRequest, "invalid tick payload")
		return
	}

	if err := s.engine.OnTick(tick); err != nil {
		if errors.Is(err, engine.ErrClosed) {
			writeError(w, http.StatusServiceUnavailable, "pipeline shutting down")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handlePrices bulk-reads latest observations. Instruments come from the
// "i" query parameter, comma-separated; entries past their TTL are omitted.
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("i")
	if raw == "" {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}

	instruments := strings.Split(raw, ",")
	entries, err := s.cache.GetMany(r.Context(), instruments)
	if err != nil {
		s.logger.Error().Err(err).Msg("price cache read failed")
		writeError(w, http.StatusInternalServerError, "price lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	instrument := chi.URLParam(r, "instrument")
	limit := queryInt(r, "limit", 0)

	points := s.historyDB.ReadLast(instrument, limit)
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if s.alertStore == nil {
		writeError(w, http.StatusServiceUnavailable, "audit store not configured")
		return
	}

	limit := queryInt(r, "limit", 50)
	records, err := s.alertStore.ListRecentAlerts(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("alert listing failed")
		writeError(w, http.StatusInternalServerError, "alert lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"rejected_ticks": s.engine.RejectedTicks(),
		"dropped_ticks":  s.engine.DroppedTicks(),
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
