package api

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Services  healthServices `json:"services"`
}

type healthServices struct {
	MarketData          string `json:"marketData"`
	MarketDataCheckedAt string `json:"marketDataCheckedAt,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	services := healthServices{MarketData: "unknown"}
	if s.health != nil {
		services.MarketData = s.health.Status()
		if at, _ := s.health.LastCheck(); !at.IsZero() {
			services.MarketDataCheckedAt = at.UTC().Format(time.RFC3339)
		}
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Services:  services,
	})
}
