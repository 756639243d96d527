package apihttp

import (
	"net/http"
	"strings"
)

type autoPlayResponse struct {
	SeriesID string `json:"seriesId"`
	Enabled  bool   `json:"enabled"`
}

type autoPlayUpdateRequest struct {
	SeriesID string `json:"seriesId"`
	Enabled  bool   `json:"enabled"`
}

func (s *Server) handleAutoPlaySettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		seriesID := strings.TrimSpace(r.URL.Query().Get("seriesId"))
		if seriesID == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "seriesId is required")
			return
		}
		writeJSON(w, http.StatusOK, autoPlayResponse{
			SeriesID: seriesID,
			Enabled:  s.sessions.AutoPlay(r.Context(), seriesID),
		})
	case http.MethodPut:
		var req autoPlayUpdateRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}
		req.SeriesID = strings.TrimSpace(req.SeriesID)
		if req.SeriesID == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "seriesId is required")
			return
		}
		if err := s.sessions.SetAutoPlay(r.Context(), req.SeriesID, req.Enabled); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to store setting")
			return
		}
		writeJSON(w, http.StatusOK, autoPlayResponse{SeriesID: req.SeriesID, Enabled: req.Enabled})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}
