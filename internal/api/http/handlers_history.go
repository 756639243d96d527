package apihttp

import (
	"net/http"
)

func (s *Server) handleWatchProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if s.progress == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "watch progress not available")
		return
	}

	limit, err := parseOptionalIntQuery(r.URL.Query().Get("limit"), 20)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}

	records, err := s.progress.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "repository_error", "failed to list watch progress")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleRecentErrors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if s.errorLog == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "error log not available")
		return
	}

	limit, err := parseOptionalIntQuery(r.URL.Query().Get("limit"), 50)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}

	records, err := s.errorLog.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "repository_error", "failed to list playback errors")
		return
	}
	writeJSON(w, http.StatusOK, records)
}
