package server

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// ResetResponse is the body of a successful POST /admin/reset.
type ResetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status           string `json:"status"`
	Sessions         int    `json:"sessions"`
	Words            int    `json:"words"`
	TotalSubmissions int    `json:"totalSubmissions"`
}

// handleAdminReset handles POST /admin/reset. It performs the same reset as a
// client's reset event.
func (s *Server) handleAdminReset(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	result := s.resetLimits.check(ip)
	if !result.Allowed {
		s.logger.Warn("Admin reset rate limited", "ip", ip, "retry_after", result.RetryAfter)
		w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
		http.Error(w, "too many reset requests", http.StatusTooManyRequests)
		return
	}

	if err := s.hub.Reset(r.Context()); err != nil {
		s.logger.Error("Admin reset failed", "error", err)
		http.Error(w, "reset unavailable", http.StatusServiceUnavailable)
		return
	}

	s.logger.Info("Word cloud reset via admin endpoint", "ip", ip)
	writeJSON(w, http.StatusOK, ResetResponse{
		Success: true,
		Message: "Word cloud reset successfully",
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	store := s.hub.Store()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:           "healthy",
		Sessions:         s.hub.SessionCount(),
		Words:            store.Len(),
		TotalSubmissions: store.TotalSubmissions(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
