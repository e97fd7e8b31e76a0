package handler

import "net/http"

// SessionCounter reports live change-stream sessions. Satisfied by *ws.Hub.
type SessionCounter interface {
	ClientCount() int
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// Health handles GET /health.
func Health(sessions SessionCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Sessions: sessions.ClientCount()})
	}
}
