package httpapi

import (
	"encoding/json"
	"net/http"
	"time"
)

// writeJSON marshals v and writes it with status. A marshal failure becomes a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

type errorResponse struct {
	Error string `json:"error"`
}

type SubmitResponse struct {
	ID        string    `json:"id"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ViewResponse is the body of every note view endpoint. Text is present only
// when status is "success".
type ViewResponse struct {
	Status         string `json:"status"`
	Text           string `json:"text,omitempty"`
	PurgeInSeconds int    `json:"purge_in_seconds,omitempty"`
	Error          string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
