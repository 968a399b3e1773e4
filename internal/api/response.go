package api

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope for every JSON reply. Exactly one of the
// fields is set depending on the outcome.
type Response struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func JSON(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Data: data})
}

func JSONMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Message: message})
}

func JSONErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Error: message})
}
