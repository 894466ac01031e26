package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"chatrouter-backend/internal/models"
	"chatrouter-backend/internal/services"
)

const (
	msgInvalidBody = "Invalid request body"
	msgAIFailed    = "AI request failed"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(message string) models.ErrorResponse {
	return models.ErrorResponse{Error: message}
}

// ErrorStatus maps a service error to its status code and client-facing message.
// Upstream detail never reaches the client.
func ErrorStatus(err error) (int, string) {
	var vErr *services.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, vErr.Message
	}

	// gateway and store failures alike
	return http.StatusInternalServerError, msgAIFailed
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s failed [request_id=%s]: %v", r.Method, r.URL.Path, r.Header.Get("X-Request-ID"), err)
	}
	writeJSON(w, status, errorResp(message))
}
