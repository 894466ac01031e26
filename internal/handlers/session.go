package handlers

import (
	"log"
	"net/http"
	"time"

	"chatrouter-backend/internal/models"
)

type sessionIssuer interface {
	Issue() (sessionID, token string, expiresAt time.Time, err error)
	SetCookie(w http.ResponseWriter, token string, expiresAt time.Time)
}

type SessionHandler struct {
	issuer sessionIssuer
}

func NewSessionHandler(issuer sessionIssuer) *SessionHandler {
	return &SessionHandler{issuer: issuer}
}

// Create starts a fresh, empty session.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	sessionID, token, expiresAt, err := h.issuer.Issue()
	if err != nil {
		log.Printf("Session issue failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("Failed to create session"))
		return
	}

	h.issuer.SetCookie(w, token, expiresAt)
	writeJSON(w, http.StatusOK, models.SessionResponse{
		SessionID: sessionID,
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
