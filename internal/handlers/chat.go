package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"chatrouter-backend/internal/middleware"
	"chatrouter-backend/internal/models"
)

type chatService interface {
	Chat(ctx context.Context, sessionID string, req models.ChatRequest) (string, error)
	Reset(ctx context.Context, sessionID string) error
}

type ChatHandler struct {
	chatService chatService
}

func NewChatHandler(chatService chatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	// an empty body is an empty message, not a malformed one
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResp(msgInvalidBody))
		return
	}

	reply, err := h.chatService.Chat(r.Context(), middleware.GetSessionID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{Reply: reply})
}

func (h *ChatHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.chatService.Reset(r.Context(), middleware.GetSessionID(r.Context())); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Conversation reset."})
}
