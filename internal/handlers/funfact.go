package handlers

import (
	"context"
	"net/http"

	"chatrouter-backend/internal/models"
)

type factService interface {
	Fact(ctx context.Context) (string, error)
}

type FunFactHandler struct {
	factService factService
}

func NewFunFactHandler(factService factService) *FunFactHandler {
	return &FunFactHandler{factService: factService}
}

func (h *FunFactHandler) Generate(w http.ResponseWriter, r *http.Request) {
	fact, err := h.factService.Fact(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.FunFactResponse{Fact: "Error generating fact."})
		return
	}

	writeJSON(w, http.StatusOK, models.FunFactResponse{Fact: fact})
}
