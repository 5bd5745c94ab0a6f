package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/eventcal/internal/application"
)

type accountService interface {
	Register(ctx context.Context, params application.RegisterParams) (application.Person, error)
}

type AccountHandler struct {
	service   accountService
	responder responder
}

func NewAccountHandler(service accountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{service: service, responder: newResponder(logger)}
}

// Create registers a new account. This endpoint is unauthenticated.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	person, err := h.service.Register(r.Context(), application.RegisterParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, personResponse{Person: toPersonDTO(person)})
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type personResponse struct {
	Person personDTO `json:"person"`
}

type personDTO struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

func toPersonDTO(person application.Person) personDTO {
	return personDTO{
		ID:        person.ID,
		Email:     person.Email,
		CreatedAt: person.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
