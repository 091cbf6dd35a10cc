package users

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/confabhq/confab/internal/domain"
	"github.com/confabhq/confab/internal/infrastructure/json"
)

type Handler struct {
	userRepository domain.UserRepository
}

func NewHandler(userRepository domain.UserRepository) *Handler {
	return &Handler{userRepository: userRepository}
}

// GetUserHandler resolves a user id to its display name.
func (h *Handler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		json.WriteBadRequestError(w, "user id is missing")
		return
	}

	user, err := h.userRepository.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			json.WriteError(w, http.StatusNotFound, nil, "user not found")
			return
		}
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusOK, userResponse{Username: user.Username})
}

type userResponse struct {
	Username string `json:"username"`
}
