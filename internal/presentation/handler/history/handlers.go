package history

import (
	"errors"
	"net/http"

	"github.com/confabhq/confab/internal/domain"
	"github.com/confabhq/confab/internal/infrastructure/json"
	"github.com/confabhq/confab/internal/presentation/utils"
)

type Handler struct {
	historyRepository domain.HistoryRepository
	userRepository    domain.UserRepository
}

func NewHandler(historyRepository domain.HistoryRepository, userRepository domain.UserRepository) *Handler {
	return &Handler{
		historyRepository: historyRepository,
		userRepository:    userRepository,
	}
}

// GetHistoryHandler lists archived meetings the caller took part in,
// either as the creator or under their display name, newest first.
func (h *Handler) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID := utils.UserID(r)
	if userID == "" {
		json.WriteError(w, http.StatusUnauthorized, nil, "identity required")
		return
	}

	username := utils.Username(r)
	if username == "" {
		user, err := h.userRepository.GetByID(r.Context(), userID)
		if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
			json.WriteInternalError(w, err)
			return
		}
		if user != nil {
			username = user.Username
		}
	}

	records, err := h.historyRepository.GetByIdentity(r.Context(), userID, username)
	if err != nil {
		json.WriteInternalError(w, err)
		return
	}
	if records == nil {
		records = []domain.HistoricalMeeting{}
	}

	json.Write(w, http.StatusOK, records)
}
