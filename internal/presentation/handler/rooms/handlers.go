package rooms

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/confabhq/confab/internal/domain"
	"github.com/confabhq/confab/internal/infrastructure/configs"
	"github.com/confabhq/confab/internal/infrastructure/json"
	"github.com/confabhq/confab/internal/infrastructure/ws"
	"github.com/confabhq/confab/internal/presentation/utils"
)

type Handler struct {
	roomRepository domain.RoomRepository
	core           *ws.Core
	upgrader       websocket.Upgrader
	realtime       configs.RealtimeConfig
}

func NewHandler(roomRepository domain.RoomRepository, core *ws.Core, realtime configs.RealtimeConfig) *Handler {
	return &Handler{
		roomRepository: roomRepository,
		core:           core,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is enforced by the CORS middleware in
			// front of this handler.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		realtime: realtime,
	}
}

// CheckRoomHandler reports whether a live room with the id exists and
// whether joining it needs a password. It never reveals anything else
// about the room.
func (h *Handler) CheckRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if err := domain.ValidateRoomID(roomID); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	room, err := h.roomRepository.GetByRoomID(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			json.Write(w, http.StatusOK, checkRoomResponse{Exists: false})
			return
		}
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusOK, checkRoomResponse{
		Exists:           true,
		RequiresPassword: room.RequiresPassword(),
	})
}

// ConnectHandler upgrades to a websocket and hands the connection to the
// realtime core. Room membership is negotiated afterwards over the
// socket itself (create-room, verify-password, join).
func (h *Handler) ConnectHandler(w http.ResponseWriter, r *http.Request) {
	userID := utils.UserID(r)
	if userID == "" {
		userID = utils.EnsureMemberID(w, r)
	}
	username := utils.Username(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	client := ws.NewClient(conn, h.realtime, uuid.NewString(), userID, username)

	h.core.Register() <- client

	go client.WritePump()
	go client.ReadPump(h.core)
}
