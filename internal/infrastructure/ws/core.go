package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/confabhq/confab/internal/domain"
	"github.com/confabhq/confab/internal/infrastructure/events"
	"github.com/confabhq/confab/internal/infrastructure/metrics"
)

// Archiver moves an emptied room's ephemeral state into durable history
// and deletes the live records on success. The participant list comes
// from presence, which only the hub loop may touch.
type Archiver interface {
	Archive(ctx context.Context, roomID string, participants []string) error
}

type inboundEvent struct {
	client *Client
	frame  Frame
}

// Core is the realtime hub. A single goroutine (Run) consumes the
// register, unregister and inbound channels, so per-room state is only
// ever touched by one event at a time and every event is fully handled
// before the next one starts.
type Core struct {
	presence *Presence

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundEvent

	// Live connections by connection id, and the per-room index used
	// for fanout.
	clients     map[string]*Client
	roomClients map[string]map[string]*Client

	rooms      domain.RoomRepository
	messages   domain.MessageRepository
	whiteboard domain.WhiteboardRepository
	archiver   Archiver
	publisher  events.Publisher

	metrics *metrics.Metrics
	logger  *zap.SugaredLogger
}

func NewCore(
	rooms domain.RoomRepository,
	messages domain.MessageRepository,
	whiteboard domain.WhiteboardRepository,
	archiver Archiver,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *zap.SugaredLogger,
) *Core {
	return &Core{
		presence:    NewPresence(),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		inbound:     make(chan inboundEvent, 256),
		clients:     make(map[string]*Client),
		roomClients: make(map[string]map[string]*Client),
		rooms:       rooms,
		messages:    messages,
		whiteboard:  whiteboard,
		archiver:    archiver,
		publisher:   publisher,
		metrics:     m,
		logger:      logger,
	}
}

func (c *Core) Register() chan<- *Client   { return c.register }
func (c *Core) Unregister() chan<- *Client { return c.unregister }
func (c *Core) Inbound() chan<- inboundEvent {
	return c.inbound
}

// Run is the hub loop. It exits when ctx is cancelled.
func (c *Core) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case cl := <-c.register:
			c.handleRegister(cl)

		case cl := <-c.unregister:
			c.safely(func() { c.handleDisconnect(ctx, cl) })

		case ev := <-c.inbound:
			c.safely(func() { c.dispatch(ctx, ev.client, ev.frame) })
		}
	}
}

// safely keeps a panic in one event's handling from killing the loop.
func (c *Core) safely(handle func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorw("recovered panic in event handler", "panic", r)
		}
	}()
	handle()
}

func (c *Core) handleRegister(cl *Client) {
	c.clients[cl.ID] = cl
	c.metrics.ActiveConnections.Inc()

	// The client needs to know its own connection id before it can
	// address signaling messages.
	c.send(cl, NewWelcome(cl.ID))
}

func (c *Core) dispatch(ctx context.Context, cl *Client, frame Frame) {
	c.metrics.EventsReceived.WithLabelValues(frame.Type).Inc()

	switch frame.Type {
	case CreateRoom:
		c.handleCreateRoom(ctx, cl, frame)
	case VerifyPassword:
		c.handleVerifyPassword(ctx, cl, frame)
	case Join:
		c.handleJoin(ctx, cl, frame)
	case Leave:
		c.handleLeave(ctx, cl, frame)
	case Signal:
		c.handleSignal(cl, frame)
	case ChatMessage:
		c.handleChat(ctx, cl, frame)
	case WhiteboardAdd:
		c.handleBoardAdd(ctx, cl, frame)
	case WhiteboardUpdate:
		c.handleBoardUpdate(ctx, cl, frame)
	case WhiteboardRemove:
		c.handleBoardRemove(ctx, cl, frame)
	case WhiteboardSync:
		c.handleBoardSync(ctx, cl, frame)
	case ScreenShareStarted:
		c.handleScreenShare(cl, true)
	case ScreenShareStopped:
		c.handleScreenShare(cl, false)
	default:
		c.send(cl, NewError(fmt.Sprintf("unknown event type %q", frame.Type)))
	}
}

func (c *Core) handleCreateRoom(ctx context.Context, cl *Client, frame Frame) {
	var req CreateRoomRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		c.send(cl, NewNack(CreateRoom, frame.Ref, "malformed create-room payload"))
		return
	}

	room, err := domain.NewRoom(req.RoomID, req.Password, cl.UserID)
	if err != nil {
		c.send(cl, NewNack(CreateRoom, frame.Ref, err.Error()))
		return
	}

	if err := c.rooms.Create(ctx, room); err != nil {
		if errors.Is(err, domain.ErrRoomAlreadyExists) {
			c.send(cl, NewNack(CreateRoom, frame.Ref, "room already exists"))
			return
		}
		c.logger.Errorw("failed to create room", "roomId", req.RoomID, "error", err)
		c.send(cl, NewNack(CreateRoom, frame.Ref, "internal server error"))
		return
	}

	if err := c.publisher.PublishRoomCreated(ctx, *room); err != nil {
		c.logger.Warnw("failed to publish room created", "roomId", room.RoomID, "error", err)
	}

	c.send(cl, NewAck(CreateRoom, frame.Ref))
}

func (c *Core) handleVerifyPassword(ctx context.Context, cl *Client, frame Frame) {
	var req VerifyPasswordRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		c.send(cl, NewNack(VerifyPassword, frame.Ref, "malformed verify-password payload"))
		return
	}

	room, err := c.rooms.GetByRoomID(ctx, req.RoomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			c.send(cl, NewNack(VerifyPassword, frame.Ref, "room not found"))
			return
		}
		c.logger.Errorw("failed to load room", "roomId", req.RoomID, "error", err)
		c.send(cl, NewNack(VerifyPassword, frame.Ref, "internal server error"))
		return
	}

	if err := room.VerifyPassword(req.Password); err != nil {
		c.send(cl, NewNack(VerifyPassword, frame.Ref, "invalid password"))
		return
	}

	c.send(cl, NewAck(VerifyPassword, frame.Ref))
}

func (c *Core) handleJoin(ctx context.Context, cl *Client, frame Frame) {
	var req JoinRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		c.send(cl, NewError("malformed join payload"))
		return
	}

	if _, err := c.rooms.GetByRoomID(ctx, req.RoomID); err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			c.send(cl, NewError("room not found"))
			return
		}
		c.logger.Errorw("failed to load room", "roomId", req.RoomID, "error", err)
		c.send(cl, NewError("internal server error"))
		return
	}

	// A repeat join for the room the client is already in would announce
	// the same peer twice and replay history it has already seen.
	if cl.RoomID == req.RoomID {
		return
	}
	if cl.RoomID != "" {
		c.removeFromRoom(ctx, cl)
	}

	cl.RoomID = req.RoomID
	if req.Username != "" {
		cl.Username = req.Username
	}

	prior := c.presence.Join(req.RoomID, cl.ID, cl.Username)
	if c.roomClients[req.RoomID] == nil {
		c.roomClients[req.RoomID] = make(map[string]*Client)
	}
	c.roomClients[req.RoomID][cl.ID] = cl
	c.metrics.ActiveRooms.Set(float64(c.presence.RoomCount()))

	// Everybody gets the new roster, the joiner learns who was already
	// there, and the rest are told to open a channel to the newcomer.
	c.broadcast(req.RoomID, NewMembersUpdated(memberPayloads(c.presence.Roster(req.RoomID))), "")
	c.send(cl, NewExistingUsers(memberPayloads(prior)))
	c.broadcast(req.RoomID, NewNewPeer(cl.ID, cl.Username), cl.ID)

	// Snapshot before any incremental event can reach the joiner.
	objects, err := c.whiteboard.GetByRoomID(ctx, req.RoomID)
	if err != nil {
		c.logger.Errorw("failed to load whiteboard", "roomId", req.RoomID, "error", err)
		c.send(cl, NewError("failed to load whiteboard"))
	} else {
		c.send(cl, NewWhiteboardInit(shapes(objects)))
	}

	history, err := c.messages.GetByRoomID(ctx, req.RoomID)
	if err != nil {
		c.logger.Errorw("failed to load chat history", "roomId", req.RoomID, "error", err)
		c.send(cl, NewError("failed to load chat history"))
	} else {
		for _, msg := range history {
			c.send(cl, NewChatMessage(msg.SenderName, msg.Body, msg.SentAt.UnixMilli()))
		}
	}

	c.send(cl, NewScreenShareStatus(memberPayloads(c.presence.ScreenSharers(req.RoomID))))

	if err := c.publisher.PublishMemberJoined(ctx, req.RoomID, cl.Username); err != nil {
		c.logger.Warnw("failed to publish member joined", "roomId", req.RoomID, "error", err)
	}
}

func (c *Core) handleLeave(ctx context.Context, cl *Client, frame Frame) {
	if cl.RoomID == "" {
		return
	}
	c.removeFromRoom(ctx, cl)
}

func (c *Core) handleDisconnect(ctx context.Context, cl *Client) {
	if existing, ok := c.clients[cl.ID]; !ok || existing != cl {
		return
	}

	delete(c.clients, cl.ID)
	c.metrics.ActiveConnections.Dec()

	if cl.RoomID != "" {
		c.removeFromRoom(ctx, cl)
	}

	close(cl.Send)
}

// removeFromRoom is the single leave path shared by the leave event,
// room switches and disconnects. When the last member goes, the room's
// accumulated state is archived and the live records destroyed.
func (c *Core) removeFromRoom(ctx context.Context, cl *Client) {
	roomID := cl.RoomID
	cl.RoomID = ""

	removed, empty := c.presence.Leave(roomID, cl.ID)
	if !removed {
		return
	}

	delete(c.roomClients[roomID], cl.ID)

	c.broadcast(roomID, NewPeerDisconnected(cl.ID), cl.ID)
	c.broadcast(roomID, NewMembersUpdated(memberPayloads(c.presence.Roster(roomID))), cl.ID)

	if err := c.publisher.PublishMemberLeft(ctx, roomID, cl.Username); err != nil {
		c.logger.Warnw("failed to publish member left", "roomId", roomID, "error", err)
	}

	if empty {
		delete(c.roomClients, roomID)
		participants := c.presence.ConsumeParticipants(roomID)
		c.metrics.ActiveRooms.Set(float64(c.presence.RoomCount()))

		if err := c.archiver.Archive(ctx, roomID, participants); err != nil {
			c.logger.Errorw("failed to archive room", "roomId", roomID, "error", err)
			return
		}
		c.metrics.RoomsArchived.Inc()
	}
}

func (c *Core) handleSignal(cl *Client, frame Frame) {
	var req SignalRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		c.send(cl, NewError("malformed signal payload"))
		return
	}

	target, ok := c.clients[req.To]
	if !ok {
		c.metrics.EventsDropped.WithLabelValues("unknown_peer").Inc()
		return
	}

	// The sender cannot speak for another connection.
	c.send(target, NewSignal(cl.ID, req.Signal))
}

func (c *Core) handleChat(ctx context.Context, cl *Client, frame Frame) {
	var req ChatRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		c.send(cl, NewError("malformed chat payload"))
		return
	}
	if cl.RoomID == "" || req.Room != cl.RoomID {
		return
	}

	msg := domain.NewChatMessage(req.Room, cl.UserID, cl.Username, req.Message)
	if err := c.messages.Insert(ctx, msg); err != nil {
		c.logger.Errorw("failed to persist chat message", "roomId", req.Room, "error", err)
		c.send(cl, NewError("failed to persist message"))
	}

	// The sender receives the same stamped payload as everyone else, so
	// all clients render an identical transcript.
	c.broadcast(req.Room, NewChatMessage(cl.Username, req.Message, msg.SentAt.UnixMilli()), "")
}

func (c *Core) handleBoardAdd(ctx context.Context, cl *Client, frame Frame) {
	var req BoardObjectRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		c.send(cl, NewError("malformed whiteboard payload"))
		return
	}
	if cl.RoomID == "" || req.Room != cl.RoomID {
		return
	}

	obj, err := domain.NewBoardObject(req.Room, cl.UserID, req.Object)
	if err != nil {
		c.send(cl, NewError("whiteboard object is missing an id"))
		return
	}

	if err := c.whiteboard.Insert(ctx, obj); err != nil {
		c.logger.Errorw("failed to persist whiteboard object", "roomId", req.Room, "error", err)
		c.send(cl, NewError("failed to persist whiteboard object"))
		return
	}

	c.broadcast(req.Room, NewWhiteboardAdd(req.Object), cl.ID)
}

func (c *Core) handleBoardUpdate(ctx context.Context, cl *Client, frame Frame) {
	var req BoardObjectRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		c.send(cl, NewError("malformed whiteboard payload"))
		return
	}
	if cl.RoomID == "" || req.Room != cl.RoomID {
		return
	}

	objectID, err := domain.ShapeObjectID(req.Object)
	if err != nil || objectID == "" {
		c.send(cl, NewError("whiteboard object is missing an id"))
		return
	}

	updated, err := c.whiteboard.UpdateOwned(ctx, req.Room, objectID, cl.UserID, req.Object)
	if err != nil {
		c.logger.Errorw("failed to update whiteboard object", "roomId", req.Room, "objectId", objectID, "error", err)
		c.send(cl, NewError("failed to update whiteboard object"))
		return
	}
	if !updated {
		// Not the owner, or the object is gone. Either way the edit is
		// not relayed so every client keeps the same view.
		c.metrics.EventsDropped.WithLabelValues("not_owner").Inc()
		return
	}

	c.broadcast(req.Room, NewWhiteboardUpdate(req.Object), cl.ID)
}

func (c *Core) handleBoardRemove(ctx context.Context, cl *Client, frame Frame) {
	var req BoardRemoveRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		c.send(cl, NewError("malformed whiteboard payload"))
		return
	}
	if cl.RoomID == "" || req.Room != cl.RoomID {
		return
	}

	removed, err := c.whiteboard.RemoveOwned(ctx, req.Room, req.ObjectID, cl.UserID)
	if err != nil {
		c.logger.Errorw("failed to remove whiteboard object", "roomId", req.Room, "objectId", req.ObjectID, "error", err)
		c.send(cl, NewError("failed to remove whiteboard object"))
		return
	}
	if !removed {
		c.metrics.EventsDropped.WithLabelValues("not_owner").Inc()
		return
	}

	c.broadcast(req.Room, NewWhiteboardRemove(req.ObjectID), cl.ID)
}

func (c *Core) handleBoardSync(ctx context.Context, cl *Client, frame Frame) {
	var req BoardSyncRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		c.send(cl, NewError("malformed whiteboard payload"))
		return
	}
	if cl.RoomID == "" || req.Room != cl.RoomID {
		return
	}

	if err := c.whiteboard.ReplaceOwned(ctx, req.Room, cl.UserID, req.Objects); err != nil {
		c.logger.Errorw("failed to sync whiteboard", "roomId", req.Room, "error", err)
		c.send(cl, NewError("failed to sync whiteboard"))
		return
	}

	c.broadcast(req.Room, NewWhiteboardSync(req.Room, cl.UserID, req.Objects), cl.ID)
}

func (c *Core) handleScreenShare(cl *Client, started bool) {
	if cl.RoomID == "" {
		return
	}

	c.presence.SetScreenSharing(cl.RoomID, cl.ID, started)

	if started {
		c.broadcast(cl.RoomID, NewScreenShareStarted(cl.ID, cl.Username), cl.ID)
	} else {
		c.broadcast(cl.RoomID, NewScreenShareStopped(cl.ID), cl.ID)
	}
}

// send queues an envelope for one client. A client whose buffer is full
// loses the event rather than stalling the loop for everyone else.
func (c *Core) send(cl *Client, env *Envelope) {
	select {
	case cl.Send <- env:
		c.metrics.EventsRelayed.WithLabelValues(env.Type).Inc()
	default:
		c.metrics.EventsDropped.WithLabelValues("slow_client").Inc()
		c.logger.Warnw("dropping event for slow client", "clientId", cl.ID, "type", env.Type)
	}
}

// broadcast fans an envelope out to every member of the room except
// exceptID (empty means everyone).
func (c *Core) broadcast(roomID string, env *Envelope, exceptID string) {
	for _, m := range c.presence.Roster(roomID) {
		if m.PeerID == exceptID {
			continue
		}
		if cl, ok := c.roomClients[roomID][m.PeerID]; ok {
			c.send(cl, env)
		}
	}
}

func memberPayloads(members []Member) []MemberPayload {
	out := make([]MemberPayload, len(members))
	for i, m := range members {
		out[i] = MemberPayload{PeerID: m.PeerID, Username: m.Username}
	}
	return out
}

func shapes(objects []domain.BoardObject) []json.RawMessage {
	out := make([]json.RawMessage, len(objects))
	for i, obj := range objects {
		out[i] = obj.Shape
	}
	return out
}
