package ws

import "encoding/json"

// Envelope is the outbound frame. Ref echoes the client-supplied
// correlation id on request/reply events (create-room, verify-password).
type Envelope struct {
	Type string `json:"type"`
	Ref  string `json:"ref,omitempty"`
	Data any    `json:"data,omitempty"`
}

// Frame is the inbound counterpart; Data stays raw until the event
// handler knows which payload to decode.
type Frame struct {
	Type string          `json:"type"`
	Ref  string          `json:"ref,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound payloads

type CreateRoomRequest struct {
	RoomID   string `json:"roomId"`
	Password string `json:"password"`
}

type VerifyPasswordRequest struct {
	RoomID   string `json:"roomId"`
	Password string `json:"password"`
}

type JoinRequest struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type LeaveRequest struct {
	RoomID string `json:"roomId"`
}

type SignalRequest struct {
	To     string          `json:"to"`
	From   string          `json:"from"`
	Signal json.RawMessage `json:"signal"`
}

type ChatRequest struct {
	Room    string `json:"room"`
	Message string `json:"message"`
}

type BoardObjectRequest struct {
	Room   string          `json:"room"`
	Object json.RawMessage `json:"object"`
}

type BoardRemoveRequest struct {
	Room     string `json:"room"`
	ObjectID string `json:"objectId"`
}

type BoardSyncRequest struct {
	Room    string            `json:"room"`
	Objects []json.RawMessage `json:"objects"`
}

// Outbound payloads

type WelcomePayload struct {
	ConnectionID string `json:"connectionId"`
}

type AckPayload struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type MemberPayload struct {
	PeerID   string `json:"peerId"`
	Username string `json:"username"`
}

type SignalPayload struct {
	From   string          `json:"from"`
	Signal json.RawMessage `json:"signal"`
}

type ChatPayload struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
	Time    int64  `json:"time"`
}

type BoardSyncPayload struct {
	Room    string            `json:"room"`
	UserID  string            `json:"userId"`
	Objects []json.RawMessage `json:"objects"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func NewWelcome(connectionID string) *Envelope {
	return &Envelope{
		Type: Welcome,
		Data: WelcomePayload{ConnectionID: connectionID},
	}
}

func NewAck(eventType, ref string) *Envelope {
	return &Envelope{
		Type: eventType,
		Ref:  ref,
		Data: AckPayload{Success: true},
	}
}

func NewNack(eventType, ref, message string) *Envelope {
	return &Envelope{
		Type: eventType,
		Ref:  ref,
		Data: AckPayload{Success: false, Message: message},
	}
}

func NewMembersUpdated(members []MemberPayload) *Envelope {
	return &Envelope{Type: MembersUpdated, Data: members}
}

func NewExistingUsers(members []MemberPayload) *Envelope {
	return &Envelope{Type: ExistingUsers, Data: members}
}

func NewNewPeer(peerID, username string) *Envelope {
	return &Envelope{
		Type: NewPeer,
		Data: MemberPayload{PeerID: peerID, Username: username},
	}
}

func NewPeerDisconnected(peerID string) *Envelope {
	return &Envelope{Type: PeerDisconnect, Data: peerID}
}

func NewSignal(from string, signal json.RawMessage) *Envelope {
	return &Envelope{
		Type: Signal,
		Data: SignalPayload{From: from, Signal: signal},
	}
}

func NewChatMessage(sender, message string, unixMillis int64) *Envelope {
	return &Envelope{
		Type: ChatMessage,
		Data: ChatPayload{Sender: sender, Message: message, Time: unixMillis},
	}
}

func NewWhiteboardInit(objects []json.RawMessage) *Envelope {
	if objects == nil {
		objects = []json.RawMessage{}
	}
	return &Envelope{Type: WhiteboardInit, Data: objects}
}

func NewWhiteboardAdd(object json.RawMessage) *Envelope {
	return &Envelope{Type: WhiteboardAdd, Data: object}
}

func NewWhiteboardUpdate(object json.RawMessage) *Envelope {
	return &Envelope{Type: WhiteboardUpdate, Data: object}
}

func NewWhiteboardRemove(objectID string) *Envelope {
	return &Envelope{Type: WhiteboardRemove, Data: objectID}
}

func NewWhiteboardSync(room, userID string, objects []json.RawMessage) *Envelope {
	if objects == nil {
		objects = []json.RawMessage{}
	}
	return &Envelope{
		Type: WhiteboardSync,
		Data: BoardSyncPayload{Room: room, UserID: userID, Objects: objects},
	}
}

func NewScreenShareStarted(peerID, username string) *Envelope {
	return &Envelope{
		Type: ScreenShareStarted,
		Data: MemberPayload{PeerID: peerID, Username: username},
	}
}

func NewScreenShareStopped(peerID string) *Envelope {
	return &Envelope{Type: ScreenShareStopped, Data: peerID}
}

func NewScreenShareStatus(sharers []MemberPayload) *Envelope {
	if sharers == nil {
		sharers = []MemberPayload{}
	}
	return &Envelope{Type: ScreenShareStatus, Data: sharers}
}

func NewError(message string) *Envelope {
	return &Envelope{
		Type: ErrorEvent,
		Data: ErrorPayload{Message: message},
	}
}
