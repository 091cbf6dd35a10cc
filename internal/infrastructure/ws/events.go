package ws

// Wire event names. These are the protocol surface clients program
// against, so renaming any of them is a breaking change.
const (
	Welcome = "welcome"

	CreateRoom     = "create-room"
	VerifyPassword = "verify-password"
	Join           = "join"
	Leave          = "leave"

	MembersUpdated = "members-updated"
	ExistingUsers  = "existing-users"
	NewPeer        = "new-peer"
	PeerDisconnect = "peer-disconnect"

	Signal = "signal"

	ChatMessage = "chat message"

	WhiteboardInit   = "whiteboard:init"
	WhiteboardAdd    = "whiteboard:add"
	WhiteboardUpdate = "whiteboard:update"
	WhiteboardRemove = "whiteboard:remove"
	WhiteboardSync   = "whiteboard:sync"

	ScreenShareStarted = "screen-sharing-started"
	ScreenShareStopped = "screen-sharing-stopped"
	ScreenShareStatus  = "screen-sharing-status"

	ErrorEvent = "error"
)
