package messaging

const (
	RoomsQueue      = "rooms"
	DeadLetterQueue = "dead_letter_queue"
)

type RoomEventData struct {
	RoomID  string `json:"roomId"`
	Creator string `json:"creator,omitempty"`

	// Member events
	Username string `json:"username,omitempty"`

	// Archival events
	Version      int `json:"version,omitempty"`
	Participants int `json:"participants,omitempty"`
	Messages     int `json:"messages,omitempty"`
	Objects      int `json:"objects,omitempty"`
}
