package rooms

type checkRoomResponse struct {
	Exists           bool `json:"exists"`
	RequiresPassword bool `json:"requiresPassword"`
}
