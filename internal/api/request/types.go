package request

// StartSessionRequest is the request body for starting a session
type StartSessionRequest struct {
	AccountID string `json:"account_id"`
	Device    string `json:"device,omitempty"`
}

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	Code         string `json:"code"`
	ClockMinutes int    `json:"clock_minutes,omitempty"`
}

// AppendMoveRequest is the request body for recording a move over REST
type AppendMoveRequest struct {
	SAN   string `json:"san"`
	Board string `json:"board"`
}

// FinishMatchRequest is the request body for recording a final result
type FinishMatchRequest struct {
	Winner         string  `json:"winner,omitempty"`
	Reason         string  `json:"reason"`
	WhiteClockLeft float64 `json:"white_clock_left_seconds"`
	BlackClockLeft float64 `json:"black_clock_left_seconds"`
}
