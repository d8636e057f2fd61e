package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Session:
		o.printSession(v)
	case Room:
		o.printRoom(v)
	case []Room:
		o.printRooms(v)
	case Match:
		o.printMatch(v)
	case []Match:
		o.printMatches(v)
	case PGNResult:
		fmt.Println(v.PGN)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Session response type (matches API)
type Session struct {
	AccountID  string    `json:"account_id"`
	Token      string    `json:"token"`
	Device     string    `json:"device,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// Room response type
type Room struct {
	Code         string    `json:"code"`
	HostID       string    `json:"host_id"`
	Members      []string  `json:"members"`
	Status       string    `json:"status"`
	ClockMinutes int       `json:"clock_minutes"`
	CreatedAt    time.Time `json:"created_at"`
}

// MatchMove response type
type MatchMove struct {
	SAN      string    `json:"san"`
	Board    string    `json:"board"`
	PlayedBy string    `json:"played_by"`
	At       time.Time `json:"at"`
}

// MatchResult response type
type MatchResult struct {
	Winner         *string `json:"winner"`
	Reason         string  `json:"reason"`
	DurationSec    float64 `json:"duration_seconds"`
	WhiteClockLeft float64 `json:"white_clock_left_seconds"`
	BlackClockLeft float64 `json:"black_clock_left_seconds"`
}

// Match response type
type Match struct {
	ID        string       `json:"id"`
	RoomCode  string       `json:"room_code"`
	White     string       `json:"white"`
	Black     string       `json:"black"`
	Moves     []MatchMove  `json:"moves"`
	Result    *MatchResult `json:"result"`
	CreatedAt time.Time    `json:"created_at"`
}

// PGNResult response type
type PGNResult struct {
	MatchID string `json:"match_id"`
	PGN     string `json:"pgn"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printSession(s Session) {
	fmt.Printf("Account: %s\n", s.AccountID)
	fmt.Printf("Token: %s\n", s.Token)
	if s.Device != "" {
		fmt.Printf("Device: %s\n", s.Device)
	}
	fmt.Printf("Started: %s\n", s.StartedAt.Format(time.RFC3339))
}

func (o *Output) printRoom(r Room) {
	fmt.Printf("Room: %s\n", r.Code)
	fmt.Printf("Status: %s\n", r.Status)
	fmt.Printf("Clock: %d min\n", r.ClockMinutes)
	fmt.Printf("Members (%d):\n", len(r.Members))
	for _, m := range r.Members {
		hostStr := ""
		if m == r.HostID {
			hostStr = " [host]"
		}
		fmt.Printf("  - %s%s\n", m, hostStr)
	}
}

func (o *Output) printRooms(rooms []Room) {
	if len(rooms) == 0 {
		fmt.Println("No rooms")
		return
	}
	for _, r := range rooms {
		fmt.Printf("%s  %s  %d/%d players  %d min\n",
			r.Code, r.Status, len(r.Members), 2, r.ClockMinutes)
	}
}

func (o *Output) printMatch(m Match) {
	fmt.Printf("Match: %s\n", m.ID)
	fmt.Printf("Room: %s\n", m.RoomCode)
	fmt.Printf("White: %s\n", m.White)
	fmt.Printf("Black: %s\n", m.Black)
	fmt.Printf("Moves: %d\n", len(m.Moves))

	if len(m.Moves) > 0 {
		var sans []string
		for _, mv := range m.Moves {
			sans = append(sans, mv.SAN)
		}
		fmt.Printf("  %s\n", strings.Join(sans, " "))
	}

	if m.Result != nil {
		if m.Result.Winner != nil {
			fmt.Printf("Winner: %s (%s)\n", *m.Result.Winner, m.Result.Reason)
		} else {
			fmt.Printf("Draw (%s)\n", m.Result.Reason)
		}
	} else {
		fmt.Println("In progress")
	}
}

func (o *Output) printMatches(matches []Match) {
	if len(matches) == 0 {
		fmt.Println("No matches")
		return
	}
	for _, m := range matches {
		outcome := "in progress"
		if m.Result != nil {
			if m.Result.Winner != nil {
				outcome = fmt.Sprintf("%s wins (%s)", *m.Result.Winner, m.Result.Reason)
			} else {
				outcome = fmt.Sprintf("draw (%s)", m.Result.Reason)
			}
		}
		fmt.Printf("%s  %s vs %s  %d moves  %s\n",
			m.ID, m.White, m.Black, len(m.Moves), outcome)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
