package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

// wire types mirroring the realtime event envelope
type wsEvent struct {
	Type    string          `json:"type"`
	Room    string          `json:"room,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type presencePayload struct {
	AccountID string `json:"account_id"`
}

type movePayload struct {
	AccountID string `json:"account_id"`
	SAN       string `json:"san"`
	Board     string `json:"board"`
}

type gameStartPayload struct {
	MatchID string `json:"match_id"`
	White   string `json:"white"`
	Black   string `json:"black"`
}

type gameOverPayload struct {
	Winner string `json:"winner,omitempty"`
	Reason string `json:"reason"`
}

func newPlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play <code>",
		Short: "Play a game in a room over the realtime connection",
		Long: `Connect to the realtime endpoint, signal ready, and play moves from stdin.

Moves are entered in standard algebraic notation (e.g. e4, Nf3, O-O) and are
validated locally before being sent; the server relays them to the opponent
without checking legality. Type "quit" to leave.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return playRoom(args[0])
		},
	}
}

func playRoom(code string) error {
	if cfg.Token == "" || cfg.AccountID == "" {
		return fmt.Errorf("no saved session; run 'chessroom session start' first")
	}

	sock, err := dialRealtime()
	if err != nil {
		return err
	}
	defer func() { _ = sock.Close() }()

	// Attach to the room and signal ready; the game starts once both
	// players have done so
	if err := sendEvent(sock, "join", code, presencePayload{AccountID: cfg.AccountID}); err != nil {
		return err
	}
	if err := sendEvent(sock, "ready", code, presencePayload{AccountID: cfg.AccountID}); err != nil {
		return err
	}
	fmt.Println("Waiting for opponent...")

	game := nchess.NewGame()
	var myColor nchess.Color

	// Reader goroutine feeds stdin lines; the main loop owns the socket
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	events := make(chan wsEvent)
	errs := make(chan error, 1)
	go func() {
		for {
			var event wsEvent
			if err := sock.ReadJSON(&event); err != nil {
				errs <- err
				return
			}
			events <- event
		}
	}()

	started := false
	for {
		select {
		case err := <-errs:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return fmt.Errorf("connection lost: %w", err)
			}
			return nil

		case event := <-events:
			switch event.Type {
			case "game-start":
				var payload gameStartPayload
				if err := json.Unmarshal(event.Payload, &payload); err != nil {
					continue
				}
				if payload.White == cfg.AccountID {
					myColor = nchess.White
					fmt.Println("Game on! You are white; your move.")
				} else {
					myColor = nchess.Black
					fmt.Println("Game on! You are black; waiting for white.")
				}
				started = true

			case "move":
				var payload movePayload
				if err := json.Unmarshal(event.Payload, &payload); err != nil {
					continue
				}
				if payload.AccountID == cfg.AccountID {
					continue
				}
				if err := game.PushNotationMove(payload.SAN, nchess.AlgebraicNotation{}, nil); err != nil {
					fmt.Printf("Opponent sent an illegal move %q: %v\n", payload.SAN, err)
					continue
				}
				fmt.Printf("Opponent played %s\n", payload.SAN)
				if done := reportOutcome(game); done {
					return nil
				}
				fmt.Print("> ")

			case "game-over":
				var payload gameOverPayload
				if err := json.Unmarshal(event.Payload, &payload); err != nil {
					continue
				}
				if payload.Winner != "" {
					fmt.Printf("Game over: %s wins (%s)\n", payload.Winner, payload.Reason)
				} else {
					fmt.Printf("Game over: draw (%s)\n", payload.Reason)
				}
				return nil

			case "room-deleted":
				fmt.Println("The host closed the room.")
				return nil

			case "join":
				var payload presencePayload
				if err := json.Unmarshal(event.Payload, &payload); err == nil {
					fmt.Printf("%s joined\n", payload.AccountID)
				}

			case "leave":
				var payload presencePayload
				if err := json.Unmarshal(event.Payload, &payload); err == nil {
					fmt.Printf("%s left\n", payload.AccountID)
				}
			}

		case line, ok := <-lines:
			if !ok || line == "quit" {
				_ = sendEvent(sock, "leave", code, presencePayload{AccountID: cfg.AccountID})
				return nil
			}
			if line == "" {
				continue
			}
			if !started {
				fmt.Println("Game has not started yet")
				continue
			}
			if game.Position().Turn() != myColor {
				fmt.Println("Not your turn")
				continue
			}
			if err := game.PushNotationMove(line, nchess.AlgebraicNotation{}, nil); err != nil {
				fmt.Printf("Illegal move %q: %v\n", line, err)
				continue
			}
			if err := sendEvent(sock, "move", code, movePayload{
				AccountID: cfg.AccountID,
				SAN:       line,
				Board:     game.FEN(),
			}); err != nil {
				return err
			}
			if done := reportOutcome(game); done {
				return nil
			}
		}
	}
}

// reportOutcome prints the local engine's view of the game end, if reached
func reportOutcome(game *nchess.Game) bool {
	switch game.Outcome() {
	case nchess.WhiteWon:
		fmt.Println("Checkmate, white wins")
	case nchess.BlackWon:
		fmt.Println("Checkmate, black wins")
	case nchess.Draw:
		fmt.Println("Drawn position")
	default:
		return false
	}
	return true
}

// dialRealtime opens the websocket connection with the saved credentials
func dialRealtime() (*websocket.Conn, error) {
	u, err := url.Parse(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/api/v1/ws"

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.Token)
	header.Set("X-Account-ID", cfg.AccountID)

	sock, resp, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial failed: %w (HTTP %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	return sock, nil
}

func sendEvent(sock *websocket.Conn, eventType, room string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return sock.WriteJSON(wsEvent{Type: eventType, Room: room, Payload: raw})
}
