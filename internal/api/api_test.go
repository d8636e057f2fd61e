package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/chessroom/chessroom/internal/factory"
	"github.com/chessroom/chessroom/internal/testutil"
)

type APISuite struct {
	suite.Suite
	app    *factory.TestApp
	server *httptest.Server
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	s.app = factory.NewTestApp()
	router := NewRouter(RouterConfig{
		Logger:    testutil.NopLogger(),
		Authority: s.app.Authority,
		Registry:  s.app.Registry,
		Recorder:  s.app.Recorder,
		Hub:       s.app.Hub,
		Relay:     s.app.Relay,
	})
	s.server = httptest.NewServer(router)
}

func (s *APISuite) TearDownTest() {
	s.server.Close()
}

type testCredentials struct {
	Account string
	Token   string
}

type errorEnvelope struct {
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func (s *APISuite) do(method, path string, creds *testCredentials, body any, out any) *http.Response {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.server.URL+"/api/v1"+path, reader)
	s.Require().NoError(err)
	if creds != nil {
		req.Header.Set("X-Account-ID", creds.Account)
		req.Header.Set("Authorization", "Bearer "+creds.Token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	if out != nil {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

// login starts a session and returns ready-to-use credentials
func (s *APISuite) login(account, device string) *testCredentials {
	var sess struct {
		AccountID string `json:"account_id"`
		Token     string `json:"token"`
	}
	resp := s.do(http.MethodPost, "/sessions", nil, map[string]string{
		"account_id": account,
		"device":     device,
	}, &sess)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.Require().NotEmpty(sess.Token)
	return &testCredentials{Account: account, Token: sess.Token}
}

// fullRoom creates a room as alice, joins as bob, and returns both credentials
func (s *APISuite) fullRoom(code string) (alice, bob *testCredentials) {
	alice = s.login("alice", "laptop")
	bob = s.login("bob", "phone")
	s.app.MockRandom.QueueIntn(0) // alice plays white

	resp := s.do(http.MethodPost, "/rooms", alice, map[string]any{"code": code, "clock_minutes": 5}, nil)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	resp = s.do(http.MethodPost, "/rooms/"+code+"/join", bob, nil, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	return alice, bob
}

// Health and auth plumbing

func (s *APISuite) TestHealth() {
	resp := s.do(http.MethodGet, "/health", nil, nil, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *APISuite) TestAuthRequired() {
	var envelope errorEnvelope
	resp := s.do(http.MethodGet, "/rooms", nil, nil, &envelope)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("UNAUTHORIZED", envelope.Error.Code)
}

// Session tests

func (s *APISuite) TestSessionStartAndHeartbeat() {
	creds := s.login("alice", "laptop")

	var sess struct {
		AccountID string `json:"account_id"`
		Device    string `json:"device"`
	}
	resp := s.do(http.MethodPost, "/sessions/heartbeat", creds, nil, &sess)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("alice", sess.AccountID)
	s.Equal("laptop", sess.Device)
}

func (s *APISuite) TestSessionSupersededReportsDevice() {
	old := s.login("alice", "laptop")
	_ = s.login("alice", "phone")

	var envelope errorEnvelope
	resp := s.do(http.MethodPost, "/sessions/heartbeat", old, nil, &envelope)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("SESSION_SUPERSEDED", envelope.Error.Code)

	var details struct {
		Device    string `json:"device"`
		StartedAt string `json:"started_at"`
	}
	s.Require().NoError(json.Unmarshal(envelope.Error.Details, &details))
	s.Equal("phone", details.Device)
	s.NotEmpty(details.StartedAt)
}

func (s *APISuite) TestSessionEnd() {
	creds := s.login("alice", "laptop")

	resp := s.do(http.MethodDelete, "/sessions", creds, nil, nil)
	s.Equal(http.StatusNoContent, resp.StatusCode)

	resp = s.do(http.MethodPost, "/sessions/heartbeat", creds, nil, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *APISuite) TestSessionEndStaleTokenIsNoOp() {
	old := s.login("alice", "laptop")
	live := s.login("alice", "phone")

	// Logging out from the replaced client succeeds without touching the
	// live session.
	resp := s.do(http.MethodDelete, "/sessions", old, nil, nil)
	s.Equal(http.StatusNoContent, resp.StatusCode)

	resp = s.do(http.MethodPost, "/sessions/heartbeat", live, nil, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
}

// Room tests

func (s *APISuite) TestRoomLifecycle() {
	alice := s.login("alice", "laptop")

	var created struct {
		Code         string   `json:"code"`
		HostID       string   `json:"host_id"`
		Members      []string `json:"members"`
		Status       string   `json:"status"`
		ClockMinutes int      `json:"clock_minutes"`
	}
	resp := s.do(http.MethodPost, "/rooms", alice, map[string]any{"code": "LUNCH", "clock_minutes": 10}, &created)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.Equal("LUNCH", created.Code)
	s.Equal("alice", created.HostID)
	s.Equal([]string{"alice"}, created.Members)
	s.Equal("waiting", created.Status)
	s.Equal(10, created.ClockMinutes)

	var listed []json.RawMessage
	resp = s.do(http.MethodGet, "/rooms", alice, nil, &listed)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Len(listed, 1)

	resp = s.do(http.MethodDelete, "/rooms/LUNCH", alice, nil, nil)
	s.Equal(http.StatusNoContent, resp.StatusCode)

	resp = s.do(http.MethodGet, "/rooms/LUNCH", alice, nil, nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *APISuite) TestRoomDuplicateCode() {
	alice := s.login("alice", "laptop")
	bob := s.login("bob", "phone")

	resp := s.do(http.MethodPost, "/rooms", alice, map[string]any{"code": "LUNCH"}, nil)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var envelope errorEnvelope
	resp = s.do(http.MethodPost, "/rooms", bob, map[string]any{"code": "LUNCH"}, &envelope)
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Equal("ROOM_EXISTS", envelope.Error.Code)
}

func (s *APISuite) TestRoomJoinFull() {
	s.fullRoom("LUNCH")
	carol := s.login("carol", "tablet")

	var envelope errorEnvelope
	resp := s.do(http.MethodPost, "/rooms/LUNCH/join", carol, nil, &envelope)
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Equal("ROOM_FULL", envelope.Error.Code)
}

func (s *APISuite) TestRoomDeleteNotHost() {
	alice, bob := s.fullRoom("LUNCH")
	_ = alice

	var envelope errorEnvelope
	resp := s.do(http.MethodDelete, "/rooms/LUNCH", bob, nil, &envelope)
	s.Equal(http.StatusForbidden, resp.StatusCode)
	s.Equal("NOT_HOST", envelope.Error.Code)
}

// Match tests

func (s *APISuite) TestMatchCreatedOnRoomFull() {
	alice, _ := s.fullRoom("LUNCH")

	var m struct {
		ID    string `json:"id"`
		White string `json:"white"`
		Black string `json:"black"`
	}
	resp := s.do(http.MethodGet, "/rooms/LUNCH/match", alice, nil, &m)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.NotEmpty(m.ID)
	s.Equal("alice", m.White)
	s.Equal("bob", m.Black)
}

func (s *APISuite) TestMatchMoveAndFinishFlow() {
	alice, bob := s.fullRoom("LUNCH")

	resp := s.do(http.MethodPost, "/rooms/LUNCH/match/moves", alice,
		map[string]string{"san": "e4", "board": "fen-after-e4"}, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	resp = s.do(http.MethodPost, "/rooms/LUNCH/match/moves", bob,
		map[string]string{"san": "e5", "board": "fen-after-e5"}, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var m struct {
		ID    string `json:"id"`
		Moves []struct {
			SAN      string `json:"san"`
			PlayedBy string `json:"played_by"`
		} `json:"moves"`
	}
	resp = s.do(http.MethodGet, "/rooms/LUNCH/match", alice, nil, &m)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().Len(m.Moves, 2)
	s.Equal("e4", m.Moves[0].SAN)
	s.Equal("bob", m.Moves[1].PlayedBy)

	var finished struct {
		Result *struct {
			Winner *string `json:"winner"`
			Reason string  `json:"reason"`
		} `json:"result"`
	}
	resp = s.do(http.MethodPost, fmt.Sprintf("/matches/%s/result", m.ID), bob,
		map[string]any{"winner": "white", "reason": "resignation", "white_clock_left_seconds": 120.0, "black_clock_left_seconds": 95.5}, &finished)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().NotNil(finished.Result)
	s.Require().NotNil(finished.Result.Winner)
	s.Equal("white", *finished.Result.Winner)
	s.Equal("resignation", finished.Result.Reason)

	// The room is history now.
	var rm struct {
		Status string `json:"status"`
	}
	resp = s.do(http.MethodGet, "/rooms/LUNCH", alice, nil, &rm)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("finished", rm.Status)

	// A second result is rejected.
	var envelope errorEnvelope
	resp = s.do(http.MethodPost, fmt.Sprintf("/matches/%s/result", m.ID), alice,
		map[string]any{"winner": "black", "reason": "timeout"}, &envelope)
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Equal("MATCH_FINISHED", envelope.Error.Code)
}

func (s *APISuite) TestMatchFinishRejectsNonParticipant() {
	alice, _ := s.fullRoom("LUNCH")
	carol := s.login("carol", "tablet")

	var m struct {
		ID string `json:"id"`
	}
	resp := s.do(http.MethodGet, "/rooms/LUNCH/match", alice, nil, &m)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var envelope errorEnvelope
	resp = s.do(http.MethodPost, fmt.Sprintf("/matches/%s/result", m.ID), carol,
		map[string]any{"winner": "white", "reason": "resignation"}, &envelope)
	s.Equal(http.StatusForbidden, resp.StatusCode)
	s.Equal("NOT_PARTICIPANT", envelope.Error.Code)
}

func (s *APISuite) TestMatchFinishRejectsUnknownReason() {
	alice, _ := s.fullRoom("LUNCH")

	var m struct {
		ID string `json:"id"`
	}
	resp := s.do(http.MethodGet, "/rooms/LUNCH/match", alice, nil, &m)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var envelope errorEnvelope
	resp = s.do(http.MethodPost, fmt.Sprintf("/matches/%s/result", m.ID), alice,
		map[string]any{"winner": "white", "reason": "rage_quit"}, &envelope)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("INVALID_REQUEST", envelope.Error.Code)
}

func (s *APISuite) TestMatchListMine() {
	alice, _ := s.fullRoom("LUNCH")
	carol := s.login("carol", "tablet")

	var mine []json.RawMessage
	resp := s.do(http.MethodGet, "/matches", alice, nil, &mine)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Len(mine, 1)

	var none []json.RawMessage
	resp = s.do(http.MethodGet, "/matches", carol, nil, &none)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Empty(none)
}

func (s *APISuite) TestMatchPGN() {
	alice, bob := s.fullRoom("LUNCH")

	resp := s.do(http.MethodPost, "/rooms/LUNCH/match/moves", alice,
		map[string]string{"san": "e4", "board": "fen"}, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	resp = s.do(http.MethodPost, "/rooms/LUNCH/match/moves", bob,
		map[string]string{"san": "e5", "board": "fen"}, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var m struct {
		ID string `json:"id"`
	}
	resp = s.do(http.MethodGet, "/rooms/LUNCH/match", alice, nil, &m)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var pgn struct {
		MatchID string `json:"match_id"`
		PGN     string `json:"pgn"`
	}
	resp = s.do(http.MethodGet, fmt.Sprintf("/matches/%s/pgn", m.ID), alice, nil, &pgn)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(m.ID, pgn.MatchID)
	s.Contains(pgn.PGN, "e4")
	s.Contains(pgn.PGN, "e5")
}
