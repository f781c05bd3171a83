package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"rummy-lite/apps/server/internal/auth"
	"rummy-lite/apps/server/internal/lobby"
	"rummy-lite/rummy"
)

type testServer struct {
	srv   *httptest.Server
	auth  *auth.Manager
	lobby *lobby.Lobby
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	authService := auth.NewManager(time.Hour)
	lby := lobby.New(lobby.Config{Rules: rummy.Config{Seed: 42}}, nil, nil)
	gw := New(lby, authService)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWebSocket)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		gw.Close()
		srv.Close()
		lby.Close()
	})
	return &testServer{srv: srv, auth: authService, lobby: lby}
}

func (s *testServer) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"
	if query != "" {
		url += "?" + query
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readText(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	typ, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, typ)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

// readResponse skips broadcasts until the response to requestID arrives.
func readResponse(t *testing.T, conn *websocket.Conn, requestID string) map[string]any {
	t.Helper()
	for {
		msg := readText(t, conn)
		if msg["type"] == "response" && msg["requestId"] == requestID {
			return msg
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

func payload(msg map[string]any) map[string]any {
	return msg["payload"].(map[string]any)
}

func TestGuestCreateJoinAndPlay(t *testing.T) {
	s := newTestServer(t)

	alice := s.dial(t, "name=Alice")
	session := readText(t, alice)
	require.Equal(t, "session", session["type"])
	aliceID := payload(session)["playerId"].(string)
	require.NotEmpty(t, aliceID)
	require.NotEmpty(t, payload(session)["sessionToken"])
	require.Equal(t, "Alice", payload(session)["username"])

	send(t, alice, map[string]any{"action": "create_room", "requestId": "c1"})
	resp := readResponse(t, alice, "c1")
	require.Equal(t, true, payload(resp)["success"])
	code := resp["roomCode"].(string)
	require.Len(t, code, 6)

	bob := s.dial(t, "name=Bob")
	readText(t, bob)
	send(t, bob, map[string]any{"action": "join_room", "roomCode": strings.ToLower(code), "requestId": "j1"})
	resp = readResponse(t, bob, "j1")
	require.Equal(t, true, payload(resp)["success"])
	players := payload(resp)["game"].(map[string]any)["players"].([]any)
	require.Len(t, players, 2)

	// only the host may start
	send(t, bob, map[string]any{"action": "start_game", "requestId": "s0"})
	resp = readResponse(t, bob, "s0")
	require.Equal(t, "NotHost", payload(resp)["code"])

	send(t, alice, map[string]any{"action": "start_game", "requestId": "s1"})
	resp = readResponse(t, alice, "s1")
	require.Equal(t, true, payload(resp)["success"])
	game := payload(resp)["game"].(map[string]any)
	require.Equal(t, "playing", game["phase"])
	require.Equal(t, aliceID, game["currentPlayerId"])

	send(t, bob, map[string]any{"action": "draw", "requestId": "d0"})
	resp = readResponse(t, bob, "d0")
	require.Equal(t, false, payload(resp)["success"])
	require.Equal(t, "NotYourTurn", payload(resp)["code"])

	send(t, bob, map[string]any{"action": "draw", "playerId": aliceID, "requestId": "d1"})
	resp = readResponse(t, bob, "d1")
	require.Equal(t, "PlayerNotFound", payload(resp)["code"])

	send(t, alice, map[string]any{"action": "draw", "requestId": "d2"})
	resp = readResponse(t, alice, "d2")
	require.Equal(t, true, payload(resp)["success"])

	// bob sees the committed state, never alice's tiles
	for {
		msg := readText(t, bob)
		if msg["type"] != "game-state" || payload(msg)["turn"] != float64(1) {
			continue
		}
		for _, raw := range payload(msg)["players"].([]any) {
			p := raw.(map[string]any)
			if p["id"] == aliceID {
				require.NotContains(t, p, "hand")
			}
		}
		break
	}

	send(t, alice, map[string]any{"action": "fly", "requestId": "x"})
	resp = readResponse(t, alice, "x")
	require.Equal(t, "BadRequest", payload(resp)["code"])
}

func TestSessionTokenReconnect(t *testing.T) {
	s := newTestServer(t)
	account, token, err := s.auth.Register("carol_1", "secret12")
	require.NoError(t, err)

	first := s.dial(t, "token="+token)
	session := readText(t, first)
	require.Equal(t, account.ID, payload(session)["playerId"])
	require.NotContains(t, payload(session), "sessionToken")

	send(t, first, map[string]any{"action": "create_room", "roomCode": "CAROL1", "requestId": "c1"})
	require.Equal(t, true, payload(readResponse(t, first, "c1"))["success"])
	first.Close()

	require.Eventually(t, func() bool {
		rm := s.lobby.Get("CAROL1")
		return rm != nil && !rm.Members()[account.ID].Online
	}, 5*time.Second, 10*time.Millisecond)

	second := s.dial(t, "token="+token)
	readText(t, second)
	send(t, second, map[string]any{"action": "join_room", "roomCode": "CAROL1", "requestId": "j1"})
	resp := readResponse(t, second, "j1")
	require.Equal(t, true, payload(resp)["success"])
	require.Len(t, payload(resp)["game"].(map[string]any)["players"], 1)
	require.True(t, s.lobby.Get("CAROL1").Members()[account.ID].Online)
}

func TestInvalidTokenRejected(t *testing.T) {
	s := newTestServer(t)
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws?token=bogus"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBinaryFormat(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t, "format=binary")

	readBinary := func() *structpb.Struct {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		typ, data, err := conn.ReadMessage()
		require.NoError(t, err)
		require.Equal(t, websocket.BinaryMessage, typ)
		var st structpb.Struct
		require.NoError(t, proto.Unmarshal(data, &st))
		return &st
	}

	session := readBinary()
	require.Equal(t, "session", session.GetFields()["type"].GetStringValue())

	req, err := structpb.NewStruct(map[string]any{"action": "create_room", "requestId": "b1"})
	require.NoError(t, err)
	frame, err := proto.Marshal(req)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, frame))

	for {
		msg := readBinary().AsMap()
		if msg["type"] == "response" && msg["requestId"] == "b1" {
			require.Equal(t, true, msg["payload"].(map[string]any)["success"])
			break
		}
	}
}
