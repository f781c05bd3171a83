package codec

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"rummy-lite/rummy"
	"rummy-lite/tile"
)

// Server envelope types.
const (
	TypeResponse           = "response"
	TypeGameState          = "game-state"
	TypeRoomCreated        = "room-created"
	TypeRoomJoined         = "room-joined"
	TypePlayerDisconnected = "player-disconnected"
	TypePlayerReconnected  = "player-reconnected"
	TypePlayerLeft         = "player-left"
	TypeGameEnded          = "game-ended"
	TypeSession            = "session"
)

// Envelope is one server-to-client message.
type Envelope struct {
	Type      string
	RoomCode  string
	Seq       uint64
	RequestID string
	Payload   *structpb.Struct
}

// ToProto flattens the envelope into a Struct; ts is the server clock.
func (e *Envelope) ToProto() *structpb.Struct {
	fields := map[string]*structpb.Value{
		"type":       structpb.NewStringValue(e.Type),
		"roomCode":   structpb.NewStringValue(e.RoomCode),
		"serverSeq":  structpb.NewNumberValue(float64(e.Seq)),
		"serverTsMs": structpb.NewNumberValue(float64(time.Now().UnixMilli())),
	}
	if e.RequestID != "" {
		fields["requestId"] = structpb.NewStringValue(e.RequestID)
	}
	if e.Payload != nil {
		fields["payload"] = structpb.NewStructValue(e.Payload)
	}
	return &structpb.Struct{Fields: fields}
}

// GameState wraps a viewer-filtered snapshot.
func GameState(code string, seq uint64, snap rummy.Snapshot) (*Envelope, error) {
	payload, err := SnapshotToProto(snap)
	if err != nil {
		return nil, err
	}
	return &Envelope{Type: TypeGameState, RoomCode: code, Seq: seq, Payload: payload}, nil
}

// Lifecycle builds a room lifecycle event carrying {playerId, username}.
func Lifecycle(typ, code string, seq uint64, playerID, username string) *Envelope {
	return &Envelope{
		Type:     typ,
		RoomCode: code,
		Seq:      seq,
		Payload: &structpb.Struct{Fields: map[string]*structpb.Value{
			"playerId": structpb.NewStringValue(playerID),
			"username": structpb.NewStringValue(username),
		}},
	}
}

// Session tells a fresh connection who it is playing as. token is only
// set when the server minted a new guest session.
func Session(playerID, username, token string, guest bool) *Envelope {
	fields := map[string]*structpb.Value{
		"playerId": structpb.NewStringValue(playerID),
		"username": structpb.NewStringValue(username),
		"guest":    structpb.NewBoolValue(guest),
	}
	if token != "" {
		fields["sessionToken"] = structpb.NewStringValue(token)
	}
	return &Envelope{Type: TypeSession, Payload: &structpb.Struct{Fields: fields}}
}

// GameEnded carries the winner and the final scores.
func GameEnded(code string, seq uint64, snap rummy.Snapshot) (*Envelope, error) {
	scores := make(map[string]any, len(snap.FinalScores))
	for id, v := range snap.FinalScores {
		scores[id] = v
	}
	payload, err := structpb.NewStruct(map[string]any{
		"winner":      snap.Winner,
		"finalScores": scores,
		"turn":        snap.Turn,
	})
	if err != nil {
		return nil, err
	}
	return &Envelope{Type: TypeGameEnded, RoomCode: code, Seq: seq, Payload: payload}, nil
}

// Response answers one client request: {success, game?, error?, code?}.
// snap may be nil.
func Response(code, requestID string, snap *rummy.Snapshot, err error) (*Envelope, error) {
	fields := map[string]*structpb.Value{
		"success": structpb.NewBoolValue(err == nil),
	}
	if err != nil {
		fields["error"] = structpb.NewStringValue(err.Error())
		fields["code"] = structpb.NewStringValue(string(rummy.KindOf(err)))
	}
	if snap != nil {
		game, convErr := SnapshotToProto(*snap)
		if convErr != nil {
			return nil, convErr
		}
		fields["game"] = structpb.NewStructValue(game)
	}
	return &Envelope{
		Type:      TypeResponse,
		RoomCode:  code,
		RequestID: requestID,
		Payload:   &structpb.Struct{Fields: fields},
	}, nil
}

// SnapshotToProto converts a snapshot to its wire form. Hands that were
// redacted by ForViewer are omitted; only handCount is sent.
func SnapshotToProto(s rummy.Snapshot) (*structpb.Struct, error) {
	players := make([]any, len(s.Players))
	for i, p := range s.Players {
		pm := map[string]any{
			"id":             p.ID,
			"name":           p.Name,
			"isAi":           p.IsAI,
			"isHost":         p.IsHost,
			"hasInitialMeld": p.HasInitialMeld,
			"handCount":      p.HandCount,
		}
		if p.IsAI {
			pm["difficulty"] = p.Difficulty.String()
		}
		if p.Hand != nil {
			pm["hand"] = tilesToValues(p.Hand)
		}
		players[i] = pm
	}
	m := map[string]any{
		"id":                     s.ID,
		"phase":                  s.Phase.String(),
		"turn":                   s.Turn,
		"meldPoints":             s.MeldPoints,
		"currentPlayerIndex":     s.CurrentPlayerIndex,
		"currentPlayerId":        s.CurrentPlayerID,
		"poolCount":              s.PoolCount,
		"table":                  setsToValues(s.Table),
		"manipulationInProgress": s.ManipulationInProgress,
		"players":                players,
	}
	if s.Pending != nil {
		m["pending"] = setsToValues(s.Pending)
	}
	if s.Winner != "" {
		m["winner"] = s.Winner
	}
	if s.FinalScores != nil {
		scores := make(map[string]any, len(s.FinalScores))
		for id, v := range s.FinalScores {
			scores[id] = v
		}
		m["finalScores"] = scores
	}
	if s.LastAction != nil {
		ids := make([]any, len(s.LastAction.TileIDs))
		for i, id := range s.LastAction.TileIDs {
			ids[i] = id
		}
		m["lastAction"] = map[string]any{
			"type":     s.LastAction.Type.String(),
			"playerId": s.LastAction.PlayerID,
			"tileIds":  ids,
			"turn":     s.LastAction.Turn,
		}
	}
	return structpb.NewStruct(m)
}

func tileToValue(t tile.Tile) map[string]any {
	v := map[string]any{
		"id":    t.ID,
		"face":  t.Face(),
		"joker": t.IsJoker(),
	}
	if t.IsJoker() {
		v["color"] = nil
		v["number"] = nil
	} else {
		v["color"] = t.Color.String()
		v["number"] = t.Number
	}
	return v
}

func tilesToValues(tiles []tile.Tile) []any {
	out := make([]any, len(tiles))
	for i, t := range tiles {
		out[i] = tileToValue(t)
	}
	return out
}

func setsToValues(sets [][]tile.Tile) []any {
	out := make([]any, len(sets))
	for i, s := range sets {
		out[i] = tilesToValues(s)
	}
	return out
}
