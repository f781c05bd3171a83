package codec

import (
	"fmt"
	"math"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client message actions besides the game intents (draw, play_set, ...).
const (
	ActionCreateRoom = "create_room"
	ActionJoinRoom   = "join_room"
	ActionLeaveRoom  = "leave_room"
	ActionStartGame  = "start_game"
	ActionAddAI      = "add_ai"
	ActionSync       = "sync"
)

// ClientMessage is the decoded inbound intent envelope.
type ClientMessage struct {
	RequestID  string
	Action     string
	RoomCode   string
	PlayerID   string
	Username   string
	Difficulty string
	TileIDs    []int
	Table      [][]int
}

// Encode serializes env as a binary protobuf frame or a protojson text frame.
func Encode(env *Envelope, binary bool) ([]byte, error) {
	msg := env.ToProto()
	if binary {
		return proto.MarshalOptions{Deterministic: true}.Marshal(msg)
	}
	return protojson.Marshal(msg)
}

// Decode parses a client frame. Text frames are JSON objects.
func Decode(data []byte, binary bool) (ClientMessage, error) {
	var st structpb.Struct
	var err error
	if binary {
		err = proto.Unmarshal(data, &st)
	} else {
		err = protojson.Unmarshal(data, &st)
	}
	if err != nil {
		return ClientMessage{}, fmt.Errorf("decode client message: %w", err)
	}

	fields := st.GetFields()
	msg := ClientMessage{
		RequestID:  stringField(fields, "requestId"),
		Action:     strings.ToLower(stringField(fields, "action")),
		RoomCode:   strings.ToUpper(stringField(fields, "roomCode")),
		PlayerID:   stringField(fields, "playerId"),
		Username:   stringField(fields, "username"),
		Difficulty: stringField(fields, "difficulty"),
	}
	if msg.Action == "" {
		return ClientMessage{}, fmt.Errorf("missing action")
	}
	if v, ok := fields["tileIds"]; ok {
		if msg.TileIDs, err = intList(v); err != nil {
			return ClientMessage{}, fmt.Errorf("tileIds: %w", err)
		}
	}
	if v, ok := fields["table"]; ok {
		sets := v.GetListValue()
		if sets == nil {
			return ClientMessage{}, fmt.Errorf("table: expected list")
		}
		for i, set := range sets.GetValues() {
			ids, err := intList(set)
			if err != nil {
				return ClientMessage{}, fmt.Errorf("table[%d]: %w", i, err)
			}
			msg.Table = append(msg.Table, ids)
		}
	}
	return msg, nil
}

func stringField(fields map[string]*structpb.Value, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(v.GetStringValue())
}

func intList(v *structpb.Value) ([]int, error) {
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("expected list")
	}
	out := make([]int, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		n, ok := item.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("expected number")
		}
		f := n.NumberValue
		if f != math.Trunc(f) || f < 0 || f > math.MaxInt32 {
			return nil, fmt.Errorf("invalid tile id %v", f)
		}
		out = append(out, int(f))
	}
	return out, nil
}
