//go:build js && wasm

package main

import (
	"encoding/json"
	"errors"
	"syscall/js"

	"rummy-lite/replay"
)

type request struct {
	Spec replay.GameSpec `json:"spec"`
}

type tapeResponse struct {
	OK    bool                   `json:"ok"`
	Tape  *replay.WireReplayTape `json:"tape,omitempty"`
	Error *replay.ReplayError    `json:"error,omitempty"`
}

type verifyResponse struct {
	OK          bool                `json:"ok"`
	Phase       string              `json:"phase,omitempty"`
	Winner      string              `json:"winner,omitempty"`
	FinalScores map[string]int      `json:"finalScores,omitempty"`
	Error       *replay.ReplayError `json:"error,omitempty"`
}

func main() {
	js.Global().Set("__rummyReplayTape", js.FuncOf(func(this js.Value, args []js.Value) any {
		req, rerr := parseRequest(args)
		if rerr != nil {
			return mustJSON(tapeResponse{Error: rerr})
		}
		tape, err := replay.GenerateReplayTape(req.Spec)
		if err != nil {
			return mustJSON(tapeResponse{Error: asReplayError(err, "replay_generation_failed")})
		}
		return mustJSON(tapeResponse{OK: true, Tape: replay.ToWireReplayTape(tape)})
	}))

	// Re-derives a stored game and reports its outcome.
	js.Global().Set("__rummyReplayVerify", js.FuncOf(func(this js.Value, args []js.Value) any {
		req, rerr := parseRequest(args)
		if rerr != nil {
			return mustJSON(verifyResponse{Error: rerr})
		}
		game, err := replay.Run(req.Spec)
		if err != nil {
			return mustJSON(verifyResponse{Error: asReplayError(err, "replay_run_failed")})
		}
		snap := game.Snapshot()
		return mustJSON(verifyResponse{
			OK:          true,
			Phase:       snap.Phase.String(),
			Winner:      snap.Winner,
			FinalScores: snap.FinalScores,
		})
	}))

	select {}
}

func parseRequest(args []js.Value) (request, *replay.ReplayError) {
	var req request
	if len(args) < 1 {
		return req, &replay.ReplayError{StepIndex: -1, Reason: "invalid_request", Message: "missing request payload"}
	}
	if err := json.Unmarshal([]byte(args[0].String()), &req); err != nil {
		return req, &replay.ReplayError{StepIndex: -1, Reason: "invalid_json", Message: err.Error()}
	}
	return req, nil
}

func asReplayError(err error, reason string) *replay.ReplayError {
	var replayErr *replay.ReplayError
	if errors.As(err, &replayErr) {
		return replayErr
	}
	return &replay.ReplayError{StepIndex: -1, Reason: reason, Message: err.Error()}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(tapeResponse{
			Error: &replay.ReplayError{StepIndex: -1, Reason: "marshal_failed", Message: err.Error()},
		})
	}
	return string(b)
}
