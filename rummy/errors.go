package rummy

import "errors"

// Kind is the stable, wire-visible name of a rejected operation.
type Kind string

const (
	KindNotYourTurn               Kind = "NotYourTurn"
	KindGameNotFound              Kind = "GameNotFound"
	KindRoomFull                  Kind = "RoomFull"
	KindGameAlreadyStarted        Kind = "GameAlreadyStarted"
	KindPlayerNotFound            Kind = "PlayerNotFound"
	KindInvalidTileSelection      Kind = "InvalidTileSelection"
	KindInvalidSet                Kind = "InvalidSet"
	KindMeldBelowMinimum          Kind = "MeldBelowMinimum"
	KindMeldRequired              Kind = "MeldRequired"
	KindNoManipulationInProgress  Kind = "NoManipulationInProgress"
	KindInvalidTableConfiguration Kind = "InvalidTableConfiguration"
	KindPoolEmpty                 Kind = "PoolEmpty"
	KindCodeGenerationExhausted   Kind = "CodeGenerationExhausted"

	KindGameNotPlaying         Kind = "GameNotPlaying"
	KindManipulationInProgress Kind = "ManipulationInProgress"
	KindNotEnoughPlayers       Kind = "NotEnoughPlayers"
	KindNotHost                Kind = "NotHost"
	KindCodeInUse              Kind = "CodeInUse"
	KindBadRequest             Kind = "BadRequest"
	KindInternal               Kind = "Internal"
)

var kindMessages = map[Kind]string{
	KindNotYourTurn:               "not your turn",
	KindGameNotFound:              "game not found",
	KindRoomFull:                  "room is full",
	KindGameAlreadyStarted:        "game has already started",
	KindPlayerNotFound:            "player not found",
	KindInvalidTileSelection:      "invalid tiles selected",
	KindInvalidSet:                "invalid set",
	KindMeldBelowMinimum:          "initial meld below minimum points",
	KindMeldRequired:              "initial meld required before manipulation",
	KindNoManipulationInProgress:  "no manipulation in progress",
	KindInvalidTableConfiguration: "invalid table configuration",
	KindPoolEmpty:                 "no tiles left in pool",
	KindCodeGenerationExhausted:   "could not allocate room code",
	KindGameNotPlaying:            "game is not in progress",
	KindManipulationInProgress:    "manipulation already in progress",
	KindNotEnoughPlayers:          "not enough players",
	KindNotHost:                   "only the host can do that",
	KindCodeInUse:                 "room code already in use",
	KindBadRequest:                "malformed request",
	KindInternal:                  "internal error",
}

// Error is a recoverable rejection. Two errors match under errors.Is when
// their kinds match, so callers compare against the sentinels below.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	msg := kindMessages[e.Kind]
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Detail == "" {
		return msg
	}
	return msg + ": " + e.Detail
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotYourTurn               = &Error{Kind: KindNotYourTurn}
	ErrGameNotFound              = &Error{Kind: KindGameNotFound}
	ErrRoomFull                  = &Error{Kind: KindRoomFull}
	ErrGameAlreadyStarted        = &Error{Kind: KindGameAlreadyStarted}
	ErrPlayerNotFound            = &Error{Kind: KindPlayerNotFound}
	ErrInvalidTileSelection      = &Error{Kind: KindInvalidTileSelection}
	ErrInvalidSet                = &Error{Kind: KindInvalidSet}
	ErrMeldBelowMinimum          = &Error{Kind: KindMeldBelowMinimum}
	ErrMeldRequired              = &Error{Kind: KindMeldRequired}
	ErrNoManipulationInProgress  = &Error{Kind: KindNoManipulationInProgress}
	ErrInvalidTableConfiguration = &Error{Kind: KindInvalidTableConfiguration}
	ErrPoolEmpty                 = &Error{Kind: KindPoolEmpty}
	ErrCodeGenerationExhausted   = &Error{Kind: KindCodeGenerationExhausted}
	ErrGameNotPlaying            = &Error{Kind: KindGameNotPlaying}
	ErrManipulationInProgress    = &Error{Kind: KindManipulationInProgress}
	ErrNotEnoughPlayers          = &Error{Kind: KindNotEnoughPlayers}
	ErrNotHost                   = &Error{Kind: KindNotHost}
	ErrCodeInUse                 = &Error{Kind: KindCodeInUse}
)

// Errorf returns an *Error of the given kind with a detail message.
func Errorf(kind Kind, detail string) error {
	return &Error{Kind: kind, Detail: detail}
}

// KindOf extracts the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
