package domain

import "errors"

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrProblemNotFound    = errors.New("problem not found")
	ErrInvalidTeam        = errors.New("team must be A or B")
	ErrInvalidSlot        = errors.New("slot index out of range")
	ErrMatchInProgress    = errors.New("match already in progress")
	ErrMatchEnded         = errors.New("match already ended")
	ErrMatchNotInProgress = errors.New("match is not in progress")
	ErrMalformedEvent     = errors.New("malformed event")
	ErrUnknownEvent       = errors.New("unknown event type")
	ErrRateLimited        = errors.New("too many events")
	ErrIdentityMismatch   = errors.New("username does not match authenticated identity")
	ErrInvalidIdentifier  = errors.New("invalid identifier")
	ErrJudgeUnavailable   = errors.New("judge is not configured")
	ErrUnauthorized       = errors.New("unauthorized")
)

// IsInvalidState reports whether err is a lifecycle rejection that left the
// room untouched.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrMatchInProgress) ||
		errors.Is(err, ErrMatchEnded) ||
		errors.Is(err, ErrMatchNotInProgress)
}
