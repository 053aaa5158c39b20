package ws

import (
	"encoding/json"
	"errors"

	"github.com/hilthontt/codeclash/internal/domain"
)

type WSMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
	Data   any    `json:"data"`
}

// InboundMessage is the client envelope. Data is decoded by the dispatcher
// once the type is known.
type InboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Payload structs
type NavigatePayload struct {
	RoomID string              `json:"roomId"`
	Room   domain.RoomSnapshot `json:"room"`
}

type MatchDetailsPayload struct {
	EndTime int64 `json:"endTime"`
}

type MatchEndPayload struct {
	Reason domain.EndReason `json:"reason"`
}

type TeamFinishedPayload struct {
	TeamID     domain.Team `json:"teamId"`
	FinishTime int64       `json:"finishTime"`
}

type EditorUpdatePayload struct {
	Code   string `json:"code"`
	Source string `json:"source,omitempty"`
}

type SolvedProblemPayload struct {
	ProblemID string      `json:"problemId"`
	TeamID    domain.Team `json:"teamId"`
}

type SubmissionResultPayload struct {
	ProblemID string           `json:"problemId"`
	Accepted  bool             `json:"accepted"`
	Verdicts  []domain.Verdict `json:"verdicts"`
}

type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
	Retry   bool   `json:"retry,omitempty"`
}

func NewRoomUpdate(snapshot domain.RoomSnapshot) *WSMessage {
	return &WSMessage{
		Type:   RoomUpdate,
		RoomID: snapshot.ID,
		Data:   snapshot,
	}
}

func NewNavigateToProblemset(snapshot domain.RoomSnapshot) *WSMessage {
	return &WSMessage{
		Type:   NavigateToProblemset,
		RoomID: snapshot.ID,
		Data: NavigatePayload{
			RoomID: snapshot.ID,
			Room:   snapshot,
		},
	}
}

func NewMatchDetails(roomID string, endTime int64) *WSMessage {
	return &WSMessage{
		Type:   MatchDetails,
		RoomID: roomID,
		Data:   MatchDetailsPayload{EndTime: endTime},
	}
}

func NewMatchEnd(roomID string, reason domain.EndReason) *WSMessage {
	return &WSMessage{
		Type:   MatchEnd,
		RoomID: roomID,
		Data:   MatchEndPayload{Reason: reason},
	}
}

func NewTeamFinished(roomID string, team domain.Team, finishTime int64) *WSMessage {
	return &WSMessage{
		Type:   TeamFinishedUpdate,
		RoomID: roomID,
		Data: TeamFinishedPayload{
			TeamID:     team,
			FinishTime: finishTime,
		},
	}
}

func NewEditorUpdate(roomID, code, source string) *WSMessage {
	return &WSMessage{
		Type:   EditorUpdate,
		RoomID: roomID,
		Data: EditorUpdatePayload{
			Code:   code,
			Source: source,
		},
	}
}

func NewSolvedProblem(roomID, problemID string, team domain.Team) *WSMessage {
	return &WSMessage{
		Type:   SolvedProblem,
		RoomID: roomID,
		Data: SolvedProblemPayload{
			ProblemID: problemID,
			TeamID:    team,
		},
	}
}

func NewSubmissionResult(roomID, problemID string, verdicts []domain.Verdict) *WSMessage {
	if verdicts == nil {
		verdicts = []domain.Verdict{}
	}
	return &WSMessage{
		Type:   SubmissionResult,
		RoomID: roomID,
		Data: SubmissionResultPayload{
			ProblemID: problemID,
			Accepted:  domain.AllAccepted(verdicts),
			Verdicts:  verdicts,
		},
	}
}

func NewError(event, code, message string) *WSMessage {
	return &WSMessage{
		Type: ErrorEvent,
		Data: ErrorPayload{
			Code:    code,
			Message: message,
			Event:   event,
			Retry:   code == CodeRateLimited,
		},
	}
}

// NewErrorFromErr maps a dispatch error onto a client-facing code. Internal
// failures never leak their text.
func NewErrorFromErr(event string, err error) *WSMessage {
	code := ErrorCode(err)
	message := err.Error()
	if code == CodeInternal {
		message = "an unexpected error occurred"
	}
	return NewError(event, code, message)
}

func ErrorCode(err error) string {
	switch {
	case domain.IsInvalidState(err):
		return CodeInvalidState
	case errors.Is(err, domain.ErrUnknownEvent):
		return CodeUnknownEvent
	case errors.Is(err, domain.ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, domain.ErrIdentityMismatch), errors.Is(err, domain.ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, domain.ErrJudgeUnavailable):
		return CodeUnavailable
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrProblemNotFound):
		return CodeNotFound
	case errors.Is(err, domain.ErrMalformedEvent),
		errors.Is(err, domain.ErrInvalidIdentifier),
		errors.Is(err, domain.ErrInvalidTeam),
		errors.Is(err, domain.ErrInvalidSlot):
		return CodeMalformedEvent
	}
	return CodeInternal
}
