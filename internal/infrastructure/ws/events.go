package ws

import "github.com/hilthontt/codeclash/internal/infrastructure/ratelimiter"

// Inbound event types.
const (
	JoinRoom        = "joinRoom"
	JoinSlot        = "joinSlot"
	StartGame       = "startGame"
	GetMatchDetails = "getMatchDetails"
	JoinProblemRoom = "joinProblemRoom"
	EditorChange    = "editorChange"
	JoinProblemset  = "joinProblemset"
	MarkSolved      = "markSolved"
	FinishGame      = "finishGame"
	DisconnectRoom  = "disconnectRoom"
	SubmitSolution  = "submitSolution"
)

// EventClass picks the inbound budget an event draws from. Editor changes
// arrive per keystroke and are metered apart from everything else.
func EventClass(eventType string) ratelimiter.EventClass {
	if eventType == EditorChange {
		return ratelimiter.EditorEvents
	}
	return ratelimiter.ControlEvents
}

// Outbound event types.
const (
	RoomUpdate           = "roomUpdate"
	NavigateToProblemset = "navigateToProblemset"
	MatchDetails         = "matchDetails"
	MatchEnd             = "matchEnd"
	TeamFinishedUpdate   = "teamFinishedUpdate"
	EditorUpdate         = "editorUpdate"
	SolvedProblem        = "solvedProblem"
	SubmissionResult     = "submissionResult"

	ErrorEvent = "error"
)

// Error codes carried by ErrorEvent.
const (
	CodeInvalidState   = "INVALID_STATE"
	CodeMalformedEvent = "MALFORMED_EVENT"
	CodeUnknownEvent   = "UNKNOWN_EVENT"
	CodeRateLimited    = "RATE_LIMITED"
	CodeNotFound       = "NOT_FOUND"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeUnavailable    = "UNAVAILABLE"
	CodeInternal       = "INTERNAL"
)
