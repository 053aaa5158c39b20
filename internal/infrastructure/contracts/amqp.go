package contracts

// AmqpMessage is the message structure for AMQP.
type AmqpMessage struct {
	RoomID string `json:"roomId"`
	Data   []byte `json:"data"`
}

// Routing keys for match events on the match exchange.
const (
	EventRoomCreated    = "room.created"
	EventMemberJoined   = "member.joined"
	EventMemberLeft     = "member.left"
	EventSlotClaimed    = "slot.claimed"
	EventMatchStarted   = "match.started"
	EventTeamFinished   = "team.finished"
	EventMatchEnded     = "match.ended"
	EventProblemSolved  = "problem.solved"
	EventSolutionJudged = "solution.judged"
)

// MatchRoutingKeys lists every key bound to the audit queue.
var MatchRoutingKeys = []string{
	EventRoomCreated,
	EventMemberJoined,
	EventMemberLeft,
	EventSlotClaimed,
	EventMatchStarted,
	EventTeamFinished,
	EventMatchEnded,
	EventProblemSolved,
	EventSolutionJudged,
}
