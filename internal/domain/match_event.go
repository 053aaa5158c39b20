package domain

import "time"

type MatchEventType string

const (
	EventRoomCreated    MatchEventType = "room_created"
	EventMemberJoined   MatchEventType = "member_joined"
	EventMemberLeft     MatchEventType = "member_left"
	EventSlotClaimed    MatchEventType = "slot_claimed"
	EventMatchStarted   MatchEventType = "match_started"
	EventTeamFinished   MatchEventType = "team_finished"
	EventMatchEnded     MatchEventType = "match_ended"
	EventProblemSolved  MatchEventType = "problem_solved"
	EventSolutionJudged MatchEventType = "solution_judged"
)

// MatchEvent is the out-of-band record of a committed room mutation. It is
// emitted after the room lock is released and never drives room state.
type MatchEvent struct {
	Type       MatchEventType `json:"type"`
	RoomID     string         `json:"roomId"`
	Identity   string         `json:"identity,omitempty"`
	Team       Team           `json:"team,omitempty"`
	Slot       *int           `json:"slot,omitempty"`
	ProblemID  string         `json:"problemId,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	Accepted   *bool          `json:"accepted,omitempty"`
	Occupants  int            `json:"occupants"`
	Status     Status         `json:"status"`
	OccurredAt time.Time      `json:"occurredAt"`
}
