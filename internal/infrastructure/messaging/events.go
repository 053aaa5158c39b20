package messaging

import "github.com/hilthontt/codeclash/internal/domain"

const (
	MatchEventsQueue = "match_events"
	DeadLetterQueue  = "dead_letter_queue"
)

type MatchEventData struct {
	Event domain.MatchEvent `json:"event"`
}
