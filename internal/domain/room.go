package domain

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
)

const (
	SlotsPerTeam         = 2
	DefaultMatchDuration = 30 * time.Minute
)

type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

var Teams = [...]Team{TeamA, TeamB}

func ParseTeam(raw string) (Team, error) {
	switch Team(strings.ToUpper(strings.TrimSpace(raw))) {
	case TeamA:
		return TeamA, nil
	case TeamB:
		return TeamB, nil
	}
	return "", ErrInvalidTeam
}

type Status string

const (
	StatusLobby      Status = "lobby"
	StatusInProgress Status = "in-progress"
	StatusEnded      Status = "ended"
)

type EndReason string

const (
	ReasonTimeUp            EndReason = "time_up"
	ReasonBothTeamsFinished EndReason = "both_teams_finished"
)

// Slots holds the occupants of one team. An empty string is a free slot and
// is encoded as null.
type Slots [SlotsPerTeam]string

func (s Slots) MarshalJSON() ([]byte, error) {
	out := make([]*string, SlotsPerTeam)
	for i := range s {
		if s[i] != "" {
			name := s[i]
			out[i] = &name
		}
	}
	return json.Marshal(out)
}

func (s *Slots) UnmarshalJSON(data []byte) error {
	var in []*string
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*s = Slots{}
	for i := 0; i < len(in) && i < SlotsPerTeam; i++ {
		if in[i] != nil {
			s[i] = *in[i]
		}
	}
	return nil
}

type Room struct {
	ID                string
	TeamA             Slots
	TeamB             Slots
	Status            Status
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
	TeamAFinishedTime time.Time
	TeamBFinishedTime time.Time
	EndReason         EndReason
	Solved            map[Team][]string
	CreatedAt         time.Time
}

func NewRoom(id string, now time.Time) *Room {
	return &Room{
		ID:        id,
		Status:    StatusLobby,
		Solved:    map[Team][]string{TeamA: {}, TeamB: {}},
		CreatedAt: now,
	}
}

func (r *Room) slots(team Team) *Slots {
	switch team {
	case TeamA:
		return &r.TeamA
	case TeamB:
		return &r.TeamB
	}
	return nil
}

// Scrub vacates every slot held by identity in both teams.
func (r *Room) Scrub(identity string) bool {
	changed := false
	for _, team := range Teams {
		s := r.slots(team)
		for i := range s {
			if s[i] == identity {
				s[i] = ""
				changed = true
			}
		}
	}
	return changed
}

// Claim scrubs identity from the room and then seats it at (team, slot) if
// that slot is free. A taken slot is not an error: the scrub still applies
// and Claim reports false.
func (r *Room) Claim(identity string, team Team, slot int) (bool, error) {
	s := r.slots(team)
	if s == nil {
		return false, ErrInvalidTeam
	}
	if slot < 0 || slot >= SlotsPerTeam {
		return false, ErrInvalidSlot
	}

	r.Scrub(identity)

	if s[slot] != "" {
		return false, nil
	}
	s[slot] = identity
	return true, nil
}

func (r *Room) SlotOf(identity string) (Team, int, bool) {
	for _, team := range Teams {
		s := r.slots(team)
		for i := range s {
			if s[i] == identity {
				return team, i, true
			}
		}
	}
	return "", 0, false
}

func (r *Room) Occupants() int {
	n := 0
	for _, team := range Teams {
		for _, name := range r.slots(team) {
			if name != "" {
				n++
			}
		}
	}
	return n
}

// Start moves a lobby into a running match. endTime is derived once here and
// never rewritten.
func (r *Room) Start(now time.Time, duration time.Duration) error {
	switch r.Status {
	case StatusInProgress:
		return ErrMatchInProgress
	case StatusEnded:
		return ErrMatchEnded
	}
	if duration <= 0 {
		duration = DefaultMatchDuration
	}

	r.Status = StatusInProgress
	r.Duration = duration
	r.StartTime = now
	r.EndTime = now.Add(duration)
	r.TeamAFinishedTime = time.Time{}
	r.TeamBFinishedTime = time.Time{}
	return nil
}

// Finish stamps the team's finish time and reports whether both teams are now
// done.
func (r *Room) Finish(team Team, now time.Time) (bool, error) {
	if r.Status != StatusInProgress {
		return false, ErrMatchNotInProgress
	}

	switch team {
	case TeamA:
		r.TeamAFinishedTime = now
	case TeamB:
		r.TeamBFinishedTime = now
	default:
		return false, ErrInvalidTeam
	}

	return !r.TeamAFinishedTime.IsZero() && !r.TeamBFinishedTime.IsZero(), nil
}

func (r *Room) FinishedAt(team Team) time.Time {
	if team == TeamA {
		return r.TeamAFinishedTime
	}
	return r.TeamBFinishedTime
}

func (r *Room) End(reason EndReason) error {
	if r.Status != StatusInProgress {
		return ErrMatchNotInProgress
	}
	r.Status = StatusEnded
	r.EndReason = reason
	return nil
}

// MarkSolved records problemID for team once. It returns false when the
// problem was already recorded.
func (r *Room) MarkSolved(team Team, problemID string) (bool, error) {
	if r.slots(team) == nil {
		return false, ErrInvalidTeam
	}
	if r.Solved == nil {
		r.Solved = map[Team][]string{TeamA: {}, TeamB: {}}
	}
	if slices.Contains(r.Solved[team], problemID) {
		return false, nil
	}
	r.Solved[team] = append(r.Solved[team], problemID)
	return true, nil
}

type RoomSnapshot struct {
	ID                string            `json:"id"`
	TeamA             Slots             `json:"teamA"`
	TeamB             Slots             `json:"teamB"`
	Status            Status            `json:"status"`
	StartTime         int64             `json:"startTime,omitempty"`
	EndTime           int64             `json:"endTime,omitempty"`
	Duration          int64             `json:"duration,omitempty"`
	TeamAFinishedTime int64             `json:"teamAFinishedTime,omitempty"`
	TeamBFinishedTime int64             `json:"teamBFinishedTime,omitempty"`
	EndReason         EndReason         `json:"endReason,omitempty"`
	Solved            map[Team][]string `json:"solved"`
}

// Snapshot returns a detached copy safe to hand to other goroutines.
// Timestamps are unix milliseconds, duration is in seconds.
func (r *Room) Snapshot() RoomSnapshot {
	solved := make(map[Team][]string, len(Teams))
	for _, team := range Teams {
		solved[team] = slices.Clone(r.Solved[team])
		if solved[team] == nil {
			solved[team] = []string{}
		}
	}

	return RoomSnapshot{
		ID:                r.ID,
		TeamA:             r.TeamA,
		TeamB:             r.TeamB,
		Status:            r.Status,
		StartTime:         unixMilli(r.StartTime),
		EndTime:           unixMilli(r.EndTime),
		Duration:          int64(r.Duration / time.Second),
		TeamAFinishedTime: unixMilli(r.TeamAFinishedTime),
		TeamBFinishedTime: unixMilli(r.TeamBFinishedTime),
		EndReason:         r.EndReason,
		Solved:            solved,
	}
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
