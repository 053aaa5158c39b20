package coordinator

import (
	"context"
	"fmt"

	"github.com/hilthontt/codeclash/internal/domain"
	"github.com/hilthontt/codeclash/internal/infrastructure/logging"
	"github.com/hilthontt/codeclash/internal/infrastructure/ws"
)

// JoinProblemRoom subscribes connID to the (room, team, problem) editor
// channel. Other teams never share it.
func (c *Coordinator) JoinProblemRoom(ctx context.Context, connID, roomID string, team domain.Team, problemID string) {
	channel := ProblemChannel(roomID, team, problemID)
	c.track(connID, roomID, channel)
	c.flush([]delivery{subscribe(connID, channel)})
}

// EditorChange relays code to every other editor on the channel. There is no
// merge: the last write a client applies wins.
func (c *Coordinator) EditorChange(ctx context.Context, connID, roomID string, team domain.Team, problemID, code, source string) {
	c.flush([]delivery{
		publishExcept(ProblemChannel(roomID, team, problemID), connID, ws.NewEditorUpdate(roomID, code, source)),
	})
}

// JoinProblemset subscribes connID to the team's coarse channel.
func (c *Coordinator) JoinProblemset(ctx context.Context, connID, roomID string, team domain.Team) {
	channel := TeamChannel(roomID, team)
	c.track(connID, roomID, channel)
	c.flush([]delivery{subscribe(connID, channel)})
}

// MarkSolved records problemID for team and announces it on the team channel.
// A newly recorded problem also refreshes the room snapshot.
func (c *Coordinator) MarkSolved(ctx context.Context, roomID string, team domain.Team, problemID string) error {
	return c.markSolved(ctx, roomID, team, problemID, false)
}

func (c *Coordinator) markSolved(ctx context.Context, roomID string, team domain.Team, problemID string, requireRunning bool) error {
	unit, ok := c.lookup(roomID)
	if !ok {
		return fmt.Errorf("mark solved %q: %w", roomID, domain.ErrRoomNotFound)
	}

	unit.mu.Lock()
	if requireRunning && unit.room.Status != domain.StatusInProgress {
		unit.mu.Unlock()
		return fmt.Errorf("mark solved %q: %w", roomID, domain.ErrMatchNotInProgress)
	}
	added, err := unit.room.MarkSolved(team, problemID)
	if err != nil {
		unit.mu.Unlock()
		return err
	}

	ds := []delivery{
		publish(TeamChannel(roomID, team), ws.NewSolvedProblem(roomID, problemID, team)),
	}
	var events []domain.MatchEvent
	if added {
		ds = append(ds, publish(RoomChannel(roomID), ws.NewRoomUpdate(unit.room.Snapshot())))
		e := c.event(domain.EventProblemSolved, unit.room, "")
		e.Team = team
		e.ProblemID = problemID
		events = append(events, e)
	}
	c.flush(ds)
	unit.mu.Unlock()

	if added {
		c.logger.Info(logging.Match, logging.EditRelay, "problem solved", map[logging.ExtraKey]any{
			logging.RoomID:    roomID,
			logging.TeamID:    team,
			logging.ProblemID: problemID,
		})
	}
	c.notify(ctx, events)
	return nil
}
