package coordinator

import (
	"context"
	"fmt"

	"github.com/hilthontt/codeclash/internal/domain"
	"github.com/hilthontt/codeclash/internal/infrastructure/logging"
	"github.com/hilthontt/codeclash/internal/infrastructure/ws"
)

// StartGame moves roomID from lobby to in-progress and arms the deadline.
func (c *Coordinator) StartGame(ctx context.Context, roomID string) error {
	unit, ok := c.lookup(roomID)
	if !ok {
		return fmt.Errorf("start %q: %w", roomID, domain.ErrRoomNotFound)
	}

	unit.mu.Lock()
	if err := unit.room.Start(c.now(), c.matchDuration); err != nil {
		unit.mu.Unlock()
		return fmt.Errorf("start %q: %w", roomID, err)
	}

	unit.gen++
	gen := unit.gen
	unit.pending = true
	unit.timer = c.scheduler.AfterFunc(unit.room.Duration, func() {
		c.onTimeUp(roomID, gen)
	})

	snapshot := unit.room.Snapshot()
	c.flush([]delivery{
		publish(RoomChannel(roomID), ws.NewNavigateToProblemset(snapshot)),
	})
	event := c.event(domain.EventMatchStarted, unit.room, "")
	unit.mu.Unlock()

	if c.metrics != nil {
		c.metrics.MatchesStarted.Inc()
	}
	c.logger.Info(logging.Match, logging.Lifecycle, "match started", map[logging.ExtraKey]any{
		logging.RoomID: roomID,
		"endTime":      snapshot.EndTime,
	})
	c.notify(ctx, []domain.MatchEvent{event})
	return nil
}

// onTimeUp runs on the scheduler's goroutine. A cancelled or superseded timer
// finds pending cleared or gen advanced and does nothing.
func (c *Coordinator) onTimeUp(roomID string, gen uint64) {
	unit, ok := c.lookup(roomID)
	if !ok {
		return
	}

	unit.mu.Lock()
	if !unit.pending || unit.gen != gen {
		unit.mu.Unlock()
		return
	}
	unit.pending = false
	unit.timer = nil

	if err := unit.room.End(domain.ReasonTimeUp); err != nil {
		unit.mu.Unlock()
		c.logger.Warn(logging.Match, logging.Timer, "deadline fired outside a running match", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ErrorMessage: err.Error(),
		})
		return
	}
	c.flush([]delivery{
		publish(RoomChannel(roomID), ws.NewMatchEnd(roomID, domain.ReasonTimeUp)),
	})
	event := c.event(domain.EventMatchEnded, unit.room, "")
	event.Reason = string(domain.ReasonTimeUp)
	unit.mu.Unlock()

	c.matchEnded(roomID, domain.ReasonTimeUp)
	c.notify(context.Background(), []domain.MatchEvent{event})
}

// cancelTimer must be called with unit.mu held.
func (unit *roomUnit) cancelTimer() {
	if unit.timer != nil {
		unit.timer.Stop()
	}
	unit.timer = nil
	unit.pending = false
	unit.gen++
}

// MatchDetails sends the room's end time to connID only. A room that never
// started has no end time and gets no details.
func (c *Coordinator) MatchDetails(ctx context.Context, connID, roomID string) error {
	unit, ok := c.lookup(roomID)
	if !ok {
		return fmt.Errorf("match details %q: %w", roomID, domain.ErrRoomNotFound)
	}

	unit.mu.Lock()
	defer unit.mu.Unlock()

	if unit.room.EndTime.IsZero() {
		return fmt.Errorf("match details %q: %w", roomID, domain.ErrMatchNotInProgress)
	}
	c.flush([]delivery{
		send(connID, ws.NewMatchDetails(roomID, unit.room.Snapshot().EndTime)),
	})
	return nil
}

// FinishGame stamps team's finish time. The second team to finish ends the
// match and cancels the deadline.
func (c *Coordinator) FinishGame(ctx context.Context, roomID string, team domain.Team) error {
	unit, ok := c.lookup(roomID)
	if !ok {
		return fmt.Errorf("finish %q: %w", roomID, domain.ErrRoomNotFound)
	}

	unit.mu.Lock()
	bothFinished, err := unit.room.Finish(team, c.now())
	if err != nil {
		unit.mu.Unlock()
		return fmt.Errorf("finish %q: %w", roomID, err)
	}

	ds := []delivery{
		publish(RoomChannel(roomID), ws.NewTeamFinished(roomID, team, unit.room.FinishedAt(team).UnixMilli())),
	}
	finished := c.event(domain.EventTeamFinished, unit.room, "")
	finished.Team = team
	events := []domain.MatchEvent{finished}

	if bothFinished {
		unit.cancelTimer()
		// Finish succeeded, so the room is in progress and End cannot fail.
		_ = unit.room.End(domain.ReasonBothTeamsFinished)
		ds = append(ds, publish(RoomChannel(roomID), ws.NewMatchEnd(roomID, domain.ReasonBothTeamsFinished)))
		ended := c.event(domain.EventMatchEnded, unit.room, "")
		ended.Reason = string(domain.ReasonBothTeamsFinished)
		events = append(events, ended)
	}
	c.flush(ds)
	unit.mu.Unlock()

	c.logger.Info(logging.Match, logging.Lifecycle, "team finished", map[logging.ExtraKey]any{
		logging.RoomID: roomID,
		logging.TeamID: team,
	})
	if bothFinished {
		c.matchEnded(roomID, domain.ReasonBothTeamsFinished)
	}
	c.notify(ctx, events)
	return nil
}

func (c *Coordinator) matchEnded(roomID string, reason domain.EndReason) {
	if c.metrics != nil {
		c.metrics.MatchesEnded.WithLabelValues(string(reason)).Inc()
	}
	c.logger.Info(logging.Match, logging.Lifecycle, "match ended", map[logging.ExtraKey]any{
		logging.RoomID: roomID,
		logging.Reason: reason,
	})
}
