package coordinator

import (
	"context"

	"github.com/hilthontt/codeclash/internal/domain"
	"github.com/hilthontt/codeclash/internal/infrastructure/logging"
	"github.com/hilthontt/codeclash/internal/infrastructure/ws"
)

// seat is an identity's hold on a room as seen from one connection.
type seat struct {
	identity string
	roomID   string
}

// JoinRoom moves identity into roomID, evicting it from any other room it
// held, and broadcasts the target room's snapshot.
func (c *Coordinator) JoinRoom(ctx context.Context, connID, identity, roomID string) error {
	if err := domain.ValidateRoomID(roomID); err != nil {
		return err
	}

	unlock := c.identities.lock(identity)
	events, replaced := c.enter(connID, identity, roomID)

	unit, created := c.getOrCreate(roomID)
	unit.mu.Lock()
	if created {
		events = append(events, c.event(domain.EventRoomCreated, unit.room, ""))
	}
	c.flush([]delivery{
		subscribe(connID, RoomChannel(roomID)),
		publish(RoomChannel(roomID), ws.NewRoomUpdate(unit.room.Snapshot())),
	})
	events = append(events, c.event(domain.EventMemberJoined, unit.room, identity))
	unit.mu.Unlock()
	unlock()

	events = append(events, c.release(replaced)...)

	c.logger.Debug(logging.Match, logging.Membership, "joined room", map[logging.ExtraKey]any{
		logging.ConnID:   connID,
		logging.Identity: identity,
		logging.RoomID:   roomID,
	})
	c.notify(ctx, events)
	return nil
}

// ClaimSlot seats identity at (team, slot) after scrubbing it from the room.
// A claim on an occupied slot is dropped without error; the scrub and the
// broadcast still happen.
func (c *Coordinator) ClaimSlot(ctx context.Context, connID, identity, roomID string, team domain.Team, slot int) error {
	if err := domain.ValidateRoomID(roomID); err != nil {
		return err
	}
	if team != domain.TeamA && team != domain.TeamB {
		return domain.ErrInvalidTeam
	}
	if slot < 0 || slot >= domain.SlotsPerTeam {
		return domain.ErrInvalidSlot
	}

	// The eviction from the previous room and the placement here happen
	// under one identity lock, so a racing claim elsewhere sees either
	// both or neither.
	unlock := c.identities.lock(identity)
	events, replaced := c.enter(connID, identity, roomID)

	unit, created := c.getOrCreate(roomID)
	unit.mu.Lock()
	if created {
		events = append(events, c.event(domain.EventRoomCreated, unit.room, ""))
	}
	placed, err := unit.room.Claim(identity, team, slot)
	if err != nil {
		unit.mu.Unlock()
		unlock()
		return err
	}
	c.flush([]delivery{
		subscribe(connID, RoomChannel(roomID)),
		publish(RoomChannel(roomID), ws.NewRoomUpdate(unit.room.Snapshot())),
	})
	if placed {
		e := c.event(domain.EventSlotClaimed, unit.room, identity)
		e.Team = team
		e.Slot = &slot
		events = append(events, e)
	}
	unit.mu.Unlock()
	unlock()

	events = append(events, c.release(replaced)...)

	c.logger.Debug(logging.Match, logging.Membership, "slot claim", map[logging.ExtraKey]any{
		logging.Identity: identity,
		logging.RoomID:   roomID,
		logging.TeamID:   team,
		"slot":           slot,
		"placed":         placed,
	})
	c.notify(ctx, events)
	return nil
}

// LeaveRoom scrubs identity from roomID. A room that was never created is
// left alone.
func (c *Coordinator) LeaveRoom(ctx context.Context, connID, identity, roomID string) error {
	if err := domain.ValidateRoomID(roomID); err != nil {
		return err
	}

	unlock := c.identities.lock(identity)
	events := c.leave(identity, roomID)
	if connID != "" {
		c.dropPresence(connID, roomID)
	}
	unlock()

	c.notify(ctx, events)
	return nil
}

// Disconnect runs the leave path for whatever room the connection last
// joined. Connections that never joined are ignored.
func (c *Coordinator) Disconnect(ctx context.Context, connID string) {
	c.presenceMu.Lock()
	p, ok := c.presence[connID]
	delete(c.presence, connID)
	c.presenceMu.Unlock()

	if !ok || p.roomID == "" || p.identity == "" {
		return
	}

	c.logger.Debug(logging.Match, logging.Membership, "disconnect cleanup", map[logging.ExtraKey]any{
		logging.ConnID:   connID,
		logging.Identity: p.identity,
		logging.RoomID:   p.roomID,
	})
	unlock := c.identities.lock(p.identity)
	events := c.leave(p.identity, p.roomID)
	unlock()

	c.notify(ctx, events)
}

// leave scrubs identity from roomID, clears its membership if it still
// points there and broadcasts the snapshot.
func (c *Coordinator) leave(identity, roomID string) []domain.MatchEvent {
	unit, ok := c.lookup(roomID)
	if !ok {
		c.clearMembership(identity, roomID)
		return nil
	}

	unit.mu.Lock()
	defer unit.mu.Unlock()

	unit.room.Scrub(identity)
	c.clearMembership(identity, roomID)
	c.flush([]delivery{
		publish(RoomChannel(roomID), ws.NewRoomUpdate(unit.room.Snapshot())),
	})
	return []domain.MatchEvent{c.event(domain.EventMemberLeft, unit.room, identity)}
}

// enter records identity and connID against roomID. If identity held another
// room it is scrubbed there and the connection leaves that room's channels.
// When the connection was last seated under a different identity, that seat
// is returned for release. Callers hold identity's lock.
func (c *Coordinator) enter(connID, identity, roomID string) ([]domain.MatchEvent, seat) {
	var events []domain.MatchEvent

	previous := c.setMembership(identity, roomID)
	if previous != "" && previous != roomID {
		if unit, ok := c.lookup(previous); ok {
			unit.mu.Lock()
			unit.room.Scrub(identity)
			c.flush([]delivery{
				publish(RoomChannel(previous), ws.NewRoomUpdate(unit.room.Snapshot())),
			})
			events = append(events, c.event(domain.EventMemberLeft, unit.room, identity))
			unit.mu.Unlock()
		}

		c.logger.Info(logging.Match, logging.Membership, "evicted from previous room", map[logging.ExtraKey]any{
			logging.Identity: identity,
			logging.RoomID:   previous,
			"target":         roomID,
		})
	}

	c.presenceMu.Lock()
	p, ok := c.presence[connID]
	if !ok {
		p = &presence{channels: make(map[string]struct{})}
		c.presence[connID] = p
	}
	var replaced seat
	if p.identity != "" && p.identity != identity && p.roomID != "" {
		replaced = seat{identity: p.identity, roomID: p.roomID}
	}
	var stale []delivery
	if p.roomID != "" && p.roomID != roomID {
		for channel := range p.channels {
			stale = append(stale, unsubscribe(connID, channel))
		}
		p.channels = make(map[string]struct{})
	}
	p.identity = identity
	p.roomID = roomID
	p.channels[RoomChannel(roomID)] = struct{}{}
	c.presenceMu.Unlock()

	c.flush(stale)
	return events, replaced
}

// release scrubs a seat its connection abandoned by rejoining under another
// identity. A seat some other connection still holds is kept.
func (c *Coordinator) release(old seat) []domain.MatchEvent {
	if old.identity == "" {
		return nil
	}

	unlock := c.identities.lock(old.identity)
	defer unlock()

	if c.seatHeld(old) {
		return nil
	}
	c.logger.Debug(logging.Match, logging.Membership, "releasing replaced identity", map[logging.ExtraKey]any{
		logging.Identity: old.identity,
		logging.RoomID:   old.roomID,
	})
	return c.leave(old.identity, old.roomID)
}

func (c *Coordinator) seatHeld(s seat) bool {
	c.presenceMu.Lock()
	defer c.presenceMu.Unlock()

	for _, p := range c.presence {
		if p.identity == s.identity && p.roomID == s.roomID {
			return true
		}
	}
	return false
}

// track remembers a channel the connection subscribed to so a room switch can
// detach it.
func (c *Coordinator) track(connID, roomID, channel string) {
	c.presenceMu.Lock()
	defer c.presenceMu.Unlock()

	p, ok := c.presence[connID]
	if !ok {
		p = &presence{roomID: roomID, channels: make(map[string]struct{})}
		c.presence[connID] = p
	}
	if p.roomID == "" {
		p.roomID = roomID
	}
	if p.roomID == roomID {
		p.channels[channel] = struct{}{}
	}
}

// dropPresence detaches the connection from roomID's channels after an
// explicit leave.
func (c *Coordinator) dropPresence(connID, roomID string) {
	c.presenceMu.Lock()
	p, ok := c.presence[connID]
	if !ok || p.roomID != roomID {
		c.presenceMu.Unlock()
		return
	}
	ds := make([]delivery, 0, len(p.channels))
	for channel := range p.channels {
		ds = append(ds, unsubscribe(connID, channel))
	}
	delete(c.presence, connID)
	c.presenceMu.Unlock()

	c.flush(ds)
}
