package coordinator

import (
	"context"
	"fmt"
	"strings"

	"github.com/hilthontt/codeclash/internal/domain"
	"github.com/hilthontt/codeclash/internal/infrastructure/ws"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Dispatch decodes one inbound event and runs it. Decoding and validation
// failures return before any state is touched.
func (c *Coordinator) Dispatch(ctx context.Context, s ws.Session, msg *ws.InboundMessage) (err error) {
	ctx, span := c.tracer.Start(ctx, "coordinator.dispatch",
		trace.WithAttributes(
			attribute.String("ws.event", msg.Type),
			attribute.String("ws.conn_id", s.ConnID),
		),
	)
	defer func() {
		result := "ok"
		if err != nil {
			result = strings.ToLower(ws.ErrorCode(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		if c.metrics != nil {
			c.metrics.EventsDispatched.WithLabelValues(metricEventType(msg.Type), result).Inc()
		}
		span.End()
	}()

	switch msg.Type {
	case ws.JoinRoom:
		cmd, err := decode[joinRoomCmd](msg.Data)
		if err != nil {
			return err
		}
		identity, err := resolveIdentity(s.Identity, cmd.Username)
		if err != nil {
			return err
		}
		span.SetAttributes(attribute.String("room.id", cmd.RoomID))
		return c.JoinRoom(ctx, s.ConnID, identity, cmd.RoomID)

	case ws.JoinSlot:
		cmd, err := decode[joinSlotCmd](msg.Data)
		if err != nil {
			return err
		}
		identity, err := resolveIdentity(s.Identity, cmd.Username)
		if err != nil {
			return err
		}
		team, err := domain.ParseTeam(cmd.Team)
		if err != nil {
			return err
		}
		if cmd.SlotIndex == nil {
			return fmt.Errorf("%w: slotIndex is required", domain.ErrMalformedEvent)
		}
		span.SetAttributes(attribute.String("room.id", cmd.RoomID))
		return c.ClaimSlot(ctx, s.ConnID, identity, cmd.RoomID, team, *cmd.SlotIndex)

	case ws.StartGame:
		cmd, err := decode[roomCmd](msg.Data)
		if err != nil {
			return err
		}
		if err := domain.ValidateRoomID(cmd.RoomID); err != nil {
			return err
		}
		span.SetAttributes(attribute.String("room.id", cmd.RoomID))
		return c.StartGame(ctx, cmd.RoomID)

	case ws.GetMatchDetails:
		cmd, err := decode[roomCmd](msg.Data)
		if err != nil {
			return err
		}
		if err := domain.ValidateRoomID(cmd.RoomID); err != nil {
			return err
		}
		return c.MatchDetails(ctx, s.ConnID, cmd.RoomID)

	case ws.JoinProblemRoom:
		cmd, err := decode[problemCmd](msg.Data)
		if err != nil {
			return err
		}
		t, err := parseProblemTarget(cmd.RoomID, cmd.TeamID, cmd.ProblemID)
		if err != nil {
			return err
		}
		if cmd.Username != "" {
			if _, err := resolveIdentity(s.Identity, cmd.Username); err != nil {
				return err
			}
		}
		c.JoinProblemRoom(ctx, s.ConnID, t.roomID, t.team, t.problemID)
		return nil

	case ws.EditorChange:
		cmd, err := decode[editorChangeCmd](msg.Data)
		if err != nil {
			return err
		}
		t, err := parseProblemTarget(cmd.RoomID, cmd.TeamID, cmd.ProblemID)
		if err != nil {
			return err
		}
		if err := cmd.validate(); err != nil {
			return err
		}
		c.EditorChange(ctx, s.ConnID, t.roomID, t.team, t.problemID, cmd.Code, cmd.Source)
		return nil

	case ws.JoinProblemset:
		cmd, err := decode[teamCmd](msg.Data)
		if err != nil {
			return err
		}
		t, err := parseTeamTarget(cmd.RoomID, cmd.TeamID)
		if err != nil {
			return err
		}
		c.JoinProblemset(ctx, s.ConnID, t.roomID, t.team)
		return nil

	case ws.MarkSolved:
		cmd, err := decode[problemCmd](msg.Data)
		if err != nil {
			return err
		}
		t, err := parseProblemTarget(cmd.RoomID, cmd.TeamID, cmd.ProblemID)
		if err != nil {
			return err
		}
		return c.MarkSolved(ctx, t.roomID, t.team, t.problemID)

	case ws.FinishGame:
		cmd, err := decode[teamCmd](msg.Data)
		if err != nil {
			return err
		}
		t, err := parseTeamTarget(cmd.RoomID, cmd.TeamID)
		if err != nil {
			return err
		}
		span.SetAttributes(attribute.String("room.id", t.roomID))
		return c.FinishGame(ctx, t.roomID, t.team)

	case ws.DisconnectRoom:
		cmd, err := decode[leaveRoomCmd](msg.Data)
		if err != nil {
			return err
		}
		identity, err := resolveIdentity(s.Identity, cmd.Username)
		if err != nil {
			return err
		}
		return c.LeaveRoom(ctx, s.ConnID, identity, cmd.RoomID)

	case ws.SubmitSolution:
		cmd, err := decode[submitSolutionCmd](msg.Data)
		if err != nil {
			return err
		}
		t, err := parseProblemTarget(cmd.RoomID, cmd.TeamID, cmd.ProblemID)
		if err != nil {
			return err
		}
		if err := cmd.validate(); err != nil {
			return err
		}
		return c.SubmitSolution(ctx, s.ConnID, t.roomID, t.team, t.problemID, cmd.LanguageID, cmd.Code)
	}

	return fmt.Errorf("%w: %q", domain.ErrUnknownEvent, msg.Type)
}

// metricEventType keeps label cardinality bounded for unknown types.
func metricEventType(t string) string {
	switch t {
	case ws.JoinRoom, ws.JoinSlot, ws.StartGame, ws.GetMatchDetails,
		ws.JoinProblemRoom, ws.EditorChange, ws.JoinProblemset, ws.MarkSolved,
		ws.FinishGame, ws.DisconnectRoom, ws.SubmitSolution:
		return t
	}
	return "unknown"
}
