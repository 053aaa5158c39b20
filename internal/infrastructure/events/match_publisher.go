package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hilthontt/codeclash/internal/domain"
	"github.com/hilthontt/codeclash/internal/infrastructure/contracts"
	"github.com/hilthontt/codeclash/internal/infrastructure/logging"
	"github.com/hilthontt/codeclash/internal/infrastructure/messaging"
)

type messagePublisher interface {
	PublishMessage(ctx context.Context, routingKey string, message contracts.AmqpMessage) error
}

var routingKeys = map[domain.MatchEventType]string{
	domain.EventRoomCreated:    contracts.EventRoomCreated,
	domain.EventMemberJoined:   contracts.EventMemberJoined,
	domain.EventMemberLeft:     contracts.EventMemberLeft,
	domain.EventSlotClaimed:    contracts.EventSlotClaimed,
	domain.EventMatchStarted:   contracts.EventMatchStarted,
	domain.EventTeamFinished:   contracts.EventTeamFinished,
	domain.EventMatchEnded:     contracts.EventMatchEnded,
	domain.EventProblemSolved:  contracts.EventProblemSolved,
	domain.EventSolutionJudged: contracts.EventSolutionJudged,
}

func RoutingKey(eventType domain.MatchEventType) (string, bool) {
	key, ok := routingKeys[eventType]
	return key, ok
}

// MatchPublisher forwards committed match events to the message broker.
// Failures are logged and never reach the room.
type MatchPublisher struct {
	rabbitmq messagePublisher
	logger   logging.Logger
}

func NewMatchPublisher(rabbitmq *messaging.RabbitMQ, logger logging.Logger) *MatchPublisher {
	return &MatchPublisher{
		rabbitmq: rabbitmq,
		logger:   logger,
	}
}

func (p *MatchPublisher) Notify(ctx context.Context, event domain.MatchEvent) {
	if err := p.Publish(ctx, event); err != nil {
		p.logger.Error(logging.RabbitMQ, logging.Publish, "failed to publish match event", map[logging.ExtraKey]any{
			logging.RoomID:       event.RoomID,
			logging.EventType:    string(event.Type),
			logging.ErrorMessage: err.Error(),
		})
	}
}

func (p *MatchPublisher) Publish(ctx context.Context, event domain.MatchEvent) error {
	key, ok := RoutingKey(event.Type)
	if !ok {
		return fmt.Errorf("no routing key for event type %q", event.Type)
	}

	payload, err := json.Marshal(messaging.MatchEventData{Event: event})
	if err != nil {
		return err
	}

	return p.rabbitmq.PublishMessage(ctx, key, contracts.AmqpMessage{
		RoomID: event.RoomID,
		Data:   payload,
	})
}
