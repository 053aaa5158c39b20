package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hilthontt/codeclash/internal/domain"
	"github.com/hilthontt/codeclash/internal/infrastructure/contracts"
	"github.com/hilthontt/codeclash/internal/infrastructure/logging"
	"github.com/hilthontt/codeclash/internal/infrastructure/messaging"
	"github.com/rabbitmq/amqp091-go"
)

// MatchConsumer writes every match event from the broker into the audit log.
type MatchConsumer struct {
	rabbitmq *messaging.RabbitMQ
	audit    domain.MatchAuditRepository
	logger   logging.Logger
}

func NewMatchConsumer(rabbitmq *messaging.RabbitMQ, audit domain.MatchAuditRepository, logger logging.Logger) *MatchConsumer {
	return &MatchConsumer{
		rabbitmq: rabbitmq,
		audit:    audit,
		logger:   logger,
	}
}

func (c *MatchConsumer) Listen() error {
	return c.rabbitmq.ConsumeMessages(messaging.MatchEventsQueue, c.Handle)
}

func (c *MatchConsumer) Handle(ctx context.Context, msg amqp091.Delivery) error {
	var message contracts.AmqpMessage
	if err := json.Unmarshal(msg.Body, &message); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}

	var payload messaging.MatchEventData
	if err := json.Unmarshal(message.Data, &payload); err != nil {
		return fmt.Errorf("unmarshal match event: %w", err)
	}

	if err := c.audit.Log(ctx, domain.NewMatchAuditLog(payload.Event)); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}

	c.logger.Debug(logging.MongoDB, logging.Insert, "match event audited", map[logging.ExtraKey]any{
		logging.RoomID:     payload.Event.RoomID,
		logging.EventType:  string(payload.Event.Type),
		logging.RoutingKey: msg.RoutingKey,
	})
	return nil
}
