package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hilthontt/codeclash/internal/domain"
	"github.com/hilthontt/codeclash/internal/infrastructure/contracts"
	"github.com/hilthontt/codeclash/internal/infrastructure/logging"
	"github.com/hilthontt/codeclash/internal/infrastructure/messaging"
	"github.com/rabbitmq/amqp091-go"
)

type published struct {
	key string
	msg contracts.AmqpMessage
}

type fakeBroker struct {
	sent []published
	err  error
}

func (f *fakeBroker) PublishMessage(_ context.Context, key string, msg contracts.AmqpMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{key: key, msg: msg})
	return nil
}

type fakeAudit struct {
	logs []*domain.MatchAuditLog
	err  error
}

func (f *fakeAudit) Log(_ context.Context, log *domain.MatchAuditLog) error {
	if f.err != nil {
		return f.err
	}
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeAudit) GetByRoomID(context.Context, string, int) ([]domain.MatchAuditLog, error) {
	return nil, nil
}

func (f *fakeAudit) GetByEventType(context.Context, domain.MatchEventType, time.Time, time.Time) ([]domain.MatchAuditLog, error) {
	return nil, nil
}

func (f *fakeAudit) DeleteOlderThan(context.Context, time.Time) error { return nil }

func (f *fakeAudit) EnsureIndexes(context.Context) error { return nil }

func TestEveryEventTypeHasRoutingKey(t *testing.T) {
	types := []domain.MatchEventType{
		domain.EventRoomCreated, domain.EventMemberJoined, domain.EventMemberLeft,
		domain.EventSlotClaimed, domain.EventMatchStarted, domain.EventTeamFinished,
		domain.EventMatchEnded, domain.EventProblemSolved, domain.EventSolutionJudged,
	}
	bound := make(map[string]bool)
	for _, key := range contracts.MatchRoutingKeys {
		bound[key] = true
	}

	for _, typ := range types {
		key, ok := RoutingKey(typ)
		if !ok {
			t.Fatalf("no routing key for %s", typ)
		}
		if !bound[key] {
			t.Errorf("routing key %s is not bound to the audit queue", key)
		}
	}
}

func TestPublisherWrapsEvent(t *testing.T) {
	broker := &fakeBroker{}
	p := &MatchPublisher{rabbitmq: broker, logger: logging.NewNop()}

	event := domain.MatchEvent{Type: domain.EventMatchEnded, RoomID: "r1", Reason: "time_up", Status: domain.StatusEnded}
	p.Notify(context.Background(), event)

	if len(broker.sent) != 1 {
		t.Fatalf("sent = %d", len(broker.sent))
	}
	got := broker.sent[0]
	if got.key != contracts.EventMatchEnded || got.msg.RoomID != "r1" {
		t.Fatalf("published %+v", got)
	}

	var data messaging.MatchEventData
	if err := json.Unmarshal(got.msg.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Event.Reason != "time_up" {
		t.Errorf("reason = %q", data.Event.Reason)
	}
}

func TestPublisherSwallowsBrokerErrors(t *testing.T) {
	p := &MatchPublisher{rabbitmq: &fakeBroker{err: errors.New("closed")}, logger: logging.NewNop()}
	p.Notify(context.Background(), domain.MatchEvent{Type: domain.EventRoomCreated, RoomID: "r1"})

	if err := p.Publish(context.Background(), domain.MatchEvent{Type: "bogus"}); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func delivery(t *testing.T, event domain.MatchEvent) amqp091.Delivery {
	t.Helper()
	data, err := json.Marshal(messaging.MatchEventData{Event: event})
	if err != nil {
		t.Fatal(err)
	}
	body, err := json.Marshal(contracts.AmqpMessage{RoomID: event.RoomID, Data: data})
	if err != nil {
		t.Fatal(err)
	}
	return amqp091.Delivery{Body: body, RoutingKey: "slot.claimed"}
}

func TestConsumerWritesAuditLog(t *testing.T) {
	audit := &fakeAudit{}
	c := NewMatchConsumer(nil, audit, logging.NewNop())

	slot := 1
	event := domain.MatchEvent{
		Type: domain.EventSlotClaimed, RoomID: "r1", Identity: "alice",
		Team: domain.TeamB, Slot: &slot, OccurredAt: time.Unix(100, 0),
	}
	if err := c.Handle(context.Background(), delivery(t, event)); err != nil {
		t.Fatal(err)
	}

	if len(audit.logs) != 1 {
		t.Fatalf("logs = %d", len(audit.logs))
	}
	log := audit.logs[0]
	if log.RoomID != "r1" || log.Identity != "alice" || log.EventType != domain.EventSlotClaimed {
		t.Errorf("log = %+v", log)
	}
	if log.Metadata["team"] != "B" || log.Metadata["slot"] != 1 {
		t.Errorf("metadata = %v", log.Metadata)
	}
}

func TestConsumerRejectsBadPayloads(t *testing.T) {
	c := NewMatchConsumer(nil, &fakeAudit{}, logging.NewNop())
	if err := c.Handle(context.Background(), amqp091.Delivery{Body: []byte("{")}); err == nil {
		t.Fatal("expected envelope error")
	}

	failing := NewMatchConsumer(nil, &fakeAudit{err: errors.New("down")}, logging.NewNop())
	if err := failing.Handle(context.Background(), delivery(t, domain.MatchEvent{Type: domain.EventRoomCreated})); err == nil {
		t.Fatal("expected repository error")
	}
}
