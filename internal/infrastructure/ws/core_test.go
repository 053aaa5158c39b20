package ws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hilthontt/codeclash/internal/domain"
	"github.com/hilthontt/codeclash/internal/infrastructure/logging"
	"github.com/hilthontt/codeclash/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func startCore(t *testing.T, queue int) (*Core, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	cfg := DefaultConfig()
	cfg.QueueSize = queue
	core := NewCore(cfg, logging.NewNop(), m, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go core.Run(ctx)
	return core, m
}

func attach(t *testing.T, core *Core, id string, queue int) *Client {
	t.Helper()
	cl := NewClient(nil, id, "", queue)
	if !core.Attach(cl) {
		t.Fatal("core stopped")
	}
	return cl
}

func recv(t *testing.T, cl *Client) *WSMessage {
	t.Helper()
	select {
	case msg := <-cl.Message:
		return msg
	case <-time.After(time.Second):
		t.Fatalf("client %s received nothing", cl.ID)
		return nil
	}
}

// flush waits until every op queued before it has been applied.
func flush(t *testing.T, core *Core, cl *Client) {
	t.Helper()
	core.Send(cl.ID, &WSMessage{Type: "flush"})
	for {
		if msg := recv(t, cl); msg.Type == "flush" {
			return
		}
	}
}

func TestPublishSkipsExcludedConnection(t *testing.T) {
	core, _ := startCore(t, 8)
	a := attach(t, core, "a", 8)
	b := attach(t, core, "b", 8)

	core.Subscribe("a", "room:r1")
	core.Subscribe("b", "room:r1")
	core.Publish("room:r1", &WSMessage{Type: EditorUpdate}, "a")

	if got := recv(t, b); got.Type != EditorUpdate {
		t.Fatalf("b got %q", got.Type)
	}
	flush(t, core, a)
	if len(a.Message) != 0 {
		t.Fatal("originator received its own message")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	core, _ := startCore(t, 8)
	a := attach(t, core, "a", 8)

	core.Subscribe("a", "room:r1")
	core.Unsubscribe("a", "room:r1")
	core.Publish("room:r1", &WSMessage{Type: RoomUpdate}, "")

	flush(t, core, a)
	if core.Subscribers("room:r1") != 0 {
		t.Fatal("channel still has subscribers")
	}
}

func TestDetachClosesQueue(t *testing.T) {
	core, m := startCore(t, 8)
	a := attach(t, core, "a", 8)
	core.Subscribe("a", "room:r1")

	core.Detach(a)

	select {
	case _, ok := <-a.Message:
		if ok {
			t.Fatal("unexpected message after detach")
		}
	case <-time.After(time.Second):
		t.Fatal("queue not closed")
	}
	core.Publish("room:r1", &WSMessage{Type: RoomUpdate}, "")
	core.Send("a", &WSMessage{Type: RoomUpdate})

	witness := attach(t, core, "witness", 8)
	flush(t, core, witness)
	if got := testutil.ToFloat64(m.Connections); got != 1 {
		t.Fatalf("connections gauge = %v, want 1", got)
	}
}

func TestSlowClientDropsInsteadOfBlocking(t *testing.T) {
	core, m := startCore(t, 1)
	slow := attach(t, core, "slow", 1)
	witness := attach(t, core, "witness", 8)
	core.Subscribe("slow", "room:r1")

	for i := 0; i < 5; i++ {
		core.Publish("room:r1", &WSMessage{Type: RoomUpdate}, "")
	}
	flush(t, core, witness)

	if got := testutil.ToFloat64(m.DroppedMessages); got != 4 {
		t.Fatalf("dropped = %v, want 4", got)
	}
	if len(slow.Message) != 1 {
		t.Fatalf("slow queue len = %d", len(slow.Message))
	}
}

func TestPublishPreservesOrder(t *testing.T) {
	core, _ := startCore(t, 64)
	a := attach(t, core, "a", 64)
	core.Subscribe("a", "room:r1")

	for i := 0; i < 20; i++ {
		core.Publish("room:r1", &WSMessage{Type: RoomUpdate, Data: i}, "")
	}
	for i := 0; i < 20; i++ {
		if got := recv(t, a).Data.(int); got != i {
			t.Fatalf("message %d arrived as %d", i, got)
		}
	}
}

func TestErrorCodeMapping(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{domain.ErrMatchInProgress, CodeInvalidState},
		{domain.ErrMatchNotInProgress, CodeInvalidState},
		{domain.ErrInvalidSlot, CodeMalformedEvent},
		{domain.ErrUnknownEvent, CodeUnknownEvent},
		{domain.ErrRoomNotFound, CodeNotFound},
		{domain.ErrIdentityMismatch, CodeUnauthorized},
		{errors.New("boom"), CodeInternal},
	}
	for _, tt := range tests {
		if got := ErrorCode(tt.err); got != tt.code {
			t.Errorf("ErrorCode(%v) = %s, want %s", tt.err, got, tt.code)
		}
	}

	msg := NewErrorFromErr(StartGame, errors.New("db password wrong"))
	if msg.Data.(ErrorPayload).Message == "db password wrong" {
		t.Fatal("internal error text leaked to client")
	}
}
