package coordinator

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/hilthontt/codeclash/internal/domain"
	"github.com/hilthontt/codeclash/internal/infrastructure/metrics"
	"github.com/hilthontt/codeclash/internal/infrastructure/ws"
	"github.com/prometheus/client_golang/prometheus"
)

// fakeGateway applies every call synchronously.
type fakeGateway struct {
	mu    sync.Mutex
	subs  map[string]map[string]bool
	inbox map[string][]*ws.WSMessage
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		subs:  make(map[string]map[string]bool),
		inbox: make(map[string][]*ws.WSMessage),
	}
}

func (g *fakeGateway) Subscribe(connID, channel string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.subs[channel] == nil {
		g.subs[channel] = make(map[string]bool)
	}
	g.subs[channel][connID] = true
}

func (g *fakeGateway) Unsubscribe(connID, channel string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.subs[channel], connID)
}

func (g *fakeGateway) Publish(channel string, msg *ws.WSMessage, except string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for connID := range g.subs[channel] {
		if connID != except {
			g.inbox[connID] = append(g.inbox[connID], msg)
		}
	}
}

func (g *fakeGateway) Send(connID string, msg *ws.WSMessage) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inbox[connID] = append(g.inbox[connID], msg)
}

func (g *fakeGateway) subscribed(connID, channel string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.subs[channel][connID]
}

// drain returns and clears everything delivered to connID.
func (g *fakeGateway) drain(connID string) []*ws.WSMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	msgs := g.inbox[connID]
	delete(g.inbox, connID)
	return msgs
}

func ofType(msgs []*ws.WSMessage, t string) []*ws.WSMessage {
	var out []*ws.WSMessage
	for _, m := range msgs {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *fakeScheduler) timer(i int) *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[i]
}

// fire runs timer i unless it was stopped.
func (s *fakeScheduler) fire(i int) {
	t := s.timer(i)
	if t.stopped {
		return
	}
	t.fired = true
	t.f()
}

// fireLate runs timer i even if Stop was called, as when Stop loses the race
// with an expiring timer.
func (s *fakeScheduler) fireLate(i int) {
	t := s.timer(i)
	t.fired = true
	t.f()
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.MatchEvent
}

func (n *recordingNotifier) Notify(_ context.Context, e domain.MatchEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) types() []domain.MatchEventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.MatchEventType, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}

type fakeJudge struct {
	verdicts []domain.Verdict
	err      error
	calls    int
	mu       sync.Mutex
}

func (j *fakeJudge) Run(ctx context.Context, languageID int, code string, cases []domain.TestCase) ([]domain.Verdict, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls++
	return j.verdicts, j.err
}

type fakeProblems map[string]*domain.Problem

func (p fakeProblems) GetByID(_ context.Context, id string) (*domain.Problem, error) {
	if prob, ok := p[id]; ok {
		return prob, nil
	}
	return nil, domain.ErrProblemNotFound
}

var epoch = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type harness struct {
	c        *Coordinator
	gw       *fakeGateway
	sched    *fakeScheduler
	clock    *fakeClock
	notifier *recordingNotifier
	metrics  *metrics.Metrics
}

func newHarness(t *testing.T, opts ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		gw:       newFakeGateway(),
		sched:    &fakeScheduler{},
		clock:    &fakeClock{now: epoch},
		notifier: &recordingNotifier{},
		metrics:  metrics.New(prometheus.NewRegistry()),
	}
	o := Options{
		Gateway:   h.gw,
		Scheduler: h.sched,
		Clock:     h.clock.Now,
		Notifier:  h.notifier,
		Metrics:   h.metrics,
	}
	for _, opt := range opts {
		opt(&o)
	}
	h.c = New(o)
	return h
}

// send dispatches an event as if it arrived on connID.
func (h *harness) send(t *testing.T, connID, eventType string, data any) error {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	return h.c.Dispatch(context.Background(), ws.Session{ConnID: connID}, &ws.InboundMessage{
		Type: eventType,
		Data: raw,
	})
}

func (h *harness) mustSend(t *testing.T, connID, eventType string, data any) {
	t.Helper()
	if err := h.send(t, connID, eventType, data); err != nil {
		t.Fatalf("%s from %s: %v", eventType, connID, err)
	}
}

func (h *harness) snapshot(t *testing.T, roomID string) domain.RoomSnapshot {
	t.Helper()
	snap, err := h.c.Snapshot(roomID)
	if err != nil {
		t.Fatalf("snapshot %s: %v", roomID, err)
	}
	return snap
}

func lastRoomUpdate(t *testing.T, msgs []*ws.WSMessage) domain.RoomSnapshot {
	t.Helper()
	updates := ofType(msgs, ws.RoomUpdate)
	if len(updates) == 0 {
		t.Fatal("no roomUpdate delivered")
	}
	return updates[len(updates)-1].Data.(domain.RoomSnapshot)
}
