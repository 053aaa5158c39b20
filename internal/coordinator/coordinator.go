// Package coordinator owns room state for every live match: slot membership,
// the match lifecycle and its deadline timer, and the channel fan-out that
// keeps connected clients in sync.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/hilthontt/codeclash/internal/domain"
	"github.com/hilthontt/codeclash/internal/infrastructure/logging"
	"github.com/hilthontt/codeclash/internal/infrastructure/metrics"
	"github.com/hilthontt/codeclash/internal/infrastructure/ws"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/hilthontt/codeclash/internal/coordinator"

// Gateway is the publish/subscribe transport. Calls are applied in the order
// they are made.
type Gateway interface {
	Subscribe(connID, channel string)
	Unsubscribe(connID, channel string)
	Publish(channel string, msg *ws.WSMessage, exceptConnID string)
	Send(connID string, msg *ws.WSMessage)
}

// Notifier receives committed match events after the room lock is released.
type Notifier interface {
	Notify(ctx context.Context, event domain.MatchEvent)
}

type Judge interface {
	Run(ctx context.Context, languageID int, code string, cases []domain.TestCase) ([]domain.Verdict, error)
}

type Options struct {
	Gateway       Gateway
	Logger        logging.Logger
	Metrics       *metrics.Metrics
	Scheduler     Scheduler
	Clock         func() time.Time
	MatchDuration time.Duration
	Notifier      Notifier
	Judge         Judge
	Problems      domain.ProblemRepository
	JudgeTimeout  time.Duration
	Tracer        trace.Tracer
}

type roomUnit struct {
	mu   sync.Mutex
	room *domain.Room

	// timer is set only while pending; gen invalidates callbacks of
	// timers that were cancelled.
	timer   Timer
	pending bool
	gen     uint64
}

type presence struct {
	identity string
	roomID   string
	channels map[string]struct{}
}

type Coordinator struct {
	gateway       Gateway
	logger        logging.Logger
	metrics       *metrics.Metrics
	scheduler     Scheduler
	now           func() time.Time
	matchDuration time.Duration
	notifier      Notifier
	judge         Judge
	problems      domain.ProblemRepository
	judgeTimeout  time.Duration
	tracer        trace.Tracer

	mu    sync.RWMutex
	rooms map[string]*roomUnit

	identities identityLocks

	memberMu   sync.Mutex
	membership map[string]string // identity → roomID

	presenceMu sync.Mutex
	presence   map[string]*presence // connID → presence

	inflight sync.WaitGroup
}

func New(opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = RealScheduler{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.MatchDuration <= 0 {
		opts.MatchDuration = domain.DefaultMatchDuration
	}
	if opts.JudgeTimeout <= 0 {
		opts.JudgeTimeout = 2 * time.Minute
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}

	return &Coordinator{
		gateway:       opts.Gateway,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		scheduler:     opts.Scheduler,
		now:           opts.Clock,
		matchDuration: opts.MatchDuration,
		notifier:      opts.Notifier,
		judge:         opts.Judge,
		problems:      opts.Problems,
		judgeTimeout:  opts.JudgeTimeout,
		tracer:        opts.Tracer,
		rooms:         make(map[string]*roomUnit),
		membership:    make(map[string]string),
		presence:      make(map[string]*presence),
	}
}

// getOrCreate returns the unit for roomID, creating an empty lobby on first
// reference. created is true for exactly one caller per id.
func (c *Coordinator) getOrCreate(roomID string) (unit *roomUnit, created bool) {
	c.mu.RLock()
	unit, ok := c.rooms[roomID]
	c.mu.RUnlock()
	if ok {
		return unit, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if unit, ok := c.rooms[roomID]; ok {
		return unit, false
	}
	unit = &roomUnit{room: domain.NewRoom(roomID, c.now())}
	c.rooms[roomID] = unit
	if c.metrics != nil {
		c.metrics.Rooms.Inc()
	}
	return unit, true
}

func (c *Coordinator) lookup(roomID string) (*roomUnit, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	unit, ok := c.rooms[roomID]
	return unit, ok
}

// Snapshot returns the current state of roomID without creating it.
func (c *Coordinator) Snapshot(roomID string) (domain.RoomSnapshot, error) {
	unit, ok := c.lookup(roomID)
	if !ok {
		return domain.RoomSnapshot{}, domain.ErrRoomNotFound
	}

	unit.mu.Lock()
	defer unit.mu.Unlock()
	return unit.room.Snapshot(), nil
}

func (c *Coordinator) RoomCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rooms)
}

// RoomOf returns the room identity currently belongs to.
func (c *Coordinator) RoomOf(identity string) (string, bool) {
	c.memberMu.Lock()
	defer c.memberMu.Unlock()

	roomID, ok := c.membership[identity]
	return roomID, ok
}

// Wait blocks until background judge runs have returned.
func (c *Coordinator) Wait() {
	c.inflight.Wait()
}

func (c *Coordinator) setMembership(identity, roomID string) (previous string) {
	c.memberMu.Lock()
	defer c.memberMu.Unlock()

	previous = c.membership[identity]
	c.membership[identity] = roomID
	return previous
}

// clearMembership drops identity's record only if it still points at roomID.
func (c *Coordinator) clearMembership(identity, roomID string) {
	c.memberMu.Lock()
	defer c.memberMu.Unlock()

	if c.membership[identity] == roomID {
		delete(c.membership, identity)
	}
}

func (c *Coordinator) notify(ctx context.Context, events []domain.MatchEvent) {
	if c.notifier == nil {
		return
	}
	for _, e := range events {
		c.notifier.Notify(ctx, e)
	}
}

func (c *Coordinator) event(t domain.MatchEventType, room *domain.Room, identity string) domain.MatchEvent {
	return domain.MatchEvent{
		Type:       t,
		RoomID:     room.ID,
		Identity:   identity,
		Occupants:  room.Occupants(),
		Status:     room.Status,
		OccurredAt: c.now(),
	}
}
