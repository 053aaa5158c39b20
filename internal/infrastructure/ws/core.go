package ws

import (
	"context"
	"time"

	"github.com/hilthontt/codeclash/internal/domain"
	"github.com/hilthontt/codeclash/internal/infrastructure/logging"
	"github.com/hilthontt/codeclash/internal/infrastructure/metrics"
	"github.com/hilthontt/codeclash/internal/infrastructure/ratelimiter"
)

type Config struct {
	ReadLimit  int64
	PongWait   time.Duration
	PingPeriod time.Duration
	WriteWait  time.Duration
	QueueSize  int
}

func DefaultConfig() Config {
	return Config{
		ReadLimit:  domain.MaxEventBytes,
		PongWait:   60 * time.Second,
		PingPeriod: 54 * time.Second,
		WriteWait:  10 * time.Second,
		QueueSize:  64,
	}
}

type opKind int

const (
	opSubscribe opKind = iota
	opUnsubscribe
	opPublish
	opSend
)

type op struct {
	kind    opKind
	connID  string
	channel string
	msg     *WSMessage
}

// Core owns every registered client. All channel membership changes and
// deliveries travel through one queue so they apply in submission order.
type Core struct {
	cfg        Config
	channels   *ChannelManager
	register   chan *Client
	unregister chan *Client
	ops        chan op
	done       chan struct{}
	logger     logging.Logger
	metrics    *metrics.Metrics
	budget     *ratelimiter.EventBudget
}

func NewCore(cfg Config, logger logging.Logger, m *metrics.Metrics, budget *ratelimiter.EventBudget) *Core {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	return &Core{
		cfg:        cfg,
		channels:   NewChannelManager(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ops:        make(chan op, 1024),
		done:       make(chan struct{}),
		logger:     logger,
		metrics:    m,
		budget:     budget,
	}
}

func (c *Core) Run(ctx context.Context) {
	defer func() {
		close(c.done)
		c.channels.closeAll()
	}()

	for {
		select {
		case cl := <-c.register:
			if c.channels.AddClient(cl) {
				c.metrics.Connections.Inc()
			}

		case cl := <-c.unregister:
			if c.channels.RemoveClient(cl) {
				c.metrics.Connections.Dec()
				c.budget.Forget(cl.ID)
			}

		case o := <-c.ops:
			c.apply(o)

		case <-ctx.Done():
			return
		}
	}
}

func (c *Core) apply(o op) {
	switch o.kind {
	case opSubscribe:
		if err := c.channels.Subscribe(o.connID, o.channel); err != nil {
			c.logger.Debug(logging.Websocket, logging.Dispatch, "subscribe for unknown connection", map[logging.ExtraKey]any{
				logging.ConnID: o.connID,
				"channel":      o.channel,
			})
		}
	case opUnsubscribe:
		c.channels.Unsubscribe(o.connID, o.channel)
	case opPublish:
		for _, cl := range c.channels.Members(o.channel, o.connID) {
			c.deliver(cl, o.msg)
		}
	case opSend:
		if cl, ok := c.channels.Client(o.connID); ok {
			c.deliver(cl, o.msg)
		}
	}
}

func (c *Core) deliver(cl *Client, msg *WSMessage) {
	select {
	case cl.Message <- msg:
	default:
		c.metrics.DroppedMessages.Inc()
		c.logger.Warn(logging.Websocket, logging.SlowClient, "client buffer full, dropping message", map[logging.ExtraKey]any{
			logging.ConnID:    cl.ID,
			logging.EventType: msg.Type,
		})
	}
}

func (c *Core) enqueue(o op) {
	select {
	case c.ops <- o:
	case <-c.done:
	}
}

// Attach registers cl and reports false once the core has stopped.
func (c *Core) Attach(cl *Client) bool {
	select {
	case c.register <- cl:
		return true
	case <-c.done:
		return false
	}
}

func (c *Core) Detach(cl *Client) {
	select {
	case c.unregister <- cl:
	case <-c.done:
	}
}

func (c *Core) Subscribe(connID, channel string) {
	c.enqueue(op{kind: opSubscribe, connID: connID, channel: channel})
}

func (c *Core) Unsubscribe(connID, channel string) {
	c.enqueue(op{kind: opUnsubscribe, connID: connID, channel: channel})
}

// Publish fans msg out to channel, skipping exceptConnID when it is set.
func (c *Core) Publish(channel string, msg *WSMessage, exceptConnID string) {
	c.enqueue(op{kind: opPublish, channel: channel, msg: msg, connID: exceptConnID})
}

func (c *Core) Send(connID string, msg *WSMessage) {
	c.enqueue(op{kind: opSend, connID: connID, msg: msg})
}

// QueueSize is the outbound buffer each new client should be created with.
func (c *Core) QueueSize() int {
	return c.cfg.QueueSize
}

func (c *Core) Connections() int {
	return c.channels.Len()
}

func (c *Core) Subscribers(channel string) int {
	return c.channels.Subscribers(channel)
}
