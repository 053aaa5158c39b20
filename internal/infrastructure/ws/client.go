package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/codeclash/internal/infrastructure/logging"
)

// Session identifies the connection an inbound event arrived on. Identity is
// empty unless the upgrade carried a verified token.
type Session struct {
	ConnID   string
	Identity string
}

type Dispatcher interface {
	Dispatch(ctx context.Context, s Session, msg *InboundMessage) error
	Disconnect(ctx context.Context, connID string)
}

type Client struct {
	conn     *connWrapper
	Message  chan *WSMessage
	ID       string `json:"id"`
	Identity string `json:"identity,omitempty"`
}

func NewClient(conn *websocket.Conn, id, identity string, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = DefaultConfig().QueueSize
	}
	return &Client{
		conn:     newConnWrapper(conn),
		Message:  make(chan *WSMessage, queueSize), // buffered to avoid dead-locks on slow clients
		ID:       id,
		Identity: identity,
	}
}

func (c *Client) session() Session {
	return Session{ConnID: c.ID, Identity: c.Identity}
}

// ReadMessage pumps inbound frames into dispatcher until the connection
// fails. On exit the dispatcher runs disconnect cleanup for this connection.
func (c *Client) ReadMessage(ctx context.Context, core *Core, dispatcher Dispatcher) {
	defer func() {
		dispatcher.Disconnect(context.WithoutCancel(ctx), c.ID)
		core.Detach(c)
		_ = c.conn.Close()
	}()

	c.conn.conn.SetReadLimit(core.cfg.ReadLimit)
	_ = c.conn.conn.SetReadDeadline(time.Now().Add(core.cfg.PongWait))
	c.conn.conn.SetPongHandler(func(string) error {
		return c.conn.conn.SetReadDeadline(time.Now().Add(core.cfg.PongWait))
	})

	for {
		_, raw, err := c.conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				core.logger.Warn(logging.Websocket, logging.Disconnect, "ws read error", map[logging.ExtraKey]any{
					logging.ConnID:       c.ID,
					logging.ErrorMessage: err.Error(),
				})
			}
			break
		}

		c.handleFrame(ctx, core, dispatcher, raw)
	}
}

func (c *Client) handleFrame(ctx context.Context, core *Core, dispatcher Dispatcher, raw []byte) {
	var msg InboundMessage
	parseErr := json.Unmarshal(raw, &msg)

	if ok, _ := core.budget.Allow(c.ID, EventClass(msg.Type)); !ok {
		core.metrics.EventsDispatched.WithLabelValues("", "rate_limited").Inc()
		core.Send(c.ID, NewError(msg.Type, CodeRateLimited, "too many events"))
		return
	}

	if parseErr != nil || msg.Type == "" {
		core.metrics.EventsDispatched.WithLabelValues("", "malformed").Inc()
		core.Send(c.ID, NewError("", CodeMalformedEvent, "expected {\"type\": ..., \"data\": {...}}"))
		return
	}

	if err := dispatcher.Dispatch(ctx, c.session(), &msg); err != nil {
		reply := NewErrorFromErr(msg.Type, err)
		if payload, ok := reply.Data.(ErrorPayload); ok && payload.Code == CodeInternal {
			core.logger.Error(logging.Websocket, logging.Dispatch, "dispatch failed", map[logging.ExtraKey]any{
				logging.ConnID:       c.ID,
				logging.EventType:    msg.Type,
				logging.ErrorMessage: err.Error(),
			})
		}
		core.Send(c.ID, reply)
	}
}

func (c *Client) WriteMessage(core *Core) {
	ticker := time.NewTicker(core.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Message:
			if !ok {
				_ = c.conn.WriteClose(core.cfg.WriteWait)
				return
			}
			if err := c.conn.WriteJSON(msg, core.cfg.WriteWait); err != nil {
				core.logger.Warn(logging.Websocket, logging.Disconnect, "ws write error", map[logging.ExtraKey]any{
					logging.ConnID:       c.ID,
					logging.ErrorMessage: err.Error(),
				})
				return
			}
		case <-ticker.C:
			if err := c.conn.WritePing(core.cfg.WriteWait); err != nil {
				return
			}
		}
	}
}
