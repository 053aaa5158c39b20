package coordinator

import "github.com/hilthontt/codeclash/internal/infrastructure/ws"

type deliveryKind int

const (
	deliverPublish deliveryKind = iota
	deliverSend
	deliverSubscribe
	deliverUnsubscribe
)

type delivery struct {
	kind    deliveryKind
	channel string
	connID  string
	msg     *ws.WSMessage
}

func publish(channel string, msg *ws.WSMessage) delivery {
	return delivery{kind: deliverPublish, channel: channel, msg: msg}
}

func publishExcept(channel, connID string, msg *ws.WSMessage) delivery {
	return delivery{kind: deliverPublish, channel: channel, connID: connID, msg: msg}
}

func send(connID string, msg *ws.WSMessage) delivery {
	return delivery{kind: deliverSend, connID: connID, msg: msg}
}

func subscribe(connID, channel string) delivery {
	return delivery{kind: deliverSubscribe, connID: connID, channel: channel}
}

func unsubscribe(connID, channel string) delivery {
	return delivery{kind: deliverUnsubscribe, connID: connID, channel: channel}
}

// flush hands deliveries to the gateway in order. Callers that mutate a room
// hold its lock across flush.
func (c *Coordinator) flush(ds []delivery) {
	for _, d := range ds {
		switch d.kind {
		case deliverPublish:
			c.gateway.Publish(d.channel, d.msg, d.connID)
		case deliverSend:
			c.gateway.Send(d.connID, d.msg)
		case deliverSubscribe:
			c.gateway.Subscribe(d.connID, d.channel)
		case deliverUnsubscribe:
			c.gateway.Unsubscribe(d.connID, d.channel)
		}
	}
}
