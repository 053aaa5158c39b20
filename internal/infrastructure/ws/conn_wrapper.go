package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type connWrapper struct {
	conn      *websocket.Conn
	mutex     sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newConnWrapper(c *websocket.Conn) *connWrapper {
	return &connWrapper{conn: c}
}

func (w *connWrapper) WriteJSON(v any, wait time.Duration) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(wait))
	return w.conn.WriteJSON(v)
}

func (w *connWrapper) WritePing(wait time.Duration) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wait))
}

func (w *connWrapper) WriteClose(wait time.Duration) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	return w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wait))
}

func (w *connWrapper) Close() error {
	w.closeOnce.Do(func() {
		w.mutex.Lock()
		defer w.mutex.Unlock()
		w.closeErr = w.conn.Close()
	})
	return w.closeErr
}
