package ws

import (
	"errors"
	"sync"
)

var ErrClientNotFound = errors.New("client not found")

// ChannelManager groups registered clients into named channels. Writes happen
// on the Core loop only; the lock serves readers outside it.
type ChannelManager struct {
	clients  map[string]*Client            // connID → client
	channels map[string]map[string]*Client // channel → connID → client
	joined   map[string]map[string]struct{} // connID → channels
	mu       sync.RWMutex
}

func NewChannelManager() *ChannelManager {
	return &ChannelManager{
		clients:  make(map[string]*Client),
		channels: make(map[string]map[string]*Client),
		joined:   make(map[string]map[string]struct{}),
	}
}

func (cm *ChannelManager) AddClient(cl *Client) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.clients[cl.ID]; exists {
		return false
	}
	cm.clients[cl.ID] = cl
	cm.joined[cl.ID] = make(map[string]struct{})
	return true
}

// RemoveClient detaches the client from every channel and closes its outbound
// queue.
func (cm *ChannelManager) RemoveClient(cl *Client) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, ok := cm.clients[cl.ID]; !ok {
		return false
	}
	for channel := range cm.joined[cl.ID] {
		cm.detach(cl.ID, channel)
	}
	delete(cm.joined, cl.ID)
	delete(cm.clients, cl.ID)
	close(cl.Message)
	return true
}

func (cm *ChannelManager) Subscribe(connID, channel string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cl, ok := cm.clients[connID]
	if !ok {
		return ErrClientNotFound
	}
	members, ok := cm.channels[channel]
	if !ok {
		members = make(map[string]*Client)
		cm.channels[channel] = members
	}
	members[connID] = cl
	cm.joined[connID][channel] = struct{}{}
	return nil
}

func (cm *ChannelManager) Unsubscribe(connID, channel string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, ok := cm.clients[connID]; !ok {
		return
	}
	cm.detach(connID, channel)
	delete(cm.joined[connID], channel)
}

func (cm *ChannelManager) detach(connID, channel string) {
	members, ok := cm.channels[channel]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(cm.channels, channel)
	}
}

// Members returns the clients on channel minus except.
func (cm *ChannelManager) Members(channel, except string) []*Client {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	members := cm.channels[channel]
	out := make([]*Client, 0, len(members))
	for id, cl := range members {
		if id != except {
			out = append(out, cl)
		}
	}
	return out
}

func (cm *ChannelManager) Client(connID string) (*Client, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	cl, ok := cm.clients[connID]
	return cl, ok
}

func (cm *ChannelManager) Subscribers(channel string) int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return len(cm.channels[channel])
}

func (cm *ChannelManager) Len() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return len(cm.clients)
}

func (cm *ChannelManager) closeAll() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for id, cl := range cm.clients {
		close(cl.Message)
		delete(cm.clients, id)
	}
	cm.channels = make(map[string]map[string]*Client)
	cm.joined = make(map[string]map[string]struct{})
}
