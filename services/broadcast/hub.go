package broadcastsvc

import (
	"sync"

	"github.com/trezcool/lifeline/core"
)

const subscriberBuffer = 16

// Hub is an in-process realtime fan-out registry. It exclusively owns the
// connection-to-user mapping; collaborators only ever see the narrow
// core.Broadcaster capability. Sends are non-blocking: a subscriber that
// stops draining its channel loses events rather than stalling the hub.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan core.Event // userID -> subID -> chan
}

var _ core.Broadcaster = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan core.Event)}
}

func (h *Hub) Broadcast(evt core.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, chans := range h.subs {
		for _, ch := range chans {
			select {
			case ch <- evt:
			default: // slow subscriber, drop
			}
		}
	}
}

func (h *Hub) Send(userID string, evt core.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[userID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribe registers a connection for userID. The returned cancel func
// must be called when the connection goes away; it closes the channel.
func (h *Hub) Subscribe(userID string) (<-chan core.Event, func()) {
	ch := make(chan core.Event, subscriberBuffer)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[int]chan core.Event)
	}
	h.subs[userID][id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if chans, ok := h.subs[userID]; ok {
			if _, ok := chans[id]; ok {
				delete(chans, id)
				close(ch)
			}
			if len(chans) == 0 {
				delete(h.subs, userID)
			}
		}
	}
	return ch, cancel
}

// Online reports the userIDs with at least one live subscription.
func (h *Hub) Online() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	return ids
}
