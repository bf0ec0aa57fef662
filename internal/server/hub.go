package server

import (
	"sync"

	"go.uber.org/zap"

	"github.com/park285/chessboard/pkg/boarddto"
)

const subscriberBuffer = 16

type Subscriber struct {
	send chan boarddto.Message
}

// C yields queued frames until the subscriber is dropped.
func (s *Subscriber) C() <-chan boarddto.Message { return s.send }

// Hub fans session frames out to the WebSocket connections watching that session.
// Slow subscribers are dropped rather than blocking the publisher.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscriber]struct{}
	closed bool
	logger *zap.Logger

	fwdM    sync.RWMutex
	forward func(id string, msg boarddto.Message, drop bool)
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{subs: make(map[string]map[*Subscriber]struct{}), logger: logger}
}

// Subscribe registers a watcher. The returned channel is closed when the
// watcher is dropped, the session is deleted or the hub shuts down.
func (h *Hub) Subscribe(id string) *Subscriber {
	sub := &Subscriber{send: make(chan boarddto.Message, subscriberBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.send)
		return sub
	}
	set, ok := h.subs[id]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.subs[id] = set
	}
	set[sub] = struct{}{}
	return sub
}

func (h *Hub) Unsubscribe(id string, sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(id, sub)
}

// Publish delivers to local watchers and, with a relay attached, to other instances.
func (h *Hub) Publish(id string, msg boarddto.Message) {
	h.deliver(id, msg)
	if fwd := h.forwarder(); fwd != nil {
		fwd(id, msg, false)
	}
}

func (h *Hub) deliver(id string, msg boarddto.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[id] {
		select {
		case sub.send <- msg:
		default:
			h.logger.Warn("ws subscriber too slow, dropping", zap.String("session_uuid", id))
			h.removeLocked(id, sub)
		}
	}
}

// Send queues a frame for one subscriber only.
func (h *Hub) Send(id string, sub *Subscriber, msg boarddto.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[id][sub]; !ok {
		return
	}
	select {
	case sub.send <- msg:
	default:
		h.removeLocked(id, sub)
	}
}

// Drop disconnects every watcher of a session.
func (h *Hub) Drop(id string) {
	h.dropLocal(id)
	if fwd := h.forwarder(); fwd != nil {
		fwd(id, boarddto.Message{}, true)
	}
}

func (h *Hub) dropLocal(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[id] {
		h.removeLocked(id, sub)
	}
}

func (h *Hub) Count(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[id])
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, set := range h.subs {
		for sub := range set {
			close(sub.send)
		}
		delete(h.subs, id)
	}
}

func (h *Hub) setForwarder(fn func(id string, msg boarddto.Message, drop bool)) {
	h.fwdM.Lock()
	h.forward = fn
	h.fwdM.Unlock()
}

func (h *Hub) forwarder() func(id string, msg boarddto.Message, drop bool) {
	h.fwdM.RLock()
	defer h.fwdM.RUnlock()
	return h.forward
}

func (h *Hub) removeLocked(id string, sub *Subscriber) {
	set, ok := h.subs[id]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.send)
	if len(set) == 0 {
		delete(h.subs, id)
	}
}
