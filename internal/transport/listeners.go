package transport

import (
	"sync"

	"reefchat/internal/protocol"
)

// ListenerSet is a concurrency-safe registry of packet listeners shared by the
// transport implementations.
type ListenerSet struct {
	mu        sync.Mutex
	listeners map[int]PacketListener
	nextID    int
}

// NewListenerSet creates an empty listener registry.
func NewListenerSet() *ListenerSet {
	return &ListenerSet{listeners: make(map[int]PacketListener)}
}

// Add registers a listener and returns the function that removes it again.
func (ls *ListenerSet) Add(fn PacketListener) (remove func()) {
	ls.mu.Lock()
	id := ls.nextID
	ls.nextID++
	ls.listeners[id] = fn
	ls.mu.Unlock()

	return func() {
		ls.mu.Lock()
		delete(ls.listeners, id)
		ls.mu.Unlock()
	}
}

// Deliver invokes every registered listener with the packet. Listeners are
// snapshotted first so registration during fan-out cannot tear the iteration.
func (ls *ListenerSet) Deliver(pkt protocol.Packet) {
	ls.mu.Lock()
	snapshot := make([]PacketListener, 0, len(ls.listeners))
	for _, fn := range ls.listeners {
		snapshot = append(snapshot, fn)
	}
	ls.mu.Unlock()

	for _, fn := range snapshot {
		fn(pkt)
	}
}
