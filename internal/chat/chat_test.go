package chat

import (
	"sync"

	"github.com/google/uuid"

	"reefchat/internal/protocol"
	"reefchat/internal/transport"
)

// fakeEndpoint records every packet sent to it, standing in for a remote peer.
type fakeEndpoint struct {
	id string

	mu      sync.Mutex
	packets []protocol.Packet
}

func newFakeEndpoint() *fakeEndpoint {
	return &fakeEndpoint{id: uuid.NewString()}
}

func (f *fakeEndpoint) ID() string         { return f.id }
func (f *fakeEndpoint) RemoteAddr() string { return "fake" }

func (f *fakeEndpoint) Send(pkt protocol.Packet) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.packets = append(f.packets, pkt)
	return nil
}

func (f *fakeEndpoint) AddPacketListener(fn transport.PacketListener) (remove func()) {
	return func() {}
}

func (f *fakeEndpoint) Close() error { return nil }

func (f *fakeEndpoint) received() []protocol.Packet {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]protocol.Packet, len(f.packets))
	copy(out, f.packets)
	return out
}

// newTestSession builds a session wired to a fake endpoint, already past
// registration when name is non-empty.
func newTestSession(name string) (*Session, *fakeEndpoint) {
	ep := newFakeEndpoint()
	s := &Session{
		ep:          ep,
		name:        name,
		joinedRooms: make(map[string]*Room),
	}
	return s, ep
}
