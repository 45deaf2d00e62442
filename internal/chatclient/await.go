package chatclient

import (
	"sync"

	"reefchat/internal/protocol"
	"reefchat/internal/transport"
)

// await correlates one request with its reply packet. It installs a packet
// listener, hands back a channel the caller blocks on, and guarantees the
// listener is removed whether the reply arrives, the wait times out, or the
// connection drops. A reply arriving after cancel is discarded, never
// delivered to a later await.
type await struct {
	once   sync.Once
	ch     chan protocol.Packet
	remove func()
}

// newAwait installs a listener on tc that resolves with the first packet
// matching want. Install the await before sending the request so a fast reply
// cannot slip past.
func newAwait(tc transport.Client, want protocol.Kind) *await {
	a := &await{ch: make(chan protocol.Packet, 1)}

	a.remove = tc.AddPacketListener(func(pkt protocol.Packet) {
		if pkt.Kind() != want {
			return
		}
		a.once.Do(func() {
			a.ch <- pkt
		})
	})

	return a
}

// cancel removes the listener and poisons the await so a racing reply is
// dropped instead of buffered. Safe to call more than once.
func (a *await) cancel() {
	a.once.Do(func() {})
	a.remove()
}
