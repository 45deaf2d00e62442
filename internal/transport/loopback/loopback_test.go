package loopback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"reefchat/internal/protocol"
	"reefchat/internal/transport"
)

func TestLoopback_ConnectFiresConnectedListener(t *testing.T) {
	req := require.New(t)

	srv := NewServer()
	req.NoError(srv.Open(0))

	var connected []transport.Endpoint
	srv.AddConnectionListener(transport.ConnectionListener{
		Connected: func(ep transport.Endpoint) { connected = append(connected, ep) },
	})

	tc := NewClient(srv)
	req.NoError(tc.Connect(""))

	req.Len(connected, 1)
	req.Equal("loopback", connected[0].RemoteAddr())
	req.NotEmpty(connected[0].ID())
}

func TestLoopback_ConnectFailsWhenServerClosed(t *testing.T) {
	req := require.New(t)

	srv := NewServer()
	tc := NewClient(srv)

	req.ErrorIs(tc.Connect(""), ErrServerClosed)
	req.ErrorIs(tc.Send(protocol.Handshake{}), transport.ErrConnectionClosed)
}

func TestLoopback_PacketsFlowBothWays(t *testing.T) {
	req := require.New(t)

	srv := NewServer()
	req.NoError(srv.Open(0))

	var serverSide transport.Endpoint
	srv.AddConnectionListener(transport.ConnectionListener{
		Connected: func(ep transport.Endpoint) { serverSide = ep },
	})

	tc := NewClient(srv)

	// Server-to-client packets arrive on the client's drain goroutine.
	var mu sync.Mutex
	var clientInbox []protocol.Packet
	tc.AddPacketListener(func(pkt protocol.Packet) {
		mu.Lock()
		defer mu.Unlock()
		clientInbox = append(clientInbox, pkt)
	})

	req.NoError(tc.Connect(""))
	req.NotNil(serverSide)

	var serverInbox []protocol.Packet
	serverSide.AddPacketListener(func(pkt protocol.Packet) { serverInbox = append(serverInbox, pkt) })

	req.NoError(tc.Send(protocol.RegisterRequest{Name: "alice"}))
	req.NoError(serverSide.Send(protocol.RegisterResponse{Succeeded: true}))

	req.Equal([]protocol.Packet{protocol.RegisterRequest{Name: "alice"}}, serverInbox)

	req.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(clientInbox) == 1
	}, 2*time.Second, time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	req.Equal([]protocol.Packet{protocol.RegisterResponse{Succeeded: true}}, clientInbox)
}

func TestLoopback_RemovedListenerStopsReceiving(t *testing.T) {
	req := require.New(t)

	srv := NewServer()
	req.NoError(srv.Open(0))

	var serverSide transport.Endpoint
	srv.AddConnectionListener(transport.ConnectionListener{
		Connected: func(ep transport.Endpoint) { serverSide = ep },
	})

	tc := NewClient(srv)
	req.NoError(tc.Connect(""))

	count := 0
	remove := serverSide.AddPacketListener(func(pkt protocol.Packet) { count++ })

	req.NoError(tc.Send(protocol.Handshake{}))
	remove()
	req.NoError(tc.Send(protocol.Handshake{}))

	req.Equal(1, count)
}

func TestLoopback_ClientCloseFiresDisconnectedOnce(t *testing.T) {
	req := require.New(t)

	srv := NewServer()
	req.NoError(srv.Open(0))

	var reasons []int
	srv.AddConnectionListener(transport.ConnectionListener{
		Disconnected: func(ep transport.Endpoint, reason int, reasonText string) {
			reasons = append(reasons, reason)
		},
	})

	tc := NewClient(srv)
	req.NoError(tc.Connect(""))

	req.NoError(tc.Close())
	req.NoError(tc.Close())

	req.Equal([]int{transport.ReasonClosedByPeer}, reasons)
	req.ErrorIs(tc.Send(protocol.Handshake{}), transport.ErrConnectionClosed)
}

func TestLoopback_ServerCloseDisconnectsClients(t *testing.T) {
	req := require.New(t)

	srv := NewServer()
	req.NoError(srv.Open(0))

	var reasons []int
	srv.AddConnectionListener(transport.ConnectionListener{
		Disconnected: func(ep transport.Endpoint, reason int, reasonText string) {
			reasons = append(reasons, reason)
		},
	})

	tc := NewClient(srv)
	req.NoError(tc.Connect(""))

	req.NoError(srv.Close())

	req.Equal([]int{transport.ReasonServerShutdown}, reasons)
	req.False(srv.IsOpen())
	req.ErrorIs(tc.Send(protocol.Handshake{}), transport.ErrConnectionClosed)
}
