package chatclient

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"reefchat/internal/protocol"
	"reefchat/internal/transport"
)

// scriptedTransport is a transport.Client whose server side is played by the
// test: every packet the client sends is answered by the scripted reply for
// its kind, synchronously, the way the loopback transport behaves.
type scriptedTransport struct {
	mu        sync.Mutex
	listeners map[int]transport.PacketListener
	nextID    int

	// onConnect packets are pushed to the client when Connect is called.
	onConnect []protocol.Packet

	// replies maps a request kind to the packet pushed back on Send.
	replies map[protocol.Kind]protocol.Packet

	sent   []protocol.Packet
	closed bool
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{
		listeners: make(map[int]transport.PacketListener),
		replies:   make(map[protocol.Kind]protocol.Packet),
	}
}

func (st *scriptedTransport) Connect(addr string) error {
	for _, pkt := range st.onConnect {
		st.push(pkt)
	}
	return nil
}

func (st *scriptedTransport) Send(pkt protocol.Packet) error {
	st.mu.Lock()
	st.sent = append(st.sent, pkt)
	reply, ok := st.replies[pkt.Kind()]
	st.mu.Unlock()

	if ok {
		st.push(reply)
	}
	return nil
}

func (st *scriptedTransport) AddPacketListener(fn transport.PacketListener) (remove func()) {
	st.mu.Lock()
	id := st.nextID
	st.nextID++
	st.listeners[id] = fn
	st.mu.Unlock()

	return func() {
		st.mu.Lock()
		delete(st.listeners, id)
		st.mu.Unlock()
	}
}

func (st *scriptedTransport) Close() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.closed = true
	return nil
}

func (st *scriptedTransport) push(pkt protocol.Packet) {
	st.mu.Lock()
	fns := make([]transport.PacketListener, 0, len(st.listeners))
	for _, fn := range st.listeners {
		fns = append(fns, fn)
	}
	st.mu.Unlock()

	for _, fn := range fns {
		fn(pkt)
	}
}

func (st *scriptedTransport) listenerCount() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	return len(st.listeners)
}

func newTestClient(st *scriptedTransport, timeout time.Duration) *Client {
	return New(st, Options{Timeout: timeout, Logger: zerolog.Nop()})
}

func TestClient_Connect_CompletesHandshake(t *testing.T) {
	req := require.New(t)
	st := newScriptedTransport()
	st.onConnect = []protocol.Packet{protocol.Handshake{Version: protocol.Version}}

	c := newTestClient(st, time.Second)

	req.NoError(c.Connect("server"))
	req.Zero(st.listenerCount(), "handshake await must be uninstalled")
}

func TestClient_Connect_TimesOutWithoutHandshake(t *testing.T) {
	req := require.New(t)
	st := newScriptedTransport()

	c := newTestClient(st, 50*time.Millisecond)

	req.ErrorIs(c.Connect("server"), ErrServerTimeout)
	req.True(st.closed)
	req.Zero(st.listenerCount(), "timed-out await must be uninstalled")

	// A second attempt behaves the same and does not accumulate listeners.
	req.ErrorIs(c.Connect("server"), ErrServerTimeout)
	req.Zero(st.listenerCount())
}

func TestClient_Connect_RejectsVersionMismatch(t *testing.T) {
	req := require.New(t)
	st := newScriptedTransport()
	st.onConnect = []protocol.Packet{protocol.Handshake{Version: protocol.Version + 1}}

	c := newTestClient(st, time.Second)

	req.ErrorIs(c.Connect("server"), ErrProtocolVersionMismatch)
	req.True(st.closed)
}

func TestClient_Register_MapsRejectReasons(t *testing.T) {
	cases := []struct {
		name   string
		reason protocol.RegisterReject
		want   error
	}{
		{"illegal name", protocol.RejectIllegalUserName, ErrIllegalUserName},
		{"name taken", protocol.RejectUserNameAlreadyInUse, ErrUserNameAlreadyInUse},
		{"wrong password", protocol.RejectWrongPassword, ErrWrongServerPassword},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			st := newScriptedTransport()
			st.onConnect = []protocol.Packet{protocol.Handshake{Version: protocol.Version}}
			st.replies[protocol.KindRegisterRequest] = protocol.RegisterResponse{
				Succeeded: false,
				Reason:    tc.reason,
			}

			c := newTestClient(st, time.Second)
			req.NoError(c.Connect("server"))

			req.ErrorIs(c.Register("alice", ""), tc.want)
			req.Empty(c.Name())
			req.Zero(st.listenerCount())
		})
	}
}

func TestClient_Register_Succeeds(t *testing.T) {
	req := require.New(t)
	st := newScriptedTransport()
	st.onConnect = []protocol.Packet{protocol.Handshake{Version: protocol.Version}}
	st.replies[protocol.KindRegisterRequest] = protocol.RegisterResponse{Succeeded: true}

	c := newTestClient(st, time.Second)
	req.NoError(c.Connect("server"))

	req.NoError(c.Register("alice", "secret"))
	req.Equal("alice", c.Name())
	req.Equal(protocol.RegisterRequest{Name: "alice", Password: "secret"}, st.sent[0])
}

func TestClient_Register_RequiresConnection(t *testing.T) {
	req := require.New(t)
	c := newTestClient(newScriptedTransport(), time.Second)

	req.ErrorIs(c.Register("alice", ""), ErrNotConnected)
	req.ErrorIs(c.JoinRoom("lobby", ""), ErrNotConnected)
	req.ErrorIs(c.SendToRoom("lobby", "hi"), ErrNotConnected)
	req.ErrorIs(c.SendToUser("bob", "hi"), ErrNotConnected)
}

func TestClient_JoinRoom_MapsRejectReasons(t *testing.T) {
	cases := []struct {
		name   string
		reason protocol.JoinReject
		want   error
	}{
		{"does not exist", protocol.JoinRejectDoesNotExist, ErrRoomDoesNotExist},
		{"password needed", protocol.JoinRejectPasswordNeeded, ErrRoomPasswordNeeded},
		{"wrong password", protocol.JoinRejectWrongPassword, ErrWrongRoomPassword},
		{"room full", protocol.JoinRejectRoomFull, ErrRoomFull},
		{"not registered", protocol.JoinRejectNotRegistered, ErrNotRegistered},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			st := newScriptedTransport()
			st.onConnect = []protocol.Packet{protocol.Handshake{Version: protocol.Version}}
			st.replies[protocol.KindRoomJoinRequest] = protocol.RoomJoinResponse{
				Succeeded: false,
				Reason:    tc.reason,
			}

			c := newTestClient(st, time.Second)
			req.NoError(c.Connect("server"))

			req.ErrorIs(c.JoinRoom("lobby", ""), tc.want)
		})
	}
}

func TestClient_JoinRoom_Succeeds(t *testing.T) {
	req := require.New(t)
	st := newScriptedTransport()
	st.onConnect = []protocol.Packet{protocol.Handshake{Version: protocol.Version}}
	st.replies[protocol.KindRoomJoinRequest] = protocol.RoomJoinResponse{Succeeded: true}

	c := newTestClient(st, time.Second)
	req.NoError(c.Connect("server"))

	req.NoError(c.JoinRoom("vault", "hunter2"))
	req.Equal(protocol.RoomJoinRequest{RoomName: "vault", Password: "hunter2"}, st.sent[0])
}

func TestClient_LateReplyCannotResolveNextWait(t *testing.T) {
	req := require.New(t)
	st := newScriptedTransport()
	st.onConnect = []protocol.Packet{protocol.Handshake{Version: protocol.Version}}

	c := newTestClient(st, 50*time.Millisecond)
	req.NoError(c.Connect("server"))

	// The server never answers, so the register wait times out.
	req.ErrorIs(c.Register("alice", ""), ErrServerTimeout)

	// A reply arriving after the timeout must be dropped, not buffered: the
	// next wait times out on its own instead of consuming the stale success.
	st.push(protocol.RegisterResponse{Succeeded: true})

	req.ErrorIs(c.Register("alice", ""), ErrServerTimeout)
	req.Empty(c.Name())
}

func TestClient_SendHelpers_StampRegisteredName(t *testing.T) {
	req := require.New(t)
	st := newScriptedTransport()
	st.onConnect = []protocol.Packet{protocol.Handshake{Version: protocol.Version}}
	st.replies[protocol.KindRegisterRequest] = protocol.RegisterResponse{Succeeded: true}

	c := newTestClient(st, time.Second)
	req.NoError(c.Connect("server"))
	req.NoError(c.Register("alice", ""))

	req.NoError(c.SendToRoom("lobby", "hi room"))
	req.NoError(c.SendToUser("bob", "hi bob"))

	req.Equal(protocol.MessagePacket{
		Type:         protocol.MessageUserToRoom,
		SenderName:   "alice",
		ReceiverName: "lobby",
		Body:         "hi room",
	}, st.sent[1])
	req.Equal(protocol.MessagePacket{
		Type:         protocol.MessageUserToUser,
		SenderName:   "alice",
		ReceiverName: "bob",
		Body:         "hi bob",
	}, st.sent[2])
}
