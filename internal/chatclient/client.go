/*
Package chatclient turns the asynchronous packet transport into the blocking
client-side protocol: connect and await the server's version handshake, then
register a name, then join rooms, each call returning only when the server has
answered or the wait has timed out.
*/
package chatclient

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"reefchat/internal/protocol"
	"reefchat/internal/transport"
)

// DefaultTimeout bounds every blocking wait on a server reply.
const DefaultTimeout = 30 * time.Second

var (
	// ErrServerTimeout is returned when the server does not answer within the
	// configured timeout.
	ErrServerTimeout = errors.New("chatclient: timed out waiting for server")

	// ErrProtocolVersionMismatch is returned when the server speaks a
	// different protocol version.
	ErrProtocolVersionMismatch = errors.New("chatclient: protocol version mismatch")

	// ErrNotConnected is returned by operations that require a completed
	// handshake.
	ErrNotConnected = errors.New("chatclient: not connected")

	// Registration rejections, one per reject reason.
	ErrIllegalUserName      = errors.New("chatclient: illegal user name")
	ErrUserNameAlreadyInUse = errors.New("chatclient: user name already in use")
	ErrWrongServerPassword  = errors.New("chatclient: wrong server password")
	ErrRegistrationRejected = errors.New("chatclient: registration rejected")

	// Room join rejections, one per reject reason.
	ErrRoomDoesNotExist   = errors.New("chatclient: room does not exist")
	ErrRoomPasswordNeeded = errors.New("chatclient: room password needed")
	ErrWrongRoomPassword  = errors.New("chatclient: wrong room password")
	ErrRoomFull           = errors.New("chatclient: room full")
	ErrNotRegistered      = errors.New("chatclient: not registered")
	ErrJoinRejected       = errors.New("chatclient: room join rejected")
)

// Options configures a Client.
type Options struct {
	// Timeout bounds each blocking wait. Zero means DefaultTimeout.
	Timeout time.Duration

	Logger zerolog.Logger
}

// Client is a blocking chat client over an asynchronous transport.
type Client struct {
	tc      transport.Client
	timeout time.Duration
	logger  zerolog.Logger

	connected bool
	name      string
}

// New wraps a transport client. The transport must not be connected yet;
// Connect installs the handshake listener before dialing so the server's first
// packet cannot be missed.
func New(tc transport.Client, opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		tc:      tc,
		timeout: timeout,
		logger:  opts.Logger.With().Str("component", "chat_client").Logger(),
	}
}

// Connect dials the server and blocks until the version handshake arrives.
// A server speaking another protocol version fails the connection.
func (c *Client) Connect(addr string) error {
	a := newAwait(c.tc, protocol.KindHandshake)
	defer a.cancel()

	if err := c.tc.Connect(addr); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	pkt, err := c.wait(a)
	if err != nil {
		c.tc.Close()
		return err
	}

	hs, ok := pkt.(protocol.Handshake)
	if !ok || hs.Version != protocol.Version {
		c.tc.Close()
		c.logger.Warn().Int("server_version", hs.Version).Int("client_version", protocol.Version).
			Msg("Protocol version mismatch")
		return ErrProtocolVersionMismatch
	}

	c.connected = true
	c.logger.Info().Str("addr", addr).Msg("Connected")
	return nil
}

// Register claims a display name, blocking until the server answers. The
// password is the server-wide registration password, "" when the server is
// open.
func (c *Client) Register(name, password string) error {
	if !c.connected {
		return ErrNotConnected
	}

	a := newAwait(c.tc, protocol.KindRegisterResponse)
	defer a.cancel()

	if err := c.tc.Send(protocol.RegisterRequest{Name: name, Password: password}); err != nil {
		return fmt.Errorf("send register request: %w", err)
	}

	pkt, err := c.wait(a)
	if err != nil {
		return err
	}

	resp, ok := pkt.(protocol.RegisterResponse)
	if !ok {
		return ErrRegistrationRejected
	}
	if !resp.Succeeded {
		return registerErr(resp.Reason)
	}

	c.name = name
	c.logger.Info().Str("user_name", name).Msg("Registered")
	return nil
}

// JoinRoom enters a room, blocking until the server answers. The password is
// the room's entry password, "" for open rooms.
func (c *Client) JoinRoom(roomName, password string) error {
	if !c.connected {
		return ErrNotConnected
	}

	a := newAwait(c.tc, protocol.KindRoomJoinResponse)
	defer a.cancel()

	if err := c.tc.Send(protocol.RoomJoinRequest{RoomName: roomName, Password: password}); err != nil {
		return fmt.Errorf("send room join request: %w", err)
	}

	pkt, err := c.wait(a)
	if err != nil {
		return err
	}

	resp, ok := pkt.(protocol.RoomJoinResponse)
	if !ok {
		return ErrJoinRejected
	}
	if !resp.Succeeded {
		return joinErr(resp.Reason)
	}

	c.logger.Info().Str("room", roomName).Msg("Joined room")
	return nil
}

// SendToRoom sends a message to every member of a room.
func (c *Client) SendToRoom(roomName, body string) error {
	if !c.connected {
		return ErrNotConnected
	}

	return c.tc.Send(protocol.MessagePacket{
		Type:         protocol.MessageUserToRoom,
		SenderName:   c.name,
		ReceiverName: roomName,
		Body:         body,
	})
}

// SendToUser sends a direct message to one registered user.
func (c *Client) SendToUser(userName, body string) error {
	if !c.connected {
		return ErrNotConnected
	}

	return c.tc.Send(protocol.MessagePacket{
		Type:         protocol.MessageUserToUser,
		SenderName:   c.name,
		ReceiverName: userName,
		Body:         body,
	})
}

// AddPacketListener subscribes to server-pushed packets (messages, room
// events). The remove function drops the subscription.
func (c *Client) AddPacketListener(fn transport.PacketListener) (remove func()) {
	return c.tc.AddPacketListener(fn)
}

// Name returns the registered display name, "" before Register succeeds.
func (c *Client) Name() string {
	return c.name
}

// Close tears the connection down. Idempotent.
func (c *Client) Close() error {
	c.connected = false
	return c.tc.Close()
}

// wait blocks until the await resolves or the timeout elapses.
func (c *Client) wait(a *await) (protocol.Packet, error) {
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case pkt := <-a.ch:
		return pkt, nil
	case <-timer.C:
		return nil, ErrServerTimeout
	}
}

func registerErr(reason protocol.RegisterReject) error {
	switch reason {
	case protocol.RejectIllegalUserName:
		return ErrIllegalUserName
	case protocol.RejectUserNameAlreadyInUse:
		return ErrUserNameAlreadyInUse
	case protocol.RejectWrongPassword:
		return ErrWrongServerPassword
	default:
		return ErrRegistrationRejected
	}
}

func joinErr(reason protocol.JoinReject) error {
	switch reason {
	case protocol.JoinRejectDoesNotExist:
		return ErrRoomDoesNotExist
	case protocol.JoinRejectPasswordNeeded:
		return ErrRoomPasswordNeeded
	case protocol.JoinRejectWrongPassword:
		return ErrWrongRoomPassword
	case protocol.JoinRejectRoomFull:
		return ErrRoomFull
	case protocol.JoinRejectNotRegistered:
		return ErrNotRegistered
	default:
		return ErrJoinRejected
	}
}
