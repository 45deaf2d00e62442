/*
Package protocol defines the closed set of chat packets exchanged between client and
server, together with the reject-reason enumerations carried in response packets.

Packets here are typed in-memory values; how they travel over a concrete transport
(framing, envelope encoding) is handled by the codec in this package and the
transport implementations.
*/
package protocol

// Version is the protocol version announced by the server in the Handshake packet.
// A client whose Version differs must abort before registering.
const Version = 1

// Kind identifies a packet variant inside the wire envelope.
type Kind string

const (
	KindHandshake        Kind = "HANDSHAKE"
	KindRegisterRequest  Kind = "REGISTER_REQUEST"
	KindRegisterResponse Kind = "REGISTER_RESPONSE"
	KindRoomJoinRequest  Kind = "ROOM_JOIN_REQUEST"
	KindRoomJoinResponse Kind = "ROOM_JOIN_RESPONSE"
	KindMessage          Kind = "MESSAGE"
	KindUserJoined       Kind = "USER_JOINED"
	KindUserLeft         Kind = "USER_LEFT"
)

// Packet is the closed sum of all chat packet variants. Handlers dispatch on the
// concrete type; adding a variant means extending every such switch.
type Packet interface {
	Kind() Kind
}

// RegisterReject enumerates the reasons a registration request can fail.
type RegisterReject byte

const (
	RegisterRejectNone RegisterReject = iota

	// RejectIllegalUserName indicates the requested name does not match the
	// accepted-name grammar.
	RejectIllegalUserName

	// RejectUserNameAlreadyInUse indicates another live session holds the name.
	RejectUserNameAlreadyInUse

	// RejectWrongPassword indicates the server-level password did not match.
	RejectWrongPassword
)

// JoinReject enumerates the reasons a room join request can fail.
type JoinReject byte

const (
	JoinRejectNone JoinReject = iota

	// JoinRejectDoesNotExist indicates no room with the requested name exists.
	JoinRejectDoesNotExist

	// JoinRejectPasswordNeeded indicates the room is protected and the request
	// carried an empty password.
	JoinRejectPasswordNeeded

	// JoinRejectWrongPassword indicates the supplied password did not match.
	JoinRejectWrongPassword

	// JoinRejectRoomFull indicates the room reached its capacity limit.
	JoinRejectRoomFull

	// JoinRejectNotRegistered indicates the session attempted to join before
	// completing registration.
	JoinRejectNotRegistered
)

// MessageType selects the addressing mode of a MessagePacket.
type MessageType byte

const (
	// MessageUserToRoom delivers from a user to all members of the receiver room.
	MessageUserToRoom MessageType = iota + 1

	// MessageRoomToUser is the server-originated variant addressed to one user.
	MessageRoomToUser

	// MessageUserToUser delivers to the single session registered under the
	// receiver name, best effort.
	MessageUserToUser

	// MessageRoomToRoom is the server-originated variant addressed to a room.
	MessageRoomToRoom
)

// Handshake is the first packet the server sends on every new connection.
type Handshake struct {
	Version int `json:"version"`
}

// RegisterRequest asks the server to associate a display name with the session.
// Password is the server-level password; empty when the server is open.
type RegisterRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// RegisterResponse answers a RegisterRequest. Reason is valid only when
// Succeeded is false.
type RegisterResponse struct {
	Succeeded bool           `json:"succeeded"`
	Reason    RegisterReject `json:"failReason,omitempty"`
}

// RoomJoinRequest asks the server to add the session to the named room.
type RoomJoinRequest struct {
	RoomName string `json:"roomName"`
	Password string `json:"password"`
}

// RoomJoinResponse answers a RoomJoinRequest. Reason is valid only when
// Succeeded is false.
type RoomJoinResponse struct {
	Succeeded bool       `json:"succeeded"`
	Reason    JoinReject `json:"failReason,omitempty"`
}

// MessagePacket carries chat text between users and rooms. The interpretation of
// SenderName and ReceiverName depends on Type.
type MessagePacket struct {
	Type         MessageType `json:"messageType"`
	SenderName   string      `json:"senderName"`
	ReceiverName string      `json:"receiverName"`
	Body         string      `json:"message"`
}

// UserJoined notifies existing room members that a user entered the room.
// It is never sent to the joining user itself.
type UserJoined struct {
	RoomName string `json:"roomName"`
	UserName string `json:"userName"`
}

// UserLeft notifies remaining room members that a user left the room,
// currently only as part of disconnect cleanup.
type UserLeft struct {
	RoomName string `json:"roomName"`
	UserName string `json:"userName"`
}

func (Handshake) Kind() Kind        { return KindHandshake }
func (RegisterRequest) Kind() Kind  { return KindRegisterRequest }
func (RegisterResponse) Kind() Kind { return KindRegisterResponse }
func (RoomJoinRequest) Kind() Kind  { return KindRoomJoinRequest }
func (RoomJoinResponse) Kind() Kind { return KindRoomJoinResponse }
func (MessagePacket) Kind() Kind    { return KindMessage }
func (UserJoined) Kind() Kind       { return KindUserJoined }
func (UserLeft) Kind() Kind         { return KindUserLeft }
