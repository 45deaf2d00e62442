/*
Package protocol defines the closed set of chat packets exchanged between client and
server, together with the reject-reason enumerations carried in response packets.

This file implements the JSON envelope codec used by transports that carry packets
as self-describing frames: a type tag plus the packet payload.
*/
package protocol

import (
	"encoding/json"
	"fmt"
)

// envelope is the wire frame: a kind tag and the raw packet payload.
type envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Marshal encodes a packet into its JSON envelope frame.
//
// Every member of the closed packet set is encodable; a failure here means a
// programming error in the caller, not a recoverable condition.
func Marshal(pkt Packet) ([]byte, error) {
	payload, err := json.Marshal(pkt)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", pkt.Kind(), err)
	}

	return json.Marshal(envelope{Type: pkt.Kind(), Payload: payload})
}

// Unmarshal decodes a JSON envelope frame back into a typed packet.
// Frames carrying an unknown type tag are rejected.
func Unmarshal(data []byte) (Packet, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}

	var pkt Packet

	switch env.Type {
	case KindHandshake:
		pkt = &Handshake{}
	case KindRegisterRequest:
		pkt = &RegisterRequest{}
	case KindRegisterResponse:
		pkt = &RegisterResponse{}
	case KindRoomJoinRequest:
		pkt = &RoomJoinRequest{}
	case KindRoomJoinResponse:
		pkt = &RoomJoinResponse{}
	case KindMessage:
		pkt = &MessagePacket{}
	case KindUserJoined:
		pkt = &UserJoined{}
	case KindUserLeft:
		pkt = &UserLeft{}
	default:
		return nil, fmt.Errorf("unknown packet type %q", env.Type)
	}

	if err := json.Unmarshal(env.Payload, pkt); err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", env.Type, err)
	}

	return deref(pkt), nil
}

// deref returns the value form of a decoded packet so both codec directions and
// direct in-memory delivery hand the same concrete types to dispatchers.
func deref(pkt Packet) Packet {
	switch p := pkt.(type) {
	case *Handshake:
		return *p
	case *RegisterRequest:
		return *p
	case *RegisterResponse:
		return *p
	case *RoomJoinRequest:
		return *p
	case *RoomJoinResponse:
		return *p
	case *MessagePacket:
		return *p
	case *UserJoined:
		return *p
	case *UserLeft:
		return *p
	default:
		return pkt
	}
}
