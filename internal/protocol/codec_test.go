package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTripsEveryKind(t *testing.T) {
	req := require.New(t)

	packets := []Packet{
		Handshake{Version: Version},
		RegisterRequest{Name: "alice", Password: "secret"},
		RegisterResponse{Succeeded: false, Reason: RejectUserNameAlreadyInUse},
		RoomJoinRequest{RoomName: "vault", Password: "hunter2"},
		RoomJoinResponse{Succeeded: false, Reason: JoinRejectRoomFull},
		MessagePacket{Type: MessageUserToRoom, SenderName: "alice", ReceiverName: "lobby", Body: "hi"},
		UserJoined{RoomName: "lobby", UserName: "bob"},
		UserLeft{RoomName: "lobby", UserName: "bob"},
	}

	for _, pkt := range packets {
		data, err := Marshal(pkt)
		req.NoError(err, "marshal %s", pkt.Kind())

		decoded, err := Unmarshal(data)
		req.NoError(err, "unmarshal %s", pkt.Kind())
		req.Equal(pkt, decoded)
	}
}

func TestCodec_WireEnvelopeShape(t *testing.T) {
	req := require.New(t)

	data, err := Marshal(MessagePacket{
		Type:         MessageUserToUser,
		SenderName:   "alice",
		ReceiverName: "bob",
		Body:         "psst",
	})
	req.NoError(err)
	req.JSONEq(`{
		"type": "MESSAGE",
		"payload": {
			"messageType": 3,
			"senderName": "alice",
			"receiverName": "bob",
			"message": "psst"
		}
	}`, string(data))
}

func TestCodec_RejectsMalformedInput(t *testing.T) {
	req := require.New(t)

	_, err := Unmarshal([]byte(`not json`))
	req.Error(err)

	_, err = Unmarshal([]byte(`{"type":"NO_SUCH_KIND","payload":{}}`))
	req.Error(err)

	_, err = Unmarshal([]byte(`{"type":"MESSAGE","payload":"not an object"}`))
	req.Error(err)
}
