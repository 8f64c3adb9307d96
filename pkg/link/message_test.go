package link

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	testCases := []struct {
		name   string
		codec  Codec
		msg    Message
		expect []byte
	}{
		{"no payload", LittleEndian, Message{Command: CmdGetFirmwareVersion, Seq: 1}, []byte{0x81, 0, 1, 0}},
		{"payload", LittleEndian, Message{Command: CmdCANSendFrame, Seq: 0x0102, Payload: []byte{1, 2, 3}}, []byte{0x82, 3, 2, 1, 1, 2, 3}},
		{"big endian", Codec{Order: binary.BigEndian}, Message{Command: CmdCANSendFrame, Seq: 0x0102, Payload: []byte{9}}, []byte{0x82, 1, 1, 2, 9}},
		{"zero codec", Codec{}, Message{Command: CmdCANReceiveFrame, Seq: 0x0102}, []byte{0x85, 0, 2, 1}},
		{"full block", LittleEndian, Message{Command: 0x90, Payload: make([]byte, MaxPayloadSize)},
			append([]byte{0x90, MaxPayloadSize, 0, 0}, make([]byte, MaxPayloadSize)...)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := tc.codec.Encode(tc.msg.Command, tc.msg.Seq, tc.msg.Payload)
			require.NoError(t, err)
			require.Equal(t, tc.expect, b)

			var buf [BufferSize]byte
			n, err := tc.codec.Put(buf[:], &tc.msg)
			require.NoError(t, err)
			require.Equal(t, len(tc.expect), n)
			require.Equal(t, tc.expect, buf[:n])
			require.Empty(t, bytes.Trim(buf[n:], "\x00"))

			msgs := tc.codec.Messages(buf[:])
			require.Len(t, msgs, 1)
			require.Equal(t, tc.msg.Command, msgs[0].Command)
			require.Equal(t, tc.msg.Seq, msgs[0].Seq)
			require.Equal(t, len(tc.msg.Payload), len(msgs[0].Payload))
		})
	}
}

func TestEncodePayloadTooLarge(t *testing.T) {
	_, err := LittleEndian.Encode(CmdCANSendFrame, 1, make([]byte, MaxPayloadSize+1))
	require.Equal(t, ErrPayloadTooLarge, err)

	var buf [BufferSize]byte
	_, err = LittleEndian.Put(buf[:], &Message{Command: CmdCANSendFrame, Payload: make([]byte, MaxPayloadSize+1)})
	require.Equal(t, ErrPayloadTooLarge, err)

	_, err = LittleEndian.Put(buf[:8], &Message{Command: CmdCANSendFrame, Payload: make([]byte, 5)})
	require.Equal(t, ErrPayloadTooLarge, err)
	require.Equal(t, [BufferSize]byte{}, buf)
}

func TestCommand(t *testing.T) {
	require.True(t, CmdGetFirmwareVersion.Known())
	require.True(t, CmdCANSendFrame.Known())
	require.True(t, CmdCANReceiveFrame.Known())
	require.False(t, CmdPadding.Known())
	require.False(t, Command(0x83).Known())
	require.Equal(t, "can-receive", CmdCANReceiveFrame.String())
	require.Equal(t, "cmd(0x83)", Command(0x83).String())
}
