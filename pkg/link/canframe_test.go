package link

import (
	"encoding/binary"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/canlink/pkg/can"
)

func receivePayload(ts, id uint32, dlc byte, data ...byte) []byte {
	b := make([]byte, 9, 9+len(data))
	binary.LittleEndian.PutUint32(b[0:], ts)
	binary.LittleEndian.PutUint32(b[4:], id)
	b[8] = dlc
	return append(b, data...)
}

func TestDecodeReceived(t *testing.T) {
	testCases := []struct {
		name    string
		payload []byte
		expect  can.Frame
	}{
		{
			"data frame",
			receivePayload(100, 0x123, 2, 0xaa, 0xbb, 0, 0),
			can.Frame{ID: 0x123, Len: 2, Data: [8]byte{0xaa, 0xbb}, Timestamp: DeviceTime(100)},
		},
		{
			"max id and length",
			receivePayload(1500, 0x7ff, 8, 1, 2, 3, 4, 5, 6, 7, 8),
			can.Frame{ID: 0x7ff, Len: 8, Data: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}, Timestamp: DeviceTime(1500)},
		},
		{
			"empty frame",
			receivePayload(0, 0, 0),
			can.Frame{Timestamp: DeviceTime(0)},
		},
		{"id out of range", receivePayload(7, 0x800, 1, 1), can.NewBusError(DeviceTime(7))},
		{"extended id", receivePayload(7, 0x80000123, 1, 1), can.NewBusError(DeviceTime(7))},
		{"length out of range", receivePayload(7, 0x123, 9, 1, 2, 3, 4, 5, 6, 7, 8, 9), can.NewBusError(DeviceTime(7))},
		{"missing data", receivePayload(7, 0x123, 4, 1, 2), can.NewBusError(DeviceTime(7))},
		{"truncated header", []byte{1, 2, 3}, can.NewBusError(time.Time{})},
		{"nil payload", nil, can.NewBusError(time.Time{})},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var f can.Frame
			require.NotPanics(t, func() { f = LittleEndian.DecodeReceived(tc.payload) })
			require.Equal(t, tc.expect, f)
		})
	}
}

func TestReceiveRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	for i := 0; i < 1000; i++ {
		f := can.Frame{
			ID:        uint32(rnd.Intn(int(can.SFFMask) + 1)),
			Len:       uint8(rnd.Intn(can.MaxDataLen + 1)),
			Timestamp: DeviceTime(rnd.Uint32()),
		}
		rnd.Read(f.Data[:f.Len])
		msg := LittleEndian.EncodeReceive(f)
		require.Equal(t, CmdCANReceiveFrame, msg.Command)
		require.Equal(t, uint16(0), msg.Seq)
		require.Equal(t, f, LittleEndian.DecodeReceived(msg.Payload))
	}
}

func TestMalformedReceiveIsBusError(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	for i := 0; i < 1000; i++ {
		id := uint32(rnd.Intn(int(can.SFFMask) + 1))
		dlc := byte(rnd.Intn(can.MaxDataLen + 1))
		if rnd.Intn(2) == 0 {
			id = can.SFFMask + 1 + uint32(rnd.Int31())
		} else {
			dlc = can.MaxDataLen + 1 + byte(rnd.Intn(200))
		}
		payload := receivePayload(rnd.Uint32(), id, dlc, make([]byte, can.MaxDataLen)...)
		f := LittleEndian.DecodeReceived(payload)
		require.True(t, f.IsError())
		require.Equal(t, can.ErrBusError, f.ID&can.ErrBusError)
		require.Equal(t, can.ErrProtForm, f.Data[2])
	}
}

func TestEncodeWrite(t *testing.T) {
	msg, err := LittleEndian.EncodeWrite(5, can.New(0x123, []byte{0xaa, 0xbb}))
	require.NoError(t, err)
	require.Equal(t, CmdCANSendFrame, msg.Command)
	require.Equal(t, uint16(5), msg.Seq)
	require.Equal(t, []byte{0x23, 0x01, 0, 0, 2, 0xaa, 0xbb, 0, 0, 0, 0, 0, 0}, msg.Payload)

	f, err := LittleEndian.DecodeWrite(msg.Payload)
	require.NoError(t, err)
	require.Equal(t, can.New(0x123, []byte{0xaa, 0xbb}), f)

	over := can.Frame{ID: 0x10, Len: 12, Data: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}}
	msg, err = LittleEndian.EncodeWrite(6, over)
	require.NoError(t, err)
	require.Equal(t, byte(8), msg.Payload[4])
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, msg.Payload[5:])

	for _, id := range []uint32{0x800, 0x123 | can.EFFFlag, 0x123 | can.RTRFlag, can.ErrFlag} {
		_, err = LittleEndian.EncodeWrite(7, can.Frame{ID: id})
		require.Equal(t, ErrInvalidFrame, err)
	}
}

func TestDecodeWrite(t *testing.T) {
	_, err := LittleEndian.DecodeWrite([]byte{1, 2})
	require.Equal(t, ErrShortPayload, err)
	_, err = LittleEndian.DecodeWrite([]byte{0, 8, 0, 0, 1})
	require.Equal(t, ErrInvalidFrame, err)
	_, err = LittleEndian.DecodeWrite([]byte{1, 0, 0, 0, 2, 0xff})
	require.Equal(t, ErrInvalidFrame, err)
}

func TestDecodeWriteAck(t *testing.T) {
	res, err := DecodeWriteAck(3, []byte{0})
	require.NoError(t, err)
	require.True(t, res.OK())
	require.NoError(t, res.Err())

	res, err = DecodeWriteAck(4, []byte{2})
	require.NoError(t, err)
	require.False(t, res.OK())
	require.Equal(t, &RejectedError{Seq: 4, Status: 2}, res.Err())

	_, err = DecodeWriteAck(5, nil)
	require.Equal(t, ErrShortPayload, err)
}

func TestFirmwareVersion(t *testing.T) {
	msg := EncodeFirmwareVersion(9, FirmwareVersion{1, 2, 3})
	v, err := DecodeFirmwareVersion(msg.Payload)
	require.NoError(t, err)
	require.Equal(t, "1.2.3", v.String())

	_, err = DecodeFirmwareVersion([]byte{1, 2})
	require.Equal(t, ErrShortPayload, err)
}
