package link

import (
	"fmt"
	"time"

	"github.com/robotalks/canlink/pkg/can"
)

// Payload layouts.
const (
	// ts:u32 id:u32 dlc:u8 data
	receiveFrameHeaderSize = 9
	// id:u32 dlc:u8 data[8]
	sendFramePayloadSize = 5 + can.MaxDataLen
	// maj:u8 min:u8 patch:u8
	firmwareVersionSize = 3
)

// FirmwareVersion is reported by the device on CmdGetFirmwareVersion.
type FirmwareVersion struct {
	Major, Minor, Patch byte
}

// String implements fmt.Stringer.
func (v FirmwareVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// WriteResult is the device reply to CmdCANSendFrame.
type WriteResult struct {
	Seq    uint16
	Status byte
}

// OK indicates the device transmitted the frame.
func (r WriteResult) OK() bool {
	return r.Status == 0
}

// Err returns a RejectedError if the device failed to transmit the frame.
func (r WriteResult) Err() error {
	if r.OK() {
		return nil
	}
	return &RejectedError{Seq: r.Seq, Status: r.Status}
}

// DeviceTime converts a device timestamp in milliseconds to host time.
func DeviceTime(ms uint32) time.Time {
	return time.UnixMilli(int64(ms))
}

// DecodeReceived decodes a CmdCANReceiveFrame payload. Malformed payloads
// never fail: they yield a bus error frame instead (see can.NewBusError).
func (c Codec) DecodeReceived(payload []byte) can.Frame {
	if len(payload) < receiveFrameHeaderSize {
		return can.NewBusError(time.Time{})
	}
	order := c.order()
	ts := DeviceTime(order.Uint32(payload[0:]))
	id, dlc := order.Uint32(payload[4:]), payload[8]
	data := payload[receiveFrameHeaderSize:]
	if id > can.SFFMask || dlc > can.MaxDataLen || int(dlc) > len(data) {
		return can.NewBusError(ts)
	}
	f := can.Frame{ID: id, Len: dlc, Timestamp: ts}
	copy(f.Data[:], data[:dlc])
	return f
}

// EncodeReceive encodes a CmdCANReceiveFrame notification as the device
// sends it. The timestamp is taken modulo 2^32 milliseconds.
func (c Codec) EncodeReceive(f can.Frame) Message {
	n := f.Len
	if n > can.MaxDataLen {
		n = can.MaxDataLen
	}
	payload := make([]byte, receiveFrameHeaderSize+int(n))
	order := c.order()
	order.PutUint32(payload[0:], uint32(f.Timestamp.UnixMilli()))
	order.PutUint32(payload[4:], f.ID)
	payload[8] = n
	copy(payload[receiveFrameHeaderSize:], f.Data[:n])
	return Message{Command: CmdCANReceiveFrame, Payload: payload}
}

// EncodeWrite builds the CmdCANSendFrame request for a frame.
// Only standard data frames can be sent, data length is clamped to 8.
func (c Codec) EncodeWrite(seq uint16, f can.Frame) (Message, error) {
	if f.ID > can.SFFMask {
		return Message{}, ErrInvalidFrame
	}
	n := f.Len
	if n > can.MaxDataLen {
		n = can.MaxDataLen
	}
	payload := make([]byte, sendFramePayloadSize)
	c.order().PutUint32(payload[0:], f.ID)
	payload[4] = n
	copy(payload[5:], f.Data[:n])
	return Message{Command: CmdCANSendFrame, Seq: seq, Payload: payload}, nil
}

// DecodeWrite decodes a CmdCANSendFrame request, as the device does.
func (c Codec) DecodeWrite(payload []byte) (can.Frame, error) {
	if len(payload) < 5 {
		return can.Frame{}, ErrShortPayload
	}
	id, dlc := c.order().Uint32(payload[0:]), payload[4]
	if id > can.SFFMask || dlc > can.MaxDataLen || int(dlc) > len(payload)-5 {
		return can.Frame{}, ErrInvalidFrame
	}
	f := can.Frame{ID: id, Len: dlc}
	copy(f.Data[:], payload[5:5+int(dlc)])
	return f, nil
}

// DecodeWriteAck decodes the CmdCANSendFrame reply.
func DecodeWriteAck(seq uint16, payload []byte) (WriteResult, error) {
	if len(payload) < 1 {
		return WriteResult{Seq: seq}, ErrShortPayload
	}
	return WriteResult{Seq: seq, Status: payload[0]}, nil
}

// DecodeFirmwareVersion decodes the CmdGetFirmwareVersion reply.
func DecodeFirmwareVersion(payload []byte) (FirmwareVersion, error) {
	if len(payload) < firmwareVersionSize {
		return FirmwareVersion{}, ErrShortPayload
	}
	return FirmwareVersion{Major: payload[0], Minor: payload[1], Patch: payload[2]}, nil
}

// EncodeFirmwareVersion builds the CmdGetFirmwareVersion reply.
func EncodeFirmwareVersion(seq uint16, v FirmwareVersion) Message {
	return Message{
		Command: CmdGetFirmwareVersion,
		Seq:     seq,
		Payload: []byte{v.Major, v.Minor, v.Patch},
	}
}
