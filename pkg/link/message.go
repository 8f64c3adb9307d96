package link

import (
	"encoding/binary"
	"fmt"
)

const (
	// BufferSize is the size of the transfer block in both directions.
	BufferSize = 64
	// HeaderSize is the size of the message header.
	HeaderSize = 4
	// MaxPayloadSize is the largest payload fitting in one block.
	MaxPayloadSize = BufferSize - HeaderSize
)

// Command is the message tag.
type Command byte

// Commands.
const (
	// CmdPadding is not a message but a one-byte filler.
	CmdPadding            Command = 0x00
	CmdGetFirmwareVersion Command = 0x81
	CmdCANSendFrame       Command = 0x82
	CmdCANReceiveFrame    Command = 0x85
)

// Known reports whether the command is dispatched by Engine.
func (c Command) Known() bool {
	switch c {
	case CmdGetFirmwareVersion, CmdCANSendFrame, CmdCANReceiveFrame:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (c Command) String() string {
	switch c {
	case CmdPadding:
		return "padding"
	case CmdGetFirmwareVersion:
		return "fw-version"
	case CmdCANSendFrame:
		return "can-send"
	case CmdCANReceiveFrame:
		return "can-receive"
	}
	return fmt.Sprintf("cmd(0x%02x)", byte(c))
}

// Message is one decoded link message.
type Message struct {
	Command Command
	Seq     uint16
	Payload []byte
}

// Size returns the encoded size.
func (m *Message) Size() int {
	return HeaderSize + len(m.Payload)
}

// Codec encodes and decodes link messages with the byte order of the link.
type Codec struct {
	Order binary.ByteOrder
}

// LittleEndian is the codec used by the K61 bridge firmware.
var LittleEndian = Codec{Order: binary.LittleEndian}

func (c Codec) order() binary.ByteOrder {
	if c.Order == nil {
		return binary.LittleEndian
	}
	return c.Order
}

// Encode encodes a message into a new slice.
func (c Codec) Encode(cmd Command, seq uint16, payload []byte) ([]byte, error) {
	return c.Append(nil, &Message{Command: cmd, Seq: seq, Payload: payload})
}

// Append appends the encoded message to b. It fails with ErrPayloadTooLarge
// if the message would not fit into one transfer block.
func (c Codec) Append(b []byte, m *Message) ([]byte, error) {
	if len(m.Payload) > MaxPayloadSize {
		return b, ErrPayloadTooLarge
	}
	var head [HeaderSize]byte
	head[0], head[1] = byte(m.Command), byte(len(m.Payload))
	c.order().PutUint16(head[2:], m.Seq)
	b = append(b, head[:]...)
	return append(b, m.Payload...), nil
}

// Put writes the message at the start of buf and returns the bytes written.
func (c Codec) Put(buf []byte, m *Message) (int, error) {
	if m.Size() > len(buf) || len(m.Payload) > MaxPayloadSize {
		return 0, ErrPayloadTooLarge
	}
	buf[0], buf[1] = byte(m.Command), byte(len(m.Payload))
	c.order().PutUint16(buf[2:], m.Seq)
	return HeaderSize + copy(buf[HeaderSize:], m.Payload), nil
}
