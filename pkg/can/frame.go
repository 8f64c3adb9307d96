// Package can defines the host representation of classic CAN frames.
package can

import (
	"time"
)

// Frame ID flags and masks, following the Linux SocketCAN layout.
const (
	EFFFlag uint32 = 0x80000000 // extended frame format
	RTRFlag uint32 = 0x40000000 // remote transmission request
	ErrFlag uint32 = 0x20000000 // error frame

	SFFMask uint32 = 0x000007ff
	EFFMask uint32 = 0x1fffffff
	ErrMask uint32 = 0x1fffffff
)

// MaxDataLen is the maximum payload of a classic CAN frame.
const MaxDataLen = 8

// Error frame classes (in ID) and details (in Data).
const (
	ErrBusError uint32 = 0x00000080 // bus error, details in Data[2]

	ErrProtForm byte = 0x02 // frame format error, Data[2]

	// ErrorFrameLen is the DLC of error frames.
	ErrorFrameLen = 8
)

// Frame is a classic CAN frame.
type Frame struct {
	// ID carries the identifier and the flags above.
	ID        uint32
	Len       uint8
	Data      [MaxDataLen]byte
	Timestamp time.Time
}

// New creates a standard data frame. Data beyond MaxDataLen is dropped.
func New(id uint32, data []byte) Frame {
	f := Frame{ID: id}
	f.Len = uint8(copy(f.Data[:], data))
	return f
}

// NewBusError creates a bus error frame reporting a form error.
func NewBusError(ts time.Time) Frame {
	f := Frame{
		ID:        ErrFlag | ErrBusError,
		Len:       ErrorFrameLen,
		Timestamp: ts,
	}
	f.Data[2] |= ErrProtForm
	return f
}

// Identifier returns the ID without flags.
func (f Frame) Identifier() uint32 {
	if f.IsExtended() {
		return f.ID & EFFMask
	}
	return f.ID & SFFMask
}

// IsExtended reports whether the frame uses a 29-bit identifier.
func (f Frame) IsExtended() bool {
	return f.ID&EFFFlag != 0
}

// IsRemote reports whether the frame is a remote request.
func (f Frame) IsRemote() bool {
	return f.ID&RTRFlag != 0
}

// IsError reports whether the frame is an error frame.
func (f Frame) IsError() bool {
	return f.ID&ErrFlag != 0
}

// Payload returns the valid data bytes.
func (f *Frame) Payload() []byte {
	n := f.Len
	if n > MaxDataLen {
		n = MaxDataLen
	}
	return f.Data[:n]
}
