// Package socketcan bridges the link to a Linux SocketCAN interface.
package socketcan

import (
	"encoding/binary"
	"fmt"

	"github.com/robotalks/canlink/pkg/can"
)

// FrameSize is the size of struct can_frame.
const FrameSize = 16

// MarshalFrame encodes struct can_frame in host (little endian) order.
func MarshalFrame(f can.Frame, buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], f.ID)
	n := f.Len
	if n > can.MaxDataLen {
		n = can.MaxDataLen
	}
	buf[4] = n
	buf[5], buf[6], buf[7] = 0, 0, 0
	copy(buf[8:16], f.Data[:])
}

// UnmarshalFrame decodes struct can_frame.
func UnmarshalFrame(buf []byte, f *can.Frame) error {
	if len(buf) != FrameSize {
		return fmt.Errorf("invalid can_frame size %d", len(buf))
	}
	f.ID = binary.LittleEndian.Uint32(buf[0:4])
	f.Len = buf[4]
	if f.Len > can.MaxDataLen {
		f.Len = can.MaxDataLen
	}
	f.Data = [can.MaxDataLen]byte{}
	copy(f.Data[:], buf[8:8+int(f.Len)])
	return nil
}
