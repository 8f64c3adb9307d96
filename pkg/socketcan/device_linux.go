//go:build linux

package socketcan

import (
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/robotalks/canlink/pkg/can"
)

// ReadTimeout bounds a blocking read so readers can observe cancellation.
const ReadTimeout = 100 * time.Millisecond

// Device is a raw CAN socket bound to an interface.
type Device struct {
	Iface string

	fd int
}

// Open binds a raw CAN socket to iface.
func Open(iface string) (*Device, error) {
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("socket(AF_CAN): %w", err)
	}
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("if %q: %w", iface, err)
	}
	tv := unix.NsecToTimeval(int64(ReadTimeout))
	if err = unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	if err = unix.Bind(fd, &unix.SockaddrCAN{Ifindex: ifi.Index}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind(can@%s): %w", iface, err)
	}
	return &Device{Iface: iface, fd: fd}, nil
}

// Close implements io.Closer.
func (d *Device) Close() error {
	return unix.Close(d.fd)
}

// ReadFrame reads one classic CAN frame. It returns ErrTimeout when no
// frame arrives within ReadTimeout.
func (d *Device) ReadFrame(f *can.Frame) error {
	var buf [FrameSize]byte
	n, err := unix.Read(d.fd, buf[:])
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			return ErrTimeout
		}
		return err
	}
	if err = UnmarshalFrame(buf[:n], f); err != nil {
		return err
	}
	f.Timestamp = time.Now()
	return nil
}

// WriteFrame writes one classic CAN frame.
func (d *Device) WriteFrame(f can.Frame) error {
	var buf [FrameSize]byte
	MarshalFrame(f, buf[:])
	_, err := unix.Write(d.fd, buf[:])
	return err
}
