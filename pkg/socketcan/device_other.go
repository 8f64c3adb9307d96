//go:build !linux

package socketcan

import (
	"errors"

	"github.com/robotalks/canlink/pkg/can"
)

var errUnsupported = errors.New("socketcan is not supported on this platform")

// Device is only available on Linux.
type Device struct {
	Iface string
}

// Open always fails.
func Open(iface string) (*Device, error) {
	return nil, errUnsupported
}

// Close implements io.Closer.
func (d *Device) Close() error {
	return nil
}

// ReadFrame implements FrameReadWriter.
func (d *Device) ReadFrame(f *can.Frame) error {
	return errUnsupported
}

// WriteFrame implements FrameReadWriter.
func (d *Device) WriteFrame(f can.Frame) error {
	return errUnsupported
}
