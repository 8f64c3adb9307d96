//go:build !linux

package xfer

import (
	"errors"
)

// SPIDev is only available on Linux.
type SPIDev struct {
	Path  string
	Speed uint32
}

// OpenSPIDev always fails.
func OpenSPIDev(path string, speed uint32) (*SPIDev, error) {
	return nil, errors.New("spidev is not supported on this platform")
}

// Transfer implements link.Transfer.
func (d *SPIDev) Transfer(tx, rx []byte) error {
	return errors.New("spidev is not supported on this platform")
}

// Close implements io.Closer.
func (d *SPIDev) Close() error {
	return nil
}
