package xfer

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

// ErrTimeout indicates the bridge didn't answer a block in time.
var ErrTimeout = errors.New("transfer timeout")

// DefaultSerialTimeout bounds a block read on serial bridges.
const DefaultSerialTimeout = 100 * time.Millisecond

// Serial performs transfers through a USB/serial bridge exchanging
// fixed-size blocks: every block written is answered by one block.
type Serial struct {
	Port    io.ReadWriteCloser
	Timeout time.Duration

	lock sync.Mutex
}

// OpenSerial opens a serial port.
func OpenSerial(name string, baud int, timeout time.Duration) (*Serial, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open port %q: %w", name, err)
	}
	if timeout <= 0 {
		timeout = DefaultSerialTimeout
	}
	// reads return early so the deadline below is checked
	if err = p.SetReadTimeout(timeout / 4); err != nil {
		p.Close()
		return nil, err
	}
	p.ResetInputBuffer()
	return &Serial{Port: p, Timeout: timeout}, nil
}

// Transfer implements link.Transfer.
func (s *Serial) Transfer(tx, rx []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, err := s.Port.Write(tx); err != nil {
		return err
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultSerialTimeout
	}
	deadline := time.Now().Add(timeout)
	for n := 0; n < len(rx); {
		nn, err := s.Port.Read(rx[n:])
		if err != nil {
			return err
		}
		n += nn
		if nn == 0 && time.Now().After(deadline) {
			return ErrTimeout
		}
	}
	return nil
}

// Close implements io.Closer.
func (s *Serial) Close() error {
	return s.Port.Close()
}
