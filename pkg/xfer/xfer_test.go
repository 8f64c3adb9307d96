package xfer

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/canlink/pkg/emu"
	"github.com/robotalks/canlink/pkg/link"
)

// loopPort answers every written block with a reply built by fn.
type loopPort struct {
	fn      func([]byte) []byte
	pending bytes.Buffer
	chunk   int
	closed  bool
}

func (p *loopPort) Write(b []byte) (int, error) {
	p.pending.Write(p.fn(b))
	return len(b), nil
}

func (p *loopPort) Read(b []byte) (int, error) {
	if p.chunk > 0 && len(b) > p.chunk {
		b = b[:p.chunk]
	}
	if p.pending.Len() == 0 {
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	return p.pending.Read(b)
}

func (p *loopPort) Close() error {
	p.closed = true
	return nil
}

func TestSerialTransfer(t *testing.T) {
	port := &loopPort{chunk: 7, fn: func(b []byte) []byte {
		r := make([]byte, len(b))
		for i := range b {
			r[i] = b[i] ^ 0xff
		}
		return r
	}}
	s := &Serial{Port: port}
	tx, rx := make([]byte, link.BufferSize), make([]byte, link.BufferSize)
	tx[0], tx[63] = 0x81, 0x10
	require.NoError(t, s.Transfer(tx, rx))
	require.Equal(t, byte(0x7e), rx[0])
	require.Equal(t, byte(0xef), rx[63])
	require.Equal(t, byte(0xff), rx[10])
	require.NoError(t, s.Close())
	require.True(t, port.closed)
}

func TestSerialTimeout(t *testing.T) {
	port := &loopPort{fn: func(b []byte) []byte { return b[:10] }}
	s := &Serial{Port: port, Timeout: 20 * time.Millisecond}
	rx := make([]byte, link.BufferSize)
	require.Equal(t, ErrTimeout, s.Transfer(make([]byte, link.BufferSize), rx))
}

func TestOpen(t *testing.T) {
	conn, err := Open(context.Background(), "emu:")
	require.NoError(t, err)
	require.IsType(t, &emu.Device{}, conn)
	require.NoError(t, conn.Close())

	opts := Options{Attempts: 2, Delay: time.Millisecond}
	testCases := []struct {
		name string
		url  string
	}{
		{"unknown scheme", "can0"},
		{"invalid speed", "spidev:///dev/spidev0.0?speed=fast"},
		{"invalid baud", "serial:///dev/ttyACM0?baud=x"},
		{"invalid timeout", "serial:///dev/ttyACM0?timeout=1"},
		{"missing device", "spidev:///dev/not-a-spidev"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conn, err := opts.Open(context.Background(), tc.url)
			require.Error(t, err)
			require.Nil(t, conn)
		})
	}
}

func TestOpenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := Options{Attempts: 100, Delay: time.Second}
	start := time.Now()
	_, err := opts.Open(ctx, "spidev:///dev/not-a-spidev")
	require.Error(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
}
