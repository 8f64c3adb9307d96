package link

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/canlink/pkg/can"
)

func TestRecvTriggerCoalesce(t *testing.T) {
	var transfers atomic.Int32
	e := NewEngine(TransferFunc(func(tx, rx []byte) error {
		transfers.Add(1)
		return nil
	}), nil)
	r := NewRecvTrigger(e)
	for i := 0; i < 10; i++ {
		r.Notify()
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()
	require.Eventually(t, func() bool { return transfers.Load() == 1 }, 5*time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, int32(1), transfers.Load())

	r.Notify()
	require.Eventually(t, func() bool { return transfers.Load() == 2 }, 5*time.Second, time.Millisecond)

	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}

func TestRecvTriggerDeliver(t *testing.T) {
	dev := &scriptedDevice{}
	frames := make(chan can.Frame, 4)
	e := NewEngine(dev, DeliveryFuncs{Frame: func(f can.Frame) { frames <- f }})
	r := NewRecvTrigger(e)

	f := can.Frame{ID: 0x42, Len: 1, Data: [8]byte{9}, Timestamp: DeviceTime(5)}
	dev.reply(LittleEndian.EncodeReceive(f), LittleEndian.EncodeReceive(f))
	require.NoError(t, r.Drain())
	require.Len(t, frames, 2)
	require.Equal(t, f, <-frames)
}

func TestRecvTriggerTransferError(t *testing.T) {
	failure := errors.New("timeout")
	dev := &scriptedDevice{err: failure}
	e := NewEngine(dev, nil)
	r := NewRecvTrigger(e)
	require.ErrorIs(t, r.Drain(), failure)

	dev.lock.Lock()
	dev.err = nil
	dev.lock.Unlock()
	require.NoError(t, r.Drain())
}
