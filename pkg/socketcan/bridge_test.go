package socketcan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/canlink/pkg/can"
	"github.com/robotalks/canlink/pkg/emu"
	"github.com/robotalks/canlink/pkg/link"
)

type chanDevice struct {
	readCh  chan can.Frame
	writeCh chan can.Frame
}

func newChanDevice() *chanDevice {
	return &chanDevice{readCh: make(chan can.Frame, 16), writeCh: make(chan can.Frame, 16)}
}

func (d *chanDevice) ReadFrame(f *can.Frame) error {
	select {
	case fr, ok := <-d.readCh:
		if !ok {
			return errors.New("closed")
		}
		*f = fr
		return nil
	case <-time.After(time.Millisecond):
		return ErrTimeout
	}
}

func (d *chanDevice) WriteFrame(f can.Frame) error {
	d.writeCh <- f
	return nil
}

func TestFrameMarshal(t *testing.T) {
	f := can.Frame{ID: 0x123 | can.EFFFlag, Len: 3, Data: [8]byte{1, 2, 3}}
	var buf [FrameSize]byte
	MarshalFrame(f, buf[:])
	require.Equal(t, []byte{0x23, 0x01, 0, 0x80, 3, 0, 0, 0, 1, 2, 3, 0, 0, 0, 0, 0}, buf[:])

	var out can.Frame
	require.NoError(t, UnmarshalFrame(buf[:], &out))
	require.Equal(t, f, out)
	require.Error(t, UnmarshalFrame(buf[:8], &out))
}

func TestBridge(t *testing.T) {
	dev := emu.New()
	e := link.NewEngine(dev, nil)
	q := link.NewTxQueue(e)
	trigger := link.NewRecvTrigger(e)
	dev.OnPending = trigger.Notify
	sentCh := dev.SentFrames(16)

	iface := newChanDevice()
	b := NewBridge(iface, q)
	e.Delivery = b

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)
	go trigger.Run(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- b.Run(ctx) }()

	// host -> bus
	iface.readCh <- can.New(0x10, []byte{1})
	iface.readCh <- can.Frame{ID: 0x10 | can.EFFFlag}
	iface.readCh <- can.New(0x11, []byte{2})
	for _, expect := range []can.Frame{can.New(0x10, []byte{1}), can.New(0x11, []byte{2})} {
		select {
		case f := <-sentCh:
			require.Equal(t, expect, f)
		case <-time.After(5 * time.Second):
			t.Fatal("frame not sent")
		}
	}
	require.Equal(t, uint64(1), e.Stats().Dropped)

	// bus -> host
	rx := can.Frame{ID: 0x20, Len: 1, Data: [8]byte{9}, Timestamp: link.DeviceTime(77)}
	dev.Inject(rx)
	select {
	case f := <-iface.writeCh:
		require.Equal(t, rx, f)
	case <-time.After(5 * time.Second):
		t.Fatal("frame not delivered")
	}

	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}
