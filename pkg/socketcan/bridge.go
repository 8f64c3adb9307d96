package socketcan

import (
	"context"
	"errors"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/robotalks/canlink/pkg/can"
	"github.com/robotalks/canlink/pkg/link"
)

// ErrTimeout is returned by ReadFrame when no frame arrived in time.
var ErrTimeout = errors.New("read timeout")

// FrameReadWriter reads and writes host CAN frames.
type FrameReadWriter interface {
	ReadFrame(*can.Frame) error
	WriteFrame(can.Frame) error
}

// Submitter accepts frames to send over the link. link.TxQueue implements it.
type Submitter interface {
	Submit(can.Frame) error
}

// DefaultBacklog is the number of received frames buffered for the
// interface writer.
const DefaultBacklog = 256

// Bridge forwards frames between a SocketCAN interface and the link.
// It implements link.Delivery for frames received from the device, and
// submits frames read from the interface.
type Bridge struct {
	Device FrameReadWriter
	Queue  Submitter

	deliverCh chan can.Frame
}

// NewBridge creates a Bridge.
func NewBridge(dev FrameReadWriter, q Submitter) *Bridge {
	return &Bridge{Device: dev, Queue: q, deliverCh: make(chan can.Frame, DefaultBacklog)}
}

// Name implements framework.Named.
func (b *Bridge) Name() string {
	return "socketcan"
}

// Deliver implements link.Delivery. It never blocks, frames are dropped
// when the interface writer falls behind.
func (b *Bridge) Deliver(f can.Frame) {
	select {
	case b.deliverCh <- f:
	default:
		glog.Warningf("socketcan backlog full, drop %s", f)
	}
}

// DeliverBusError implements link.Delivery.
func (b *Bridge) DeliverBusError(f can.Frame) {
	b.Deliver(f)
}

// Run implements Runnable.
func (b *Bridge) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.writeLoop(ctx) })
	g.Go(func() error { return b.readLoop(ctx) })
	return g.Wait()
}

func (b *Bridge) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-b.deliverCh:
			if err := b.Device.WriteFrame(f); err != nil {
				glog.Errorf("socketcan write %s: %v", f, err)
			}
		}
	}
}

func (b *Bridge) readLoop(ctx context.Context) error {
	var f can.Frame
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := b.Device.ReadFrame(&f)
		if err == ErrTimeout {
			continue
		}
		if err != nil {
			return err
		}
		err = b.Queue.Submit(f)
		switch err {
		case nil:
		case link.ErrInvalidFrame:
			glog.V(2).Infof("socketcan drop %s: %v", f, err)
		case link.ErrQueueClosed:
			return nil
		default:
			glog.Warningf("socketcan submit %s: %v", f, err)
		}
	}
}
