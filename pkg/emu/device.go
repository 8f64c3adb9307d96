// Package emu emulates the bridge firmware on the device side of the link.
package emu

import (
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/canlink/pkg/can"
	"github.com/robotalks/canlink/pkg/link"
)

// DefaultFirmwareVersion is reported unless Device.Version is set.
var DefaultFirmwareVersion = link.FirmwareVersion{Major: 1, Minor: 0, Patch: 0}

// Device implements link.Transfer as the bridge firmware would.
//
// Replies and received frames are queued as notifications and clocked out
// in subsequent transfers, as many as fit in a block.
type Device struct {
	Codec   link.Codec
	Version link.FirmwareVersion
	// Status decides the ack status of a sent frame, nil acks all frames.
	Status func(can.Frame) byte
	// OnPending is raised while notifications are pending,
	// the way the interrupt line is asserted.
	OnPending func()

	lock         sync.Mutex
	pending      []link.Message
	sent         []can.Frame
	transactions int
	sentCh       chan can.Frame
}

// New creates a Device.
func New() *Device {
	return &Device{Codec: link.LittleEndian, Version: DefaultFirmwareVersion}
}

// SentFrames returns a channel which receives frames the host sends.
// It must be called before the first transfer. Frames are not sent to the
// channel while it's full, Sent still records them.
func (d *Device) SentFrames(size int) <-chan can.Frame {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.sentCh == nil {
		d.sentCh = make(chan can.Frame, size)
	}
	return d.sentCh
}

// Inject queues a frame received from the bus.
func (d *Device) Inject(f can.Frame) {
	d.enqueue(d.Codec.EncodeReceive(f))
}

// InjectMessage queues a raw notification.
func (d *Device) InjectMessage(msg link.Message) {
	d.enqueue(msg)
}

// Pending returns the number of queued notifications.
func (d *Device) Pending() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return len(d.pending)
}

// Sent returns frames sent by the host so far.
func (d *Device) Sent() []can.Frame {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]can.Frame(nil), d.sent...)
}

// Transactions returns the number of transfers performed.
func (d *Device) Transactions() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.transactions
}

// Transfer implements link.Transfer.
func (d *Device) Transfer(tx, rx []byte) error {
	d.lock.Lock()
	d.transactions++
	// the block clocked out was prepared before the request arrived,
	// replies go out with the next transfer
	clear(rx)
	off := 0
	for len(d.pending) > 0 {
		n, err := d.Codec.Put(rx[off:], &d.pending[0])
		if err != nil {
			break
		}
		off += n
		d.pending = d.pending[1:]
	}
	for _, msg := range d.Codec.Messages(tx) {
		d.handle(&msg)
	}
	more := len(d.pending) > 0
	d.lock.Unlock()
	if more {
		d.raise()
	}
	return nil
}

func (d *Device) handle(msg *link.Message) {
	switch msg.Command {
	case link.CmdGetFirmwareVersion:
		d.pending = append(d.pending, link.EncodeFirmwareVersion(msg.Seq, d.Version))
	case link.CmdCANSendFrame:
		var status byte
		f, err := d.Codec.DecodeWrite(msg.Payload)
		if err != nil {
			glog.Warningf("emu: invalid frame [%d]: %v", msg.Seq, err)
			status = 0xff
		} else {
			if d.Status != nil {
				status = d.Status(f)
			}
			if status == 0 {
				d.sent = append(d.sent, f)
				if d.sentCh != nil {
					select {
					case d.sentCh <- f:
					default:
						glog.Warningf("emu: sent frames channel full, drop %s", f)
					}
				}
			}
		}
		d.pending = append(d.pending, link.Message{
			Command: link.CmdCANSendFrame,
			Seq:     msg.Seq,
			Payload: []byte{status},
		})
	default:
		glog.V(2).Infof("emu: ignore %s [%d]", msg.Command, msg.Seq)
	}
}

func (d *Device) enqueue(msg link.Message) {
	d.lock.Lock()
	d.pending = append(d.pending, msg)
	d.lock.Unlock()
	d.raise()
}

func (d *Device) raise() {
	if fn := d.OnPending; fn != nil {
		fn()
	}
}

// Close implements io.Closer.
func (d *Device) Close() error {
	return nil
}
