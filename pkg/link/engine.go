package link

import (
	"sync"

	"github.com/golang/glog"
)

// Engine runs link transactions one at a time.
//
// A transaction fills the transmit block with at most one message, performs
// the Transfer and dispatches every message found in the received block.
// The whole transaction runs under one lock which is the only
// synchronization point of the link: the blocks are owned by the goroutine
// holding it.
type Engine struct {
	Transfer Transfer
	Delivery Delivery
	Info     InfoSink
	Acks     AckHandler
	Tracer   Tracer
	Codec    Codec

	// Unhandled receives messages with commands not dispatched above.
	Unhandled MessageHandler
	// Seq allocates request sequence numbers, shared with TxQueue.
	Seq *Sequencer

	lock   sync.Mutex
	tx, rx [BufferSize]byte
	stats  counters
}

// NewEngine creates an Engine.
func NewEngine(t Transfer, d Delivery) *Engine {
	return &Engine{
		Transfer: t,
		Delivery: d,
		Codec:    LittleEndian,
		Seq:      &Sequencer{},
	}
}

// Stats returns a snapshot of the counters.
func (e *Engine) Stats() Stats {
	return e.stats.snapshot()
}

// RunTransaction performs one exchange carrying msg, or an all-zero block
// if msg is nil. It blocks until the link is available. Transfer failures
// are returned as *TransferError and are not retried.
func (e *Engine) RunTransaction(msg *Message) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	clear(e.tx[:])
	clear(e.rx[:])
	if msg != nil {
		if _, err := e.Codec.Put(e.tx[:], msg); err != nil {
			return err
		}
		glog.V(4).Infof("> %s len %d [%d]", msg.Command, len(msg.Payload), msg.Seq)
	}

	err := e.Transfer.Transfer(e.tx[:], e.rx[:])
	if t := e.Tracer; t != nil {
		t.TraceTransaction(e.tx[:], e.rx[:], err)
	}
	if err != nil {
		e.stats.transferErrors.Add(1)
		return &TransferError{Err: err}
	}

	s := e.Codec.DecodeStream(e.rx[:])
	for m, ok := s.Next(); ok; m, ok = s.Next() {
		e.dispatch(&m)
	}
	return nil
}

// QueryFirmwareVersion requests the firmware version. The reply arrives
// in a later transaction and is reported to Info.
func (e *Engine) QueryFirmwareVersion() error {
	return e.RunTransaction(&Message{Command: CmdGetFirmwareVersion, Seq: e.Seq.Next()})
}

func (e *Engine) dispatch(m *Message) {
	glog.V(4).Infof("< %s len %d [%d]", m.Command, len(m.Payload), m.Seq)
	switch m.Command {
	case CmdCANReceiveFrame:
		f := e.Codec.DecodeReceived(m.Payload)
		e.stats.rxFrames.Add(1)
		e.stats.rxBytes.Add(uint64(f.Len))
		if f.IsError() {
			e.stats.rxErrors.Add(1)
			glog.Warningf("malformed frame from device: % x", m.Payload)
			if d := e.Delivery; d != nil {
				d.DeliverBusError(f)
			}
			return
		}
		if d := e.Delivery; d != nil {
			d.Deliver(f)
		}
	case CmdGetFirmwareVersion:
		v, err := DecodeFirmwareVersion(m.Payload)
		if err != nil {
			glog.Warningf("firmware version reply [%d]: %v", m.Seq, err)
			return
		}
		glog.Infof("fw %s", v)
		if info := e.Info; info != nil {
			info.FirmwareVersion(v)
		}
	case CmdCANSendFrame:
		res, err := DecodeWriteAck(m.Seq, m.Payload)
		if err != nil {
			glog.Warningf("send frame reply [%d]: %v", m.Seq, err)
			return
		}
		if err = res.Err(); err != nil {
			e.stats.txRejected.Add(1)
			glog.Warning(err)
		}
		if h := e.Acks; h != nil {
			h.WriteResult(res)
		}
	default:
		if h := e.Unhandled; h != nil {
			h.HandleMessage(m)
		}
	}
}
