package link

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/canlink/pkg/can"
)

// TxQueue sends CAN frames through an Engine from a single worker.
//
// Submit never blocks on the link: the frame is validated, given a sequence
// number and appended to the queue, and Run transmits queued frames one
// transaction at a time in submission order.
type TxQueue struct {
	Engine *Engine
	// MaxPending limits the number of queued frames, 0 for no limit.
	MaxPending int

	lock    sync.Mutex
	head    *txTask
	tail    *txTask
	pending int
	closed  bool
	wakeCh  chan struct{}
}

type txTask struct {
	frame can.Frame
	msg   Message
	next  *txTask
}

// NewTxQueue creates a TxQueue.
func NewTxQueue(e *Engine) *TxQueue {
	return &TxQueue{Engine: e, wakeCh: make(chan struct{}, 1)}
}

// Name implements framework.Named.
func (q *TxQueue) Name() string {
	return "tx-queue"
}

// Submit queues a frame for transmission.
// Frames which can't be sent over the link fail with ErrInvalidFrame.
func (q *TxQueue) Submit(f can.Frame) error {
	msg, err := q.Engine.Codec.EncodeWrite(0, f)
	if err != nil {
		q.Engine.stats.dropped.Add(1)
		return err
	}

	q.lock.Lock()
	defer q.lock.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	if q.MaxPending > 0 && q.pending >= q.MaxPending {
		q.Engine.stats.dropped.Add(1)
		return ErrQueueFull
	}
	msg.Seq = q.Engine.Seq.Next()
	task := &txTask{frame: f, msg: msg}
	if q.head == nil {
		q.head = task
	} else {
		q.tail.next = task
	}
	q.tail = task
	q.pending++

	select {
	case q.wakeCh <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the number of queued frames.
func (q *TxQueue) Pending() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.pending
}

// Close stops accepting frames. Run returns after the queue is drained.
func (q *TxQueue) Close() error {
	q.lock.Lock()
	q.closed = true
	q.lock.Unlock()
	select {
	case q.wakeCh <- struct{}{}:
	default:
	}
	return nil
}

// Run implements Runnable.
func (q *TxQueue) Run(ctx context.Context) error {
	for {
		task, closed := q.pop()
		if task != nil {
			q.send(task)
			continue
		}
		if closed {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.wakeCh:
		}
	}
}

func (q *TxQueue) pop() (*txTask, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	task := q.head
	if task != nil {
		if q.head = task.next; q.head == nil {
			q.tail = nil
		}
		task.next = nil
		q.pending--
	}
	return task, q.closed
}

func (q *TxQueue) send(task *txTask) {
	if err := q.Engine.RunTransaction(&task.msg); err != nil {
		q.Engine.stats.dropped.Add(1)
		glog.Errorf("send %s [%d] dropped: %v", task.frame, task.msg.Seq, err)
		return
	}
	q.Engine.stats.txFrames.Add(1)
	q.Engine.stats.txBytes.Add(uint64(task.msg.Payload[4]))
}
