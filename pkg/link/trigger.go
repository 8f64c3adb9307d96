package link

import (
	"context"

	"github.com/golang/glog"
)

// RecvTrigger drains device notifications when the device signals
// pending data. Notifications arriving while a drain is already pending
// are coalesced into it.
type RecvTrigger struct {
	Engine *Engine

	notifyCh chan struct{}
}

// NewRecvTrigger creates a RecvTrigger.
func NewRecvTrigger(e *Engine) *RecvTrigger {
	return &RecvTrigger{Engine: e, notifyCh: make(chan struct{}, 1)}
}

// Name implements framework.Named.
func (r *RecvTrigger) Name() string {
	return "recv-trigger"
}

// Notify schedules a drain. It never blocks and is safe to call from
// an interrupt watcher.
func (r *RecvTrigger) Notify() {
	select {
	case r.notifyCh <- struct{}{}:
	default:
	}
}

// Drain runs one empty transaction synchronously.
func (r *RecvTrigger) Drain() error {
	err := r.Engine.RunTransaction(nil)
	if err != nil {
		glog.Errorf("drain: %v", err)
	}
	return err
}

// Run implements Runnable.
func (r *RecvTrigger) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.notifyCh:
			r.Drain()
		}
	}
}
