// Package irq watches the device's data-pending signal.
package irq

import (
	"context"
	"time"
)

// Notifier is notified when the device has pending data.
// link.RecvTrigger implements it.
type Notifier interface {
	Notify()
}

// NotifyFunc is func type of Notifier.
type NotifyFunc func()

// Notify implements Notifier.
func (f NotifyFunc) Notify() {
	f()
}

// Ticker notifies periodically, for links without an interrupt line.
type Ticker struct {
	Interval time.Duration
	Notifier Notifier
}

// DefaultPollInterval is used when Ticker.Interval is not set.
const DefaultPollInterval = 10 * time.Millisecond

// Name implements framework.Named.
func (t *Ticker) Name() string {
	return "irq-ticker"
}

// Run implements Runnable.
func (t *Ticker) Run(ctx context.Context) error {
	interval := t.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.Notifier.Notify()
		}
	}
}
