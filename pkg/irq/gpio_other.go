//go:build !linux

package irq

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// GPIO is only available on Linux.
type GPIO struct {
	Pin      int
	Notifier Notifier
	Recheck  time.Duration
}

// NewGPIO always fails.
func NewGPIO(pin int, n Notifier) (*GPIO, error) {
	return nil, errors.New("gpio is not supported on this platform")
}

// Name implements framework.Named.
func (g *GPIO) Name() string {
	return "irq-gpio" + strconv.Itoa(g.Pin)
}

// Run implements Runnable.
func (g *GPIO) Run(ctx context.Context) error {
	return errors.New("gpio is not supported on this platform")
}
