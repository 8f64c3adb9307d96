//go:build linux

package irq

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sys/unix"
)

// SysfsGPIORoot is the sysfs GPIO class directory.
var SysfsGPIORoot = "/sys/class/gpio"

// GPIO watches an active-low interrupt line exported through sysfs.
type GPIO struct {
	Pin      int
	Notifier Notifier
	// Recheck is the interval to sample the line level while no edge
	// arrives, so a line held active is not missed.
	Recheck time.Duration

	valuePath string
}

// DefaultRecheck is used when GPIO.Recheck is not set.
const DefaultRecheck = 50 * time.Millisecond

// NewGPIO exports the pin if needed and configures falling edge events.
func NewGPIO(pin int, n Notifier) (*GPIO, error) {
	dir := filepath.Join(SysfsGPIORoot, "gpio"+strconv.Itoa(pin))
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err = os.WriteFile(filepath.Join(SysfsGPIORoot, "export"), []byte(strconv.Itoa(pin)), 0644); err != nil {
			return nil, fmt.Errorf("export gpio %d: %w", pin, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "direction"), []byte("in"), 0644); err != nil {
		return nil, fmt.Errorf("gpio %d direction: %w", pin, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "edge"), []byte("falling"), 0644); err != nil {
		return nil, fmt.Errorf("gpio %d edge: %w", pin, err)
	}
	return &GPIO{Pin: pin, Notifier: n, valuePath: filepath.Join(dir, "value")}, nil
}

// Name implements framework.Named.
func (g *GPIO) Name() string {
	return "irq-gpio" + strconv.Itoa(g.Pin)
}

// Run implements Runnable.
func (g *GPIO) Run(ctx context.Context) error {
	fd, err := unix.Open(g.valuePath, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", g.valuePath, err)
	}
	defer unix.Close(fd)

	recheck := g.Recheck
	if recheck <= 0 {
		recheck = DefaultRecheck
	}
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLPRI | unix.POLLERR}}
	for {
		// the first read also clears the pending edge
		active, err := readActiveLow(fd)
		if err != nil {
			return err
		}
		if active {
			g.Notifier.Notify()
		}
		if err = ctx.Err(); err != nil {
			return err
		}
		n, err := unix.Poll(fds, int(recheck/time.Millisecond))
		if err != nil && err != unix.EINTR {
			return fmt.Errorf("poll %s: %w", g.valuePath, err)
		}
		if n > 0 {
			glog.V(4).Infof("gpio %d edge", g.Pin)
			g.Notifier.Notify()
		}
	}
}

func readActiveLow(fd int) (bool, error) {
	var buf [2]byte
	if _, err := unix.Seek(fd, 0, 0); err != nil {
		return false, err
	}
	n, err := unix.Read(fd, buf[:])
	if err != nil {
		return false, err
	}
	return n > 0 && buf[0] == '0', nil
}
