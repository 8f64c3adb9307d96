// Package xfer provides link.Transfer implementations for the physical links.
package xfer

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go"
	"github.com/golang/glog"

	"github.com/robotalks/canlink/pkg/emu"
	"github.com/robotalks/canlink/pkg/link"
)

// Conn is an opened link.
type Conn interface {
	link.Transfer
	io.Closer
}

// Options for opening a link.
type Options struct {
	// Attempts to open the device, 0 for 1.
	Attempts uint
	// Delay between attempts.
	Delay time.Duration
}

// DefaultOptions used by Open.
var DefaultOptions = Options{Attempts: 3, Delay: 500 * time.Millisecond}

// Open opens a link from URL, retrying with DefaultOptions.
//
//	spidev:///dev/spidev0.0?speed=4000000
//	serial:///dev/ttyACM0?baud=115200&timeout=100ms
//	emu:
func Open(ctx context.Context, rawURL string) (Conn, error) {
	return DefaultOptions.Open(ctx, rawURL)
}

// Open opens a link from URL.
func (o Options) Open(ctx context.Context, rawURL string) (Conn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid device URL: %w", err)
	}
	opener, err := openerOf(u)
	if err != nil {
		return nil, err
	}
	attempts := o.Attempts
	if attempts == 0 {
		attempts = 1
	}
	var conn Conn
	err = retry.Do(func() (err error) {
		conn, err = opener()
		return
	},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(o.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.OnRetry(func(n uint, err error) {
			glog.Warningf("open %s retry #%d: %v", rawURL, n+1, err)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	glog.Infof("opened %s", rawURL)
	return conn, nil
}

func openerOf(u *url.URL) (func() (Conn, error), error) {
	q := u.Query()
	switch u.Scheme {
	case "spidev":
		var speed uint64
		if val := q.Get("speed"); val != "" {
			var err error
			if speed, err = strconv.ParseUint(val, 10, 32); err != nil {
				return nil, fmt.Errorf("invalid speed %q: %w", val, err)
			}
		}
		return func() (Conn, error) {
			return OpenSPIDev(u.Path, uint32(speed))
		}, nil
	case "serial":
		baud := 115200
		if val := q.Get("baud"); val != "" {
			var err error
			if baud, err = strconv.Atoi(val); err != nil {
				return nil, fmt.Errorf("invalid baud %q: %w", val, err)
			}
		}
		timeout := DefaultSerialTimeout
		if val := q.Get("timeout"); val != "" {
			var err error
			if timeout, err = time.ParseDuration(val); err != nil {
				return nil, fmt.Errorf("invalid timeout %q: %w", val, err)
			}
		}
		return func() (Conn, error) {
			return OpenSerial(u.Path, baud, timeout)
		}, nil
	case "emu":
		return func() (Conn, error) {
			return emu.New(), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown device URL scheme: %q", u.Scheme)
	}
}
