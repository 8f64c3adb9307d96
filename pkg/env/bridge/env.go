package bridge

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/canlink/pkg/discovery"
	"github.com/robotalks/canlink/pkg/emu"
	fx "github.com/robotalks/canlink/pkg/framework"
	"github.com/robotalks/canlink/pkg/irq"
	"github.com/robotalks/canlink/pkg/link"
	"github.com/robotalks/canlink/pkg/monitor"
	"github.com/robotalks/canlink/pkg/mqtt"
	"github.com/robotalks/canlink/pkg/socketcan"
	"github.com/robotalks/canlink/pkg/trace"
	"github.com/robotalks/canlink/pkg/xfer"
)

// FirmwareTimeout bounds waiting for the firmware version before
// advertising.
const FirmwareTimeout = 2 * time.Second

// Env is the assembled bridge.
type Env struct {
	Config  *Config
	Conn    xfer.Conn
	Engine  *link.Engine
	Queue   *link.TxQueue
	Trigger *link.RecvTrigger

	// Optional parts, nil when not configured.
	SocketCAN *socketcan.Bridge
	MQTT      *mqtt.Bridge
	Monitor   *monitor.Server
	Tracer    *trace.Recorder

	runnables []fx.Runnable
	closers   []io.Closer
	fwCh      chan link.FirmwareVersion
}

// NewEnv opens the device and creates the configured parts.
func (c *Config) NewEnv(ctx context.Context) (*Env, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	opts := xfer.DefaultOptions
	opts.Attempts = c.OpenAttempts
	conn, err := opts.Open(ctx, c.Device)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.Device, err)
	}
	e := &Env{Config: c, Conn: conn, fwCh: make(chan link.FirmwareVersion, 1)}
	e.closers = append(e.closers, conn)
	if err = e.setup(); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Env) setup() error {
	c := e.Config
	var deliveries link.DeliveryMux
	e.Engine = link.NewEngine(e.Conn, nil)
	e.Queue = link.NewTxQueue(e.Engine)
	e.Queue.MaxPending = c.MaxPending
	e.Trigger = link.NewRecvTrigger(e.Engine)

	if c.TraceFile != "" {
		rec, err := trace.Create(c.TraceFile)
		if err != nil {
			return fmt.Errorf("trace: %w", err)
		}
		glog.Infof("tracing session %s to %s", rec.Session, c.TraceFile)
		e.Tracer, e.Engine.Tracer = rec, rec
		e.closers = append(e.closers, rec)
	}

	if c.CANIface != "" {
		dev, err := socketcan.Open(c.CANIface)
		if err != nil {
			return fmt.Errorf("socketcan %s: %w", c.CANIface, err)
		}
		e.closers = append(e.closers, dev)
		e.SocketCAN = socketcan.NewBridge(dev, e.Queue)
		deliveries = append(deliveries, e.SocketCAN)
		e.runnables = append(e.runnables, e.SocketCAN)
	}

	if c.MonitorAddr != "" {
		e.Monitor = monitor.NewServer(c.MonitorAddr)
		e.Monitor.Stats = e.Engine.Stats
		deliveries = append(deliveries, e.Monitor)
		e.runnables = append(e.runnables, e.Monitor)
	}

	if c.MQTTBrokerURL != "" {
		meta := mqtt.Meta{ID: c.ID, Device: c.Device}
		if e.Monitor != nil {
			meta.Monitor = c.MonitorAddr
		}
		b, err := mqtt.NewBridge(c.MQTTBrokerURL, meta, e.Queue)
		if err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		b.Stats, b.StatsInterval = e.Engine.Stats, c.StatsInterval
		e.MQTT = b
		deliveries = append(deliveries, b)
		e.runnables = append(e.runnables, b)
	}

	if c.Advertise {
		e.runnables = append(e.runnables, fx.Optional(fx.NamedRun("mdns", fx.RunFunc(e.advertise))))
	}

	e.Engine.Delivery = deliveries
	e.Engine.Info = link.FirmwareVersionFunc(e.firmwareVersion)
	e.runnables = append(e.runnables, e.Queue, e.Trigger)

	if dev, ok := e.Conn.(*emu.Device); ok {
		dev.OnPending = e.Trigger.Notify
		return nil
	}
	if c.IRQPin >= 0 {
		gpio, err := irq.NewGPIO(c.IRQPin, e.Trigger)
		if err != nil {
			return fmt.Errorf("irq gpio %d: %w", c.IRQPin, err)
		}
		e.runnables = append(e.runnables, gpio)
	} else {
		e.runnables = append(e.runnables, &irq.Ticker{Interval: c.PollInterval, Notifier: e.Trigger})
	}
	return nil
}

func (e *Env) firmwareVersion(v link.FirmwareVersion) {
	if e.MQTT != nil {
		e.MQTT.FirmwareVersion(v)
	}
	select {
	case e.fwCh <- v:
	default:
	}
}

func (e *Env) advertise(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.Monitor.Ready():
	}
	port := e.Monitor.Port()
	if port == 0 {
		return fmt.Errorf("monitor not listening on %s", e.Monitor.Addr)
	}
	svc := discovery.Service{ID: e.Config.ID, MQTT: e.Config.MQTTBrokerURL, Port: port}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case v := <-e.fwCh:
		svc.Firmware = v.String()
	case <-time.After(FirmwareTimeout):
		glog.Warning("firmware version unknown, advertising without it")
	}
	a := &discovery.Advertiser{Service: svc}
	return a.Run(ctx)
}

// AddToRunner starts all parts in the runner.
func (e *Env) AddToRunner(r *fx.Runner) {
	r.Go(e.runnables...)
}

// Start queries the firmware version. The reply is handled when the
// link is serviced by the runner.
func (e *Env) Start() error {
	return e.Engine.QueryFirmwareVersion()
}

// Close releases the opened devices.
func (e *Env) Close() error {
	var errs fx.AggregatedError
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs.Add(e.closers[i].Close())
	}
	return errs.Aggregate()
}
