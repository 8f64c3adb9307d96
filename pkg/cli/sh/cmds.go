package sh

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/canlink/pkg/can"
	"github.com/robotalks/canlink/pkg/discovery"
	"github.com/robotalks/canlink/pkg/link"
	"github.com/robotalks/canlink/pkg/mqtt"
	"github.com/robotalks/canlink/pkg/trace"
)

const (
	// DefaultMonitorDuration is how long monitor prints frames.
	DefaultMonitorDuration = 10 * time.Second
	// StatsWait bounds waiting for the next stats publication.
	StatsWait = mqtt.DefaultStatsInterval + 5*time.Second
	// BrowseDuration is how long mDNS discovery listens.
	BrowseDuration = 2 * time.Second
)

// FormatMeta prints Meta into friendly string for display.
func FormatMeta(meta mqtt.Meta) string {
	var sb strings.Builder
	sb.WriteString(meta.ID)
	if meta.Firmware != "" {
		fmt.Fprintf(&sb, " fw %s", meta.Firmware)
	}
	if meta.Device != "" {
		fmt.Fprintf(&sb, " on %s", meta.Device)
	}
	if meta.Monitor != "" {
		fmt.Fprintf(&sb, " monitor %s", meta.Monitor)
	}
	return sb.String()
}

// FormatService prints an mDNS Service for display.
func FormatService(svc *discovery.Service) string {
	var sb strings.Builder
	sb.WriteString(svc.ID)
	if svc.Firmware != "" {
		fmt.Fprintf(&sb, " fw %s", svc.Firmware)
	}
	fmt.Fprintf(&sb, " %s:%d", svc.Host, svc.Port)
	if svc.MQTT != "" {
		fmt.Fprintf(&sb, " mqtt %s", svc.MQTT)
	}
	return sb.String()
}

func closeSubs(subs []*mqtt.Subscription) {
	for _, sub := range subs {
		sub.Close()
	}
}

func discoverMDNS(c *ishell.Context) {
	s := ShellFrom(c)
	services, err := discovery.Browse(context.Background(), BrowseDuration)
	if err != nil {
		c.Err(err)
		return
	}
	if s.OutputJSON {
		if services == nil {
			services = []*discovery.Service{}
		}
		PrintJSON(c, services)
		return
	}
	if len(services) == 0 {
		c.Println("No bridges found")
		return
	}
	for _, svc := range services {
		c.Println(FormatService(svc))
	}
}

var (
	// DiscoverCmd discovers bridges.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "[mdns]",
		Func: func(c *ishell.Context) {
			if len(c.Args) > 0 && c.Args[0] == "mdns" {
				discoverMDNS(c)
				return
			}
			s := ShellFrom(c)
			metas, err := s.Discover(context.Background())
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if metas == nil {
					metas = []mqtt.Meta{}
				}
				PrintJSON(c, metas)
				return
			}
			if len(metas) == 0 {
				c.Println("No bridges found")
				return
			}
			for _, meta := range metas {
				c.Println(FormatMeta(meta))
			}
		},
	}

	// ConnectCmd connects a bridge.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[ID]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var id string
			if len(c.Args) > 0 {
				id = c.Args[0]
			} else {
				var err error
				if id, err = s.SelectBridge(context.Background()); err != nil {
					c.Err(err)
					return
				}
			}
			if err := s.Connect(id); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current bridge.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// SendCmd sends frames through the bridge.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "ID#DATA...",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("frame expected, e.g. 123#DEADBEEF"))
				return
			}
			frames := make([]can.Frame, 0, len(c.Args))
			for _, arg := range c.Args {
				f, err := can.Parse(arg)
				if err != nil {
					c.Err(err)
					return
				}
				frames = append(frames, f)
			}
			conn := ShellFrom(c).Conn
			for _, f := range frames {
				if err := conn.Send(f); err != nil {
					c.Err(err)
					return
				}
			}
			c.Println("OK")
		}),
	}

	// MonitorCmd prints frames received by the bridge, or by all
	// bridges when not connected.
	MonitorCmd = ishell.Cmd{
		Name:    "monitor",
		Aliases: []string{"m"},
		Help:    "[DURATION]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			dur := DefaultMonitorDuration
			if len(c.Args) > 0 {
				var err error
				if dur, err = time.ParseDuration(c.Args[0]); err != nil {
					c.Err(err)
					return
				}
			}
			connector, err := s.connector()
			if err != nil {
				c.Err(err)
				return
			}
			framesCh := make(chan string, 64)
			push := func(line string) {
				select {
				case framesCh <- line:
				default:
				}
			}
			var subs []*mqtt.Subscription
			if s.Conn != nil {
				subs = s.Conn.Watch(func(f can.Frame) { push(f.ColorString()) })
			} else {
				subs = connector.WatchAll(func(id string, f can.Frame) {
					push(id + " " + f.ColorString())
				})
			}
			defer closeSubs(subs)
			timeout := time.After(dur)
			for {
				select {
				case line := <-framesCh:
					c.Println(line)
				case <-timeout:
					return
				}
			}
		},
	}

	// StatsCmd prints the next stats published by the bridge.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "",
		Func: MustBeConnected(func(c *ishell.Context) {
			s := ShellFrom(c)
			statsCh := make(chan link.Stats, 1)
			sub := s.Conn.WatchStats(func(stats link.Stats) {
				select {
				case statsCh <- stats:
				default:
				}
			})
			defer sub.Close()
			select {
			case stats := <-statsCh:
				if s.OutputJSON {
					PrintJSON(c, stats)
					return
				}
				c.Println(stats.String())
			case <-time.After(StatsWait):
				c.Err(context.DeadlineExceeded)
			}
		}),
	}

	// FirmwareCmd prints the firmware version of the bridge.
	FirmwareCmd = ishell.Cmd{
		Name:    "fw",
		Aliases: []string{"version"},
		Help:    "",
		Func: MustBeConnected(func(c *ishell.Context) {
			s := ShellFrom(c)
			metas, err := s.Discover(context.Background())
			if err != nil {
				c.Err(err)
				return
			}
			for _, meta := range metas {
				if meta.ID == s.Conn.ID {
					if meta.Firmware == "" {
						c.Println("unknown")
						return
					}
					c.Println(meta.Firmware)
					return
				}
			}
			c.Err(fmt.Errorf("bridge %s is offline", s.Conn.ID))
		}),
	}

	// TraceCmd dumps a transaction trace file.
	TraceCmd = ishell.Cmd{
		Name: "trace",
		Help: "FILE [SESSION]",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("trace file expected"))
				return
			}
			r, err := trace.Open(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			defer r.Close()
			if len(c.Args) > 1 {
				r.Session = c.Args[1]
			}
			s := ShellFrom(c)
			for {
				ev, err := r.Next()
				if err == io.EOF {
					return
				}
				if err != nil {
					c.Err(err)
					return
				}
				if s.OutputJSON {
					PrintJSON(c, ev)
					continue
				}
				c.Print(ev.Format(link.LittleEndian))
			}
		},
	}
)
