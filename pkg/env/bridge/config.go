// Package bridge sets up the environment of the bridge daemon.
package bridge

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/canlink/pkg/env"
	"github.com/robotalks/canlink/pkg/irq"
	"github.com/robotalks/canlink/pkg/mqtt"
)

// Config provides the options of the bridge daemon.
type Config struct {
	// ID identifies the bridge on MQTT and mDNS.
	ID string `yaml:"id"`

	// Device is the link URL, see xfer.Open.
	Device string `yaml:"device"`
	// OpenAttempts is the number of tries to open Device.
	OpenAttempts uint `yaml:"open-attempts"`

	// IRQPin is the GPIO of the device interrupt, negative to poll.
	IRQPin       int           `yaml:"irq-pin"`
	PollInterval time.Duration `yaml:"poll-interval"`

	// MaxPending limits the frames waiting to be sent, 0 for no limit.
	MaxPending int `yaml:"max-pending"`

	// CANIface is the SocketCAN interface to bridge, e.g. vcan0.
	CANIface string `yaml:"can-iface"`

	// MQTTBrokerURL specifies the MQTT broker to use.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string        `yaml:"mqtt"`
	StatsInterval time.Duration `yaml:"stats-interval"`

	// MonitorAddr is the listen address of the websocket monitor.
	MonitorAddr string `yaml:"monitor"`
	// Advertise announces the monitor with mDNS.
	Advertise bool `yaml:"advertise"`

	// TraceFile records every transaction when set.
	TraceFile string `yaml:"trace"`
}

var defaultConfig = Config{
	Device:        "spidev:///dev/spidev0.0?speed=4000000",
	OpenAttempts:  3,
	IRQPin:        -1,
	PollInterval:  irq.DefaultPollInterval,
	MaxPending:    64,
	StatsInterval: mqtt.DefaultStatsInterval,
}

func init() {
	if val := os.Getenv("CANLINK_DEVICE"); val != "" {
		defaultConfig.Device = val
	}
	if val := os.Getenv("CANLINK_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("CANLINK_CAN_IFACE"); val != "" {
		defaultConfig.CANIface = val
	}
	if val := os.Getenv("CANLINK_ID"); val != "" {
		defaultConfig.ID = val
	}
}

// SetupFlags sets command line flags.
// Options in the -config file are overridden by flags after it.
func SetupFlags() {
	flag.Func("config", "YAML config file", defaultConfig.LoadFile)
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Bridge ID, defaults to the machine ID")
	flag.StringVar(&defaultConfig.Device, "device", defaultConfig.Device, "Link device URL")
	flag.UintVar(&defaultConfig.OpenAttempts, "open-attempts", defaultConfig.OpenAttempts, "Attempts to open the device")
	flag.IntVar(&defaultConfig.IRQPin, "irq-pin", defaultConfig.IRQPin, "GPIO of device interrupt, negative to poll")
	flag.DurationVar(&defaultConfig.PollInterval, "poll-interval", defaultConfig.PollInterval, "Device poll interval without interrupt")
	flag.IntVar(&defaultConfig.MaxPending, "max-pending", defaultConfig.MaxPending, "Max frames waiting to be sent")
	flag.StringVar(&defaultConfig.CANIface, "can-iface", defaultConfig.CANIface, "SocketCAN interface to bridge")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.DurationVar(&defaultConfig.StatsInterval, "stats-interval", defaultConfig.StatsInterval, "Interval of publishing stats")
	flag.StringVar(&defaultConfig.MonitorAddr, "monitor", defaultConfig.MonitorAddr, "Websocket monitor listen address")
	flag.BoolVar(&defaultConfig.Advertise, "advertise", defaultConfig.Advertise, "Advertise monitor with mDNS")
	flag.StringVar(&defaultConfig.TraceFile, "trace", defaultConfig.TraceFile, "Record transactions to file")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// LoadFile overrides the options present in a YAML file.
func (c *Config) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return c.Load(f)
}

// Load overrides the options present in YAML from r.
func (c *Config) Load(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Validate fills derived defaults and checks the options.
func (c *Config) Validate() error {
	if c.ID == "" {
		c.ID = env.MachineID()
	}
	if c.Device == "" {
		return errors.New("device must be specified")
	}
	if c.MaxPending < 0 {
		return fmt.Errorf("invalid max-pending %d", c.MaxPending)
	}
	if c.IRQPin < 0 && c.PollInterval <= 0 {
		return errors.New("poll-interval must be positive without irq-pin")
	}
	if c.Advertise && c.MonitorAddr == "" {
		return errors.New("advertise requires monitor")
	}
	return nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv(ctx context.Context) *Env {
	e, err := c.NewEnv(ctx)
	if err != nil {
		log.Fatalln(err)
	}
	return e
}
