// Package client sets up connections to bridges for tools.
package client

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/robotalks/canlink/pkg/mqtt"
)

// ErrNoBridge indicates no bridge was discovered.
var ErrNoBridge = errors.New("no bridge found")

// Config provides common options to connect bridges.
type Config struct {
	// BridgeID selects the bridge, the only discovered one if empty.
	BridgeID string

	// MQTTBrokerURL specifies the MQTT broker bridges publish to.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string

	DiscoverTimeout time.Duration
}

var defaultConfig = Config{
	MQTTBrokerURL:   "mqtt://localhost:1883/canlink/",
	DiscoverTimeout: mqtt.DefaultDiscoverTimeout,
}

func init() {
	if val := os.Getenv("CANLINK_ID"); val != "" {
		defaultConfig.BridgeID = val
	}
	if val := os.Getenv("CANLINK_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.BridgeID, "bridge", defaultConfig.BridgeID, "Bridge ID to connect.")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL.")
	flag.DurationVar(&defaultConfig.DiscoverTimeout, "discover-timeout", defaultConfig.DiscoverTimeout, "Time to wait for bridges.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewConnector creates a connected Connector.
func (c *Config) NewConnector() (*mqtt.Connector, error) {
	connector, err := mqtt.NewConnector(c.MQTTBrokerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid broker URL: %w", err)
	}
	connector.DiscoverTimeout = c.DiscoverTimeout
	if err = connector.Connect(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", c.MQTTBrokerURL, err)
	}
	return connector, nil
}

// MustNewConnector creates a Connector and fails on error.
func (c *Config) MustNewConnector() *mqtt.Connector {
	connector, err := c.NewConnector()
	if err != nil {
		log.Fatalln(err)
	}
	return connector
}

// SelectBridge resolves the bridge to connect.
func (c *Config) SelectBridge(ctx context.Context, connector Discoverer) (string, error) {
	if c.BridgeID != "" {
		return c.BridgeID, nil
	}
	metas, err := connector.Discover(ctx)
	if err != nil {
		return "", err
	}
	switch len(metas) {
	case 0:
		return "", ErrNoBridge
	case 1:
		return metas[0].ID, nil
	}
	ids := make([]string, len(metas))
	for n, meta := range metas {
		ids[n] = meta.ID
	}
	return "", fmt.Errorf("multiple bridges found, select one of %v", ids)
}

// Discoverer finds bridges. mqtt.Connector implements it.
type Discoverer interface {
	Discover(context.Context) ([]mqtt.Meta, error)
}

// Connect connects the selected bridge.
func (c *Config) Connect(ctx context.Context) (*mqtt.Connector, *mqtt.Conn, error) {
	connector, err := c.NewConnector()
	if err != nil {
		return nil, nil, err
	}
	id, err := c.SelectBridge(ctx, connector)
	if err != nil {
		connector.Close()
		return nil, nil, err
	}
	return connector, connector.Bridge(id), nil
}
