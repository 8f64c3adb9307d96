package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/canlink/pkg/can"
	"github.com/robotalks/canlink/pkg/link"
)

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// Connector finds bridges on a broker and connects to them.
type Connector struct {
	DiscoverTimeout time.Duration

	queue *Queue
}

// NewConnector creates a Connector.
func NewConnector(brokerURL string) (*Connector, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return &Connector{
		DiscoverTimeout: DefaultDiscoverTimeout,
		queue:           NewQueue(opts, topicPrefix),
	}, nil
}

// Connect connects to the broker.
func (c *Connector) Connect() error {
	return c.queue.Connect()
}

// Close implements io.Closer.
func (c *Connector) Close() error {
	return c.queue.Close()
}

// Discover collects retained meta of bridges until the timeout.
func (c *Connector) Discover(ctx context.Context) ([]Meta, error) {
	resCh := make(chan Meta, 16)
	sub := c.queue.Sub("+/"+TopicMeta, func(topic string, payload []byte) {
		if len(payload) == 0 {
			return
		}
		var meta Meta
		if err := json.Unmarshal(payload, &meta); err != nil {
			glog.Warningf("invalid meta on %q: %v", topic, err)
			return
		}
		if meta.ID == "" {
			meta.ID = strings.TrimSuffix(topic, "/"+TopicMeta)
		}
		select {
		case resCh <- meta:
		case <-time.After(time.Second):
		}
	})
	defer sub.Close()

	dur := c.DiscoverTimeout
	if dur <= 0 {
		dur = DefaultDiscoverTimeout
	}
	timeout := time.After(dur)
	var res []Meta
	for {
		select {
		case meta := <-resCh:
			res = append(res, meta)
		case <-timeout:
			return res, nil
		case <-ctx.Done():
			return res, ctx.Err()
		}
	}
}

// Conn is a connection to one bridge.
type Conn struct {
	ID string

	queue *Queue
}

// Bridge returns a Conn to the bridge with id.
func (c *Connector) Bridge(id string) *Conn {
	return &Conn{ID: id, queue: c.queue}
}

// Send asks the bridge to send a frame.
func (c *Conn) Send(f can.Frame) error {
	data, err := EncodeFrame(f)
	if err != nil {
		return err
	}
	return Wait(c.queue.Pub(c.ID+"/"+TopicTx, data))
}

// Watch calls fn with frames received by the bridge, bus errors included,
// until the returned Subscriptions are closed.
func (c *Conn) Watch(fn func(can.Frame)) []*Subscription {
	handler := func(topic string, payload []byte) {
		f, err := DecodeFrame(payload)
		if err != nil {
			glog.Warningf("invalid frame on %q: %v", topic, err)
			return
		}
		fn(f)
	}
	return []*Subscription{
		c.queue.Sub(c.ID+"/"+TopicRx, handler),
		c.queue.Sub(c.ID+"/"+TopicErr, handler),
	}
}

// WatchAll calls fn with frames of every bridge on the broker.
func (c *Connector) WatchAll(fn func(id string, f can.Frame)) []*Subscription {
	handler := func(topic string, payload []byte) {
		f, err := DecodeFrame(payload)
		if err != nil {
			glog.Warningf("invalid frame on %q: %v", topic, err)
			return
		}
		fn(topic[:strings.IndexByte(topic, '/')], f)
	}
	return []*Subscription{
		c.queue.Sub("+/"+TopicRx, handler),
		c.queue.Sub("+/"+TopicErr, handler),
	}
}

// WatchStats calls fn with stats published by the bridge.
func (c *Conn) WatchStats(fn func(link.Stats)) *Subscription {
	return c.queue.Sub(c.ID+"/"+TopicStats, func(topic string, payload []byte) {
		var stats link.Stats
		if err := json.Unmarshal(payload, &stats); err != nil {
			glog.Warningf("invalid stats on %q: %v", topic, err)
			return
		}
		fn(stats)
	})
}
