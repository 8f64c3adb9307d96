package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/canlink/pkg/can"
	"github.com/robotalks/canlink/pkg/link"
)

// Topics under <prefix><id>/.
const (
	TopicMeta  = "meta"
	TopicRx    = "rx"
	TopicErr   = "err"
	TopicTx    = "tx"
	TopicStats = "stats"
)

// Meta is the retained description of a bridge.
type Meta struct {
	ID       string `json:"id"`
	Firmware string `json:"firmware,omitempty"`
	Device   string `json:"device,omitempty"`
	Monitor  string `json:"monitor,omitempty"`
}

// Submitter accepts frames to send over the link. link.TxQueue implements it.
type Submitter interface {
	Submit(can.Frame) error
}

// Bridge publishes frames received by the link and submits frames
// published to its tx topic.
//
// Deliver and FirmwareVersion are called under the link lock and only
// hand over to Run, which does the publishing.
type Bridge struct {
	Queue *Queue
	Sink  Submitter
	// Stats is published every StatsInterval if set.
	Stats         func() link.Stats
	StatsInterval time.Duration

	metaLock sync.Mutex
	meta     Meta

	frameCh chan outFrame
	metaCh  chan struct{}
}

type outFrame struct {
	topic string
	frame can.Frame
}

const (
	// DefaultStatsInterval is used when Bridge.StatsInterval is not set.
	DefaultStatsInterval = 10 * time.Second
	// DefaultBacklog is the number of received frames buffered for publishing.
	DefaultBacklog = 256
)

// NewBridge creates a Bridge connecting to brokerURL.
func NewBridge(brokerURL string, meta Meta, sink Submitter) (*Bridge, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	// an empty retained meta removes the bridge from discovery
	opts.SetBinaryWill(topicPrefix+meta.ID+"/"+TopicMeta, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("canlink:" + meta.ID)
	}
	return newBridge(NewQueue(opts, topicPrefix), meta, sink), nil
}

func newBridge(q *Queue, meta Meta, sink Submitter) *Bridge {
	b := &Bridge{
		Queue:   q,
		Sink:    sink,
		meta:    meta,
		frameCh: make(chan outFrame, DefaultBacklog),
		metaCh:  make(chan struct{}, 1),
	}
	q.OnConnect = func(*Queue) { b.publishMeta() }
	return b
}

// Name implements framework.Named.
func (b *Bridge) Name() string {
	return "mqtt"
}

// Meta returns current meta.
func (b *Bridge) Meta() Meta {
	b.metaLock.Lock()
	defer b.metaLock.Unlock()
	return b.meta
}

// Deliver implements link.Delivery. It never blocks, frames are dropped
// when the broker falls behind.
func (b *Bridge) Deliver(f can.Frame) {
	b.enqueue(TopicRx, f)
}

// DeliverBusError implements link.Delivery.
func (b *Bridge) DeliverBusError(f can.Frame) {
	b.enqueue(TopicErr, f)
}

// FirmwareVersion implements link.InfoSink.
func (b *Bridge) FirmwareVersion(v link.FirmwareVersion) {
	b.metaLock.Lock()
	b.meta.Firmware = v.String()
	b.metaLock.Unlock()
	select {
	case b.metaCh <- struct{}{}:
	default:
	}
}

func (b *Bridge) enqueue(topic string, f can.Frame) {
	select {
	case b.frameCh <- outFrame{topic: topic, frame: f}:
	default:
		glog.Warningf("mqtt backlog full, drop %s %s", topic, f)
	}
}

// Run implements Runnable.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.Queue.Sub(b.topic(TopicTx), b.handleTx)
	defer sub.Close()
	if err := b.Queue.Connect(); err != nil {
		return err
	}
	defer b.Queue.Close()

	interval := b.StatsInterval
	if interval <= 0 {
		interval = DefaultStatsInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			Wait(b.Queue.PubRetained(b.topic(TopicMeta), nil))
			return ctx.Err()
		case out := <-b.frameCh:
			b.publishFrame(out.topic, out.frame)
		case <-b.metaCh:
			if b.Queue.Client.IsConnected() {
				b.publishMeta()
			}
		case <-ticker.C:
			b.publishStats()
		}
	}
}

func (b *Bridge) topic(name string) string {
	return b.meta.ID + "/" + name
}

func (b *Bridge) publishMeta() {
	data, err := json.Marshal(b.Meta())
	if err != nil {
		panic(err)
	}
	b.Queue.PubRetained(b.topic(TopicMeta), data)
}

func (b *Bridge) publishStats() {
	if b.Stats == nil {
		return
	}
	data, err := json.Marshal(b.Stats())
	if err != nil {
		panic(err)
	}
	b.Queue.Pub(b.topic(TopicStats), data)
}

func (b *Bridge) publishFrame(topic string, f can.Frame) {
	data, err := EncodeFrame(f)
	if err != nil {
		glog.Errorf("encode %s: %v", f, err)
		return
	}
	b.Queue.Pub(b.topic(topic), data)
}

func (b *Bridge) handleTx(_ string, payload []byte) {
	f, err := DecodeFrame(payload)
	if err != nil {
		glog.Warningf("invalid tx frame: %v", err)
		return
	}
	if err = b.Sink.Submit(f); err != nil {
		glog.Warningf("submit %s: %v", f, err)
	}
}
