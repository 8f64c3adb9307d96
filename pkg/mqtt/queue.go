// Package mqtt publishes link traffic over MQTT and connects to bridges
// doing so.
package mqtt

import (
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

// DefaultTimeout bounds waiting on broker acknowledgements.
const DefaultTimeout = 5 * time.Second

// ErrTimeout indicates the broker didn't acknowledge in time.
var ErrTimeout = errors.New("mqtt timeout")

// Handler is the callback when a message is received.
// topic has the prefix of the Queue stripped.
type Handler func(topic string, payload []byte)

// Queue wraps an MQTT client and scopes topics under a prefix.
type Queue struct {
	Client      paho.Client
	TopicPrefix string
	OnConnect   func(*Queue)

	lock sync.RWMutex
	subs map[string][]*Subscription
}

// Subscription is a handler registered on a topic filter.
type Subscription struct {
	queue   *Queue
	filter  string
	handler Handler
}

// MatchTopic matches topic against an MQTT filter with + and # wildcards.
func MatchTopic(topic, filter string) bool {
	tokensT, tokensF := strings.Split(topic, "/"), strings.Split(filter, "/")
	for i, token := range tokensF {
		if token == "#" && i+1 == len(tokensF) {
			return true
		}
		if i >= len(tokensT) {
			return false
		}
		if token != "+" && token != tokensT[i] {
			return false
		}
	}
	return len(tokensF) == len(tokensT)
}

// ClientOptionsFromURL creates ClientOptions from a broker URL.
// The path is the topic prefix, e.g. mqtt://host:1883/canlink/.
func ClientOptionsFromURL(brokerURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, "", err
	}
	scheme := u.Scheme
	switch scheme {
	case "", "mqtt":
		scheme = "tcp"
	case "mqtts":
		scheme = "ssl"
	}

	topicPrefix := strings.TrimPrefix(u.Path, "/")
	if topicPrefix != "" && !strings.HasSuffix(topicPrefix, "/") {
		topicPrefix += "/"
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(scheme + "://" + u.Host).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	if clientID := u.Query().Get("client-id"); clientID != "" {
		opts.SetClientID(clientID)
	}
	return opts, topicPrefix, nil
}

// NewQueue creates a Queue and its client.
func NewQueue(options *paho.ClientOptions, topicPrefix string) *Queue {
	q := &Queue{TopicPrefix: topicPrefix}
	options.SetOnConnectHandler(q.onConnect)
	options.SetConnectionLostHandler(func(_ paho.Client, err error) {
		glog.Warningf("mqtt connection lost: %v", err)
	})
	q.Client = paho.NewClient(options)
	return q
}

// Connect connects to the broker and waits for the result.
func (q *Queue) Connect() error {
	return Wait(q.Client.Connect())
}

// Close implements io.Closer.
func (q *Queue) Close() error {
	q.Client.Disconnect(250)
	return nil
}

// Sub registers handler on a topic filter.
func (q *Queue) Sub(filter string, handler Handler) *Subscription {
	sub := &Subscription{queue: q, filter: filter, handler: handler}
	q.lock.Lock()
	if q.subs == nil {
		q.subs = make(map[string][]*Subscription)
	}
	first := len(q.subs[filter]) == 0
	q.subs[filter] = append(q.subs[filter], sub)
	q.lock.Unlock()

	if first {
		glog.V(2).Infof("SUB %q", q.TopicPrefix+filter)
		q.Client.Subscribe(q.TopicPrefix+filter, 0, q.dispatcher(filter))
	}
	return sub
}

// Pub publishes a message.
func (q *Queue) Pub(topic string, payload []byte) paho.Token {
	return q.Client.Publish(q.TopicPrefix+topic, 0, false, payload)
}

// PubRetained publishes a retained message with QoS 1.
func (q *Queue) PubRetained(topic string, payload []byte) paho.Token {
	return q.Client.Publish(q.TopicPrefix+topic, 1, true, payload)
}

// Wait waits on a token for DefaultTimeout.
func Wait(token paho.Token) error {
	if !token.WaitTimeout(DefaultTimeout) {
		return ErrTimeout
	}
	return token.Error()
}

func (q *Queue) onConnect(paho.Client) {
	glog.Info("mqtt connected")
	q.lock.RLock()
	filters := make([]string, 0, len(q.subs))
	for filter := range q.subs {
		filters = append(filters, filter)
	}
	q.lock.RUnlock()
	for _, filter := range filters {
		glog.V(2).Infof("SUB %q", q.TopicPrefix+filter)
		q.Client.Subscribe(q.TopicPrefix+filter, 0, q.dispatcher(filter))
	}
	if fn := q.OnConnect; fn != nil {
		fn(q)
	}
}

// dispatcher runs the handlers of one filter. The client routes a
// message to every matching filter, so overlapping filters don't
// duplicate handler calls. Topics not matching filter are ignored.
func (q *Queue) dispatcher(filter string) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		topic := msg.Topic()
		if !strings.HasPrefix(topic, q.TopicPrefix) {
			return
		}
		topic = topic[len(q.TopicPrefix):]
		if !MatchTopic(topic, filter) {
			return
		}
		glog.V(4).Infof("RCV %q", topic)
		q.lock.RLock()
		subs := q.subs[filter]
		handlers := make([]Handler, 0, len(subs))
		for _, sub := range subs {
			handlers = append(handlers, sub.handler)
		}
		q.lock.RUnlock()
		payload := msg.Payload()
		for _, h := range handlers {
			h(topic, payload)
		}
	}
}

// Close removes the handler, unsubscribing when it's the last one.
func (s *Subscription) Close() error {
	q := s.queue
	q.lock.Lock()
	subs := q.subs[s.filter]
	for i, sub := range subs {
		if sub == s {
			subs = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	last := len(subs) == 0
	if last {
		delete(q.subs, s.filter)
	} else {
		q.subs[s.filter] = subs
	}
	q.lock.Unlock()
	if last {
		glog.V(2).Infof("UNSUB %q", q.TopicPrefix+s.filter)
		return Wait(q.Client.Unsubscribe(q.TopicPrefix + s.filter))
	}
	return nil
}
